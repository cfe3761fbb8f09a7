package store

// DefaultChunkSize is the batch size used for bulk inserts
const DefaultChunkSize = 50

// DedupeByKey removes duplicate items sharing a key. The last occurrence
// wins and the original relative order of surviving items is preserved.
func DedupeByKey[T any](items []T, key func(T) string) []T {
	if len(items) == 0 {
		return items
	}

	last := make(map[string]int, len(items))
	for i, item := range items {
		last[key(item)] = i
	}

	out := make([]T, 0, len(last))
	for i, item := range items {
		if last[key(item)] == i {
			out = append(out, item)
		}
	}
	return out
}

// Chunk splits items into slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
