package universe

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/external/fmp"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// usExchanges are the exchanges the screener source pulls from
var usExchanges = []string{"NYSE", "NASDAQ", "AMEX"}

// CSVProvider reads the ticker universe from a CSV file with a symbol column
type CSVProvider struct {
	path   string
	logger *logger.Logger
}

// NewCSVProvider creates a CSV-backed universe provider
func NewCSVProvider(path string, log *logger.Logger) *CSVProvider {
	return &CSVProvider{path: path, logger: log}
}

// Tickers returns the ordered, de-duplicated symbols from the CSV
func (p *CSVProvider) Tickers(ctx context.Context) ([]string, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("universe CSV not found: %w", err)
	}
	defer f.Close()

	symbols, err := readSymbolColumn(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse universe CSV %s: %w", p.path, err)
	}

	p.logger.Infof("Universe loaded from CSV: %d tickers", len(symbols))
	return symbols, nil
}

// readSymbolColumn parses a CSV with a header row containing "symbol"
func readSymbolColumn(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	symbolIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "symbol") {
			symbolIdx = i
			break
		}
	}
	if symbolIdx < 0 {
		return nil, fmt.Errorf("no symbol column in header %v", header)
	}

	seen := make(map[string]bool)
	var symbols []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if symbolIdx >= len(row) {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(row[symbolIdx]))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// ScreenerProvider builds the universe from the FMP company screener across
// the major US exchanges, with price/cap/volume pre-filters. A field absent
// from a screener row never excludes the symbol; the hard gates re-check
// later with full data.
type ScreenerProvider struct {
	client *fmp.Client
	cfg    config.UniverseConfig
	filter config.ScreenerConfig
	logger *logger.Logger
}

// NewScreenerProvider creates an FMP-screener-backed universe provider
func NewScreenerProvider(client *fmp.Client, cfg config.UniverseConfig, filter config.ScreenerConfig, log *logger.Logger) *ScreenerProvider {
	return &ScreenerProvider{client: client, cfg: cfg, filter: filter, logger: log}
}

// Tickers fetches each exchange and merges the results. A single exchange
// failing is logged and skipped, not fatal.
func (p *ScreenerProvider) Tickers(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var symbols []string

	for _, exchange := range usExchanges {
		rows, err := p.client.CompanyScreener(ctx, exchange, p.cfg.MaxPerExchange)
		if err != nil {
			p.logger.WithError(err).Warnf("Screener fetch failed for %s, continuing", exchange)
			continue
		}
		p.logger.Infof("Screener %s: %d companies", exchange, len(rows))

		for _, row := range rows {
			sym := strings.ToUpper(strings.TrimSpace(row.Symbol))
			if sym == "" || seen[sym] {
				continue
			}
			if row.Price != nil && *row.Price < p.filter.MinPrice {
				continue
			}
			if row.MarketCap != nil && *row.MarketCap < p.filter.MinMarketCap {
				continue
			}
			if p.filter.MinAvgVolume > 0 && row.AvgVolume != nil && *row.AvgVolume < p.filter.MinAvgVolume {
				continue
			}
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("screener universe is empty across %v", usExchanges)
	}

	p.logger.Infof("Universe after screener filters: %d tickers", len(symbols))
	return symbols, nil
}

// FromConfig picks the provider named by configuration
func FromConfig(cfg *config.Config, client *fmp.Client, log *logger.Logger) (contracts.UniverseProvider, error) {
	switch cfg.Universe.Source {
	case "csv":
		return NewCSVProvider(cfg.Universe.CSVPath, log), nil
	case "fmp":
		return NewScreenerProvider(client, cfg.Universe, cfg.Screener, log), nil
	default:
		return nil, fmt.Errorf("unknown universe source %q (want csv or fmp)", cfg.Universe.Source)
	}
}
