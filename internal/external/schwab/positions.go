package schwab

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wheelops/wheelhouse/internal/contracts"
)

type accountNumber struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

type accountResponse struct {
	SecuritiesAccount struct {
		Positions []struct {
			LongQuantity  float64 `json:"longQuantity"`
			ShortQuantity float64 `json:"shortQuantity"`
			AveragePrice  float64 `json:"averagePrice"`
			MarketValue   float64 `json:"marketValue"`
			Instrument    struct {
				Symbol           string `json:"symbol"`
				AssetType        string `json:"assetType"`
				UnderlyingSymbol string `json:"underlyingSymbol"`
			} `json:"instrument"`
		} `json:"positions"`
		CurrentBalances struct {
			LiquidationValue float64 `json:"liquidationValue"`
			CashBalance      float64 `json:"cashBalance"`
			BuyingPower      float64 `json:"buyingPower"`
		} `json:"currentBalances"`
	} `json:"securitiesAccount"`
}

// resolveAccountHash resolves and caches the encrypted account identifier.
// Single-account mode: the first mapping wins.
func (c *Client) resolveAccountHash(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.accountHash
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var mappings []accountNumber
	if err := c.getJSON(ctx, "/trader/v1/accounts/accountNumbers", nil, &mappings); err != nil {
		return "", fmt.Errorf("account number lookup failed: %w", err)
	}
	if len(mappings) == 0 || mappings[0].HashValue == "" {
		return "", fmt.Errorf("no account hash returned from accountNumbers")
	}
	if len(mappings) > 1 {
		c.logger.Warnf("Multiple Schwab accounts detected (%d), using the first", len(mappings))
	}

	c.mu.Lock()
	c.accountHash = mappings[0].HashValue
	c.mu.Unlock()

	return mappings[0].HashValue, nil
}

// Positions fetches current account holdings and balances
func (c *Client) Positions(ctx context.Context) (*contracts.AccountSnapshot, error) {
	hash, err := c.resolveAccountHash(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("fields", "positions")

	var acct accountResponse
	if err := c.getJSON(ctx, "/trader/v1/accounts/"+hash, params, &acct); err != nil {
		return nil, fmt.Errorf("account fetch failed: %w", err)
	}

	snap := &contracts.AccountSnapshot{
		AsOf:           time.Now().UTC(),
		AccountHash:    hash,
		LiquidationVal: acct.SecuritiesAccount.CurrentBalances.LiquidationValue,
		CashBalance:    acct.SecuritiesAccount.CurrentBalances.CashBalance,
		BuyingPower:    acct.SecuritiesAccount.CurrentBalances.BuyingPower,
	}

	for _, p := range acct.SecuritiesAccount.Positions {
		qty := p.LongQuantity
		if qty == 0 {
			qty = -p.ShortQuantity
		}
		snap.Positions = append(snap.Positions, contracts.Position{
			Symbol:        p.Instrument.Symbol,
			AssetType:     p.Instrument.AssetType,
			Quantity:      qty,
			AveragePrice:  p.AveragePrice,
			MarketValue:   p.MarketValue,
			UnderlyingSym: p.Instrument.UnderlyingSymbol,
		})
	}

	return snap, nil
}
