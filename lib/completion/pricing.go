// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package completion

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// DefaultPriceTier is the model whose price applies to models the
// table does not know.
const DefaultPriceTier = "gpt-3.5-turbo"

//go:embed prices.jsonc
var defaultPricesJSONC []byte

// Price is the cost of one model in USD per 1,000 tokens.
type Price struct {
	Prompt     float64 `json:"prompt"`
	Completion float64 `json:"completion"`
}

// PriceTable maps model names to prices.
type PriceTable map[string]Price

// DefaultPrices returns the built-in price table. Panics if the
// embedded table is malformed, which is a build defect.
func DefaultPrices() PriceTable {
	table, err := ParsePriceTable(defaultPricesJSONC)
	if err != nil {
		panic(fmt.Sprintf("completion: embedded price table: %v", err))
	}
	return table
}

// ParsePriceTable parses a JSONC price table (JSON with comments and
// trailing commas).
func ParsePriceTable(data []byte) (PriceTable, error) {
	var table PriceTable
	if err := json.Unmarshal(jsonc.ToJSON(data), &table); err != nil {
		return nil, fmt.Errorf("completion: parsing price table: %w", err)
	}
	for model, price := range table {
		if price.Prompt < 0 || price.Completion < 0 {
			return nil, fmt.Errorf("completion: price table: negative price for %q", model)
		}
	}
	return table, nil
}

// LoadPriceTable returns the built-in prices overlaid with the JSONC
// table at path. An empty path returns the built-in prices.
func LoadPriceTable(path string) (PriceTable, error) {
	table := DefaultPrices()
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("completion: reading price table: %w", err)
	}
	overrides, err := ParsePriceTable(data)
	if err != nil {
		return nil, err
	}
	table.Merge(overrides)
	return table, nil
}

// Merge copies every entry of other into table, replacing existing
// entries.
func (table PriceTable) Merge(other PriceTable) {
	for model, price := range other {
		table[model] = price
	}
}

// Lookup returns the price for model: an exact match, else the
// longest key that prefixes model, else the DefaultPriceTier entry.
// The boolean reports whether a model-specific price was found.
func (table PriceTable) Lookup(model string) (Price, bool) {
	if price, ok := table[model]; ok {
		return price, true
	}
	bestKey := ""
	for key := range table {
		if strings.HasPrefix(model, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey != "" {
		return table[bestKey], true
	}
	return table[DefaultPriceTier], false
}

// Cost returns the estimated USD cost of a request to model.
func (table PriceTable) Cost(model string, promptTokens, completionTokens int64) float64 {
	price, _ := table.Lookup(model)
	return float64(promptTokens)/1000*price.Prompt +
		float64(completionTokens)/1000*price.Completion
}
