// Package catalog lists the named indicators, indices and sector presets the
// dashboard pages offer.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"marketbridge/internal/provider"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Item is one selectable series.
type Item struct {
	Name        string `json:"name" yaml:"name"`
	ID          string `json:"id" yaml:"id"`
	Provider    string `json:"provider" yaml:"provider"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Sector pairs a sector ETF with the macro indicators that drive it.
type Sector struct {
	ETF        string `json:"etf" yaml:"etf"`
	Indicators []Item `json:"indicators" yaml:"indicators"`
}

type Catalog struct {
	Indicators      []Item   `json:"indicators" yaml:"indicators"`
	Overview        []Item   `json:"overview" yaml:"overview"`
	Indices         []Item   `json:"indices" yaml:"indices"`
	Sectors         []Sector `json:"sectors" yaml:"sectors"`
	Stocks          []string `json:"stocks" yaml:"stocks"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// Parse decodes a catalog and fills in the provider of every item: macro
// indicators come from FRED, indices from Yahoo.
func Parse(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	fill(c.Indicators, provider.FRED)
	fill(c.Overview, provider.FRED)
	fill(c.Indices, provider.Yahoo)
	for _, s := range c.Sectors {
		fill(s.Indicators, provider.FRED)
	}
	return c, nil
}

func fill(items []Item, p string) {
	for i := range items {
		if items[i].Provider == "" {
			items[i].Provider = p
		}
	}
}

// Default returns the built-in catalog.
func Default() Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup finds an item by name or id, case-insensitively, across indicators,
// overview items, indices and sector indicators.
func (c Catalog) Lookup(key string) (Item, bool) {
	key = strings.TrimSpace(key)
	groups := [][]Item{c.Indicators, c.Overview, c.Indices}
	for _, s := range c.Sectors {
		groups = append(groups, s.Indicators)
	}
	for _, g := range groups {
		for _, it := range g {
			if strings.EqualFold(it.ID, key) || strings.EqualFold(it.Name, key) {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Sector returns the preset for etf.
func (c Catalog) Sector(etf string) (Sector, bool) {
	for _, s := range c.Sectors {
		if strings.EqualFold(s.ETF, etf) {
			return s, true
		}
	}
	return Sector{}, false
}

// SectorETFs lists the sector ETF tickers in catalog order.
func (c Catalog) SectorETFs() []string {
	out := make([]string, 0, len(c.Sectors))
	for _, s := range c.Sectors {
		out = append(out, s.ETF)
	}
	return out
}

// Requests turns items into fetch requests over the given window bounds.
func Requests(items []Item, base provider.Request) []provider.Request {
	out := make([]provider.Request, 0, len(items))
	for _, it := range items {
		r := base
		r.Provider, r.Symbol = it.Provider, it.ID
		out = append(out, r)
	}
	return out
}
