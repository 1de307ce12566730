package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Site is one searchable site in the simulator catalog
type Site struct {
	Name     string  `yaml:"name"`
	Label    string  `yaml:"label"`
	Active   bool    `yaml:"active"`
	MinPrice float64 `yaml:"min_price"` // lower bound of generated prices
	MaxPrice float64 `yaml:"max_price"` // upper bound of generated prices
}

// Catalog is the set of sites the simulator knows how to "search"
type Catalog struct {
	Sites []Site `yaml:"sites"`
}

// DefaultCatalog returns the built-in site seed data
func DefaultCatalog() *Catalog {
	return &Catalog{
		Sites: []Site{
			{Name: "google_shopping", Label: "Google Shopping", Active: true, MinPrice: 199, MaxPrice: 4999},
			{Name: "myntra", Label: "Myntra", Active: true, MinPrice: 299, MaxPrice: 3999},
			{Name: "amazon", Label: "Amazon", Active: true, MinPrice: 149, MaxPrice: 5999},
			{Name: "flipkart", Label: "Flipkart", Active: true, MinPrice: 179, MaxPrice: 4499},
		},
	}
}

// LoadCatalog reads a YAML site catalog, falling back to the built-in one
// when no path is configured.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sites file %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse sites file %s: %w", path, err)
	}
	if len(catalog.Sites) == 0 {
		return nil, fmt.Errorf("sites file %s defines no sites", path)
	}

	return &catalog, nil
}

// Get returns the site with the given name
func (c *Catalog) Get(name string) (Site, bool) {
	for _, site := range c.Sites {
		if site.Name == name {
			return site, true
		}
	}
	return Site{}, false
}

// InvalidSites returns the requested names that are unknown or inactive
func (c *Catalog) InvalidSites(names []string) []string {
	var invalid []string
	for _, name := range names {
		site, ok := c.Get(name)
		if !ok || !site.Active {
			invalid = append(invalid, name)
		}
	}
	return invalid
}
