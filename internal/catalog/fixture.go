package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixture is the on-disk YAML catalog used for seeding and offline resolution:
//
//	products:
//	  - id: 1
//	    name: Mouse Wireless
//	    price_cents: 15000000
type Fixture struct {
	Products []Product `yaml:"products"`
}

// LoadFixture reads and validates a YAML catalog.
func LoadFixture(path string) ([]Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes a YAML catalog. Ids must be unique; the default currency is IDR.
func ParseFixture(raw []byte) ([]Product, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	seen := make(map[int64]struct{}, len(fx.Products))
	for i := range fx.Products {
		p := &fx.Products[i]
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("fixture product %d: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
		p.Name = strings.TrimSpace(p.Name)
		if p.Currency == "" {
			p.Currency = "IDR"
		}
	}
	if fx.Products == nil {
		fx.Products = []Product{}
	}
	return fx.Products, nil
}
