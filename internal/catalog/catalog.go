// Package catalog loads observing catalogs produced by cmd/gencatalog.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
)

// Load reads a catalog JSON file, normalizes its type and constellation
// labels, and rejects duplicate (catalog, number) entries. The returned slice
// keeps file order.
func Load(path string) ([]domain.CatalogObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var objects []domain.CatalogObject
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("catalog %s has no entries", path)
	}

	// Catalog codes compare case-insensitively, so "M" and "m" collide.
	keys := make(map[string]struct{}, len(objects))
	for _, o := range objects {
		key := fmt.Sprintf("%s%d", strings.ToUpper(strings.TrimSpace(o.Catalog)), o.Number)
		if _, dup := keys[key]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate entry %s", path, key)
		}
		keys[key] = struct{}{}
	}

	return domain.NormalizeCatalog(objects), nil
}
