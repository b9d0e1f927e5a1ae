package entitlement

import (
	"fmt"
	"log"
	"strings"

	"github.com/fanhaven/purchasegate/src/verifybot/types"
	"gorm.io/gorm"
)

// Mapper resolves which role a purchased product confers. It is loaded once
// at startup and read-only afterwards.
type Mapper struct {
	// platform (lowercased) -> product ID (exact) -> role ID
	roles map[string]map[string]string
}

func NewMapper(roles map[string]map[string]string) *Mapper {
	normalized := make(map[string]map[string]string, len(roles))
	for platform, byProduct := range roles {
		normalized[strings.ToLower(platform)] = byProduct
	}
	return &Mapper{roles: normalized}
}

// LoadMapper reads the product_roles table.
func LoadMapper(db *gorm.DB) (*Mapper, error) {
	var rows []types.ProductRole
	if err := db.Preload("Platform").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load product roles: %w", err)
	}

	roles := make(map[string]map[string]string)
	for _, row := range rows {
		key := strings.ToLower(row.Platform.Name)
		if roles[key] == nil {
			roles[key] = make(map[string]string)
		}
		roles[key][row.ProductID] = row.RoleID
	}

	log.Printf("entitlement: loaded %d product mappings across %d platforms", len(rows), len(roles))
	return &Mapper{roles: roles}, nil
}

// Map looks up the role for a (platform, product) pair. Product IDs match
// exactly and case-sensitively; a miss means the product carries no
// entitlement and is not an error.
func (m *Mapper) Map(platform, productID string) (string, bool) {
	byProduct, ok := m.roles[strings.ToLower(platform)]
	if !ok {
		return "", false
	}
	roleID, ok := byProduct[productID]
	return roleID, ok
}

// Count returns how many products are mapped for a platform.
func (m *Mapper) Count(platform string) int {
	return len(m.roles[strings.ToLower(platform)])
}
