// README: Bus service tiers; fares are scaled per category.
package types

import (
	"errors"
	"strings"
)

type Category string

const (
	CategoryNormal      Category = "normal"
	CategorySemiLuxury  Category = "semi-luxury"
	CategoryLuxury      Category = "luxury"
	CategorySuperLuxury Category = "super-luxury"
)

var ErrUnknownCategory = errors.New("unknown bus category")

// Categories lists every tier in ascending price order.
var Categories = []Category{CategoryNormal, CategorySemiLuxury, CategoryLuxury, CategorySuperLuxury}

// ParseCategory accepts the canonical names case-insensitively. Empty input means normal.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryNormal, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
