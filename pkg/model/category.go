package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidCategory = goerr.New("invalid category")
)

// Category is the routing unit of a research query
type Category string

const (
	CategoryStocks  Category = "STOCKS"
	CategoryNews    Category = "NEWS"
	CategoryProduct Category = "PRODUCT"
	CategoryGeneral Category = "GENERAL"
)

// Categories returns all categories in their canonical order
func Categories() []Category {
	return []Category{
		CategoryStocks,
		CategoryNews,
		CategoryProduct,
		CategoryGeneral,
	}
}

// Validate checks if the category is one of the known labels
func (c Category) Validate() error {
	switch c {
	case CategoryStocks, CategoryNews, CategoryProduct, CategoryGeneral:
		return nil
	default:
		return goerr.Wrap(ErrInvalidCategory, "unknown category", goerr.V("category", string(c)))
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory trims and upper-cases s and accepts it only when it exactly
// matches one of the known labels.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}
