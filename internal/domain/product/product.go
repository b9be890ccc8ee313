// Package product models the read-only storefront catalog.
package product

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Permalink    string          `json:"permalink,omitempty"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Currency     string          `json:"currency"`
	OnSale       bool            `json:"on_sale"`
	InStock      bool            `json:"in_stock"`
	Images       []Image         `json:"images"`
	Categories   []Category      `json:"categories"`
	StorageTags  []string        `json:"storage_tags"`
}

// Image is a product image.
type Image struct {
	Src       string `json:"src"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Alt       string `json:"alt,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Attribute is a product attribute with its selected terms.
type Attribute struct {
	Name     string
	Taxonomy string
	Slug     string
	Terms    []string
}

// CartLine converts p into a cart line with the product's first image.
func (p Product) CartLine() cart.Line {
	l := cart.Line{
		ID:    cart.ProductID(strconv.FormatInt(p.ID, 10)),
		Name:  p.Name,
		Price: p.Price,
		Qty:   1,
	}
	if len(p.Images) > 0 {
		l.Image = p.Images[0].Src
	}
	return l
}

var storageAttributeKeys = []string{
	"storage",
	"pa_storage",
	"storage-method",
	"保存方式",
	"儲存方式",
	"储存方式",
}

func isStorageAttribute(a Attribute) bool {
	for _, candidate := range []string{a.Slug, a.Taxonomy, a.Name} {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		for _, key := range storageAttributeKeys {
			if candidate == key {
				return true
			}
		}
	}
	return false
}

// StorageTags returns the distinct terms of every storage-method attribute
// (frozen, chilled and so on) in first-seen order.
func StorageTags(attrs []Attribute) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, a := range attrs {
		if !isStorageAttribute(a) {
			continue
		}
		for _, term := range a.Terms {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			tags = append(tags, term)
		}
	}
	return tags
}

// Query filters a product listing. Zero values mean backend defaults.
type Query struct {
	Page     int
	PerPage  int
	Category string
	Search   string
}

// Catalog is a read-only product source.
type Catalog interface {
	List(ctx context.Context, q Query) ([]Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
}
