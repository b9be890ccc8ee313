// Package cart holds the shopping cart model and its client-side store.
package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ProductID identifies a catalog product. Storefront payloads carry it either
// as a JSON number or a JSON string.
type ProductID string

// UnmarshalJSON accepts a number, a string or null.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "product id")
		}
		*id = ProductID(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return errors.Wrap(err, "product id")
		}
		*id = ProductID(n.String())
	case jx.Null:
		*id = ""
	default:
		return errors.Errorf("product id: unexpected %s", tt)
	}
	return nil
}

// Line is one product entry in the cart.
type Line struct {
	ID    ProductID       `json:"id"`
	Name  string          `json:"name"`
	Image string          `json:"img"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

// Total returns price * quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Lines is an ordered cart. Insertion order is preserved and no two lines
// share an ID.
type Lines []Line

// Count returns the sum of all quantities.
func (ls Lines) Count() int {
	total := 0
	for _, l := range ls {
		total += l.Qty
	}
	return total
}

// Subtotal returns the sum of price * quantity without intermediate rounding.
func (ls Lines) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range ls {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Index returns the position of the line with id, or -1.
func (ls Lines) Index(id ProductID) int {
	for i, l := range ls {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy.
func (ls Lines) Clone() Lines {
	out := make(Lines, len(ls))
	copy(out, ls)
	return out
}

// normalize repairs a cart read from storage: lines without an ID are
// dropped, quantities are clamped to 1 and duplicate IDs are merged into the
// first occurrence.
func normalize(ls Lines) (Lines, bool) {
	out := make(Lines, 0, len(ls))
	for _, l := range ls {
		if l.ID == "" {
			continue
		}
		if l.Qty < 1 {
			l.Qty = 1
		}
		if i := out.Index(l.ID); i >= 0 {
			out[i].Qty += l.Qty
			continue
		}
		out = append(out, l)
	}
	return out, true
}
