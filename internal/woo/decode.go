package woo

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

const defaultMinorUnit = 2

// decodeProductList accepts either a bare array of products or an object
// wrapping the array in "data".
func decodeProductList(data []byte) ([]product.Product, error) {
	d := jx.DecodeBytes(data)
	switch tt := d.Next(); tt {
	case jx.Array:
		return decodeProductArray(d)
	case jx.Object:
		var (
			out   []product.Product
			found bool
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			if key != "data" {
				return d.Skip()
			}
			if d.Next() != jx.Array {
				return errors.New(`"data" is not an array`)
			}
			found = true
			var err error
			out, err = decodeProductArray(d)
			return err
		}); err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.New(`object has no "data" array`)
		}
		return out, nil
	default:
		return nil, errors.Errorf("unexpected %s", tt)
	}
}

func decodeProductArray(d *jx.Decoder) ([]product.Product, error) {
	out := []product.Product{}
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := readProduct(d)
		if err != nil {
			return err
		}
		out = append(out, *p)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeProduct(data []byte) (*product.Product, error) {
	d := jx.DecodeBytes(data)
	if tt := d.Next(); tt != jx.Object {
		return nil, errors.Errorf("unexpected %s", tt)
	}
	return readProduct(d)
}

type rawPrices struct {
	price, regular, sale string
	currency             string
	minorUnit            int
	minorSet             bool
}

func (r rawPrices) amount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "price %q", s)
	}
	unit := defaultMinorUnit
	if r.minorSet {
		unit = r.minorUnit
	}
	return v.Shift(-int32(unit)), nil
}

func readProduct(d *jx.Decoder) (*product.Product, error) {
	var (
		p      product.Product
		prices rawPrices
		attrs  []product.Attribute
		hasID  bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int64()
			hasID = err == nil
		case "name":
			p.Name, err = readString(d)
		case "slug":
			p.Slug, err = readString(d)
		case "permalink":
			p.Permalink, err = readString(d)
		case "short_description":
			p.Description, err = readString(d)
		case "on_sale":
			p.OnSale, err = readBool(d)
		case "is_in_stock":
			p.InStock, err = readBool(d)
		case "prices":
			prices, err = readPrices(d)
		case "images":
			p.Images, err = readImages(d)
		case "categories":
			p.Categories, err = readCategories(d)
		case "attributes":
			attrs, err = readAttributes(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	}); err != nil {
		return nil, err
	}
	if !hasID {
		return nil, errMissingID
	}

	var err error
	if p.Price, err = prices.amount(prices.price); err != nil {
		return nil, err
	}
	if p.RegularPrice, err = prices.amount(prices.regular); err != nil {
		return nil, err
	}
	if p.SalePrice, err = prices.amount(prices.sale); err != nil {
		return nil, err
	}
	p.Currency = prices.currency
	p.Name = cleanMessage(p.Name)
	p.Description = cleanMessage(p.Description)
	p.StorageTags = product.StorageTags(attrs)
	return &p, nil
}

func readPrices(d *jx.Decoder) (rawPrices, error) {
	var r rawPrices
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "price":
			r.price, err = readScalar(d)
		case "regular_price":
			r.regular, err = readScalar(d)
		case "sale_price":
			r.sale, err = readScalar(d)
		case "currency_code":
			r.currency, err = readString(d)
		case "currency_minor_unit":
			r.minorUnit, err = d.Int()
			r.minorSet = err == nil
		default:
			err = d.Skip()
		}
		return err
	})
	return r, err
}

func readImages(d *jx.Decoder) ([]product.Image, error) {
	var out []product.Image
	err := d.Arr(func(d *jx.Decoder) error {
		var img product.Image
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "src":
				img.Src, err = readString(d)
			case "thumbnail":
				img.Thumbnail, err = readString(d)
			case "alt":
				img.Alt, err = readString(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if img.Src != "" {
			out = append(out, img)
		}
		return nil
	})
	return out, err
}

func readCategories(d *jx.Decoder) ([]product.Category, error) {
	var out []product.Category
	err := d.Arr(func(d *jx.Decoder) error {
		var c product.Category
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				c.ID, err = d.Int64()
			case "name":
				c.Name, err = readString(d)
			case "slug":
				c.Slug, err = readString(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

func readAttributes(d *jx.Decoder) ([]product.Attribute, error) {
	var out []product.Attribute
	err := d.Arr(func(d *jx.Decoder) error {
		var a product.Attribute
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				a.Name, err = readString(d)
			case "taxonomy":
				a.Taxonomy, err = readString(d)
			case "slug":
				a.Slug, err = readString(d)
			case "terms":
				a.Terms, err = readTerms(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

// readTerms accepts term objects with a "name" as well as plain strings.
func readTerms(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			out = append(out, s)
			return nil
		case jx.Object:
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "name" {
					return d.Skip()
				}
				s, err := readString(d)
				if err != nil {
					return err
				}
				out = append(out, s)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return out, err
}

func readString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func readBool(d *jx.Decoder) (bool, error) {
	if d.Next() == jx.Null {
		return false, d.Null()
	}
	return d.Bool()
}

// readScalar reads a string or a number as its textual form.
func readScalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		s, err := d.Str()
		return strings.TrimSpace(s), err
	}
}
