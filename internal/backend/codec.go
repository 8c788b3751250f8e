package backend

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/domain/user"
	"github.com/xenking/grocery-console/internal/resource"
)

// Decoding helpers. The backend is a Django REST Framework service: ids are
// numbers, decimals are strings, optional values may be null.

func readString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func readID(d *jx.Decoder) (int64, error) {
	switch d.Next() {
	case jx.Null:
		return 0, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	default:
		return d.Int64()
	}
}

func readInt(d *jx.Decoder) (int, error) {
	id, err := readID(d)
	return int(id), err
}

func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(raw.String())
	}
}

func readTime(d *jx.Decoder) (time.Time, error) {
	s, err := readString(d)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "id":
			p.ID, err = readID(d)
		case "name":
			p.Name, err = readString(d)
		case "description":
			p.Description, err = readString(d)
		case "category":
			p.CategoryID, err = readID(d)
		case "category_name":
			p.CategoryName, err = readString(d)
		case "price":
			p.Price, err = readDecimal(d)
		case "quantity":
			p.Quantity, err = readInt(d)
		case "created_at":
			p.CreatedAt, err = readTime(d)
		case "updated_at":
			p.UpdatedAt, err = readTime(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "product.%s", key)
		}
		return nil
	})
	return p, err
}

func decodeCategory(d *jx.Decoder) (product.Category, error) {
	var c product.Category
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "id":
			c.ID, err = readID(d)
		case "name":
			c.Name, err = readString(d)
		case "description":
			c.Description, err = readString(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "category.%s", key)
		}
		return nil
	})
	return c, err
}

func decodeUser(d *jx.Decoder) (user.User, error) {
	var u user.User
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "id":
			u.ID, err = readID(d)
		case "username":
			u.Username, err = readString(d)
		case "email":
			u.Email, err = readString(d)
		case "first_name":
			u.FirstName, err = readString(d)
		case "last_name":
			u.LastName, err = readString(d)
		case "phone":
			u.Phone, err = readString(d)
		case "role":
			var r string
			r, err = readString(d)
			u.Role = user.Role(r)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "user.%s", key)
		}
		return nil
	})
	return u, err
}

func decodeOrder(d *jx.Decoder) (order.Order, error) {
	var o order.Order
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "id":
			o.ID, err = readID(d)
		case "user_id", "user":
			o.UserID, err = readID(d)
		case "status":
			var s string
			s, err = readString(d)
			o.Status = order.Status(s)
		case "total_amount":
			o.TotalAmount, err = readDecimal(d)
		case "shipping_address":
			o.ShippingAddress, err = readString(d)
		case "created_at":
			o.CreatedAt, err = readTime(d)
		case "updated_at":
			o.UpdatedAt, err = readTime(d)
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				item, err := decodeOrderItem(d)
				if err != nil {
					return err
				}
				o.Items = append(o.Items, item)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "order.%s", key)
		}
		return nil
	})
	return o, err
}

func decodeOrderItem(d *jx.Decoder) (order.Item, error) {
	var it order.Item
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "id":
			it.ID, err = readID(d)
		case "product":
			it.ProductID, err = readID(d)
		case "product_name":
			it.ProductName, err = readString(d)
		case "quantity":
			it.Quantity, err = readInt(d)
		case "price":
			it.Price, err = readDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return it, err
}

// decodePage reads a paginated envelope. Unpaginated endpoints answer with a
// bare array, which is treated as a single complete page.
func decodePage[T any](d *jx.Decoder, item func(*jx.Decoder) (T, error)) (resource.PageOf[T], error) {
	var (
		page     resource.PageOf[T]
		hasCount bool
	)
	readResults := func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			v, err := item(d)
			if err != nil {
				return err
			}
			page.Results = append(page.Results, v)
			return nil
		})
	}

	var err error
	if d.Next() == jx.Array {
		err = readResults(d)
	} else {
		err = d.Obj(func(d *jx.Decoder, key string) (err error) {
			switch key {
			case "count":
				page.Count, err = readInt(d)
				hasCount = true
			case "next":
				page.Next, err = readString(d)
			case "previous":
				page.Prev, err = readString(d)
			case "results":
				err = readResults(d)
			default:
				err = d.Skip()
			}
			return err
		})
	}
	if err != nil {
		return resource.PageOf[T]{}, errors.Wrap(err, "decode page")
	}
	if !hasCount {
		page.Count = len(page.Results)
	}
	return page, nil
}

func decodeToken(d *jx.Decoder) (Token, error) {
	var t Token
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "access":
			t.Access, err = readString(d)
		case "refresh":
			t.Refresh, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && t.Access == "" {
		err = errors.New("token response has no access token")
	}
	return t, err
}

// decodeValidation flattens a DRF error body into a ValidationError. Bodies
// come as {"field": ["msg"]}, {"detail": "msg"}, nested objects, or the
// bulk-create shape {"status": "error", "errors": [{"product_0": "msg"}]}.
func decodeValidation(body []byte) *apierr.ValidationError {
	verr := apierr.NewValidationError()
	if len(body) == 0 {
		return verr
	}
	if err := flattenErrors(jx.DecodeBytes(body), "", verr); err != nil {
		verr.Summary = strings.TrimSpace(string(body))
	}
	return verr
}

func flattenErrors(d *jx.Decoder, field string, verr *apierr.ValidationError) error {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		switch field {
		case "", "detail", "message", "error":
			if verr.Summary == "" {
				verr.Summary = s
			}
		case "status":
		default:
			verr.Add(field, s)
		}
		return nil
	case jx.Array:
		return d.Arr(func(d *jx.Decoder) error {
			return flattenErrors(d, field, verr)
		})
	case jx.Object:
		return d.Obj(func(d *jx.Decoder, key string) error {
			name := key
			if field != "" && field != "errors" {
				name = field + "." + key
			}
			return flattenErrors(d, name, verr)
		})
	default:
		return d.Skip()
	}
}

// Encoding helpers.

func encodeProductInput(e *jx.Encoder, in product.Input) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(in.Name)
	e.FieldStart("description")
	e.Str(in.Description)
	e.FieldStart("category")
	e.Int64(in.CategoryID)
	e.FieldStart("price")
	e.Str(in.Price.StringFixed(2))
	e.FieldStart("quantity")
	e.Int(in.Quantity)
	e.ObjEnd()
}

func encodeCategoryInput(e *jx.Encoder, in product.CategoryInput) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(in.Name)
	e.FieldStart("description")
	e.Str(in.Description)
	e.ObjEnd()
}

func encodeCredentials(e *jx.Encoder, c user.Credentials) {
	e.ObjStart()
	e.FieldStart("username")
	e.Str(c.Username)
	e.FieldStart("password")
	e.Str(c.Password)
	e.ObjEnd()
}

func encodeRegistration(e *jx.Encoder, r user.Registration) {
	e.ObjStart()
	e.FieldStart("username")
	e.Str(r.Username)
	e.FieldStart("password")
	e.Str(r.Password)
	e.FieldStart("email")
	e.Str(r.Email)
	e.FieldStart("first_name")
	e.Str(r.FirstName)
	e.FieldStart("last_name")
	e.Str(r.LastName)
	e.FieldStart("phone")
	e.Str(r.Phone)
	e.ObjEnd()
}

func encodeProfile(e *jx.Encoder, p user.ProfileUpdate) {
	e.ObjStart()
	e.FieldStart("first_name")
	e.Str(p.FirstName)
	e.FieldStart("last_name")
	e.Str(p.LastName)
	e.FieldStart("email")
	e.Str(p.Email)
	e.FieldStart("phone")
	e.Str(p.Phone)
	e.ObjEnd()
}

func encodePasswordChange(e *jx.Encoder, p user.PasswordChange) {
	e.ObjStart()
	e.FieldStart("current_password")
	e.Str(p.CurrentPassword)
	e.FieldStart("new_password")
	e.Str(p.NewPassword)
	e.ObjEnd()
}

func encodePlaceInput(e *jx.Encoder, in order.PlaceInput) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range in.Items {
		e.ObjStart()
		e.FieldStart("product")
		e.Int64(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("shipping_address")
	e.Str(in.ShippingAddress)
	e.ObjEnd()
}
