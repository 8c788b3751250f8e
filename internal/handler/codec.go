package handler

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/dashboard"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/domain/user"
	"github.com/xenking/grocery-console/internal/resource"
	"github.com/xenking/grocery-console/internal/store"
)

// The JSON surface keeps the backend's field names so a UI written against
// the REST API reads snapshots without a second model.

const maxRequestBody = 1 << 20

// readBody decodes the request body with fn. Malformed JSON is reported as
// a validation error so the caller answers 400.
func readBody(r *http.Request, fn func(d *jx.Decoder) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := fn(jx.DecodeBytes(body)); err != nil {
		return &apierr.ValidationError{Summary: "Malformed JSON body."}
	}
	return nil
}

// decode reads the request body with fn.
func decode[T any](r *http.Request, fn func(d *jx.Decoder) (T, error)) (T, error) {
	var out T
	err := readBody(r, func(d *jx.Decoder) (err error) {
		out, err = fn(d)
		return err
	})
	return out, err
}

func readString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func readInt64(d *jx.Decoder) (int64, error) {
	switch d.Next() {
	case jx.Null:
		return 0, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	default:
		return d.Int64()
	}
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

func decodeProductInput(d *jx.Decoder) (in product.Input, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			in.Name, err = readString(d)
		case "description":
			in.Description, err = readString(d)
		case "category":
			in.CategoryID, err = readInt64(d)
		case "price":
			in.Price, err = readDecimal(d)
		case "quantity":
			var q int64
			q, err = readInt64(d)
			in.Quantity = int(q)
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func decodeCategoryInput(d *jx.Decoder) (in product.CategoryInput, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			in.Name, err = readString(d)
		case "description":
			in.Description, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func decodeCredentials(d *jx.Decoder) (c user.Credentials, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "username":
			c.Username, err = readString(d)
		case "password":
			c.Password, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func decodeRegistration(d *jx.Decoder) (reg user.Registration, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "username":
			reg.Username, err = readString(d)
		case "password":
			reg.Password, err = readString(d)
		case "email":
			reg.Email, err = readString(d)
		case "first_name":
			reg.FirstName, err = readString(d)
		case "last_name":
			reg.LastName, err = readString(d)
		case "phone":
			reg.Phone, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return reg, err
}

func decodeProfile(d *jx.Decoder) (upd user.ProfileUpdate, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "first_name":
			upd.FirstName, err = readString(d)
		case "last_name":
			upd.LastName, err = readString(d)
		case "email":
			upd.Email, err = readString(d)
		case "phone":
			upd.Phone, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return upd, err
}

func decodePasswordChange(d *jx.Decoder) (chg user.PasswordChange, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "current_password":
			chg.CurrentPassword, err = readString(d)
		case "new_password":
			chg.NewPassword, err = readString(d)
		case "confirm_password":
			chg.ConfirmPassword, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return chg, err
}

func decodePlaceInput(d *jx.Decoder) (in order.PlaceInput, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "shipping_address":
			in.ShippingAddress, err = readString(d)
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var line order.LineInput
				err := d.Obj(func(d *jx.Decoder, key string) (err error) {
					switch key {
					case "product":
						line.ProductID, err = readInt64(d)
					case "quantity":
						var q int64
						q, err = readInt64(d)
						line.Quantity = int(q)
					default:
						err = d.Skip()
					}
					return err
				})
				in.Items = append(in.Items, line)
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func decodeStatus(d *jx.Decoder) (status order.Status, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		s, err := readString(d)
		status = order.Status(s)
		return err
	})
	return status, err
}

// Encoding.

func encodeTime(e *jx.Encoder, t time.Time) {
	if t.IsZero() {
		e.Null()
		return
	}
	e.Str(t.Format(time.RFC3339))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("category")
	e.Int64(p.CategoryID)
	e.FieldStart("category_name")
	e.Str(p.CategoryName)
	e.FieldStart("price")
	e.Str(p.Price.StringFixed(2))
	e.FieldStart("quantity")
	e.Int(p.Quantity)
	e.FieldStart("created_at")
	encodeTime(e, p.CreatedAt)
	e.FieldStart("updated_at")
	encodeTime(e, p.UpdatedAt)
	e.ObjEnd()
}

func encodeCategory(e *jx.Encoder, c product.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("description")
	e.Str(c.Description)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("user")
	e.Int64(o.UserID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("total_amount")
	e.Str(o.TotalAmount.StringFixed(2))
	e.FieldStart("shipping_address")
	e.Str(o.ShippingAddress)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(it.ID)
		e.FieldStart("product")
		e.Int64(it.ProductID)
		e.FieldStart("product_name")
		e.Str(it.ProductName)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.Str(it.Price.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("created_at")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("updated_at")
	encodeTime(e, o.UpdatedAt)
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u user.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(u.ID)
	e.FieldStart("username")
	e.Str(u.Username)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("first_name")
	e.Str(u.FirstName)
	e.FieldStart("last_name")
	e.Str(u.LastName)
	e.FieldStart("phone")
	e.Str(u.Phone)
	e.FieldStart("role")
	e.Str(string(u.Role))
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s dashboard.Summary) {
	e.ObjStart()
	e.FieldStart("total_users")
	e.Int(s.Users)
	e.FieldStart("total_products")
	e.Int(s.Products)
	e.FieldStart("total_categories")
	e.Int(s.Categories)
	e.FieldStart("total_orders")
	e.Int(s.Orders)
	e.FieldStart("total_revenue")
	e.Str(s.Revenue.StringFixed(2))
	e.FieldStart("monthly")
	e.ArrStart()
	for _, m := range s.Months {
		e.ObjStart()
		e.FieldStart("month")
		e.Str(m.Label)
		e.FieldStart("revenue")
		e.Str(m.Revenue.StringFixed(2))
		e.FieldStart("orders")
		e.Int(m.Orders)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("recent_orders")
	e.ArrStart()
	for _, o := range s.Recent {
		encodeOrder(e, o)
	}
	e.ArrEnd()
	e.FieldStart("generated_at")
	encodeTime(e, s.GeneratedAt)
	e.ObjEnd()
}

// encodeError writes the error object of a snapshot: the user-visible
// detail plus per-field messages for validation failures.
func encodeError(e *jx.Encoder, err error) {
	if err == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("detail")
	e.Str(apierr.Message(err))

	var verr *apierr.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		e.FieldStart("fields")
		e.ObjStart()
		for _, k := range keys {
			e.FieldStart(k)
			e.ArrStart()
			for _, msg := range verr.Fields[k] {
				e.Str(msg)
			}
			e.ArrEnd()
		}
		e.ObjEnd()
	}
	if unauthorized(err) {
		e.FieldStart("login")
		e.Str(loginPath)
	}
	e.ObjEnd()
}

func encodeList[T resource.Entity](e *jx.Encoder, l resource.List[T], item func(*jx.Encoder, T)) {
	e.ObjStart()
	e.FieldStart("status")
	e.Str(l.Status.String())
	e.FieldStart("error")
	encodeError(e, l.Err)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range l.Items {
		item(e, it)
	}
	e.ArrEnd()
	e.FieldStart("page")
	e.ObjStart()
	e.FieldStart("total_count")
	e.Int(l.Page.TotalCount)
	e.FieldStart("page_size")
	e.Int(l.Page.PageSize)
	e.FieldStart("current_page")
	e.Int(l.Page.CurrentPage)
	e.FieldStart("total_pages")
	e.Int(l.Page.TotalPages())
	e.ObjEnd()
	e.FieldStart("selected")
	if l.Selected != nil {
		item(e, *l.Selected)
	} else {
		e.Null()
	}
	e.ObjEnd()
}

func encodeValue[T any](e *jx.Encoder, v resource.Value[T], data func(*jx.Encoder, T)) {
	e.ObjStart()
	e.FieldStart("status")
	e.Str(v.Status.String())
	e.FieldStart("error")
	encodeError(e, v.Err)
	e.FieldStart("data")
	if v.Value != nil {
		data(e, *v.Value)
	} else {
		e.Null()
	}
	e.ObjEnd()
}

func encodeAuth(e *jx.Encoder, a store.AuthState) {
	e.ObjStart()
	e.FieldStart("status")
	e.Str(a.Status.String())
	e.FieldStart("error")
	encodeError(e, a.Err)
	e.FieldStart("authenticated")
	e.Bool(a.Authenticated)
	e.FieldStart("user")
	if a.User != nil {
		encodeUser(e, *a.User)
	} else {
		e.Null()
	}
	e.FieldStart("registration_success")
	e.Bool(a.RegistrationSuccess)
	e.FieldStart("update_success")
	e.Bool(a.UpdateSuccess)
	e.ObjEnd()
}
