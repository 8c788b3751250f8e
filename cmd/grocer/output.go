package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/xenking/grocery-console/internal/dashboard"
	"github.com/xenking/grocery-console/internal/domain/order"
	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/domain/user"
	"github.com/xenking/grocery-console/internal/handler"
	"github.com/xenking/grocery-console/internal/resource"
	"github.com/xenking/grocery-console/internal/store"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func shortDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printFooter(w io.Writer, p resource.Page, noun string) {
	_, _ = fmt.Fprintf(w, "page %d/%d (%d %s)\n", p.CurrentPage, max(p.TotalPages(), 1), p.TotalCount, noun)
}

func (c *cli) printProducts(l resource.List[product.Product]) {
	if c.json {
		_, _ = c.out.Write(handler.MarshalProducts(l))
		return
	}
	writeProducts(c.out, l.Items)
	printFooter(c.out, l.Page, "products")
}

func writeProducts(w io.Writer, items []product.Product) {
	tw := table(w)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tQTY")
	for _, p := range items {
		category := p.CategoryName
		if category == "" {
			category = fmt.Sprintf("#%d", p.CategoryID)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", p.ID, truncate(p.Name, 40), category, p.Price.StringFixed(2), p.Quantity)
	}
	_ = tw.Flush()
}

func (c *cli) printProduct(l resource.List[product.Product]) {
	if c.json || l.Selected == nil {
		c.printProducts(l)
		return
	}
	p := l.Selected
	tw := table(c.out)
	_, _ = fmt.Fprintf(tw, "ID:\t%d\n", p.ID)
	_, _ = fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	_, _ = fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
	_, _ = fmt.Fprintf(tw, "Category:\t%s (#%d)\n", p.CategoryName, p.CategoryID)
	_, _ = fmt.Fprintf(tw, "Price:\t%s\n", p.Price.StringFixed(2))
	_, _ = fmt.Fprintf(tw, "Quantity:\t%d\n", p.Quantity)
	_, _ = fmt.Fprintf(tw, "Updated:\t%s\n", shortDate(p.UpdatedAt))
	_ = tw.Flush()
}

func (c *cli) printCategories(l resource.List[product.Category]) {
	if c.json {
		_, _ = c.out.Write(handler.MarshalCategories(l))
		return
	}
	items := l.Items
	if l.Selected != nil {
		items = []product.Category{*l.Selected}
	}
	tw := table(c.out)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, cat := range items {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", cat.ID, cat.Name, truncate(cat.Description, 60))
	}
	_ = tw.Flush()
	if l.Selected == nil {
		printFooter(c.out, l.Page, "categories")
	}
}

func (c *cli) printOrders(l resource.List[order.Order]) {
	if c.json {
		_, _ = c.out.Write(handler.MarshalOrders(l))
		return
	}
	writeOrders(c.out, l.Items)
	printFooter(c.out, l.Page, "orders")
}

func writeOrders(w io.Writer, items []order.Order) {
	tw := table(w)
	_, _ = fmt.Fprintln(tw, "ID\tUSER\tSTATUS\tTOTAL\tITEMS\tCREATED")
	for _, o := range items {
		lines := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, fmt.Sprintf("%dx %s", it.Quantity, it.ProductName))
		}
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			o.ID, o.UserID, o.Status, o.TotalAmount.StringFixed(2),
			truncate(strings.Join(lines, ", "), 50), shortDate(o.CreatedAt),
		)
	}
	_ = tw.Flush()
}

func (c *cli) printDashboard(v resource.Value[dashboard.Summary]) {
	if c.json {
		_, _ = c.out.Write(handler.MarshalDashboard(v))
		return
	}
	if v.Value == nil {
		_, _ = fmt.Fprintln(c.out, "No dashboard data.")
		return
	}
	s := v.Value

	tw := table(c.out)
	_, _ = fmt.Fprintf(tw, "Users:\t%d\n", s.Users)
	_, _ = fmt.Fprintf(tw, "Products:\t%d\n", s.Products)
	_, _ = fmt.Fprintf(tw, "Categories:\t%d\n", s.Categories)
	_, _ = fmt.Fprintf(tw, "Orders:\t%d\n", s.Orders)
	_, _ = fmt.Fprintf(tw, "Revenue:\t%s\n", s.Revenue.StringFixed(2))
	_ = tw.Flush()

	_, _ = fmt.Fprintln(c.out)
	tw = table(c.out)
	_, _ = fmt.Fprintln(tw, "MONTH\tREVENUE\tORDERS")
	for _, m := range s.Months {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\n", m.Label, m.Revenue.StringFixed(2), m.Orders)
	}
	_ = tw.Flush()

	if len(s.Recent) > 0 {
		_, _ = fmt.Fprintln(c.out, "\nRecent orders:")
		writeOrders(c.out, s.Recent)
	}
}

func (c *cli) printAuth(a store.AuthState) {
	if c.json {
		_, _ = c.out.Write(handler.MarshalAuth(a))
		return
	}
	switch {
	case !a.Authenticated:
		_, _ = fmt.Fprintln(c.out, "Not logged in.")
	case a.User == nil:
		_, _ = fmt.Fprintln(c.out, "Logged in.")
	default:
		_, _ = fmt.Fprintf(c.out, "Logged in as %s (%s).\n", a.User.Username, a.User.Role)
	}
}

func (c *cli) printUser(u *user.User) {
	if u == nil {
		return
	}
	tw := table(c.out)
	_, _ = fmt.Fprintf(tw, "ID:\t%d\n", u.ID)
	_, _ = fmt.Fprintf(tw, "Username:\t%s\n", u.Username)
	_, _ = fmt.Fprintf(tw, "Name:\t%s\n", strings.TrimSpace(u.FirstName+" "+u.LastName))
	_, _ = fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	_, _ = fmt.Fprintf(tw, "Phone:\t%s\n", u.Phone)
	_, _ = fmt.Fprintf(tw, "Role:\t%s\n", u.Role)
	_ = tw.Flush()
}
