package main

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/xenking/grocery-console/internal/domain/product"
)

func (c *cli) productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product", "p"},
		Short:   "Browse and manage the product catalog",
	}
	cmd.AddCommand(
		c.productsListCmd(),
		c.productsGetCmd(),
		c.productsCreateCmd(),
		c.productsUpdateCmd(),
		c.productsDeleteCmd(),
	)
	return cmd
}

func (c *cli) productsListCmd() *cobra.Command {
	var (
		f                  product.Filter
		minPrice, maxPrice string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var err error
			if f.MinPrice, err = nullDecimal("min-price", minPrice); err != nil {
				return err
			}
			if f.MaxPrice, err = nullDecimal("max-price", maxPrice); err != nil {
				return err
			}

			st, err := c.store()
			if err != nil {
				return err
			}
			products := st.Products()
			list := products.Filter
			if cmd.Flags().Changed("page") {
				list = products.List
			}
			err = list(ctx, f).Wait(ctx)
			if err == nil || c.json {
				c.printProducts(products.Snapshot())
			}
			return err
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&f.Page, "page", 1, "Page number")
	flags.StringVarP(&f.Search, "search", "s", "", "Search by name")
	flags.Int64Var(&f.CategoryID, "category", 0, "Category id")
	flags.StringVar(&minPrice, "min-price", "", "Minimum price")
	flags.StringVar(&maxPrice, "max-price", "", "Maximum price")
	return cmd
}

func nullDecimal(name, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, errors.Wrapf(err, "parse --%s", name)
	}
	return decimal.NewNullDecimal(d), nil
}

func (c *cli) productsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := c.store()
			if err != nil {
				return err
			}
			products := st.Products()
			err = products.Get(ctx, id).Wait(ctx)
			if err == nil || c.json {
				c.printProduct(products.Snapshot())
			}
			return err
		},
	}
}

// productFlags binds the product input fields. price is kept as text so a
// missing flag is distinguishable from zero.
type productFlags struct {
	in    product.Input
	price string
}

func (p *productFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&p.in.Name, "name", "", "Product name")
	flags.StringVar(&p.in.Description, "description", "", "Product description")
	flags.Int64Var(&p.in.CategoryID, "category", 0, "Category id")
	flags.StringVar(&p.price, "price", "", "Unit price, e.g. 2.49")
	flags.IntVar(&p.in.Quantity, "quantity", 0, "Units in stock")
}

// apply copies the changed flags onto in.
func (p *productFlags) apply(flags *pflag.FlagSet, in product.Input) (product.Input, error) {
	if flags.Changed("name") {
		in.Name = p.in.Name
	}
	if flags.Changed("description") {
		in.Description = p.in.Description
	}
	if flags.Changed("category") {
		in.CategoryID = p.in.CategoryID
	}
	if flags.Changed("quantity") {
		in.Quantity = p.in.Quantity
	}
	if flags.Changed("price") {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return in, errors.Wrap(err, "parse --price")
		}
		in.Price = price
	}
	return in, nil
}

func (c *cli) productsCreateCmd() *cobra.Command {
	var pf productFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a product to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			in, err := pf.apply(cmd.Flags(), product.Input{})
			if err != nil {
				return err
			}
			st, err := c.store()
			if err != nil {
				return err
			}
			products := st.Products()
			err = products.Create(ctx, in).Wait(ctx)
			snap := products.Snapshot()
			if c.json {
				c.printProducts(snap)
				return err
			}
			if err == nil && len(snap.Items) > 0 {
				created := snap.Items[len(snap.Items)-1]
				_, _ = fmt.Fprintf(c.out, "Created product %d (%s).\n", created.ID, created.Name)
			}
			return err
		},
	}
	pf.bind(cmd.Flags())
	return cmd
}

func (c *cli) productsUpdateCmd() *cobra.Command {
	var pf productFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a product",
		Long:  "Change a product. Fields without a flag keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := c.store()
			if err != nil {
				return err
			}
			products := st.Products()
			if err := products.Get(ctx, id).Wait(ctx); err != nil {
				return err
			}

			cur := products.Snapshot().Selected
			in, err := pf.apply(cmd.Flags(), product.Input{
				Name:        cur.Name,
				Description: cur.Description,
				CategoryID:  cur.CategoryID,
				Price:       cur.Price,
				Quantity:    cur.Quantity,
			})
			if err != nil {
				return err
			}
			if err := products.Update(ctx, id, in).Wait(ctx); err != nil {
				if c.json {
					c.printProducts(products.Snapshot())
				}
				return err
			}
			// Refresh the selection with the backend's copy.
			err = products.Get(ctx, id).Wait(ctx)
			if err == nil || c.json {
				c.printProduct(products.Snapshot())
			}
			return err
		},
	}
	pf.bind(cmd.Flags())
	return cmd
}

func (c *cli) productsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a product from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := c.store()
			if err != nil {
				return err
			}
			err = st.Products().Remove(ctx, id).Wait(ctx)
			if c.json {
				c.printProducts(st.Products().Snapshot())
				return err
			}
			if err == nil {
				_, _ = fmt.Fprintf(c.out, "Deleted product %d.\n", id)
			}
			return err
		},
	}
}

func (c *cli) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "c"},
		Short:   "Browse and manage product categories",
	}
	cmd.AddCommand(
		c.categoriesListCmd(),
		c.categoriesGetCmd(),
		c.categoriesCreateCmd(),
		c.categoriesUpdateCmd(),
		c.categoriesDeleteCmd(),
	)
	return cmd
}

func (c *cli) categoriesListCmd() *cobra.Command {
	var f product.CategoryFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := c.store()
			if err != nil {
				return err
			}
			categories := st.Categories()
			err = categories.List(ctx, f).Wait(ctx)
			if err == nil || c.json {
				c.printCategories(categories.Snapshot())
			}
			return err
		},
	}
	cmd.Flags().IntVar(&f.Page, "page", 1, "Page number")
	return cmd
}

func (c *cli) categoriesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := c.store()
			if err != nil {
				return err
			}
			categories := st.Categories()
			err = categories.Get(ctx, id).Wait(ctx)
			if err == nil || c.json {
				c.printCategories(categories.Snapshot())
			}
			return err
		},
	}
}

func (c *cli) categoriesCreateCmd() *cobra.Command {
	var in product.CategoryInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := c.store()
			if err != nil {
				return err
			}
			categories := st.Categories()
			err = categories.Create(ctx, in).Wait(ctx)
			snap := categories.Snapshot()
			if c.json {
				c.printCategories(snap)
				return err
			}
			if err == nil && len(snap.Items) > 0 {
				created := snap.Items[len(snap.Items)-1]
				_, _ = fmt.Fprintf(c.out, "Created category %d (%s).\n", created.ID, created.Name)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Category name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Category description")
	return cmd
}

func (c *cli) categoriesUpdateCmd() *cobra.Command {
	var upd product.CategoryInput
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a category",
		Long:  "Change a category. Fields without a flag keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := c.store()
			if err != nil {
				return err
			}
			categories := st.Categories()
			if err := categories.Get(ctx, id).Wait(ctx); err != nil {
				return err
			}

			cur := categories.Snapshot().Selected
			in := product.CategoryInput{Name: cur.Name, Description: cur.Description}
			if cmd.Flags().Changed("name") {
				in.Name = upd.Name
			}
			if cmd.Flags().Changed("description") {
				in.Description = upd.Description
			}
			if err := categories.Update(ctx, id, in).Wait(ctx); err != nil {
				if c.json {
					c.printCategories(categories.Snapshot())
				}
				return err
			}
			err = categories.Get(ctx, id).Wait(ctx)
			if err == nil || c.json {
				c.printCategories(categories.Snapshot())
			}
			return err
		},
	}
	cmd.Flags().StringVar(&upd.Name, "name", "", "Category name")
	cmd.Flags().StringVar(&upd.Description, "description", "", "Category description")
	return cmd
}

func (c *cli) categoriesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := c.store()
			if err != nil {
				return err
			}
			err = st.Categories().Remove(ctx, id).Wait(ctx)
			if c.json {
				c.printCategories(st.Categories().Snapshot())
				return err
			}
			if err == nil {
				_, _ = fmt.Fprintf(c.out, "Deleted category %d.\n", id)
			}
			return err
		},
	}
}
