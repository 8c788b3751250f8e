package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/grocery-console/internal/domain/order"
)

func (c *cli) ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order", "o"},
		Short:   "List, place and fulfil orders",
	}
	cmd.AddCommand(
		c.ordersListCmd(),
		c.ordersStatusCmd(),
		c.ordersPlaceCmd(),
	)
	return cmd
}

func (c *cli) ordersListCmd() *cobra.Command {
	var f order.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := c.store()
			if err != nil {
				return err
			}
			orders := st.Orders()
			err = orders.List(ctx, f).Wait(ctx)
			if err == nil || c.json {
				c.printOrders(orders.Snapshot())
			}
			return err
		},
	}
	cmd.Flags().IntVar(&f.Page, "page", 1, "Page number")
	return cmd
}

func (c *cli) ordersStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Move an order to another fulfilment status",
		Long: "Move an order to another fulfilment status: " +
			"pending, processing, shipped, delivered or cancelled.",
		Args: cobra.ExactArgs(2),
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
			orders := st.Orders()
			status := order.Status(strings.ToLower(args[1]))
			err = orders.SetStatus(ctx, id, status).Wait(ctx)
			if c.json {
				c.printOrders(orders.Snapshot())
				return err
			}
			if err == nil {
				_, _ = fmt.Fprintf(c.out, "Order %d is now %s.\n", id, status)
			}
			return err
		},
	}
}

// parseLine reads a PRODUCT:QTY order line. The quantity defaults to one.
func parseLine(s string) (order.LineInput, error) {
	product, qty, found := strings.Cut(s, ":")
	id, err := strconv.ParseInt(product, 10, 64)
	if err != nil {
		return order.LineInput{}, errors.Errorf("invalid product id in --item %q", s)
	}
	line := order.LineInput{ProductID: id, Quantity: 1}
	if found {
		if line.Quantity, err = strconv.Atoi(qty); err != nil {
			return order.LineInput{}, errors.Errorf("invalid quantity in --item %q", s)
		}
	}
	return line, nil
}

func (c *cli) ordersPlaceCmd() *cobra.Command {
	var (
		items   []string
		address string
	)
	cmd := &cobra.Command{
		Use:     "place",
		Short:   "Place an order as the logged in user",
		Example: "  grocer orders place --item 3:2 --item 7 --address 'Main St 1'",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			in := order.PlaceInput{ShippingAddress: address}
			for _, s := range items {
				line, err := parseLine(s)
				if err != nil {
					return err
				}
				in.Items = append(in.Items, line)
			}

			st, err := c.store()
			if err != nil {
				return err
			}
			orders := st.Orders()
			err = orders.Place(ctx, in).Wait(ctx)
			snap := orders.Snapshot()
			if c.json {
				c.printOrders(snap)
				return err
			}
			if err == nil && len(snap.Items) > 0 {
				placed := snap.Items[len(snap.Items)-1]
				_, _ = fmt.Fprintf(c.out, "Placed order %d, total %s.\n", placed.ID, placed.TotalAmount.StringFixed(2))
			}
			return err
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "Order line as PRODUCT[:QTY], repeatable")
	cmd.Flags().StringVar(&address, "address", "", "Shipping address")
	return cmd
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the admin dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := c.store()
			if err != nil {
				return err
			}
			d := st.Dashboard()
			err = d.Load(ctx).Wait(ctx)
			if err == nil || c.json {
				c.printDashboard(d.Snapshot())
			}
			return err
		},
	}
}
