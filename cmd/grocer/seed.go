package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/handler"
	"github.com/xenking/grocery-console/internal/store"
)

const defaultSeedBatch = 50

func (c *cli) seedCmd() *cobra.Command {
	var (
		batch  int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "seed FILE...",
		Short: "Bulk create products from JSON files",
		Long: "Bulk create products from JSON files. A file holds an array of products " +
			"or an object with a \"products\" array and may be gzip compressed (.gz).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			ctx := cmd.Context()
			if batch < 1 {
				return errors.Errorf("--batch must be 1 or more, got %d", batch)
			}

			in, err := readProductFiles(files)
			if err != nil {
				return err
			}
			if err := store.ValidateBatch(in); err != nil {
				return err
			}
			c.lg.Info("Products read", zap.Int("files", len(files)), zap.Int("products", len(in)))
			if dryRun {
				_, _ = fmt.Fprintf(c.out, "%d products are valid.\n", len(in))
				return nil
			}

			st, err := c.store()
			if err != nil {
				return err
			}
			products := st.Products()
			created := 0
			for chunk := range slices.Chunk(in, batch) {
				if err := products.BulkCreate(ctx, chunk).Wait(ctx); err != nil {
					return errors.Wrapf(err, "create products %d-%d", created+1, created+len(chunk))
				}
				created += len(chunk)
				c.lg.Info("Seed progress", zap.Int("created", created), zap.Int("total", len(in)))
			}

			if c.json {
				c.printProducts(products.Snapshot())
				return nil
			}
			_, _ = fmt.Fprintf(c.out, "Created %d products.\n", created)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", defaultSeedBatch, "Products per bulk request")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the files without creating anything")
	return cmd
}

// readProductFiles decodes files concurrently and returns their products in
// argument order.
func readProductFiles(files []string) ([]product.Input, error) {
	parts := make([][]product.Input, len(files))

	var g errgroup.Group
	for i, path := range files {
		g.Go(func() error {
			in, err := readProductFile(path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			parts[i] = in
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(parts...), nil
}

func readProductFile(path string) ([]product.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return handler.ParseProductInputs(data)
}
