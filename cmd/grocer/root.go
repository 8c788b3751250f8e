package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/grocery-console/internal/apierr"
	appkg "github.com/xenking/grocery-console/internal/app"
	"github.com/xenking/grocery-console/internal/store"
	"github.com/xenking/grocery-console/pkg/httpmiddleware"
)

// cli is the state shared by every command of one invocation.
type cli struct {
	lg  *zap.Logger
	tel httpmiddleware.Telemetry

	cfg     *appkg.Config
	json    bool
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	console *appkg.Console
}

// rootFlags are the persistent flags that override the loaded config.
type rootFlags struct {
	backendURL  string
	sessionFile string
	timeout     time.Duration
	staleGuard  bool
}

func newRootCmd(lg *zap.Logger, tel httpmiddleware.Telemetry) *cobra.Command {
	c := &cli{lg: lg, tel: tel}
	var f rootFlags

	root := &cobra.Command{
		Use:           "grocer",
		Short:         "Grocery store console",
		Long:          "grocer manages the catalog, orders and account of a grocery store backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.in = cmd.InOrStdin()
			c.out = cmd.OutOrStdout()
			c.errOut = cmd.ErrOrStderr()

			cfg, err := appkg.LoadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("backend-url") {
				cfg.BackendURL = f.backendURL
			}
			if flags.Changed("session-file") {
				cfg.SessionFile = f.sessionFile
			}
			if flags.Changed("timeout") {
				cfg.Timeout = f.timeout
			}
			if flags.Changed("stale-guard") {
				cfg.StaleGuard = f.staleGuard
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.backendURL, "backend-url", "", "Base URL of the REST API (default from config)")
	pf.StringVar(&f.sessionFile, "session-file", "", "Token file (default from config)")
	pf.DurationVar(&f.timeout, "timeout", 0, "Timeout of a single backend request (default from config)")
	pf.BoolVar(&f.staleGuard, "stale-guard", false, "Drop listings that settle after a newer one")
	pf.BoolVar(&c.json, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		c.serveCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.registerCmd(),
		c.profileCmd(),
		c.passwdCmd(),
		c.productsCmd(),
		c.categoriesCmd(),
		c.ordersCmd(),
		c.dashboardCmd(),
		c.seedCmd(),
	)
	wrapErrors(root, c)
	return root
}

// wrapErrors closes the console after every command and prints its error
// for a person before returning it.
func wrapErrors(cmd *cobra.Command, c *cli) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if cerr := c.close(); err == nil {
				err = cerr
			}
			if err != nil {
				c.printError(err)
			}
			return err
		}
	}
	for _, sub := range cmd.Commands() {
		wrapErrors(sub, c)
	}
}

func (c *cli) printError(err error) {
	w := c.errOut
	if w == nil {
		w = os.Stderr
	}
	_, _ = fmt.Fprintln(w, "Error:", apierr.Message(err))
	if errors.Is(err, apierr.ErrUnauthorized) || errors.Is(err, store.ErrNoSession) {
		_, _ = fmt.Fprintln(w, "Run `grocer login` first.")
	}
}

// store builds the console on first use.
func (c *cli) store() (*store.Store, error) {
	if c.console == nil {
		opts := []store.Option{store.WithSessionInvalidHandler(func() {
			c.lg.Debug("Session invalidated by the backend")
		})}
		console, err := appkg.NewConsole(c.lg, c.tel, c.cfg, opts...)
		if err != nil {
			return nil, err
		}
		c.console = console
	}
	return c.console.Store, nil
}

func (c *cli) close() error {
	if c.console == nil {
		return nil
	}
	err := c.console.Close()
	c.console = nil
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid id %q", s)
	}
	return id, nil
}
