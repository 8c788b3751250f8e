package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	appkg "github.com/xenking/grocery-console/internal/app"
	"github.com/xenking/grocery-console/internal/domain/user"
)

// prompt reads one line from the command input, asking with label on the
// error stream so JSON output stays clean.
func (c *cli) prompt(r *bufio.Reader, label string) (string, error) {
	_, _ = fmt.Fprintf(c.errOut, "%s: ", label)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrapf(err, "read %s", strings.ToLower(label))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store as JSON for the browser UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Serve.Addr = addr
			}
			return appkg.Serve(cmd.Context(), c.lg, c.tel, c.cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var creds user.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r := bufio.NewReader(c.in)
			var err error
			if creds.Username == "" {
				if creds.Username, err = c.prompt(r, "Username"); err != nil {
					return err
				}
			}
			if creds.Password == "" {
				if creds.Password, err = c.prompt(r, "Password"); err != nil {
					return err
				}
			}

			st, err := c.store()
			if err != nil {
				return err
			}
			auth := st.Auth()
			err = auth.Login(ctx, creds).Wait(ctx)
			c.printAuth(auth.Snapshot())
			return err
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			st, err := c.store()
			if err != nil {
				return err
			}
			err = st.Auth().Logout()
			c.printAuth(st.Auth().Snapshot())
			return err
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := c.store()
			if err != nil {
				return err
			}
			err = st.Auth().LoadCurrentUser(ctx).Wait(ctx)
			snap := st.Auth().Snapshot()
			if c.json {
				c.printAuth(snap)
				return err
			}
			if err == nil {
				c.printUser(snap.User)
			}
			return err
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var reg user.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a customer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if reg.Password == "" {
				var err error
				if reg.Password, err = c.prompt(bufio.NewReader(c.in), "Password"); err != nil {
					return err
				}
			}
			st, err := c.store()
			if err != nil {
				return err
			}
			err = st.Auth().Register(ctx, reg).Wait(ctx)
			snap := st.Auth().Snapshot()
			if c.json {
				c.printAuth(snap)
				return err
			}
			if snap.RegistrationSuccess {
				_, _ = fmt.Fprintf(c.out, "Account %s created. Run `grocer login` to sign in.\n", reg.Username)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&reg.Username, "username", "u", "", "Username")
	f.StringVarP(&reg.Password, "password", "p", "", "Password (prompted when empty)")
	f.StringVar(&reg.Email, "email", "", "Email address")
	f.StringVar(&reg.FirstName, "first-name", "", "First name")
	f.StringVar(&reg.LastName, "last-name", "", "Last name")
	f.StringVar(&reg.Phone, "phone", "", "Phone number")
	return cmd
}

func (c *cli) profileCmd() *cobra.Command {
	var upd user.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the profile of the logged in user",
		Long:  "Update the profile of the logged in user. Fields without a flag keep their current value.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := c.store()
			if err != nil {
				return err
			}
			auth := st.Auth()
			if err := auth.LoadCurrentUser(ctx).Wait(ctx); err != nil {
				return err
			}

			cur := auth.Snapshot().User
			flags := cmd.Flags()
			in := user.ProfileUpdate{FirstName: cur.FirstName, LastName: cur.LastName, Email: cur.Email, Phone: cur.Phone}
			if flags.Changed("first-name") {
				in.FirstName = upd.FirstName
			}
			if flags.Changed("last-name") {
				in.LastName = upd.LastName
			}
			if flags.Changed("email") {
				in.Email = upd.Email
			}
			if flags.Changed("phone") {
				in.Phone = upd.Phone
			}

			err = auth.UpdateProfile(ctx, in).Wait(ctx)
			snap := auth.Snapshot()
			if c.json {
				c.printAuth(snap)
				return err
			}
			if err == nil {
				c.printUser(snap.User)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&upd.FirstName, "first-name", "", "First name")
	f.StringVar(&upd.LastName, "last-name", "", "Last name")
	f.StringVar(&upd.Email, "email", "", "Email address")
	f.StringVar(&upd.Phone, "phone", "", "Phone number")
	return cmd
}

func (c *cli) passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r := bufio.NewReader(c.in)
			var (
				chg user.PasswordChange
				err error
			)
			if chg.CurrentPassword, err = c.prompt(r, "Current password"); err != nil {
				return err
			}
			if chg.NewPassword, err = c.prompt(r, "New password"); err != nil {
				return err
			}
			if chg.ConfirmPassword, err = c.prompt(r, "Confirm new password"); err != nil {
				return err
			}

			st, err := c.store()
			if err != nil {
				return err
			}
			err = st.Auth().ChangePassword(ctx, chg).Wait(ctx)
			if c.json {
				c.printAuth(st.Auth().Snapshot())
				return err
			}
			if err == nil {
				_, _ = fmt.Fprintln(c.out, "Password changed.")
			}
			return err
		},
	}
}
