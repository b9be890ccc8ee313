package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xenking/storefront/internal/domain/auth"
)

func newLoginCommand(e *env) *cobra.Command {
	var c auth.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.Password == "" {
				c.Password = os.Getenv("SHOPCTL_PASSWORD")
			}
			sess, err := e.auth.Login(cmd.Context(), c)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", displayName(sess.User))
			return nil
		},
	}
	cmd.Flags().StringVarP(&c.Username, "username", "u", "", "username or email")
	cmd.Flags().StringVarP(&c.Password, "password", "p", "", "password (or SHOPCTL_PASSWORD)")
	return cmd
}

func newRegisterCommand(e *env) *cobra.Command {
	var r auth.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.Password == "" {
				r.Password = os.Getenv("SHOPCTL_PASSWORD")
			}
			sess, err := e.auth.Register(cmd.Context(), r)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s.\n", displayName(sess.User))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&r.Email, "email", "", "email address")
	f.StringVarP(&r.Password, "password", "p", "", "password (or SHOPCTL_PASSWORD)")
	f.StringVar(&r.Phone, "phone", "", "phone number")
	f.StringVar(&r.Name, "name", "", "full name")
	f.StringVar(&r.FirstName, "first-name", "", "first name")
	f.StringVar(&r.LastName, "last-name", "", "last name")
	return cmd
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e.auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printSession(cmd.OutOrStdout(), e.auth.Get())
			return nil
		},
	}
}

func displayName(u *auth.User) string {
	switch {
	case u == nil:
		return "unknown user"
	case u.DisplayName != "":
		return u.DisplayName
	default:
		return u.Email
	}
}
