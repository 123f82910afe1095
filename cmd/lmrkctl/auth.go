package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lmrk/lmrkctl/pkg/session"
)

func loginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				if username, err = prompt("Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt("Password: "); err != nil {
					return err
				}
			}

			res := a.manager.Login(cmd.Context(), username, password)
			if !res.OK {
				return fmt.Errorf("%s", res.Message)
			}

			st := a.manager.State()
			fmt.Printf("Logged in as %s (%s)\n", st.User.Username, st.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.manager.Logout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.manager.Bootstrap(cmd.Context())
			st := a.manager.State()

			if !st.Authenticated {
				fmt.Println("Not logged in.")
				return nil
			}

			fmt.Printf("Logged in as %s (%s), user ID %d\n",
				st.User.Username, st.User.Role, st.User.UserID)
			if exp, ok := session.TokenExpiry(st.Token); ok {
				fmt.Printf("Token expires at %s (%s from now)\n",
					exp.Format(time.RFC3339), time.Until(exp).Round(time.Second))
			}
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged-in username",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(a.manager.State().User.Username)
			return nil
		},
	}
}

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if !a.manager.Refresh(cmd.Context()) {
				return fmt.Errorf("refresh failed; run `lmrkctl login`")
			}
			fmt.Println("Token refreshed.")
			return nil
		},
	}
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
