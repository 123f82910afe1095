package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lmrk/lmrkctl/pkg/api"
)

func branchesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "branches",
		Short: "List branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			branches, err := a.client.Branches(cmd.Context())
			if err != nil {
				return err
			}
			for _, b := range branches {
				fmt.Printf("%d\t%s\n", b.ID, b.Name)
			}
			return nil
		},
	}
}

func sectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			sections, err := a.client.Sections(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range sections {
				fmt.Printf("%d\t%s\n", s.ID, s.Name)
			}
			return nil
		},
	}
}

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and create operator accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			rows, err := a.client.Users(cmd.Context())
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), rows)
		},
	}
	cmd.AddCommand(userCreateCmd(a))
	return cmd
}

func userCreateCmd(a *app) *cobra.Command {
	var u api.NewUser

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := a.client.CreateUser(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Printf("User %s created.\n", u.UserName)
			return nil
		},
	}

	cmd.Flags().StringVar(&u.UserName, "name", "", "Username")
	cmd.Flags().StringVar(&u.UserPassword, "password", "", "Password")
	cmd.Flags().StringVar(&u.UserType, "type", "user", "User type")
	cmd.Flags().StringVar(&u.UserAvailabilityStatus, "availability", "active", "Availability status")
	cmd.Flags().StringVar(&u.Mobile, "mobile", "", "Mobile number")
	cmd.Flags().StringVar(&u.Email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
