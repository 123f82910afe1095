package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lmrk/lmrkctl/pkg/api"
)

func reportsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Run the admin reports",
	}
	cmd.AddCommand(
		reportsMenuCmd(a),
		highValueCmd(a),
		suspiciousCashCmd(a),
		userRightsCmd(a),
	)
	return cmd
}

func reportsMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu [filter]",
		Short: "List the backend-defined reports, optionally filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			items, err := a.client.ReportsMenu(cmd.Context())
			if err != nil {
				return err
			}

			var filter string
			if len(args) == 1 {
				filter = strings.ToLower(args[0])
			}
			for _, item := range items {
				if filter != "" && !strings.Contains(strings.ToLower(item.Caption), filter) {
					continue
				}
				fmt.Println(item.Caption)
			}
			return nil
		},
	}
}

// reportFlags binds the shared transaction report filter flags.
func reportFlags(cmd *cobra.Command, q *api.ReportQuery) {
	cmd.Flags().StringVar(&q.BranchName, "branch", "ALL", "Branch name")
	cmd.Flags().StringVar(&q.Section, "section", "DEPOSIT", "Section")
	cmd.Flags().StringVar(&q.Scheme, "scheme", "ALL", "Scheme")
	cmd.Flags().StringVar(&q.MinAmount, "min", "0", "Minimum amount")
	cmd.Flags().StringVar(&q.MaxAmount, "max", "0", "Maximum amount")
	cmd.Flags().StringVar(&q.FromDate, "from", "", "From date (yyyy-mm-dd)")
	cmd.Flags().StringVar(&q.ToDate, "to", "", "To date (yyyy-mm-dd)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func highValueCmd(a *app) *cobra.Command {
	var q api.ReportQuery

	cmd := &cobra.Command{
		Use:   "high-value",
		Short: "High-value transaction report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			rows, err := a.client.HighValueTransactions(cmd.Context(), q)
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), rows)
		},
	}
	reportFlags(cmd, &q)
	return cmd
}

func suspiciousCashCmd(a *app) *cobra.Command {
	var q api.ReportQuery

	cmd := &cobra.Command{
		Use:   "suspicious-cash",
		Short: "Suspicious cash transaction report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			rows, err := a.client.SuspiciousCashTransactions(cmd.Context(), q)
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), rows)
		},
	}
	reportFlags(cmd, &q)
	return cmd
}

func userRightsCmd(a *app) *cobra.Command {
	var q api.UserRightQuery

	cmd := &cobra.Command{
		Use:   "user-rights",
		Short: "User-right report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			rows, err := a.client.UserRights(cmd.Context(), q)
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&q.Username, "user", "", "Filter by username")
	cmd.Flags().StringVar(&q.BranchName, "branch", "", "Filter by branch")
	return cmd
}
