package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	planToday string
	planApply bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show or apply this week's adjustments",
	Long: `Computes the weekly adjustments: missed events move one week later,
and for every event finished early one pending event from next week is
pulled into the rest of this week. Nothing changes without --apply.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		today, err := parseDateFlag(planToday, a.rebalancer.Today())
		if err != nil {
			return err
		}

		if !planApply {
			fmt.Fprintln(cmd.OutOrStdout(), renderPlan(today, a.rebalancer.Preview(today)))
			return nil
		}

		res, err := a.rebalancer.Run(cmd.Context(), today)
		if res != nil {
			fmt.Fprintln(cmd.OutOrStdout(), renderPlan(today, res.Plan))
			fmt.Fprintf(cmd.OutOrStdout(), "%d applied, %d failed\n", res.Applied, len(res.Failures))
		}
		return err
	},
}

func init() {
	planCmd.Flags().StringVar(&planToday, "today", "", "Plan as of this date (YYYY-MM-DD)")
	planCmd.Flags().BoolVar(&planApply, "apply", false, "Move the events")
}
