package main

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

var weekDate string

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Print the schedule of one week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := parseDateFlag(weekDate, a.schedule.Today())
		if err != nil {
			return err
		}

		events := a.schedule.EventsForWeek(d)
		fmt.Fprintln(cmd.OutOrStdout(), renderWeek(unified.WeekStart(d), unified.WeekEnd(d), events))
		return nil
	},
}

func init() {
	weekCmd.Flags().StringVar(&weekDate, "date", "", "Any day of the week to show (YYYY-MM-DD), today by default")
}

func parseDateFlag(value string, fallback civil.Date) (civil.Date, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}
