package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

var importCmd = &cobra.Command{
	Use:   "import {exams|holidays|classes} <path|url>",
	Short: "Import an iCalendar file or URL",
	Long: `Runs one ingestion pipeline over a calendar file or http(s) URL.

  exams     replaces every previously imported exam
  holidays  adds all-day holiday entries
  classes   adds one class per occurrence, expanding weekly rules`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(models.ImportKindExams), string(models.ImportKindHolidays), string(models.ImportKindClasses)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := models.ImportKind(args[0])
		if !kind.Valid() {
			return fmt.Errorf("unknown import kind %q", args[0])
		}

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.importer.ImportFromSource(cmd.Context(), kind, args[1])
		if res != nil {
			fmt.Fprintln(cmd.OutOrStdout(), renderImport(res))
		}
		return err
	},
}
