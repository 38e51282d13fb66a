package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wealth/daily/internal/validate"
)

var (
	validateJSON    bool
	validateWorkers int
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the history, archive and catalog files",
	Long:  "Validates finance-daily.json, every archive/YYYY-MM.json and topics.json. Exits non-zero when any issue is found. Files are never modified.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := validate.Run(cmd.Context(), validate.Options{
			HistoryPath: settings.HistoryPath(),
			ArchiveDir:  settings.ArchivePath(),
			CatalogPath: settings.CatalogPath(),
			Limit:       settings.History.Limit,
			Concurrency: validateWorkers,
		})
		if err != nil {
			return err
		}

		if validateJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			printReport(os.Stdout, report)
		}

		if !report.OK() {
			return fmt.Errorf("validation found %d issue(s)", report.IssueCount())
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output as JSON")
	validateCmd.Flags().IntVar(&validateWorkers, "workers", 4, "Archive files checked in parallel")
	rootCmd.AddCommand(validateCmd)
}

func printReport(w io.Writer, r *validate.Report) {
	for _, f := range r.Files {
		if len(f.Issues) == 0 {
			fmt.Fprintf(w, "%s %s (%d entries)\n", color.New(color.FgGreen).Sprint("OK  "), f.Path, f.Entries)
			continue
		}
		fmt.Fprintf(w, "%s %s (%d issues)\n", color.New(color.FgRed).Sprint("FAIL"), f.Path, len(f.Issues))
		for _, is := range f.Issues {
			loc := "file"
			if is.Index >= 0 {
				loc = fmt.Sprintf("[%d]", is.Index)
			}
			if is.Field != "" {
				loc += " " + is.Field
			}
			fmt.Fprintf(w, "     %s: %s\n", loc, is.Message)
		}
	}
}
