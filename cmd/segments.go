package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"wealth/daily/internal/history"
	"wealth/daily/internal/narration"
)

var (
	segmentsDate string
	segmentsJSON bool
)

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Print the narration segments of a lesson",
	Long:  "Splits the lesson for --date (default: newest entry) into speech-sized segments of at most 280 characters.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := history.NewStore(settings.HistoryPath(), settings.ArchivePath(), settings.History.Limit)
		items, err := store.Load()
		if err != nil {
			return err
		}
		entry, err := pickEntry(items, segmentsDate)
		if err != nil {
			return err
		}
		segs := narration.Collect(entry)

		if segmentsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(segs)
		}
		printSegments(os.Stdout, entry, segs)
		return nil
	},
}

func init() {
	segmentsCmd.Flags().StringVar(&segmentsDate, "date", "", "Lesson date (YYYY-MM-DD)")
	segmentsCmd.Flags().BoolVar(&segmentsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(segmentsCmd)
}

func pickEntry(items []history.Entry, date string) (history.Entry, error) {
	if date == "" {
		if len(items) == 0 {
			return history.Entry{}, fmt.Errorf("history is empty")
		}
		return items[0], nil
	}
	e, ok := narration.FindByDate(items, date)
	if !ok {
		return history.Entry{}, fmt.Errorf("no lesson for %s in history", date)
	}
	return e, nil
}

func printSegments(w io.Writer, e history.Entry, segs []narration.Segment) {
	fmt.Fprintf(w, "%s  %s  (%d segments)\n", e.Date, e.Topic, len(segs))
	for _, s := range segs {
		fmt.Fprintf(w, "%3d %-10s %3d  %s\n", s.Index, s.Part, s.Chars, s.Text)
	}
}
