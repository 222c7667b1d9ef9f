package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	recordsLimit int
	recordsJSON  bool
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Show recent ingestion records",
	Long: `Lists the ingestion log newest first. Every ingestion attempt has
exactly one record, whatever its outcome.`,
	Args: cobra.NoArgs,
	RunE: runRecords,
}

func init() {
	recordsCmd.Flags().IntVarP(&recordsLimit, "limit", "n", 20, "maximum number of records (0 for all)")
	recordsCmd.Flags().BoolVar(&recordsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, _ []string) error {
	if bookService == nil {
		return errBooksNotConfigured
	}
	if recordsLimit < 0 {
		return fmt.Errorf("invalid limit %d", recordsLimit)
	}

	records, err := bookService.Records(cmd.Context(), recordsLimit)
	if err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}

	if recordsJSON {
		return printJSON(cmd, records)
	}

	if len(records) == 0 {
		cmd.Println("No ingestion records.")
		return nil
	}

	st := NewStyles(nil, cmd.OutOrStdout())
	for i := range records {
		r := &records[i]
		cmd.Printf("%s  %-20s %s", r.Timestamp.Local().Format("2006-01-02 15:04:05"), st.Outcome(r.Outcome), r.SourceID)
		if r.BookID != "" {
			cmd.Printf(" -> %s", r.BookID)
		}
		cmd.Println()
		if r.Message != "" {
			cmd.Printf("    %s\n", st.Render(st.Muted, r.Message))
		}
	}
	return nil
}
