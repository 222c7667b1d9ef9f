package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	bookJSON         bool
	bookExportFormat string
	bookExportOutput string
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage stored books",
}

var bookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored books",
	Args:  cobra.NoArgs,
	RunE:  runBookList,
}

var bookGetCmd = &cobra.Command{
	Use:   "get [book-id]",
	Short: "Show a stored book",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookGet,
}

var bookExportCmd = &cobra.Command{
	Use:   "export [book-id]",
	Short: "Export a stored book",
	Long: `Renders a stored book in another format and writes it to a file.

Use --output - to write to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runBookExport,
}

var bookDeleteCmd = &cobra.Command{
	Use:   "delete [book-id]",
	Short: "Delete a stored book",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookDelete,
}

func init() {
	bookListCmd.Flags().BoolVar(&bookJSON, "json", false, "output as JSON")
	bookGetCmd.Flags().BoolVar(&bookJSON, "json", false, "output as JSON")
	bookExportCmd.Flags().StringVarP(&bookExportFormat, "format", "f", "md", "export format")
	bookExportCmd.Flags().StringVarP(&bookExportOutput, "output", "o", "", "output file (default <id>.<ext>)")

	bookCmd.AddCommand(bookListCmd)
	bookCmd.AddCommand(bookGetCmd)
	bookCmd.AddCommand(bookExportCmd)
	bookCmd.AddCommand(bookDeleteCmd)
	rootCmd.AddCommand(bookCmd)
}

func runBookList(cmd *cobra.Command, _ []string) error {
	if bookService == nil {
		return errBooksNotConfigured
	}

	books, err := bookService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}

	if bookJSON {
		return printJSON(cmd, books)
	}

	if len(books) == 0 {
		cmd.Println("No books stored.")
		return nil
	}

	st := NewStyles(nil, cmd.OutOrStdout())
	for _, b := range books {
		cmd.Printf("  %s  %s %s\n", st.Render(st.Title, b.ID), b.Title,
			st.Render(st.Muted, fmt.Sprintf("(%d sections, %s)", b.Sections, b.IngestedAt.Format("2006-01-02"))))
	}
	return nil
}

func runBookGet(cmd *cobra.Command, args []string) error {
	if bookService == nil {
		return errBooksNotConfigured
	}

	book, err := bookService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get book: %w", err)
	}

	if bookJSON {
		return printJSON(cmd, book)
	}

	st := NewStyles(nil, cmd.OutOrStdout())
	cmd.Println(st.Render(st.Title, book.Title))
	cmd.Printf("ID: %s\n", book.ID)
	cmd.Printf("Source: %s\n", book.SourceID)
	for k, v := range book.Metadata {
		cmd.Printf("%s: %s\n", k, v)
	}
	cmd.Println()
	for i, sec := range book.Sections {
		cmd.Printf("  [%d] %s %s\n", i+1, sec.Label,
			st.Render(st.Muted, fmt.Sprintf("(%d chars)", len([]rune(sec.Body)))))
	}
	return nil
}

func runBookExport(cmd *cobra.Command, args []string) error {
	if bookService == nil {
		return errBooksNotConfigured
	}

	out, err := bookService.Export(cmd.Context(), args[0], bookExportFormat)
	if err != nil {
		return fmt.Errorf("failed to export book: %w (formats: %s)", err, strings.Join(bookService.Formats(), ", "))
	}

	if bookExportOutput == "-" {
		_, err := cmd.OutOrStdout().Write(out.Data)
		return err
	}

	path := bookExportOutput
	if path == "" {
		path = out.Filename
	}
	if err := os.WriteFile(filepath.Clean(path), out.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	cmd.Printf("Exported %s to %s (%d bytes)\n", args[0], path, len(out.Data))
	return nil
}

func runBookDelete(cmd *cobra.Command, args []string) error {
	if bookService == nil {
		return errBooksNotConfigured
	}

	if err := bookService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	cmd.Printf("Book %s deleted.\n", args[0])
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
