package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"randevu/internal/audit"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Month  string
	Output string
}

// NewExportCommand writes the monthly workbook.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a month of reservations and audit log to .xlsx",
		Long: `Write the reservations, audit log and profile settings of one month to a workbook.

Example:
  randevu export --month 2025-02 --output data/exports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			month, err := audit.ParseMonth(opts.Month, a.loc)
			if err != nil {
				return wrapExitError(ExitCommandError, "parse month", err)
			}
			dir := opts.Output
			if dir == "" {
				dir = a.cfg.Export.Path
			}

			path, err := a.exporter().ExportMonthToFile(cmd.Context(), month, dir)
			if err != nil {
				return wrapExitError(ExitFailure, "export", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Month, "month", "", "month to export, YYYY-MM (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory (default export.path)")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}
