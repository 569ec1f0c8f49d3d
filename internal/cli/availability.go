package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"randevu/internal/reservation"
)

// AvailabilityOptions holds flags for the availability command.
type AvailabilityOptions struct {
	*RootOptions
	Date    string
	Profile string
	Type    string
}

// NewAvailabilityCommand prints the day view for a profile as JSON.
func NewAvailabilityCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AvailabilityOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Print available and occupied hours for a day",
		Long: `Compute the availability of every hour in the slot universe for one day.

Example:
  randevu availability --date 2025-02-15 --profile v --type delivery`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := a.engine.ComputeDayAvailability(cmd.Context(), opts.Date, opts.Profile, opts.Type)
			if err != nil {
				return wrapExitError(ExitCommandError, reservation.PublicMessage(err), nil)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(day)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "day to inspect, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.Profile, "profile", "g", "profile code or alias")
	cmd.Flags().StringVar(&opts.Type, "type", "", "appointment type; empty means any")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}
