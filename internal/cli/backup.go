package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"randevu/internal/db"
)

// NewBackupCommand takes a single database snapshot and prunes expired ones.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the database now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := db.NewBackupService(a.db, a.cfg.Backup, &a.logger)
			path, err := svc.PerformBackup(cmd.Context())
			if err != nil {
				return wrapExitError(ExitFailure, "backup", err)
			}
			svc.CleanupOldBackups()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
