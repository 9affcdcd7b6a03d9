package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"audience-client/internal/pkg/term"
	"audience-client/internal/usecase"
)

// delete: удалить настроенные аудиторию и сегменты или, с --force, все ресурсы аккаунта.
func deleteCmd() *cobra.Command {
	var (
		force        bool
		withSegments bool
		yes          bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the configured audience and segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			admin := appCtx.admin(usecase.WithConfirmer(term.NewTerminal()))

			var (
				summary usecase.DeleteSummary
				err     error
			)
			if force {
				summary, err = admin.DeleteEverything(ctx, yes)
			} else {
				summary, err = admin.DeleteConfigured(ctx, appCtx.cfg.AudienceName(), appCtx.cfg.SegmentNames(), withSegments)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audience(s) and %d segment(s)\n", summary.Audiences, summary.Segments)

			if appCtx.cfg.Settings.Verbose {
				return admin.List(ctx)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete ALL audiences and segments")
	cmd.Flags().BoolVar(&withSegments, "with-segments", false, "also delete every segment of the configured audience")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
