package commands

import (
	"github.com/spf13/cobra"

	"audience-client/internal/adapters/exporter"
	"audience-client/internal/adapters/source"
	"audience-client/internal/ports"
	"audience-client/internal/usecase"
)

// build: загрузить идентификаторы, собрать сегмент и аудиторию, выполнить запрос.
func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the segment and audience, then query it (default command)",
		Args:  cobra.NoArgs,
		RunE:  runBuild,
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appCtx.cfg

	var src ports.IdentifierSource
	if len(userIDs) > 0 {
		src = source.NewMemorySource(userIDs)
	} else {
		inbox := source.NewInboxSource(cfg.Settings.Inbox,
			source.WithLogger(appCtx.log),
			source.WithMetrics(appCtx.metrics),
		)
		pending, err := inbox.Pending()
		if err != nil {
			return err
		}
		if !pending {
			appCtx.log.InfoContext(ctx, "no files in inbox", "inbox", cfg.Settings.Inbox)
		}
		src = inbox
	}

	writers := []ports.ResultWriter{exporter.NewJSONFileWriter(cfg.Settings.Outbox, cfg.Settings.SerializeOutput)}
	if cfg.Settings.ExportXLSX {
		writers = append(writers, exporter.NewXLSXWriter(cfg.Settings.Outbox, cfg.Settings.SerializeOutput))
	}
	if cfg.Settings.Verbose {
		writers = append(writers, appCtx.printer)
	}

	uc := usecase.NewBuildUseCase(usecase.BuildConfig{
		AudienceName:        cfg.AudienceName(),
		SegmentNames:        cfg.SegmentNames(),
		Groupings:           cfg.Groupings,
		AddAudienceMetadata: cfg.Settings.AddAudienceMetadata,
	}, src, appCtx.segments, appCtx.audiences, appCtx.reconciler,
		usecase.WithResultWriters(writers...),
		usecase.WithBuildMetrics(appCtx.metrics),
		usecase.WithBuildLogger(appCtx.log),
	)

	if _, err := uc.Run(ctx); err != nil {
		return err
	}
	if cfg.Settings.Verbose {
		return appCtx.admin().List(ctx)
	}
	return nil
}
