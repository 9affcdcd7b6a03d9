package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"audience-client/internal/pkg/config"
)

var (
	accountPath  string
	settingsPath string

	audienceName string
	segmentName  string
	inboxPath    string
	verbose      bool

	traceEnabled bool
	metricsFile  string
	userIDs      []string

	appCtx *app
)

// Execute разбирает аргументы и выполняет выбранную команду.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:          "audience",
		Short:        "Build, link and query audiences from user id files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			appCtx = a
			return nil
		},
		RunE: runBuild,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&accountPath, "account", "a", config.DefaultAccountFile, "account keys file")
	pf.StringVarP(&settingsPath, "config", "c", config.DefaultSettingsFile, "app settings file")
	pf.StringVarP(&audienceName, "audience-name", "n", "", "audience name (overrides settings)")
	pf.StringVarP(&segmentName, "segment-name", "s", "", "comma-separated segment names (overrides settings)")
	pf.StringVarP(&inboxPath, "path", "p", "", "inbox folder with user id files (overrides settings)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging and listings after build")
	pf.BoolVar(&traceEnabled, "trace", false, "print OpenTelemetry spans to stdout")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	pf.StringSliceVar(&userIDs, "user-ids", nil, "user ids to add to the segment instead of reading the inbox")

	root.AddCommand(buildCmd(), listCmd(), usageCmd(), deleteCmd())

	err := root.ExecuteContext(ctx)
	if appCtx != nil {
		err = errors.Join(err, appCtx.close(context.Background()))
	}
	return err
}
