package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/commands/options"
	"tableflip.dev/journey/pkg/config"
	"tableflip.dev/journey/pkg/logging"
	"tableflip.dev/journey/pkg/router"
)

var (
	oo = &options.OutputOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "journey",
		Short: base.Wrap80("Our moments, our journal and our purpose, shared between two people."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(config.KeyAppID, "", "Application id that namespaces the shared data.")
	cmd.PersistentFlags().String(config.KeyPath, "", "Data directory, defaults to ~/.journey.")
	cmd.PersistentFlags().Bool(config.KeyDebug, false, "Log at debug level.")
	_ = viper.BindPFlag(config.KeyAppID, cmd.PersistentFlags().Lookup(config.KeyAppID))
	_ = viper.BindPFlag(config.KeyPath, cmd.PersistentFlags().Lookup(config.KeyPath))
	_ = viper.BindPFlag(config.KeyDebug, cmd.PersistentFlags().Lookup(config.KeyDebug))

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addUI(topLevel)
	addMoments(topLevel)
	addJournal(topLevel)
	addPurpose(topLevel)
	addName(topLevel)
	addWhoami(topLevel)
	addKey(topLevel)
	addWatch(topLevel)
	addMCP(topLevel)
	addVersion(topLevel)
	addCompletions(topLevel)
}

// session is one opened journey for the life of a command.
type session struct {
	*app.App
	Log   *zap.Logger
	flush func()
}

func (s *session) Close() {
	s.App.Close()
	s.flush()
}

type openOptions struct {
	view    router.View
	confirm backend.Confirmer
	// console mirrors warnings to stderr.
	console bool
}

func open(ctx context.Context, o openOptions) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, flush := logging.New(logging.Options{File: cfg.LogFile, Console: o.console, Debug: cfg.Debug})
	a, err := app.Open(ctx, cfg, app.Options{View: o.view, Confirm: o.confirm, Logger: log})
	if err != nil {
		flush()
		return nil, err
	}
	a.Timeout = 15 * time.Second
	return &session{App: a, Log: log, flush: flush}, nil
}
