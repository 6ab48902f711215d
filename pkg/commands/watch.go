package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tableflip.dev/journey/pkg/commands/options"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/runner/watch"
)

func addWatch(topLevel *cobra.Command) {
	ido := &options.IDOptions{}
	cmd := &cobra.Command{
		Use:       "watch <view>",
		Short:     "Print a view every time it changes",
		ValidArgs: []string{string(router.Moments), string(router.Journal), string(router.Purpose)},
		Example: `
journey watch journal
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := router.Default
			if len(args) == 1 {
				var err error
				if v, err = router.Parse(args[0]); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := open(ctx, openOptions{view: v, console: true})
			if err != nil {
				return err
			}
			defer s.Close()

			w := watch.Watch{View: v, ShowID: ido.ShowID, Journey: s.Journey, Out: cmd.OutOrStdout(), Log: s.Log.Named("watch")}
			return w.Do(ctx)
		},
	}
	options.AddShowIDArgs(cmd, ido)

	topLevel.AddCommand(cmd)
}
