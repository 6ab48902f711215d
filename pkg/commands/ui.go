package commands

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tableflip.dev/journey/pkg/router"
	teaui "tableflip.dev/journey/pkg/runner/tea"
)

func addUI(topLevel *cobra.Command) {
	view := string(router.Default)
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "open the text-based user interface",
		Example: `
journey ui
journey ui --view journal
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New("ui needs a terminal; try journey moments or journey watch")
			}
			v, err := router.Parse(view)
			if err != nil {
				return err
			}
			s, err := open(cmd.Context(), openOptions{view: v})
			if err != nil {
				return err
			}
			defer s.Close()

			return teaui.Run(cmd.Context(), s.Journey, s.Log.Named("ui"))
		},
	}
	cmd.Flags().StringVar(&view, "view", view, "View to open first: moments, journal or purpose.")

	topLevel.AddCommand(cmd)
}
