package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/journey/pkg/commands/options"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/runner/purpose"
)

func addPurpose(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "purpose",
		Short: "Show our purpose",
		Example: `
journey purpose
journey purpose set "to grow together"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listView(cmd, router.Purpose, &options.IDOptions{}, nil)
		},
	}
	options.AddOutputArg(cmd, oo)

	set := &cobra.Command{
		Use:   "set <text>",
		Short: "Rewrite our purpose",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := joinText(args)
			if err != nil {
				return err
			}
			s, err := open(cmd.Context(), openOptions{view: router.Purpose, console: true})
			if err != nil {
				return err
			}
			defer s.Close()

			p := purpose.Set{Text: text, Service: s.Service, Out: cmd.OutOrStdout()}
			return p.Do(cmd.Context())
		},
	}
	cmd.AddCommand(set)

	topLevel.AddCommand(cmd)
}
