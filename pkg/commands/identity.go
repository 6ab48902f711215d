package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/journey/pkg/commands/options"
	"tableflip.dev/journey/pkg/runner/identity"
	"tableflip.dev/journey/pkg/runner/key"
)

func addName(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "name <display name>",
		Short: "Set the name shown on what you write",
		Example: `
journey name Nico
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := joinText(args)
			if err != nil {
				return oo.HandleError(err)
			}
			s, err := open(cmd.Context(), openOptions{console: !oo.JSON})
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.Close()

			n := identity.Name{Name: name, JSON: oo.JSON, Service: s.Service, Out: cmd.OutOrStdout()}
			return oo.HandleError(n.Do(cmd.Context()))
		},
	}
	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addWhoami(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show who you are signed in as",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), openOptions{console: !oo.JSON})
			if err != nil {
				return oo.HandleError(err)
			}
			defer s.Close()

			w := identity.Whoami{JSON: oo.JSON, Service: s.Service, Out: cmd.OutOrStdout()}
			return oo.HandleError(w.Do(cmd.Context()))
		},
	}
	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addKey(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Print the moment types",
		Example: `
journey key
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			k := key.Key{Out: cmd.OutOrStdout()}
			return k.Do(cmd.Context())
		},
	}

	topLevel.AddCommand(cmd)
}
