package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/journey/pkg/commands/options"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/runner/add"
	"tableflip.dev/journey/pkg/runner/edit"
	"tableflip.dev/journey/pkg/runner/list"
)

func addJournal(topLevel *cobra.Command) {
	ido := &options.IDOptions{}
	so := &options.SinceOptions{}
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"j"},
		Short:   "Read our journal",
		Example: `
journey journal
journey journal -k
journey journal --since 3d
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listView(cmd, router.Journal, ido, so)
		},
	}
	options.AddShowIDArgs(cmd, ido)
	options.AddSinceArg(cmd, so)
	options.AddOutputArg(cmd, oo)

	addJournalAdd(cmd)
	addJournalEdit(cmd)
	addRemove(cmd, router.Journal)
	topLevel.AddCommand(cmd)
}

func joinText(args []string) (string, error) {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return "", errors.New("requires some text")
	}
	return text, nil
}

func addJournalAdd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Write a journal entry",
		Example: `
journey journal add we walked the dog in the rain
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := joinText(args)
			if err != nil {
				return err
			}
			s, err := open(cmd.Context(), openOptions{view: router.Journal, console: true})
			if err != nil {
				return err
			}
			defer s.Close()

			a := add.Add{View: router.Journal, Text: text, Service: s.Service, Out: cmd.OutOrStdout()}
			return a.Do(cmd.Context())
		},
	}
	parent.AddCommand(cmd)
}

func addJournalEdit(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Rewrite one of your journal entries",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := joinText(args[1:])
			if err != nil {
				return err
			}
			s, err := open(cmd.Context(), openOptions{view: router.Journal, console: true})
			if err != nil {
				return err
			}
			defer s.Close()

			e := edit.Edit{View: router.Journal, ID: args[0], Text: &text, Service: s.Service}
			if err := e.Do(cmd.Context()); err != nil {
				return err
			}
			l := list.List{View: router.Journal, Service: s.Service, Out: cmd.OutOrStdout()}
			return l.Do(cmd.Context())
		},
	}
	parent.AddCommand(cmd)
}
