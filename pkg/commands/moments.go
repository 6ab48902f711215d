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
	"tableflip.dev/journey/pkg/runner/remove"
)

func addMoments(topLevel *cobra.Command) {
	ido := &options.IDOptions{}
	so := &options.SinceOptions{}
	cmd := &cobra.Command{
		Use:     "moments",
		Aliases: []string{"moment", "m"},
		Short:   "List our moments",
		Example: `
journey moments
journey moments --json
journey moments --since 2w
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listView(cmd, router.Moments, ido, so)
		},
	}
	options.AddShowIDArgs(cmd, ido)
	options.AddSinceArg(cmd, so)
	options.AddOutputArg(cmd, oo)

	addMomentAdd(cmd)
	addMomentEdit(cmd)
	addRemove(cmd, router.Moments)
	topLevel.AddCommand(cmd)
}

func listView(cmd *cobra.Command, v router.View, ido *options.IDOptions, so *options.SinceOptions) error {
	since, err := so.Window()
	if err != nil {
		return oo.HandleError(err)
	}
	s, err := open(cmd.Context(), openOptions{view: v, console: !oo.JSON})
	if err != nil {
		return oo.HandleError(err)
	}
	defer s.Close()

	l := list.List{View: v, ShowID: ido.ShowID, JSON: oo.JSON, Since: since, Service: s.Service, Out: cmd.OutOrStdout()}
	return oo.HandleError(l.Do(cmd.Context()))
}

func addMomentAdd(parent *cobra.Command) {
	mo := &options.MomentOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a moment",
		Example: `
journey moments add our first date -t milestone -d "pizza by the river"
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a title")
			}
			mo.Title = strings.Join(args, " ")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), openOptions{view: router.Moments, console: true})
			if err != nil {
				return err
			}
			defer s.Close()

			a := add.Add{
				View:        router.Moments,
				Title:       mo.Title,
				Description: mo.Description,
				Type:        mo.Type,
				Service:     s.Service,
				Out:         cmd.OutOrStdout(),
			}
			return a.Do(cmd.Context())
		},
	}
	options.AddMomentArgs(cmd, mo, false)
	parent.AddCommand(cmd)
}

func addMomentEdit(parent *cobra.Command) {
	mo := &options.MomentOptions{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit one of your moments",
		Example: `
journey moments edit 0f3c... --title "our very first date"
journey moments edit 0f3c... -t cloud
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), openOptions{view: router.Moments, console: true})
			if err != nil {
				return err
			}
			defer s.Close()

			e := edit.Edit{View: router.Moments, ID: args[0], Service: s.Service}
			if cmd.Flags().Changed("title") {
				e.Title = &mo.Title
			}
			if cmd.Flags().Changed("description") {
				e.Description = &mo.Description
			}
			if cmd.Flags().Changed("type") {
				e.Type = &mo.Type
			}
			if err := e.Do(cmd.Context()); err != nil {
				return err
			}
			l := list.List{View: router.Moments, Service: s.Service, Out: cmd.OutOrStdout()}
			return l.Do(cmd.Context())
		},
	}
	options.AddMomentArgs(cmd, mo, true)
	parent.AddCommand(cmd)
}

func addRemove(parent *cobra.Command, v router.View) {
	co := &options.ConfirmOptions{}
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a record you created",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), openOptions{view: v, confirm: co.Confirmer(), console: true})
			if err != nil {
				return err
			}
			defer s.Close()

			r := remove.Remove{View: v, ID: args[0], Service: s.Service, Out: cmd.OutOrStdout()}
			return r.Do(cmd.Context())
		},
	}
	options.AddConfirmArgs(cmd, co)
	parent.AddCommand(cmd)
}
