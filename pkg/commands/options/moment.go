package options

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/journey/pkg/record"
)

// MomentOptions
type MomentOptions struct {
	Title       string
	Description string
	Type        string
}

func typeNames() []string {
	var names []string
	for _, t := range record.MomentTypes() {
		names = append(names, string(t))
	}
	return names
}

func AddMomentArgs(cmd *cobra.Command, o *MomentOptions, withTitle bool) {
	if withTitle {
		cmd.Flags().StringVar(&o.Title, "title", "",
			"New title of the moment.")
	}
	cmd.Flags().StringVarP(&o.Description, "description", "d", "",
		"Longer description of the moment.")
	cmd.Flags().StringVarP(&o.Type, "type", "t", string(record.DefaultMomentType),
		fmt.Sprintf("Moment type, one of %s.", strings.Join(typeNames(), ", ")))
	_ = cmd.RegisterFlagCompletionFunc("type", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return typeNames(), cobra.ShellCompDirectiveNoFileComp
	})
}
