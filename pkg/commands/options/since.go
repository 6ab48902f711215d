package options

import (
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/journey/pkg/timeutil"
)

// SinceOptions limits a listing to recent records.
type SinceOptions struct {
	Since string
}

func AddSinceArg(cmd *cobra.Command, o *SinceOptions) {
	cmd.Flags().StringVar(&o.Since, "since", "",
		"Only show records from this window, for example 3d or 1w2d.")
}

// Window parses Since; a nil receiver or empty flag means no window.
func (o *SinceOptions) Window() (time.Duration, error) {
	if o == nil {
		return 0, nil
	}
	return timeutil.ParseWindow(o.Since)
}
