// Package key prints the moment type legend.
package key

import (
	"context"
	"io"

	"tableflip.dev/journey/pkg/printers"
)

type Key struct {
	Out io.Writer
}

func (k *Key) Do(_ context.Context) error {
	pp := printers.PrettyPrint{Out: k.Out}
	pp.NewLine()
	pp.Key()
	return nil
}
