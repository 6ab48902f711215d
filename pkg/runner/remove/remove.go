// Package remove deletes a moment or journal entry.
package remove

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/crud"
	"tableflip.dev/journey/pkg/router"
)

type Remove struct {
	View    router.View
	ID      string
	Service *app.Service
	Out     io.Writer
}

func (r *Remove) Do(ctx context.Context) error {
	if r.Service == nil {
		return errors.New("can not remove, no journey")
	}
	out := r.Out
	if out == nil {
		out = color.Output
	}

	err := r.Service.Delete(ctx, r.View, r.ID)
	if errors.Is(err, crud.ErrDeclined) {
		_, _ = fmt.Fprintln(out, "Nothing deleted.")
		return nil
	}
	if err != nil {
		return err
	}
	_, _ = color.New(color.Faint).Fprintf(out, "Deleted %s.\n", r.ID)
	return nil
}
