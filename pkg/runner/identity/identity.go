// Package identity shows and names the signed-in user.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/printers"
	"tableflip.dev/journey/pkg/session"
)

// Whoami prints the session.
type Whoami struct {
	JSON    bool
	Service *app.Service
	Out     io.Writer
}

func (w *Whoami) Do(ctx context.Context) error {
	if w.Service == nil {
		return errors.New("no journey")
	}
	snap, err := w.Service.Whoami(ctx)
	if err != nil {
		return err
	}
	return show(w.Out, w.JSON, snap)
}

// Name sets the display name.
type Name struct {
	Name    string
	JSON    bool
	Service *app.Service
	Out     io.Writer
}

func (n *Name) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("no journey")
	}
	snap, err := n.Service.SetName(ctx, n.Name)
	if err != nil {
		return err
	}
	return show(n.Out, n.JSON, snap)
}

func show(out io.Writer, asJSON bool, snap session.Snapshot) error {
	if out == nil {
		out = color.Output
	}
	if asJSON {
		return printers.JSON(out, printers.ToSessionJSON(snap))
	}

	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("State"), snap.State.String())
	if snap.UserID != "" {
		tbl.AddRow(bold.Sprint("User"), snap.UserID)
	}
	name := snap.DisplayName
	if name == "" && snap.NeedsName() {
		name = color.New(color.Faint).Sprint("not set, run `journey name <name>`")
	}
	if name != "" {
		tbl.AddRow(bold.Sprint("Name"), name)
	}
	tbl.RightAlign(0)
	_, err := fmt.Fprintln(out, tbl)
	return err
}
