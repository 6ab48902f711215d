// Package watch prints the live snapshot of one view every time it changes.
package watch

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/journey"
	"tableflip.dev/journey/pkg/printers"
	"tableflip.dev/journey/pkg/router"
)

type Watch struct {
	View    router.View
	ShowID  bool
	Journey *journey.Journey
	Out     io.Writer
	Log     *zap.Logger
}

// Do blocks until ctx is done. Each distinct rendering is printed once.
func (w *Watch) Do(ctx context.Context) error {
	if w.Journey == nil {
		return errors.New("can not watch, no journey")
	}
	out := w.Out
	if out == nil {
		out = color.Output
	}
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}

	changed := make(chan struct{}, 1)
	w.Journey.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err := w.Journey.Select(w.View); err != nil {
		return err
	}

	var last string
	for {
		if frame := w.render(); frame != last {
			last = frame
			if _, err := io.WriteString(out, frame); err != nil {
				return err
			}
			log.Debug("printed snapshot", zap.String("view", string(w.View)))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}

func (w *Watch) render() string {
	var buf bytes.Buffer
	pp := printers.PrettyPrint{ShowID: w.ShowID, Out: &buf}
	snap := w.Journey.Session().Snapshot()

	switch {
	case snap.Resolving():
		return ""
	case !snap.Authenticated():
		pp.Title(w.View.Title())
		_, _ = color.New(color.Faint).Fprintln(&buf, " not signed in")
		return buf.String()
	}

	switch w.View {
	case router.Journal:
		v := w.Journey.Journal()
		if !v.Binder.Ready() && v.Binder.Err() == nil {
			return ""
		}
		entries := v.Records()
		pp.TitleWithCount(w.View.Title(), len(entries), "entry", "entries")
		pp.Journal(entries...)
		w.banner(&buf, v.ErrMessage())
	case router.Purpose:
		v := w.Journey.Purpose()
		if !v.Binder.Ready() && v.Binder.Err() == nil {
			return ""
		}
		p, _ := v.Get(backend.PurposeDocument)
		pp.Title(w.View.Title())
		pp.Purpose(p)
		w.banner(&buf, v.ErrMessage())
	default:
		v := w.Journey.Moments()
		if !v.Binder.Ready() && v.Binder.Err() == nil {
			return ""
		}
		moments := v.Records()
		pp.TitleWithCount(router.Moments.Title(), len(moments), "moment", "moments")
		pp.Moments(moments...)
		w.banner(&buf, v.ErrMessage())
	}
	return buf.String()
}

func (w *Watch) banner(buf *bytes.Buffer, msg string) {
	if msg == "" {
		return
	}
	_, _ = color.New(color.FgRed).Fprintln(buf, msg)
}
