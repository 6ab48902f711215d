// Package list prints the records of one view.
package list

import (
	"context"
	"errors"
	"io"
	"time"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/printers"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/timeutil"
)

type List struct {
	View   router.View
	ShowID bool
	JSON   bool
	// Since hides records created longer ago than the window; zero shows all.
	Since   time.Duration
	Now     func() time.Time
	Service *app.Service
	Out     io.Writer
}

func (l *List) Do(ctx context.Context) error {
	if l.Service == nil {
		return errors.New("can not list, no journey")
	}
	pp := printers.PrettyPrint{ShowID: l.ShowID, Out: l.Out}

	switch l.View {
	case router.Journal:
		entries, err := l.Service.Journal(ctx)
		if err != nil {
			return err
		}
		entries = within(entries, l.now(), l.Since, func(e record.JournalEntry) time.Time { return e.CreatedAt.Time })
		if l.JSON {
			out := make([]printers.JournalEntryJSON, 0, len(entries))
			for _, e := range entries {
				out = append(out, printers.ToJournalEntryJSON(e))
			}
			return printers.JSON(l.Out, out)
		}
		pp.TitleWithCount(l.View.Title(), len(entries), "entry", "entries")
		pp.Journal(entries...)

	case router.Purpose:
		p, err := l.Service.Purpose(ctx)
		if err != nil {
			return err
		}
		if l.JSON {
			return printers.JSON(l.Out, printers.ToPurposeJSON(p))
		}
		pp.Title(l.View.Title())
		pp.Purpose(p)

	default:
		moments, err := l.Service.Moments(ctx)
		if err != nil {
			return err
		}
		moments = within(moments, l.now(), l.Since, func(m record.Moment) time.Time { return m.CreatedAt.Time })
		if l.JSON {
			out := make([]printers.MomentJSON, 0, len(moments))
			for _, m := range moments {
				out = append(out, printers.ToMomentJSON(m))
			}
			return printers.JSON(l.Out, out)
		}
		pp.TitleWithCount(router.Moments.Title(), len(moments), "moment", "moments")
		pp.Moments(moments...)
	}
	return nil
}

func (l *List) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func within[T any](rs []T, now time.Time, window time.Duration, created func(T) time.Time) []T {
	if window <= 0 {
		return rs
	}
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		if timeutil.Within(created(r), now, window) {
			out = append(out, r)
		}
	}
	return out
}
