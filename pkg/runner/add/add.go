// Package add creates moments and journal entries.
package add

import (
	"context"
	"errors"
	"io"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/runner/list"
)

type Add struct {
	View router.View

	// Moment fields.
	Title       string
	Description string
	Type        string

	// Journal text.
	Text string

	Service *app.Service
	Out     io.Writer
}

func (n *Add) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not add, no journey")
	}

	var err error
	switch n.View {
	case router.Moments:
		_, err = n.Service.AddMoment(ctx, record.MomentForm{
			Title:       n.Title,
			Description: n.Description,
			Type:        record.ParseMomentType(n.Type),
		})
	case router.Journal:
		_, err = n.Service.AddJournalEntry(ctx, n.Text)
	default:
		return errors.New("can only add moments or journal entries")
	}
	if err != nil {
		return err
	}

	l := list.List{View: n.View, Service: n.Service, Out: n.Out}
	return l.Do(ctx)
}
