// Package edit updates an existing moment or journal entry.
package edit

import (
	"context"
	"errors"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
)

type Edit struct {
	View router.View
	ID   string

	// Nil fields keep their current value.
	Title       *string
	Description *string
	Type        *string
	Text        *string

	Service *app.Service
}

func (e *Edit) Do(ctx context.Context) error {
	if e.Service == nil {
		return errors.New("can not edit, no journey")
	}
	if e.ID == "" {
		return errors.New("an id is required")
	}

	switch e.View {
	case router.Moments:
		return e.Service.EditMoment(ctx, e.ID, func(f *record.MomentForm) {
			if e.Title != nil {
				f.Title = *e.Title
			}
			if e.Description != nil {
				f.Description = *e.Description
			}
			if e.Type != nil {
				f.Type = record.ParseMomentType(*e.Type)
			}
		})
	case router.Journal:
		if e.Text == nil {
			return errors.New("nothing to change")
		}
		return e.Service.EditJournalEntry(ctx, e.ID, *e.Text)
	default:
		return errors.New("can only edit moments or journal entries")
	}
}
