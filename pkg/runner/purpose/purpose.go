// Package purpose writes the shared purpose statement.
package purpose

import (
	"context"
	"errors"
	"io"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/runner/list"
)

type Set struct {
	Text    string
	Service *app.Service
	Out     io.Writer
}

func (s *Set) Do(ctx context.Context) error {
	if s.Service == nil {
		return errors.New("can not set purpose, no journey")
	}
	if _, err := s.Service.SetPurpose(ctx, s.Text); err != nil {
		return err
	}
	l := list.List{View: router.Purpose, Service: s.Service, Out: s.Out}
	return l.Do(ctx)
}
