package teaui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea/v2"
	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/journey"
)

// Run opens the UI on j until the user quits or ctx ends. Deletes are
// confirmed inline, so the view controllers are switched to answer yes.
func Run(ctx context.Context, j *journey.Journey, log *zap.Logger) error {
	j.Moments().Commands.SetConfirmer(backend.AlwaysConfirm)
	j.Journal().Commands.SetConfirmer(backend.AlwaysConfirm)

	changes := make(chan struct{}, 1)
	j.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	p := tea.NewProgram(New(ctx, j, changes, log), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
