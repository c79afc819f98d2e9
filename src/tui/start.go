package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"mwa-review/src/collection"
)

// Start runs the dashboard until the user quits or ctx is cancelled.
func Start(ctx context.Context, backend Backend) error {
	updates, unsubscribe := Subscribe(backend.Store())
	defer unsubscribe()

	model := NewMainModel(ctx, backend, updates)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

// Subscribe forwards store snapshots into a channel holding only the latest one. Store
// listeners run under the store's notify lock, so the send never blocks; a snapshot the UI
// has not picked up yet is replaced by the newer one.
func Subscribe(st *collection.Store) (<-chan *collection.Snapshot, func()) {
	ch := make(chan *collection.Snapshot, 1)
	unsubscribe := st.Subscribe(func(snap *collection.Snapshot) {
		for {
			select {
			case ch <- snap:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})
	return ch, unsubscribe
}
