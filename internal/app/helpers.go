package app

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-inbox/internal/gateway"
	"github.com/nhle/notification-inbox/internal/push"
	"github.com/nhle/notification-inbox/internal/store"
	appsync "github.com/nhle/notification-inbox/internal/sync"
)

// waitForStoreChange returns a command that blocks until the store
// signals a change.
func waitForStoreChange(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		<-s.Changes()
		return storeChangedMsg{}
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(statusRefreshInterval, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

// commandErrorText renders a failed intent for the status bar.
func commandErrorText(err error) string {
	var ce *gateway.CommandError
	if errors.As(err, &ce) {
		return fmt.Sprintf("Could not %s: %s", ce.Op, ce.Message)
	}
	return "Error: " + err.Error()
}

// syncStatusText combines the push connection and the last reload into a
// short header label.
func syncStatusText(state push.ConnState, st appsync.SyncStatus) string {
	switch {
	case st.State == appsync.SyncRunning:
		return state.String() + " · syncing"
	case st.State == appsync.SyncError:
		return state.String() + " · ⚠ sync failed"
	case !st.LastSync.IsZero():
		return fmt.Sprintf("%s · synced %s", state, st.LastSync.Format("15:04"))
	default:
		return state.String()
	}
}
