package config

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-inbox/internal/keys"
	"github.com/nhle/notification-inbox/internal/model"
)

func newModel(save Saver) Model {
	return New(*model.DefaultAppConfig(), save, keys.DefaultKeyMap(), 100, 40)
}

func TestSummaryShowsSettings(t *testing.T) {
	m := newModel(nil)
	out := m.View()
	assert.Contains(t, out, "http://localhost:5000/api")
	assert.Contains(t, out, "every 300s")
}

func TestFromFormAppliesValues(t *testing.T) {
	m := newModel(nil)
	m.fb.apiURL = " https://api.example.com "
	m.fb.pushURL = "wss://api.example.com/ws"
	m.fb.syncInterval = "0"
	m.fb.latestCount = "5"
	m.fb.logLevel = "debug"

	next, err := m.fromForm()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", next.API.BaseURL)
	assert.Equal(t, 0, next.Sync.IntervalSec)
	assert.Equal(t, 5, next.Display.LatestCount)
	assert.Equal(t, "debug", next.Logging.Level)
	assert.Equal(t, "http://localhost:5000/api", m.Config().API.BaseURL, "current settings untouched")
}

func TestFromFormRejectsInvalid(t *testing.T) {
	m := newModel(nil)
	m.fb.apiURL = "https://api.example.com"
	m.fb.pushURL = "wss://api.example.com/ws"
	m.fb.syncInterval = "10"
	m.fb.latestCount = "0"
	m.fb.logLevel = "info"

	_, err := m.fromForm()
	assert.Error(t, err)
}

func TestSaveResult(t *testing.T) {
	var saved *model.AppConfig
	m := newModel(func(cfg *model.AppConfig) error {
		saved = cfg
		return nil
	})

	next := m.Config()
	next.Display.LatestCount = 3
	msg := m.persist(next)()
	require.NotNil(t, saved)
	assert.Equal(t, 3, saved.Display.LatestCount)

	m, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	done, ok := cmd().(ConfigSavedMsg)
	require.True(t, ok)
	assert.Equal(t, 3, done.Config.Display.LatestCount)
	assert.Equal(t, 3, m.Config().Display.LatestCount)
	assert.Contains(t, m.View(), "Settings saved")
}

func TestSaveFailureKeepsSettings(t *testing.T) {
	m := newModel(func(*model.AppConfig) error { return errors.New("disk full") })

	next := m.Config()
	next.Display.LatestCount = 3
	m, cmd := m.Update(m.persist(next)())
	assert.Nil(t, cmd)
	assert.Equal(t, 10, m.Config().Display.LatestCount)
	assert.Contains(t, m.View(), "disk full")
}

func TestEscapeCloses(t *testing.T) {
	m := newModel(nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, ConfigDoneMsg{}, cmd())
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateURL("https://example.com"))
	assert.Error(t, validateURL(""))
	assert.Error(t, validateURL("example"))

	assert.NoError(t, validateNumber("gte=0")("0"))
	assert.Error(t, validateNumber("gte=1")("0"))
	assert.Error(t, validateNumber("gte=0")("abc"))
}
