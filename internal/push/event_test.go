package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-inbox/internal/model"
)

func TestDecodeNewNotification(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"event":"newNotification","data":{
		"_id":"n1","userId":"alice","type":"feedback","title":"New review",
		"message":"5 stars","createdAt":"2025-06-01T10:00:00Z","isRead":false}}`))
	require.NoError(t, err)

	ne, ok := ev.(NewEvent)
	require.True(t, ok)
	assert.Equal(t, "n1", ne.Record.ID)
	assert.Equal(t, model.TypeFeedback, ne.Record.Type)
	assert.Equal(t, "alice", ev.Principal())
}

func TestDecodeNotificationsUpdated(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"event":"notificationsUpdated","data":
		{"type":"markSpecific","notificationIds":["a","b"],"isRead":true,"userId":"alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, ReadStatusEvent{PrincipalID: "alice", IDs: []string{"a", "b"}, IsRead: true}, ev)

	ev, err = DecodeFrame([]byte(`{"event":"notificationsUpdated","data":
		{"type":"markAll","isRead":false,"userId":"alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, ReadStatusEvent{PrincipalID: "alice", All: true}, ev)

	_, err = DecodeFrame([]byte(`{"event":"notificationsUpdated","data":{"type":"markSome","userId":"alice"}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecodeNotificationDeleted(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"event":"notificationDeleted","data":{"id":"n7","userId":"alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, DeletedEvent{PrincipalID: "alice", ID: "n7"}, ev)
}

func TestDecodeRejectsUnknownAndMalformed(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"event":"somethingElse","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeFrame([]byte(`not json`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownEvent)
}
