package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
	"github.com/congsh/PeerHaiguitang/internal/infra/adapters/memory"
	"github.com/congsh/PeerHaiguitang/internal/infra/ports/http/dto"
	"github.com/congsh/PeerHaiguitang/internal/usecase"
)

func newHandler(t *testing.T) *RelayHandler {
	t.Helper()

	relay := usecase.NewRelayUsecase(memory.NewRoomRegistry(), memory.NewMessageQueueStore(0))

	return NewRelayHandler(relay)
}

func post(t *testing.T, h *RelayHandler, body string) (*httptest.ResponseRecorder, dto.RelayResponse) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/room-manager", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Handle(e.NewContext(req, rec)))

	var resp dto.RelayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return rec, resp
}

func TestPing(t *testing.T) {
	t.Parallel()

	rec, resp := post(t, newHandler(t), `{"action":"ping","peerId":"peer-a"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestCreateAndJoinFlow(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	rec, resp := post(t, h, `{
		"action": "create-room",
		"roomId": "STEW42",
		"peerId": "host-1",
		"data": {
			"roomName": "midnight soup",
			"hostName": "Alice",
			"rules": {"soupType": "classic", "scoringMethod": "host", "answerMethod": "free", "interactionMethod": "enabled"}
		}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "STEW42", resp.RoomID)

	rec, resp = post(t, h, `{
		"action": "join-room",
		"roomId": "STEW42",
		"peerId": "guest-1",
		"data": {"name": "Bob"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Room)
	assert.Len(t, resp.Room.Participants, 2)

	// The join request landed in the host's queue.
	rec, resp = post(t, h, `{"action":"check-messages","peerId":"host-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, models.TypeJoinRequest, resp.Messages[0].Type)
	assert.Equal(t, "guest-1", resp.Messages[0].From)
}

func TestCreateDuplicateRoomIs400(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	body := `{
		"action": "create-room",
		"roomId": "STEW42",
		"peerId": "host-1",
		"data": {"roomName": "x", "hostName": "Alice", "rules": {}}
	}`

	rec, _ := post(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := post(t, h, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, models.ErrDuplicateRoomID.Error())
}

func TestJoinUnknownRoomIs404(t *testing.T) {
	t.Parallel()

	rec, resp := post(t, newHandler(t), `{
		"action": "join-room",
		"roomId": "MISSING",
		"peerId": "guest-1",
		"data": {"name": "Bob"}
	}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestBroadcastByNonMemberIs403(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	rec, _ := post(t, h, `{
		"action": "create-room",
		"roomId": "STEW42",
		"peerId": "host-1",
		"data": {"roomName": "x", "hostName": "Alice", "rules": {}}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := post(t, h, `{
		"action": "broadcast-message",
		"roomId": "STEW42",
		"peerId": "stranger",
		"data": {"type": "chat", "content": "\"hi\""}
	}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, resp.Success)
}

func TestConfirmJoinByGuestIs403(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	rec, _ := post(t, h, `{
		"action": "create-room",
		"roomId": "STEW42",
		"peerId": "host-1",
		"data": {"roomName": "x", "hostName": "Alice", "rules": {}}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = post(t, h, `{
		"action": "join-room",
		"roomId": "STEW42",
		"peerId": "guest-1",
		"data": {"name": "Bob"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := post(t, h, `{
		"action": "confirm-join",
		"roomId": "STEW42",
		"peerId": "guest-1",
		"data": {"participantId": "guest-1", "approved": true}
	}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, resp.Success)
}

func TestSendMessageStampsSender(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	rec, _ := post(t, h, `{
		"action": "send-message",
		"peerId": "peer-a",
		"data": {"to": "peer-b", "message": {"type": "raise-hand", "from": "forged"}}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := post(t, h, `{"action":"check-messages","peerId":"peer-b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, models.TypeRaiseHand, resp.Messages[0].Type)
	assert.Equal(t, "peer-a", resp.Messages[0].From)
}

func TestSendMessageToSelfIs400(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	rec, resp := post(t, h, `{
		"action": "send-message",
		"peerId": "peer-a",
		"data": {"to": "peer-a", "message": {"content": "\"echo\""}}
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)

	// The sender's queue stays empty.
	rec, resp = post(t, h, `{"action":"check-messages","peerId":"peer-a"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Messages)
}

func TestAckDrainsQueue(t *testing.T) {
	t.Parallel()

	h := newHandler(t)

	rec, _ := post(t, h, `{
		"action": "send-message",
		"peerId": "peer-a",
		"data": {"to": "peer-b", "message": {"content": "\"hello\""}}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := post(t, h, `{"action":"check-messages","peerId":"peer-b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Messages, 1)

	rec, _ = post(t, h, `{"action":"ack-messages","peerId":"peer-b"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = post(t, h, `{"action":"check-messages","peerId":"peer-b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Messages)
}

func TestUnknownActionIs400(t *testing.T) {
	t.Parallel()

	rec, resp := post(t, newHandler(t), `{"action":"explode","peerId":"peer-a"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestMissingDataIs400(t *testing.T) {
	t.Parallel()

	rec, resp := post(t, newHandler(t), `{"action":"create-room","roomId":"STEW42","peerId":"host-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}
