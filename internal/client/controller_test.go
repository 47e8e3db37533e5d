package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
	"github.com/congsh/PeerHaiguitang/internal/idgen"
)

const testPoll = 10 * time.Millisecond

func classicRules() models.Rules {
	return models.Rules{
		SoupType:          models.SoupTypeClassic,
		ScoringMethod:     models.ScoringHostOnly,
		AnswerMethod:      models.AnswerFree,
		InteractionMethod: models.InteractionEnabled,
	}
}

// newSession wires a controller to a shared in-process backend, so several
// controllers in one test behave like several devices on one relay.
func newSession(t *testing.T, backend *Backend, name string, opts ...ControllerOption) *Controller {
	t.Helper()

	clientID := idgen.NewClientID()
	opts = append([]ControllerOption{WithPollInterval(testPoll)}, opts...)
	c := NewController(clientID, name, NewLocalRelay(backend, clientID), opts...)
	t.Cleanup(c.LeaveRoom)

	return c
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, testPoll, msg)
}

func TestCreateRoomActivatesHost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	host := newSession(t, NewBackend(), "Alice")

	roomID, err := host.CreateRoom(ctx, "midnight soup", classicRules())
	require.NoError(t, err)
	assert.True(t, idgen.ValidRoomID(roomID))

	assert.Equal(t, StateActive, host.State())
	assert.True(t, host.IsHost())
	assert.Equal(t, roomID, host.RoomID())

	state := host.Snapshot()
	require.Len(t, state.Participants, 1)
	assert.True(t, state.Participants[0].IsHost)
	assert.Equal(t, "Alice", state.HostName)
}

func TestJoinApprovedBecomesActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewBackend()

	host := newSession(t, backend, "Alice")
	roomID, err := host.CreateRoom(ctx, "midnight soup", classicRules())
	require.NoError(t, err)

	guest := newSession(t, backend, "Bob")
	require.NoError(t, guest.JoinRoom(ctx, roomID))
	assert.Equal(t, StateAwaitingApproval, guest.State())

	// The host polls the join request and answers it; the guest polls the
	// response.
	require.NoError(t, guest.AwaitDecision(ctx))
	assert.Equal(t, StateActive, guest.State())

	eventually(t, func() bool {
		return len(host.Snapshot().Participants) == 2
	}, "host roster includes the guest")
	eventually(t, func() bool {
		return len(guest.Snapshot().Participants) == 2
	}, "guest receives the roster broadcast")
}

func TestJoinRejectedCloses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewBackend()

	host := newSession(t, backend, "Alice", WithJoinApprover(func(string, string) bool {
		return false
	}))
	roomID, err := host.CreateRoom(ctx, "members only", classicRules())
	require.NoError(t, err)

	guest := newSession(t, backend, "Bob")
	require.NoError(t, guest.JoinRoom(ctx, roomID))

	err = guest.AwaitDecision(ctx)
	assert.ErrorIs(t, err, ErrJoinRejected)
	assert.Equal(t, StateClosed, guest.State())

	assert.Len(t, host.Snapshot().Participants, 1, "rejected guest never enters the roster")
}

func TestJoinInvalidRoomID(t *testing.T) {
	t.Parallel()

	guest := newSession(t, NewBackend(), "Bob")

	err := guest.JoinRoom(context.Background(), "bad-id!")
	assert.ErrorIs(t, err, models.ErrInvalidRoomID)
	assert.Equal(t, StateIdle, guest.State(), "validation failure leaves the session reusable")
}

func TestJoinMissingRoom(t *testing.T) {
	t.Parallel()

	guest := newSession(t, NewBackend(), "Bob")

	err := guest.JoinRoom(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
	assert.Equal(t, StateClosed, guest.State())
}

func TestPuzzleReachesGuest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewBackend()

	host := newSession(t, backend, "Alice")
	roomID, err := host.CreateRoom(ctx, "midnight soup", classicRules())
	require.NoError(t, err)

	guest := newSession(t, backend, "Bob")
	require.NoError(t, guest.JoinRoom(ctx, roomID))
	require.NoError(t, guest.AwaitDecision(ctx))

	require.NoError(t, host.BroadcastPuzzle(ctx, "a man orders turtle soup"))

	assert.True(t, host.Snapshot().GameStarted, "the host sees its own puzzle immediately")

	eventually(t, func() bool {
		s := guest.Snapshot()
		return s.GameStarted && s.Puzzle == "a man orders turtle soup"
	}, "puzzle propagates to the guest")
}

func TestRaiseHandRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewBackend()

	host := newSession(t, backend, "Alice")
	roomID, err := host.CreateRoom(ctx, "midnight soup", classicRules())
	require.NoError(t, err)

	guest := newSession(t, backend, "Bob")
	require.NoError(t, guest.JoinRoom(ctx, roomID))
	require.NoError(t, guest.AwaitDecision(ctx))

	guestID := guest.clientID

	require.NoError(t, guest.RaiseHand(ctx))

	eventually(t, func() bool {
		for _, p := range host.Snapshot().Participants {
			if p.ID == guestID {
				return p.RaisedHand
			}
		}
		return false
	}, "host marks the guest's hand raised")

	// Asking the question spends the hand.
	require.NoError(t, guest.AskQuestion(ctx, "is the soup human?"))

	eventually(t, func() bool {
		for _, p := range host.Snapshot().Participants {
			if p.ID == guestID {
				return !p.RaisedHand
			}
		}
		return false
	}, "question lowers the guest's hand")

	eventually(t, func() bool {
		log := host.Snapshot().ChatLog
		return len(log) > 0 && log[len(log)-1].Text == "is the soup human?"
	}, "question appears in the host's log")
}

// A hosting controller resolves the hand target to itself; the signal must
// fold into its own roster instead of bouncing a self-addressed message off
// the relay, which rejects those.
func TestHostRaiseHandFoldsLocally(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewBackend()

	host := newSession(t, backend, "Alice")
	roomID, err := host.CreateRoom(ctx, "midnight soup", classicRules())
	require.NoError(t, err)

	guest := newSession(t, backend, "Bob")
	require.NoError(t, guest.JoinRoom(ctx, roomID))
	require.NoError(t, guest.AwaitDecision(ctx))

	hostID := host.clientID

	raised := func(c *Controller) bool {
		for _, p := range c.Snapshot().Participants {
			if p.ID == hostID {
				return p.RaisedHand
			}
		}
		return false
	}

	require.NoError(t, host.RaiseHand(ctx))
	assert.True(t, raised(host), "host's own hand is visible immediately")

	eventually(t, func() bool {
		return raised(guest)
	}, "roster broadcast carries the host's hand to the guest")

	require.NoError(t, host.LowerHand(ctx))
	assert.False(t, raised(host))
}

func TestHostOnlyOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewBackend()

	host := newSession(t, backend, "Alice")
	roomID, err := host.CreateRoom(ctx, "midnight soup", classicRules())
	require.NoError(t, err)

	guest := newSession(t, backend, "Bob")
	require.NoError(t, guest.JoinRoom(ctx, roomID))
	require.NoError(t, guest.AwaitDecision(ctx))

	assert.ErrorIs(t, guest.BroadcastPuzzle(ctx, "coup"), ErrBadState)
	assert.ErrorIs(t, guest.EndGame(ctx, "nope"), ErrBadState)
	assert.NoError(t, guest.SendChat(ctx, "hello all"))
}

func TestLeaveRoomStopsPolling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	host := newSession(t, NewBackend(), "Alice")

	_, err := host.CreateRoom(ctx, "midnight soup", classicRules())
	require.NoError(t, err)

	host.LeaveRoom()
	assert.Equal(t, StateClosed, host.State())

	// Second leave is a no-op, not a deadlock.
	host.LeaveRoom()

	assert.ErrorIs(t, host.BroadcastPuzzle(ctx, "late"), ErrBadState)
}

func TestOperationsRequireActiveSession(t *testing.T) {
	t.Parallel()

	c := newSession(t, NewBackend(), "Alice")

	ctx := context.Background()
	assert.ErrorIs(t, c.AskQuestion(ctx, "anyone?"), ErrBadState)
	assert.ErrorIs(t, c.RaiseHand(ctx), ErrBadState)
	assert.ErrorIs(t, c.SendReaction(ctx, models.ReactionFlower), ErrBadState)
}
