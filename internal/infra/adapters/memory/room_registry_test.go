package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

func classicRules() models.Rules {
	return models.Rules{
		SoupType:          models.SoupTypeClassic,
		ScoringMethod:     models.ScoringNone,
		AnswerMethod:      models.AnswerFree,
		InteractionMethod: models.InteractionEnabled,
	}
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRoomRegistry()

	room := models.NewRoom("ABCD", "host-1", "soup night", classicRules(), "Alice")
	require.NoError(t, reg.CreateRoom(ctx, room))

	got, err := reg.GetRoom(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, "host-1", got.HostID)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, "Alice", got.Participants[0].Name)
	assert.True(t, got.Participants[0].IsHost)

	err = reg.CreateRoom(ctx, models.NewRoom("ABCD", "host-2", "other", classicRules(), "Eve"))
	assert.ErrorIs(t, err, models.ErrDuplicateRoomID)
}

func TestGetRoomNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewRoomRegistry().GetRoom(context.Background(), "NADA")
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestAddParticipant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRoomRegistry()
	require.NoError(t, reg.CreateRoom(ctx, models.NewRoom("ABCD", "host-1", "soup", classicRules(), "Alice")))

	room, err := reg.AddParticipant(ctx, "ABCD", models.Participant{ID: "guest-1", Name: "Bob"})
	require.NoError(t, err)
	require.Len(t, room.Participants, 2)
	assert.Equal(t, "Bob", room.Participants[1].Name)
	assert.False(t, room.Participants[1].IsHost)

	// A duplicate join is rejected and leaves the roster unchanged.
	_, err = reg.AddParticipant(ctx, "ABCD", models.Participant{ID: "guest-1", Name: "Bob again"})
	assert.ErrorIs(t, err, models.ErrDuplicateParticipant)

	room, err = reg.GetRoom(ctx, "ABCD")
	require.NoError(t, err)
	assert.Len(t, room.Participants, 2)

	_, err = reg.AddParticipant(ctx, "MISSING", models.Participant{ID: "guest-2"})
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestExactlyOneHost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRoomRegistry()
	require.NoError(t, reg.CreateRoom(ctx, models.NewRoom("ABCD", "host-1", "soup", classicRules(), "Alice")))

	// Even a participant claiming host status joins as a guest.
	room, err := reg.AddParticipant(ctx, "ABCD", models.Participant{ID: "guest-1", Name: "Mallory", IsHost: true})
	require.NoError(t, err)

	hosts := 0
	for _, p := range room.Participants {
		if p.IsHost {
			hosts++
		}
	}
	assert.Equal(t, 1, hosts)
}

func TestSetRaisedHand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRoomRegistry()
	require.NoError(t, reg.CreateRoom(ctx, models.NewRoom("ABCD", "host-1", "soup", classicRules(), "Alice")))
	_, err := reg.AddParticipant(ctx, "ABCD", models.Participant{ID: "guest-1", Name: "Bob"})
	require.NoError(t, err)

	require.NoError(t, reg.SetRaisedHand(ctx, "ABCD", "guest-1", true))

	room, err := reg.GetRoom(ctx, "ABCD")
	require.NoError(t, err)
	p, ok := room.Participant("guest-1")
	require.True(t, ok)
	assert.True(t, p.RaisedHand)

	require.NoError(t, reg.SetRaisedHand(ctx, "ABCD", "guest-1", false))

	room, _ = reg.GetRoom(ctx, "ABCD")
	p, _ = room.Participant("guest-1")
	assert.False(t, p.RaisedHand)

	assert.ErrorIs(t, reg.SetRaisedHand(ctx, "ABCD", "nobody", true), models.ErrParticipantNotFound)
	assert.ErrorIs(t, reg.SetRaisedHand(ctx, "MISSING", "guest-1", true), models.ErrRoomNotFound)
}

func TestSetParticipants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRoomRegistry()
	require.NoError(t, reg.CreateRoom(ctx, models.NewRoom("ABCD", "host-1", "soup", classicRules(), "Alice")))
	_, err := reg.AddParticipant(ctx, "ABCD", models.Participant{ID: "guest-1", Name: "Bob"})
	require.NoError(t, err)

	require.NoError(t, reg.SetParticipants(ctx, "ABCD", []models.Participant{
		{ID: "host-1", Name: "Alice"},
		{ID: "guest-2", Name: "Carol", RaisedHand: true},
	}))

	room, err := reg.GetRoom(ctx, "ABCD")
	require.NoError(t, err)
	require.Len(t, room.Participants, 2)

	host, ok := room.Participant("host-1")
	require.True(t, ok)
	assert.True(t, host.IsHost, "host flag recomputed from the stored host id")

	carol, ok := room.Participant("guest-2")
	require.True(t, ok)
	assert.True(t, carol.RaisedHand)
	assert.False(t, room.HasParticipant("guest-1"))

	// A roster write that forgets the host keeps the host row.
	require.NoError(t, reg.SetParticipants(ctx, "ABCD", []models.Participant{
		{ID: "guest-2", Name: "Carol"},
	}))

	room, err = reg.GetRoom(ctx, "ABCD")
	require.NoError(t, err)
	assert.True(t, room.HasParticipant("host-1"))

	assert.ErrorIs(t, reg.SetParticipants(ctx, "MISSING", nil), models.ErrRoomNotFound)
}

func TestGetRoomReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRoomRegistry()
	require.NoError(t, reg.CreateRoom(ctx, models.NewRoom("ABCD", "host-1", "soup", classicRules(), "Alice")))

	room, err := reg.GetRoom(ctx, "ABCD")
	require.NoError(t, err)
	room.Participants[0].Name = "mutated"

	fresh, err := reg.GetRoom(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, "Alice", fresh.Participants[0].Name)
}
