package usecase

import (
	"context"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

// RoomRegistry is the server-side room store. Implementations must apply
// roster mutations atomically per room; last-writer-wins overwrites of the
// whole roster lose concurrent joins.
type RoomRegistry interface {
	// CreateRoom persists a new room. Returns models.ErrDuplicateRoomID if
	// the id is taken; the caller owns regeneration and retry.
	CreateRoom(ctx context.Context, room *models.Room) error

	GetRoom(ctx context.Context, roomID string) (*models.Room, error)

	// AddParticipant appends a guest to the roster and returns the updated
	// room. Re-joining with a known id is rejected with
	// models.ErrDuplicateParticipant, not merged.
	AddParticipant(ctx context.Context, roomID string, p models.Participant) (*models.Room, error)

	// SetParticipants replaces the roster with the host's authoritative
	// view. Implementations recompute host flags from the stored host id
	// and never drop the host row.
	SetParticipants(ctx context.Context, roomID string, participants []models.Participant) error

	SetRaisedHand(ctx context.Context, roomID, participantID string, raised bool) error
}

// MessageQueueStore maps a participant id to its ordered queue of pending
// messages. Peek must not consume; Drain must be atomic relative to
// concurrent appends (an append happening after the drain survives it).
type MessageQueueStore interface {
	Append(ctx context.Context, ownerID string, msg models.Message) error
	Peek(ctx context.Context, ownerID string) ([]models.Message, error)
	Drain(ctx context.Context, ownerID string) error
}
