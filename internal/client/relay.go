// Package client is the participant-side relay core: transport candidate
// selection, the session controller state machine, and the game state
// projector. UI layers call into it and render whatever state it reports.
package client

import (
	"context"
	"errors"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

// Relay is one participant's view of the relay substrate. The peer id is
// bound at construction so every operation is issued on its behalf. Remote
// HTTP and in-process local implementations satisfy the same contract; the
// session controller never branches on which one it holds.
type Relay interface {
	Ping(ctx context.Context) error
	CreateRoom(ctx context.Context, roomID, roomName string, rules models.Rules, hostName string) error
	JoinRoom(ctx context.Context, roomID, name string) (*models.Room, error)
	CheckMessages(ctx context.Context) ([]models.Message, error)
	AckMessages(ctx context.Context) error
	ConfirmJoin(ctx context.Context, roomID, participantID string, approved bool) error
	SendMessage(ctx context.Context, to string, msg models.Message) error
	Broadcast(ctx context.Context, roomID string, typ models.MessageType, content any) error

	// Degraded reports whether this relay is the local offline fallback,
	// in which case no cross-device communication is possible.
	Degraded() bool
}

// Client-side failure taxonomy. Store-level errors stay in models; these
// cover connection establishment and the session handshake.
var (
	ErrAllCandidatesExhausted = errors.New("all relay candidates exhausted")
	ErrConnectionTimeout      = errors.New("relay connection timed out")
	ErrConnectionFailed       = errors.New("connection failed")
	ErrRoomCreateFailed       = errors.New("room creation failed")
	ErrJoinRejected           = errors.New("join request rejected by host")
	ErrBadState               = errors.New("operation not valid in current session state")
)
