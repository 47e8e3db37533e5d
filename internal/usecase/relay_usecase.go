package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/congsh/PeerHaiguitang/internal/application/constant"
	"github.com/congsh/PeerHaiguitang/internal/application/metric"
	"github.com/congsh/PeerHaiguitang/internal/domain/models"
	"github.com/congsh/PeerHaiguitang/internal/idgen"
)

// RelayUsecase implements the relay wire actions over a room registry and a
// message queue store. It is shared by the HTTP port and by the in-process
// local relay, so the two transports cannot drift apart.
type RelayUsecase interface {
	CreateRoom(ctx context.Context, roomID, hostID, roomName string, rules models.Rules, hostName string) (*models.Room, error)
	JoinRoom(ctx context.Context, roomID, peerID, name string) (*models.Room, error)
	CheckMessages(ctx context.Context, peerID string) ([]models.Message, error)
	AckMessages(ctx context.Context, peerID string) error
	ConfirmJoin(ctx context.Context, roomID, peerID, participantID string, approved bool) error
	SendMessage(ctx context.Context, peerID, to string, msg models.Message) error
	Broadcast(ctx context.Context, roomID, peerID string, typ models.MessageType, content json.RawMessage) error
}

type relayUsecase struct {
	registry RoomRegistry
	queues   MessageQueueStore
}

func NewRelayUsecase(registry RoomRegistry, queues MessageQueueStore) RelayUsecase {
	return &relayUsecase{registry: registry, queues: queues}
}

func (u *relayUsecase) CreateRoom(ctx context.Context, roomID, hostID, roomName string, rules models.Rules, hostName string) (*models.Room, error) {
	if !idgen.ValidRoomID(roomID) {
		return nil, models.ErrInvalidRoomID
	}

	room := models.NewRoom(roomID, hostID, roomName, rules, hostName)

	if err := u.registry.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	slog.Info("room created", slog.String(constant.RoomID, roomID), slog.String(constant.PeerID, hostID))

	return room, nil
}

func (u *relayUsecase) JoinRoom(ctx context.Context, roomID, peerID, name string) (*models.Room, error) {
	room, err := u.registry.AddParticipant(ctx, roomID, models.Participant{ID: peerID, Name: name})
	if err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}

	// Let the host know. The join already took effect; a full host queue is
	// still surfaced because an unnoticed guest would wait forever.
	if err := u.queues.Append(ctx, room.HostID, models.NewJoinRequest(peerID, name)); err != nil {
		return nil, fmt.Errorf("notify host: %w", err)
	}

	slog.Info("participant joined", slog.String(constant.RoomID, roomID), slog.String(constant.PeerID, peerID))

	return room, nil
}

func (u *relayUsecase) CheckMessages(ctx context.Context, peerID string) ([]models.Message, error) {
	msgs, err := u.queues.Peek(ctx, peerID)
	if err != nil {
		return nil, fmt.Errorf("peek queue: %w", err)
	}

	return msgs, nil
}

func (u *relayUsecase) AckMessages(ctx context.Context, peerID string) error {
	if err := u.queues.Drain(ctx, peerID); err != nil {
		return fmt.Errorf("drain queue: %w", err)
	}

	return nil
}

func (u *relayUsecase) ConfirmJoin(ctx context.Context, roomID, peerID, participantID string, approved bool) error {
	room, err := u.registry.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("get room: %w", err)
	}

	// Only the host decides on join requests.
	if room.HostID != peerID {
		return models.ErrNotARoomMember
	}

	if err := u.queues.Append(ctx, participantID, models.NewJoinResponse(peerID, roomID, approved)); err != nil {
		return fmt.Errorf("send join response: %w", err)
	}

	slog.Info(
		"join confirmed",
		slog.String(constant.RoomID, roomID),
		slog.String(constant.ParticipantID, participantID),
		slog.Bool("approved", approved),
	)

	return nil
}

// SendMessage appends a caller-built envelope to one recipient's queue. The
// sender identity always comes from the authenticated peer id, never from
// the envelope.
func (u *relayUsecase) SendMessage(ctx context.Context, peerID, to string, msg models.Message) error {
	// A queue never holds messages from its own owner; talking to yourself
	// is a client bug, not a delivery.
	if to == peerID {
		return models.ErrSelfAddressed
	}

	msg = models.NormalizeDirect(peerID, msg)

	if err := u.queues.Append(ctx, to, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	// Hand signals addressed to the host are mirrored into the registry,
	// so a reconnecting host can rebuild raised hands from GetRoom. The
	// host's own projection stays authoritative; a mirror failure must not
	// undo the delivery above.
	if (msg.Type == models.TypeRaiseHand || msg.Type == models.TypeLowerHand) && msg.RoomID != "" {
		raised := msg.Type == models.TypeRaiseHand
		if err := u.registry.SetRaisedHand(ctx, msg.RoomID, peerID, raised); err != nil {
			slog.Warn(
				"raised hand mirror failed",
				slog.String(constant.RoomID, msg.RoomID),
				slog.String(constant.PeerID, peerID),
				slog.Any(constant.Error, err),
			)
		}
	}

	return nil
}

// Broadcast fans the message out to every participant except the sender.
// Per-recipient appends are independent: one full or failing queue does not
// block delivery to the rest, and the combined error reports what was missed.
func (u *relayUsecase) Broadcast(ctx context.Context, roomID, peerID string, typ models.MessageType, content json.RawMessage) error {
	room, err := u.registry.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("get room: %w", err)
	}

	if !room.HasParticipant(peerID) {
		return models.ErrNotARoomMember
	}

	// The host's roster broadcasts are the authoritative view of hand and
	// name state; mirror them into the registry so GetRoom stays current.
	if typ == models.TypeParticipantsUpdate && peerID == room.HostID {
		var payload models.ParticipantsUpdatePayload
		if err := json.Unmarshal(content, &payload); err == nil {
			if err := u.registry.SetParticipants(ctx, roomID, payload.Participants); err != nil {
				slog.Warn(
					"roster mirror failed",
					slog.String(constant.RoomID, roomID),
					slog.Any(constant.Error, err),
				)
			}
		}
	}

	msg := models.NewBroadcast(typ, peerID, roomID, content)

	metric.ObserveBroadcastFanout(len(room.Participants) - 1)

	var errs error

	for _, p := range room.Participants {
		if p.ID == peerID {
			continue
		}

		if err := u.queues.Append(ctx, p.ID, msg); err != nil {
			slog.Error(
				"broadcast append failed",
				slog.String(constant.RoomID, roomID),
				slog.String(constant.QueueOwner, p.ID),
				slog.Any(constant.Error, err),
			)
			errs = multierr.Append(errs, fmt.Errorf("deliver to %s: %w", p.ID, err))
		}
	}

	return errs
}
