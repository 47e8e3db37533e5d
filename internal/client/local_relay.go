package client

import (
	"context"
	"encoding/json"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
	"github.com/congsh/PeerHaiguitang/internal/infra/adapters/memory"
	"github.com/congsh/PeerHaiguitang/internal/usecase"
)

// LocalRelay runs the full relay contract in process over in-memory stores.
// It is the degraded fallback when every remote candidate is down, and the
// substrate the session tests run on. Several LocalRelays sharing one
// Backend simulate several participants on one relay.
type LocalRelay struct {
	peerID string
	relay  usecase.RelayUsecase
}

// Backend is the shared server half of a local relay deployment.
type Backend struct {
	Registry *memory.RoomRegistry
	Queues   *memory.MessageQueueStore
	Relay    usecase.RelayUsecase
}

func NewBackend() *Backend {
	registry := memory.NewRoomRegistry()
	queues := memory.NewMessageQueueStore(0)

	return &Backend{
		Registry: registry,
		Queues:   queues,
		Relay:    usecase.NewRelayUsecase(registry, queues),
	}
}

func NewLocalRelay(backend *Backend, peerID string) *LocalRelay {
	return &LocalRelay{peerID: peerID, relay: backend.Relay}
}

func (r *LocalRelay) Degraded() bool { return true }

func (r *LocalRelay) Ping(context.Context) error { return nil }

func (r *LocalRelay) CreateRoom(ctx context.Context, roomID, roomName string, rules models.Rules, hostName string) error {
	_, err := r.relay.CreateRoom(ctx, roomID, r.peerID, roomName, rules, hostName)

	return err
}

func (r *LocalRelay) JoinRoom(ctx context.Context, roomID, name string) (*models.Room, error) {
	return r.relay.JoinRoom(ctx, roomID, r.peerID, name)
}

func (r *LocalRelay) CheckMessages(ctx context.Context) ([]models.Message, error) {
	return r.relay.CheckMessages(ctx, r.peerID)
}

func (r *LocalRelay) AckMessages(ctx context.Context) error {
	return r.relay.AckMessages(ctx, r.peerID)
}

func (r *LocalRelay) ConfirmJoin(ctx context.Context, roomID, participantID string, approved bool) error {
	return r.relay.ConfirmJoin(ctx, roomID, r.peerID, participantID, approved)
}

func (r *LocalRelay) SendMessage(ctx context.Context, to string, msg models.Message) error {
	return r.relay.SendMessage(ctx, r.peerID, to, msg)
}

func (r *LocalRelay) Broadcast(ctx context.Context, roomID string, typ models.MessageType, content any) error {
	var raw json.RawMessage

	if content != nil {
		var err error
		if raw, err = models.EncodeContent(content); err != nil {
			return err
		}
	}

	return r.relay.Broadcast(ctx, roomID, r.peerID, typ, raw)
}
