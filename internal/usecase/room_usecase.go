package usecase

import (
	"context"
	"fmt"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

// RoomUsecase exposes registry reads to surfaces that sit outside the relay
// actions, such as the peer-channel signalling endpoint.
type RoomUsecase interface {
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
}

type roomUsecase struct {
	registry RoomRegistry
}

func NewRoomUsecase(registry RoomRegistry) RoomUsecase {
	return &roomUsecase{registry: registry}
}

func (u *roomUsecase) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := u.registry.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}

	return room, nil
}
