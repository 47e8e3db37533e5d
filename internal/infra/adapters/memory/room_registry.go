package memory

import (
	"context"
	"sync"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

// RoomRegistry keeps rooms in process memory. It backs both the local
// offline relay and test setups; the postgres adapter is the durable twin.
type RoomRegistry struct {
	rooms map[string]*models.Room
	mu    sync.RWMutex
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*models.Room),
	}
}

func (r *RoomRegistry) CreateRoom(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return models.ErrDuplicateRoomID
	}

	r.rooms[room.ID] = room.Clone()

	return nil
}

func (r *RoomRegistry) GetRoom(_ context.Context, roomID string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, models.ErrRoomNotFound
	}

	return room.Clone(), nil
}

func (r *RoomRegistry) AddParticipant(_ context.Context, roomID string, p models.Participant) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, models.ErrRoomNotFound
	}

	if room.HasParticipant(p.ID) {
		return nil, models.ErrDuplicateParticipant
	}

	p.IsHost = false
	room.Participants = append(room.Participants, p)

	return room.Clone(), nil
}

func (r *RoomRegistry) SetParticipants(_ context.Context, roomID string, participants []models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	roster := make([]models.Participant, 0, len(participants)+1)
	hostSeen := false

	for _, p := range participants {
		p.IsHost = p.ID == room.HostID
		hostSeen = hostSeen || p.IsHost
		roster = append(roster, p)
	}

	// The host row cannot be written out of existence.
	if !hostSeen {
		if host, ok := room.Participant(room.HostID); ok {
			roster = append([]models.Participant{host}, roster...)
		}
	}

	room.Participants = roster

	return nil
}

func (r *RoomRegistry) SetRaisedHand(_ context.Context, roomID, participantID string, raised bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	for i := range room.Participants {
		if room.Participants[i].ID == participantID {
			room.Participants[i].RaisedHand = raised
			return nil
		}
	}

	return models.ErrParticipantNotFound
}
