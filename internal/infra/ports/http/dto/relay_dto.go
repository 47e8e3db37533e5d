package dto

import (
	"encoding/json"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

// Relay wire actions. The set is closed; anything else is a 400.
const (
	ActionPing             = "ping"
	ActionCreateRoom       = "create-room"
	ActionJoinRoom         = "join-room"
	ActionCheckMessages    = "check-messages"
	ActionAckMessages      = "ack-messages"
	ActionConfirmJoin      = "confirm-join"
	ActionSendMessage      = "send-message"
	ActionBroadcastMessage = "broadcast-message"
)

// RelayRequest is the uniform POST body of the relay endpoint. Data carries
// the action-specific payload and stays raw until the action is known.
type RelayRequest struct {
	Action string          `json:"action"`
	RoomID string          `json:"roomId,omitempty"`
	PeerID string          `json:"peerId"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type CreateRoomData struct {
	RoomName string       `json:"roomName"`
	Rules    models.Rules `json:"rules"`
	HostName string       `json:"hostName"`
}

type JoinRoomData struct {
	Name string `json:"name"`
}

type ConfirmJoinData struct {
	ParticipantID string `json:"participantId"`
	Approved      bool   `json:"approved"`
}

type SendMessageData struct {
	To      string          `json:"to"`
	Message json.RawMessage `json:"message"`
}

type BroadcastData struct {
	Type    string          `json:"type,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

type RelayResponse struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Message  string           `json:"message,omitempty"`
	RoomID   string           `json:"roomId,omitempty"`
	Room     *models.Room     `json:"room,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
}

func OK() RelayResponse {
	return RelayResponse{Success: true}
}

func Fail(err error) RelayResponse {
	return RelayResponse{Success: false, Error: err.Error()}
}
