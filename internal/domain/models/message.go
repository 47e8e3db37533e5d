package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType tags the relay envelope. The set mirrors what hosts and guests
// actually exchange; DecodePayload switches over all of them so a new type
// cannot be added without a decoder.
type MessageType string

const (
	// Handshake.
	TypeJoinRequest  MessageType = "join-request"
	TypeJoinResponse MessageType = "join-response"

	// Direct and generic broadcast payloads.
	TypeMessage   MessageType = "message"
	TypeBroadcast MessageType = "broadcast"

	// Room state pushed by the host.
	TypeParticipantsUpdate MessageType = "participants-update"
	TypeRoomUpdate         MessageType = "room-update"
	TypeRoomInfo           MessageType = "room-info"
	TypeWelcome            MessageType = "welcome"
	TypeRules              MessageType = "rules"

	// Game flow.
	TypePuzzle       MessageType = "puzzle"
	TypeClearPuzzle  MessageType = "clear-puzzle"
	TypeIntel        MessageType = "intel"
	TypeHostResponse MessageType = "host-response"
	TypeChat         MessageType = "chat"
	TypeGameEnd      MessageType = "game-end"
	TypeGameContinue MessageType = "game-continue"

	// Guest actions.
	TypeQuestion          MessageType = "question"
	TypeQuestionFromOther MessageType = "question-from-other"
	TypeRaiseHand         MessageType = "raise-hand"
	TypeLowerHand         MessageType = "lower-hand"
	TypeReaction          MessageType = "reaction"
)

// Message is the relay envelope. A message belongs to the recipient's queue
// from the moment it is appended and leaves it only on that recipient's
// drain. Timestamp is informative, not ordering-authoritative; queue position
// is.
//
// Name and Approved ride at the top level rather than inside Content because
// join-request and join-response predate the content convention on the wire.
type Message struct {
	Type      MessageType     `json:"type"`
	From      string          `json:"from"`
	RoomID    string          `json:"roomId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Approved  *bool           `json:"approved,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func now() int64 {
	return time.Now().UnixMilli()
}

func NewJoinRequest(from, name string) Message {
	return Message{Type: TypeJoinRequest, From: from, Name: name, Timestamp: now()}
}

func NewJoinResponse(from, roomID string, approved bool) Message {
	return Message{Type: TypeJoinResponse, From: from, RoomID: roomID, Approved: &approved, Timestamp: now()}
}

func NewDirect(typ MessageType, from string, content json.RawMessage) Message {
	if typ == "" {
		typ = TypeMessage
	}

	return Message{Type: typ, From: from, Content: content, Timestamp: now()}
}

// NormalizeDirect stamps the relay-verified sender onto a caller-built
// envelope and fills the fields the caller may omit.
func NormalizeDirect(from string, m Message) Message {
	m.From = from

	if m.Type == "" {
		m.Type = TypeMessage
	}

	if m.Timestamp == 0 {
		m.Timestamp = now()
	}

	return m
}

func NewBroadcast(typ MessageType, from, roomID string, content json.RawMessage) Message {
	if typ == "" {
		typ = TypeBroadcast
	}

	return Message{Type: typ, From: from, RoomID: roomID, Content: content, Timestamp: now()}
}

// Typed payloads carried in Content.

type ParticipantsUpdatePayload struct {
	Participants []Participant `json:"participants"`
}

type RoomInfoPayload struct {
	RoomName     string        `json:"roomName"`
	HostName     string        `json:"hostName"`
	Rules        Rules         `json:"rules"`
	Participants []Participant `json:"participants"`
}

type WelcomePayload struct {
	RoomName string `json:"roomName"`
	HostName string `json:"hostName"`
}

type ReactionPayload struct {
	Kind string `json:"kind"`
}

const (
	ReactionFlower = "flower"
	ReactionTrash  = "trash"
)

// DecodePayload unmarshals Content into the payload struct for the message
// type. Types without structured content decode to nil.
func DecodePayload(m Message) (any, error) {
	switch m.Type {
	case TypeJoinRequest, TypeJoinResponse,
		TypeClearPuzzle, TypeGameEnd, TypeGameContinue,
		TypeRaiseHand, TypeLowerHand:
		return nil, nil

	case TypeParticipantsUpdate:
		var p ParticipantsUpdatePayload
		return decode(m, &p)

	case TypeRoomUpdate, TypeRoomInfo:
		var p RoomInfoPayload
		return decode(m, &p)

	case TypeWelcome:
		var p WelcomePayload
		return decode(m, &p)

	case TypeRules:
		var p Rules
		return decode(m, &p)

	case TypeReaction:
		var p ReactionPayload
		return decode(m, &p)

	case TypeMessage, TypeBroadcast,
		TypePuzzle, TypeIntel, TypeHostResponse, TypeChat,
		TypeQuestion, TypeQuestionFromOther:
		// Free text rides as a bare JSON string.
		var p string
		return decode(m, &p)

	default:
		return nil, fmt.Errorf("unknown message type %q", m.Type)
	}
}

func decode[T any](m Message, dst *T) (any, error) {
	if len(m.Content) == 0 {
		return *dst, nil
	}

	if err := json.Unmarshal(m.Content, dst); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", m.Type, err)
	}

	return *dst, nil
}

// EncodeContent marshals a payload for the Content field.
func EncodeContent(payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	return raw, nil
}
