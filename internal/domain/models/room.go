package models

import (
	"time"
)

// Rules is the fixed-shape game configuration chosen by the host at room
// creation. Each field holds one of the enumerated option values below.
type Rules struct {
	SoupType          string `json:"soupType" db:"soup_type"`
	ScoringMethod     string `json:"scoringMethod" db:"scoring_method"`
	AnswerMethod      string `json:"answerMethod" db:"answer_method"`
	InteractionMethod string `json:"interactionMethod" db:"interaction_method"`
}

const (
	SoupTypeClassic = "classic"
	SoupTypeRed     = "red"

	ScoringHostOnly = "host"
	ScoringEveryone = "all"
	ScoringNone     = "none"

	AnswerFree      = "free"
	AnswerRaiseHand = "raise-hand"

	InteractionEnabled  = "enabled"
	InteractionDisabled = "disabled"
)

type Participant struct {
	ID         string `json:"id" db:"participant_id"`
	Name       string `json:"name" db:"display_name"`
	IsHost     bool   `json:"isHost" db:"is_host"`
	RaisedHand bool   `json:"raisedHand" db:"raised_hand"`
}

// Room is a named session with exactly one host. Participants keep join
// order; the host entry is created together with the room and never changes.
type Room struct {
	ID           string        `json:"roomId" db:"id"`
	HostID       string        `json:"host" db:"host_id"`
	Name         string        `json:"name" db:"name"`
	Rules        Rules         `json:"rules"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created" db:"created_at"`
}

func NewRoom(roomID, hostID, name string, rules Rules, hostName string) *Room {
	return &Room{
		ID:     roomID,
		HostID: hostID,
		Name:   name,
		Rules:  rules,
		Participants: []Participant{
			{ID: hostID, Name: hostName, IsHost: true},
		},
		CreatedAt: time.Now(),
	}
}

func (r *Room) HasParticipant(id string) bool {
	for _, p := range r.Participants {
		if p.ID == id {
			return true
		}
	}

	return false
}

func (r *Room) Participant(id string) (Participant, bool) {
	for _, p := range r.Participants {
		if p.ID == id {
			return p, true
		}
	}

	return Participant{}, false
}

// Clone returns a deep copy so in-memory adapters never hand out aliased
// roster slices.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Participants = make([]Participant, len(r.Participants))
	copy(cp.Participants, r.Participants)

	return &cp
}
