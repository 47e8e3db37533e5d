package client

import (
	"fmt"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

// ChatEntry is one rendered line of the chat/response log.
type ChatEntry struct {
	From      string
	Name      string
	Type      models.MessageType
	Text      string
	Timestamp int64
}

// GameState is everything the UI needs to render a session. Snapshots are
// deep copies; the UI never aliases projector internals.
type GameState struct {
	RoomID       string
	RoomName     string
	HostName     string
	Rules        models.Rules
	Participants []models.Participant
	Puzzle       string
	IntelLog     []string
	ChatLog      []ChatEntry
	GameStarted  bool
}

// Projector folds inbound relay messages into GameState. It makes no
// outbound decisions, and roster updates replace wholesale so that replaying
// a redelivered message cannot corrupt the projection.
//
// Known gap: intel and chat appends are not deduplicated, so an
// at-least-once redelivery can repeat a log line. Roster, puzzle and game
// flags are safe under replay.
type Projector struct {
	state GameState
}

func NewProjector(roomID string) *Projector {
	return &Projector{state: GameState{RoomID: roomID}}
}

// Apply folds one message. Unknown types are an error so new message types
// cannot be silently dropped.
func (p *Projector) Apply(m models.Message) error {
	payload, err := models.DecodePayload(m)
	if err != nil {
		return err
	}

	switch m.Type {
	case models.TypeParticipantsUpdate:
		update := payload.(models.ParticipantsUpdatePayload)
		p.SetParticipants(update.Participants)

	case models.TypeRoomUpdate, models.TypeRoomInfo:
		info := payload.(models.RoomInfoPayload)
		p.state.RoomName = info.RoomName
		p.state.HostName = info.HostName
		p.state.Rules = info.Rules
		p.SetParticipants(info.Participants)

	case models.TypeWelcome:
		welcome := payload.(models.WelcomePayload)
		p.state.RoomName = welcome.RoomName
		p.state.HostName = welcome.HostName

	case models.TypeRules:
		p.state.Rules = payload.(models.Rules)

	case models.TypePuzzle:
		p.state.Puzzle = payload.(string)
		p.state.GameStarted = true

	case models.TypeClearPuzzle:
		p.state.Puzzle = ""

	case models.TypeIntel:
		p.state.IntelLog = append(p.state.IntelLog, payload.(string))

	case models.TypeHostResponse, models.TypeChat, models.TypeMessage, models.TypeBroadcast,
		models.TypeQuestion, models.TypeQuestionFromOther:
		p.appendChat(m, payload.(string))

	case models.TypeReaction:
		reaction := payload.(models.ReactionPayload)
		p.appendChat(m, fmt.Sprintf("reaction: %s", reaction.Kind))

	case models.TypeGameEnd:
		p.state.GameStarted = false

	case models.TypeGameContinue:
		p.state.GameStarted = true

	case models.TypeJoinRequest, models.TypeJoinResponse,
		models.TypeRaiseHand, models.TypeLowerHand:
		// Handshake and hand signals drive the session controller, not
		// the projection.

	default:
		return fmt.Errorf("unhandled message type %q", m.Type)
	}

	return nil
}

func (p *Projector) appendChat(m models.Message, text string) {
	p.state.ChatLog = append(p.state.ChatLog, ChatEntry{
		From:      m.From,
		Name:      m.Name,
		Type:      m.Type,
		Text:      text,
		Timestamp: m.Timestamp,
	})
}

// SetParticipants replaces the roster. The host entry's flag is taken as
// delivered; the registry is the authority on who hosts.
func (p *Projector) SetParticipants(participants []models.Participant) {
	roster := make([]models.Participant, len(participants))
	copy(roster, participants)
	p.state.Participants = roster
}

func (p *Projector) AddParticipant(participant models.Participant) {
	for _, existing := range p.state.Participants {
		if existing.ID == participant.ID {
			return
		}
	}

	p.state.Participants = append(p.state.Participants, participant)
}

// SetRaisedHand flips one participant's hand state, reporting whether the
// participant was known and the value actually changed.
func (p *Projector) SetRaisedHand(participantID string, raised bool) bool {
	for i := range p.state.Participants {
		if p.state.Participants[i].ID == participantID {
			if p.state.Participants[i].RaisedHand == raised {
				return false
			}

			p.state.Participants[i].RaisedHand = raised

			return true
		}
	}

	return false
}

func (p *Projector) RaisedHand(participantID string) bool {
	for _, participant := range p.state.Participants {
		if participant.ID == participantID {
			return participant.RaisedHand
		}
	}

	return false
}

func (p *Projector) Participants() []models.Participant {
	roster := make([]models.Participant, len(p.state.Participants))
	copy(roster, p.state.Participants)

	return roster
}

// Snapshot returns a deep copy of the projected state.
func (p *Projector) Snapshot() GameState {
	snapshot := p.state

	snapshot.Participants = append([]models.Participant(nil), p.state.Participants...)
	snapshot.IntelLog = append([]string(nil), p.state.IntelLog...)
	snapshot.ChatLog = append([]ChatEntry(nil), p.state.ChatLog...)

	return snapshot
}
