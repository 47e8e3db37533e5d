package constant

// Shared slog attribute keys.
const (
	Error         = "error"
	RoomID        = "room_id"
	PeerID        = "peer_id"
	Action        = "action"
	MessageType   = "message_type"
	Candidate     = "candidate"
	QueueOwner    = "queue_owner"
	ParticipantID = "participant_id"
)
