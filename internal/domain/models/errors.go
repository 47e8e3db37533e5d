package models

import "errors"

// Relay error taxonomy. Adapters map their storage-specific failures onto
// these so the usecase and HTTP layers can branch with errors.Is.
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrDuplicateRoomID      = errors.New("room id already exists")
	ErrDuplicateParticipant = errors.New("participant already in room")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrNotARoomMember       = errors.New("not a room member")
	ErrQueueOverflow        = errors.New("message queue overflow")
	ErrMalformedRequest     = errors.New("malformed request")
	ErrInvalidRoomID        = errors.New("invalid room id")
	ErrSelfAddressed        = errors.New("message addressed to its sender")
)
