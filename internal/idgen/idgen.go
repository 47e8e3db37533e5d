// Package idgen generates room ids and participant identities.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// roomAlphabet is a fixed 32-character set with the visually confusable
// 0, O, 1 and I removed, so ids survive being read aloud or copied by hand.
const roomAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	RoomIDMinLen = 4
	RoomIDMaxLen = 10
)

// NewRoomID picks a length uniformly from [RoomIDMinLen, RoomIDMaxLen] and
// draws each character uniformly from the room alphabet. Collisions with
// existing rooms are the caller's problem: the registry rejects duplicates
// and the session controller regenerates.
func NewRoomID() (string, error) {
	span := int64(RoomIDMaxLen - RoomIDMinLen + 1)

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("pick room id length: %w", err)
	}

	length := RoomIDMinLen + int(n.Int64())
	out := make([]byte, length)

	for i := range out {
		x, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomAlphabet))))
		if err != nil {
			return "", fmt.Errorf("pick room id char: %w", err)
		}

		out[i] = roomAlphabet[x.Int64()]
	}

	return string(out), nil
}

// ValidRoomID reports whether s could have been produced by NewRoomID.
func ValidRoomID(s string) bool {
	if len(s) < RoomIDMinLen || len(s) > RoomIDMaxLen {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !inAlphabet(s[i]) {
			return false
		}
	}

	return true
}

func inAlphabet(c byte) bool {
	for i := 0; i < len(roomAlphabet); i++ {
		if roomAlphabet[i] == c {
			return true
		}
	}

	return false
}

// NewClientID returns a participant identity. Callers persist it so the same
// browser keeps addressing the same message queue across reloads.
func NewClientID() string {
	return uuid.NewString()
}
