package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
)

const pgUniqueViolation = "23505"

// RoomRepository is the durable Room Registry. All roster mutations run in a
// transaction holding the room row lock, so concurrent joins from separate
// relay invocations serialize instead of overwriting each other.
type RoomRepository struct {
	db *sqlx.DB
}

func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type roomRow struct {
	ID        string       `db:"id"`
	HostID    string       `db:"host_id"`
	Name      string       `db:"name"`
	CreatedAt sql.NullTime `db:"created_at"`

	SoupType          string `db:"soup_type"`
	ScoringMethod     string `db:"scoring_method"`
	AnswerMethod      string `db:"answer_method"`
	InteractionMethod string `db:"interaction_method"`
}

func (r *RoomRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO rooms (id, host_id, name, soup_type, scoring_method, answer_method, interaction_method, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		room.ID,
		room.HostID,
		room.Name,
		room.Rules.SoupType,
		room.Rules.ScoringMethod,
		room.Rules.AnswerMethod,
		room.Rules.InteractionMethod,
		room.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateRoomID
		}

		return fmt.Errorf("insert room: %w", err)
	}

	for _, p := range room.Participants {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO room_participants (room_id, participant_id, display_name, is_host, raised_hand)
			 VALUES ($1, $2, $3, $4, $5)`,
			room.ID, p.ID, p.Name, p.IsHost, p.RaisedHand,
		)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return r.getRoom(ctx, r.db, roomID)
}

func (r *RoomRepository) AddParticipant(ctx context.Context, roomID string, p models.Participant) (*models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var locked string
	err = tx.GetContext(ctx, &locked, "SELECT id FROM rooms WHERE id = $1 FOR UPDATE", roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRoomNotFound
		}

		return nil, fmt.Errorf("lock room: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO room_participants (room_id, participant_id, display_name, is_host, raised_hand)
		 VALUES ($1, $2, $3, FALSE, FALSE)`,
		roomID, p.ID, p.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateParticipant
		}

		return nil, fmt.Errorf("insert participant: %w", err)
	}

	room, err := r.getRoom(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return room, nil
}

// SetParticipants replaces the roster wholesale under the room row lock.
// Host flags are recomputed from the room's host id; a write that omits the
// host keeps the existing host row.
func (r *RoomRepository) SetParticipants(ctx context.Context, roomID string, participants []models.Participant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var hostID string
	err = tx.GetContext(ctx, &hostID, "SELECT host_id FROM rooms WHERE id = $1 FOR UPDATE", roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrRoomNotFound
		}

		return fmt.Errorf("lock room: %w", err)
	}

	var host models.Participant
	hostSeen := false

	for _, p := range participants {
		if p.ID == hostID {
			hostSeen = true
			break
		}
	}

	if !hostSeen {
		err = tx.GetContext(
			ctx,
			&host,
			`SELECT participant_id, display_name, is_host, raised_hand
			 FROM room_participants WHERE room_id = $1 AND participant_id = $2`,
			roomID, hostID,
		)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("select host: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM room_participants WHERE room_id = $1", roomID); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}

	roster := participants
	if !hostSeen && host.ID != "" {
		roster = append([]models.Participant{host}, participants...)
	}

	for _, p := range roster {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO room_participants (room_id, participant_id, display_name, is_host, raised_hand)
			 VALUES ($1, $2, $3, $4, $5)`,
			roomID, p.ID, p.Name, p.ID == hostID, p.RaisedHand,
		)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (r *RoomRepository) SetRaisedHand(ctx context.Context, roomID, participantID string, raised bool) error {
	res, err := r.db.ExecContext(
		ctx,
		"UPDATE room_participants SET raised_hand = $1 WHERE room_id = $2 AND participant_id = $3",
		raised, roomID, participantID,
	)
	if err != nil {
		return fmt.Errorf("update raised hand: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)", roomID); err != nil {
			return fmt.Errorf("check room: %w", err)
		}

		if !exists {
			return models.ErrRoomNotFound
		}

		return models.ErrParticipantNotFound
	}

	return nil
}

func (r *RoomRepository) getRoom(ctx context.Context, q sqlx.QueryerContext, roomID string) (*models.Room, error) {
	var row roomRow

	err := sqlx.GetContext(ctx, q, &row, "SELECT * FROM rooms WHERE id = $1", roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRoomNotFound
		}

		return nil, fmt.Errorf("select room: %w", err)
	}

	var participants []models.Participant

	err = sqlx.SelectContext(
		ctx,
		q,
		&participants,
		`SELECT participant_id, display_name, is_host, raised_hand
		 FROM room_participants WHERE room_id = $1 ORDER BY seq`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}

	return &models.Room{
		ID:     row.ID,
		HostID: row.HostID,
		Name:   row.Name,
		Rules: models.Rules{
			SoupType:          row.SoupType,
			ScoringMethod:     row.ScoringMethod,
			AnswerMethod:      row.AnswerMethod,
			InteractionMethod: row.InteractionMethod,
		},
		Participants: participants,
		CreatedAt:    row.CreatedAt.Time,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
