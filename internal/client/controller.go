package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/congsh/PeerHaiguitang/internal/application/constant"
	"github.com/congsh/PeerHaiguitang/internal/domain/models"
	"github.com/congsh/PeerHaiguitang/internal/idgen"
)

// State is the session lifecycle position.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingApproval
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingApproval:
		return "awaiting-approval"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	defaultPollInterval = 2 * time.Second
	createRoomAttempts  = 4
)

// Controller runs one participant's session: it drives the relay, polls the
// participant's queue, folds messages into the projector, and, when hosting,
// answers join requests and hand signals. One controller handles exactly one
// session; build a new one for the next room.
type Controller struct {
	mu sync.Mutex

	clientID    string
	displayName string
	relay       Relay

	state  State
	roomID string
	isHost bool
	proj   *Projector

	pollInterval time.Duration
	pollCancel   context.CancelFunc
	pollDone     chan struct{}

	approve  func(peerID, name string) bool
	onChange func(GameState)

	// decision resolves the guest's pending join request exactly once.
	decision chan error
}

type ControllerOption func(*Controller)

func WithPollInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.pollInterval = d }
}

// WithJoinApprover decides the host's answer to each join request. The
// default approves everybody.
func WithJoinApprover(approve func(peerID, name string) bool) ControllerOption {
	return func(c *Controller) { c.approve = approve }
}

// WithStateListener is invoked with a state snapshot after every message
// batch that changed anything. It runs on the poll goroutine; listeners must
// not call back into the controller.
func WithStateListener(fn func(GameState)) ControllerOption {
	return func(c *Controller) { c.onChange = fn }
}

func NewController(clientID, displayName string, relay Relay, opts ...ControllerOption) *Controller {
	c := &Controller{
		clientID:     clientID,
		displayName:  displayName,
		relay:        relay,
		state:        StateIdle,
		pollInterval: defaultPollInterval,
		approve:      func(string, string) bool { return true },
		decision:     make(chan error, 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Controller) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.roomID
}

func (c *Controller) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isHost
}

// Snapshot returns the projected game state, or the zero state before a
// session starts.
func (c *Controller) Snapshot() GameState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proj == nil {
		return GameState{}
	}

	return c.proj.Snapshot()
}

// CreateRoom registers a fresh room and activates the session as its host.
// Room ids are drawn at random, so a collision with a live room is possible;
// duplicates from the registry are retried with a fresh id a bounded number
// of times before giving up.
func (c *Controller) CreateRoom(ctx context.Context, roomName string, rules models.Rules) (string, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrBadState, c.state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	var roomID string

	backoff := retry.WithMaxRetries(createRoomAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		id, err := idgen.NewRoomID()
		if err != nil {
			return err
		}

		if err := c.relay.CreateRoom(ctx, id, roomName, rules, c.displayName); err != nil {
			if errors.Is(err, models.ErrDuplicateRoomID) {
				return retry.RetryableError(err)
			}

			return err
		}

		roomID = id

		return nil
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		return "", fmt.Errorf("%w: %w", ErrRoomCreateFailed, err)
	}

	c.mu.Lock()
	c.state = StateActive
	c.roomID = roomID
	c.isHost = true
	c.proj = NewProjector(roomID)
	c.proj.state.RoomName = roomName
	c.proj.state.HostName = c.displayName
	c.proj.state.Rules = rules
	c.proj.SetParticipants([]models.Participant{
		{ID: c.clientID, Name: c.displayName, IsHost: true},
	})
	c.mu.Unlock()

	c.startPolling()

	slog.Info("room created", slog.String(constant.RoomID, roomID))

	return roomID, nil
}

// JoinRoom files a join request and moves to AwaitingApproval. The host's
// verdict arrives on the message queue; block on AwaitDecision for it.
func (c *Controller) JoinRoom(ctx context.Context, roomID string) error {
	if !idgen.ValidRoomID(roomID) {
		return models.ErrInvalidRoomID
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBadState, c.state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	room, err := c.relay.JoinRoom(ctx, roomID, c.displayName)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		return err
	}

	c.mu.Lock()
	c.state = StateAwaitingApproval
	c.roomID = roomID
	c.proj = NewProjector(roomID)
	c.proj.state.RoomName = room.Name
	c.proj.state.Rules = room.Rules
	if host, ok := room.Participant(room.HostID); ok {
		c.proj.state.HostName = host.Name
	}
	c.proj.SetParticipants(room.Participants)
	c.mu.Unlock()

	c.startPolling()

	return nil
}

// AwaitDecision blocks until the host answers the join request. A nil return
// means the session is Active; ErrJoinRejected means it is Closed.
func (c *Controller) AwaitDecision(ctx context.Context) error {
	select {
	case err := <-c.decision:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LeaveRoom stops polling and closes the session. Safe to call in any state
// and more than once.
func (c *Controller) LeaveRoom() {
	c.mu.Lock()
	cancel := c.pollCancel
	done := c.pollDone
	c.pollCancel = nil
	c.pollDone = nil
	c.state = StateClosed
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Controller) startPolling() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.pollCancel = cancel
	c.pollDone = done
	c.mu.Unlock()

	go c.pollLoop(ctx, done)
}

func (c *Controller) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.pollOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("poll failed", slog.Any(constant.Error, err))
			}
		}
	}
}

// outboundCall is a relay operation decided while holding the mutex and
// executed after releasing it, so slow relay calls never block Snapshot.
type outboundCall func(ctx context.Context) error

func (c *Controller) pollOnce(ctx context.Context) error {
	messages, err := c.relay.CheckMessages(ctx)
	if err != nil {
		return fmt.Errorf("check messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	c.mu.Lock()

	// The session may have been closed between the fetch and now; the
	// unacked batch will be redelivered to whoever polls next, which is
	// nobody.
	if c.state == StateClosed || c.proj == nil {
		c.mu.Unlock()
		return nil
	}

	var outbox []outboundCall
	for _, m := range messages {
		outbox = append(outbox, c.handleLocked(m)...)
	}

	onChange := c.onChange

	var snapshot GameState
	if onChange != nil {
		snapshot = c.proj.Snapshot()
	}

	c.mu.Unlock()

	for _, call := range outbox {
		if err := call(ctx); err != nil {
			slog.Warn("outbound relay call failed", slog.Any(constant.Error, err))
		}
	}

	if onChange != nil {
		onChange(snapshot)
	}

	if err := c.relay.AckMessages(ctx); err != nil {
		return fmt.Errorf("ack messages: %w", err)
	}

	return nil
}

// handleLocked folds one message and returns the relay calls it provokes.
// Called with c.mu held.
func (c *Controller) handleLocked(m models.Message) []outboundCall {
	switch m.Type {
	case models.TypeJoinRequest:
		if !c.isHost {
			return nil
		}

		return c.answerJoinLocked(m)

	case models.TypeJoinResponse:
		c.resolveJoinLocked(m)

		return nil

	case models.TypeRaiseHand, models.TypeLowerHand:
		if !c.isHost {
			return nil
		}

		return c.setHandLocked(m.From, m.Type == models.TypeRaiseHand)

	case models.TypeQuestion:
		var outbox []outboundCall

		if c.isHost {
			// Asking spends the raised hand.
			outbox = c.setHandLocked(m.From, false)
		}

		if err := c.proj.Apply(m); err != nil {
			slog.Warn("drop message", slog.String(constant.MessageType, string(m.Type)), slog.Any(constant.Error, err))
		}

		return outbox

	default:
		if err := c.proj.Apply(m); err != nil {
			slog.Warn("drop message", slog.String(constant.MessageType, string(m.Type)), slog.Any(constant.Error, err))
		}

		return nil
	}
}

func (c *Controller) answerJoinLocked(m models.Message) []outboundCall {
	roomID := c.roomID
	applicant := m.From
	approved := c.approve(applicant, m.Name)

	if approved {
		c.proj.AddParticipant(models.Participant{ID: applicant, Name: m.Name})
	}

	outbox := []outboundCall{
		func(ctx context.Context) error {
			return c.relay.ConfirmJoin(ctx, roomID, applicant, approved)
		},
	}

	if approved {
		outbox = append(outbox, c.broadcastRosterLocked())
	}

	slog.Info(
		"join request answered",
		slog.String(constant.RoomID, roomID),
		slog.String(constant.ParticipantID, applicant),
		slog.Bool("approved", approved),
	)

	return outbox
}

func (c *Controller) resolveJoinLocked(m models.Message) {
	if c.state != StateAwaitingApproval {
		return
	}

	if m.Approved != nil && *m.Approved {
		c.state = StateActive
		c.resolveDecision(nil)

		return
	}

	c.state = StateClosed
	c.resolveDecision(ErrJoinRejected)
}

func (c *Controller) resolveDecision(err error) {
	select {
	case c.decision <- err:
	default:
	}
}

func (c *Controller) setHandLocked(participantID string, raised bool) []outboundCall {
	if !c.proj.SetRaisedHand(participantID, raised) {
		return nil
	}

	return []outboundCall{c.broadcastRosterLocked()}
}

// broadcastRosterLocked captures the current roster for a
// participants-update broadcast. Called with c.mu held.
func (c *Controller) broadcastRosterLocked() outboundCall {
	roomID := c.roomID
	roster := c.proj.Participants()

	return func(ctx context.Context) error {
		return c.relay.Broadcast(ctx, roomID, models.TypeParticipantsUpdate,
			models.ParticipantsUpdatePayload{Participants: roster})
	}
}

// requireActive snapshots the fields outbound calls need, failing unless the
// session is Active (and hosted, when hostOnly is set).
func (c *Controller) requireActive(hostOnly bool) (roomID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return "", fmt.Errorf("%w: %s", ErrBadState, c.state)
	}

	if hostOnly && !c.isHost {
		return "", fmt.Errorf("%w: host-only operation", ErrBadState)
	}

	return c.roomID, nil
}

// BroadcastPuzzle publishes the puzzle text and marks the game started for
// every participant, this controller included.
func (c *Controller) BroadcastPuzzle(ctx context.Context, text string) error {
	roomID, err := c.requireActive(true)
	if err != nil {
		return err
	}

	if err := c.relay.Broadcast(ctx, roomID, models.TypePuzzle, text); err != nil {
		return err
	}

	c.applyLocal(models.NewBroadcast(models.TypePuzzle, c.clientID, roomID, mustContent(text)))

	return nil
}

func (c *Controller) ClearPuzzle(ctx context.Context) error {
	roomID, err := c.requireActive(true)
	if err != nil {
		return err
	}

	if err := c.relay.Broadcast(ctx, roomID, models.TypeClearPuzzle, nil); err != nil {
		return err
	}

	c.applyLocal(models.NewBroadcast(models.TypeClearPuzzle, c.clientID, roomID, nil))

	return nil
}

func (c *Controller) BroadcastIntel(ctx context.Context, text string) error {
	roomID, err := c.requireActive(true)
	if err != nil {
		return err
	}

	if err := c.relay.Broadcast(ctx, roomID, models.TypeIntel, text); err != nil {
		return err
	}

	c.applyLocal(models.NewBroadcast(models.TypeIntel, c.clientID, roomID, mustContent(text)))

	return nil
}

func (c *Controller) HostResponse(ctx context.Context, text string) error {
	roomID, err := c.requireActive(true)
	if err != nil {
		return err
	}

	if err := c.relay.Broadcast(ctx, roomID, models.TypeHostResponse, text); err != nil {
		return err
	}

	c.applyLocal(hostNamed(models.NewBroadcast(models.TypeHostResponse, c.clientID, roomID, mustContent(text)), c.displayName))

	return nil
}

func (c *Controller) EndGame(ctx context.Context, solution string) error {
	roomID, err := c.requireActive(true)
	if err != nil {
		return err
	}

	if err := c.relay.Broadcast(ctx, roomID, models.TypeGameEnd, solution); err != nil {
		return err
	}

	c.applyLocal(models.NewBroadcast(models.TypeGameEnd, c.clientID, roomID, mustContent(solution)))

	return nil
}

func (c *Controller) ContinueGame(ctx context.Context) error {
	roomID, err := c.requireActive(true)
	if err != nil {
		return err
	}

	if err := c.relay.Broadcast(ctx, roomID, models.TypeGameContinue, nil); err != nil {
		return err
	}

	c.applyLocal(models.NewBroadcast(models.TypeGameContinue, c.clientID, roomID, nil))

	return nil
}

// AskQuestion sends the guest's question to the whole room.
func (c *Controller) AskQuestion(ctx context.Context, text string) error {
	roomID, err := c.requireActive(false)
	if err != nil {
		return err
	}

	if err := c.relay.Broadcast(ctx, roomID, models.TypeQuestion, text); err != nil {
		return err
	}

	c.applyLocal(hostNamed(models.NewBroadcast(models.TypeQuestion, c.clientID, roomID, mustContent(text)), c.displayName))

	return nil
}

func (c *Controller) SendChat(ctx context.Context, text string) error {
	roomID, err := c.requireActive(false)
	if err != nil {
		return err
	}

	if err := c.relay.Broadcast(ctx, roomID, models.TypeChat, text); err != nil {
		return err
	}

	c.applyLocal(hostNamed(models.NewBroadcast(models.TypeChat, c.clientID, roomID, mustContent(text)), c.displayName))

	return nil
}

func (c *Controller) RaiseHand(ctx context.Context) error {
	return c.signalHand(ctx, true)
}

func (c *Controller) LowerHand(ctx context.Context) error {
	return c.signalHand(ctx, false)
}

func (c *Controller) signalHand(ctx context.Context, raised bool) error {
	roomID, err := c.requireActive(false)
	if err != nil {
		return err
	}

	c.mu.Lock()

	// The host owns the roster, so its own hand folds straight into the
	// projection; the relay would refuse a self-addressed signal anyway.
	if c.isHost {
		outbox := c.setHandLocked(c.clientID, raised)
		c.mu.Unlock()

		for _, call := range outbox {
			if err := call(ctx); err != nil {
				return err
			}
		}

		return nil
	}

	hostID := c.hostIDLocked()
	c.mu.Unlock()

	if hostID == "" {
		return fmt.Errorf("%w: host unknown", ErrBadState)
	}

	typ := models.TypeRaiseHand
	if !raised {
		typ = models.TypeLowerHand
	}

	// Hand signals go to the host alone; the host folds them into the
	// roster and rebroadcasts a participants-update. RoomID rides along so
	// the relay can mirror the hand into its registry.
	return c.relay.SendMessage(ctx, hostID, models.Message{Type: typ, RoomID: roomID})
}

func (c *Controller) SendReaction(ctx context.Context, kind string) error {
	roomID, err := c.requireActive(false)
	if err != nil {
		return err
	}

	payload := models.ReactionPayload{Kind: kind}

	if err := c.relay.Broadcast(ctx, roomID, models.TypeReaction, payload); err != nil {
		return err
	}

	raw, _ := models.EncodeContent(payload)
	c.applyLocal(hostNamed(models.NewBroadcast(models.TypeReaction, c.clientID, roomID, raw), c.displayName))

	return nil
}

func (c *Controller) hostIDLocked() string {
	for _, p := range c.proj.Participants() {
		if p.IsHost {
			return p.ID
		}
	}

	return ""
}

// applyLocal folds the sender's own broadcast into its projection, since the
// relay never echoes a broadcast back to its author.
func (c *Controller) applyLocal(m models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proj == nil {
		return
	}

	if err := c.proj.Apply(m); err != nil {
		slog.Warn("drop local echo", slog.String(constant.MessageType, string(m.Type)), slog.Any(constant.Error, err))
	}
}

func hostNamed(m models.Message, name string) models.Message {
	m.Name = name

	return m
}

func mustContent(payload any) []byte {
	raw, err := models.EncodeContent(payload)
	if err != nil {
		return nil
	}

	return raw
}
