package memory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/congsh/PeerHaiguitang/internal/application/constant"
)

// SignalConnectionRepository tracks live peer-channel websockets keyed by
// endpoint id (the host registers under its room id, guests under their
// participant id).
type SignalConnectionRepository interface {
	Add(endpointID string, conn *websocket.Conn)
	Remove(endpointID string)

	// Write sends one JSON frame to the endpoint. Frames for one endpoint
	// serialize on a per-connection lock so interleaved writers cannot
	// corrupt the stream.
	Write(endpointID string, payload any) bool
}

type safeWS struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type signalConnectionRepository struct {
	conns map[string]*safeWS

	mu sync.RWMutex
}

func NewSignalConnectionRepository() SignalConnectionRepository {
	return &signalConnectionRepository{
		conns: make(map[string]*safeWS, 10),
	}
}

func (w *signalConnectionRepository) Add(endpointID string, conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.conns[endpointID] = &safeWS{conn: conn}
}

func (w *signalConnectionRepository) Remove(endpointID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.conns, endpointID)
}

func (w *signalConnectionRepository) Write(endpointID string, payload any) bool {
	safews, ok := w.getSafeWS(endpointID)
	if !ok {
		return false
	}

	safews.mu.Lock()
	defer safews.mu.Unlock()

	if err := safews.conn.WriteJSON(payload); err != nil {
		slog.Error(
			"write to signal websocket",
			slog.String(constant.PeerID, endpointID),
			slog.Any(constant.Error, err),
		)

		return false
	}

	return true
}

func (w *signalConnectionRepository) getSafeWS(endpointID string) (*safeWS, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	conn, ok := w.conns[endpointID]

	return conn, ok
}
