package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/congsh/PeerHaiguitang/internal/application/config"
	"github.com/congsh/PeerHaiguitang/internal/application/constant"
	"github.com/congsh/PeerHaiguitang/internal/application/metric"
	"github.com/congsh/PeerHaiguitang/internal/domain/models"
	"github.com/congsh/PeerHaiguitang/internal/infra/adapters/memory"
	"github.com/congsh/PeerHaiguitang/internal/usecase"
)

// SignalFrame is one hop on the peer channel. A guest's frames are routed to
// the room's host endpoint; the host addresses guests explicitly via To.
type SignalFrame struct {
	To   string          `json:"to,omitempty"`
	From string          `json:"from,omitempty"`
	Name string          `json:"name,omitempty"`
	Data json.RawMessage `json:"data"`
}

// SignalHandler is the signalling side of the direct peer transport: the
// host parks a websocket under its room id, guests dial in with the room id
// as target, and the server pipes ordered frames between the two.
type SignalHandler struct {
	upgrader *websocket.Upgrader

	roomUsecase usecase.RoomUsecase
	conns       memory.SignalConnectionRepository
}

func NewSignalHandler(cfg *config.Config, roomUsecase usecase.RoomUsecase, conns memory.SignalConnectionRepository) *SignalHandler {
	return &SignalHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		roomUsecase: roomUsecase,
		conns:       conns,
	}
}

func (h *SignalHandler) Handle(c echo.Context) error {
	peerID := c.QueryParam("peer")
	target := c.QueryParam("target")
	name := c.QueryParam("name")

	if peerID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "peer is required"})
	}

	// A guest names the room it dials; reject dead room ids before the
	// upgrade so the client gets a clean HTTP error.
	if target != "" {
		if _, err := h.roomUsecase.GetRoom(c.Request().Context(), target); err != nil {
			if errors.Is(err, models.ErrRoomNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "room not found"})
			}

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "room lookup failed"})
		}
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("websocket upgrade error", slog.Any(constant.Error, err))
		return err
	}
	defer ws.Close()

	h.conns.Add(peerID, ws)
	defer h.conns.Remove(peerID)

	metric.IncrementSignalConnections()
	defer metric.DecrementSignalConnections()

	if err := ws.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-c.Request().Context().Done():
				return
			}
		}
	}()

	for {
		var frame SignalFrame
		if err := ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("signal websocket read error", slog.Any(constant.Error, err))
			}

			return nil
		}

		frame.From = peerID
		if name != "" {
			frame.Name = name
		}

		dest := frame.To
		if dest == "" {
			dest = target
		}

		if dest == "" {
			continue
		}

		if !h.conns.Write(dest, frame) {
			slog.Warn(
				"signal frame dropped, endpoint offline",
				slog.String(constant.PeerID, dest),
			)
		}
	}
}
