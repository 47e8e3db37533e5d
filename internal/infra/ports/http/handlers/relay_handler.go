package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/congsh/PeerHaiguitang/internal/application/constant"
	"github.com/congsh/PeerHaiguitang/internal/application/metric"
	"github.com/congsh/PeerHaiguitang/internal/domain/models"
	"github.com/congsh/PeerHaiguitang/internal/infra/ports/http/dto"
	"github.com/congsh/PeerHaiguitang/internal/usecase"
)

// RelayHandler serves the polling relay protocol on a single POST endpoint,
// dispatching on the action field of the body.
type RelayHandler struct {
	relayUsecase usecase.RelayUsecase
}

func NewRelayHandler(relayUsecase usecase.RelayUsecase) *RelayHandler {
	return &RelayHandler{relayUsecase: relayUsecase}
}

func (h *RelayHandler) Handle(c echo.Context) error {
	var req dto.RelayRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.Fail(models.ErrMalformedRequest))
	}

	resp, err := h.dispatch(c, req)
	metric.RecordRelayAction(req.Action, err)

	if err != nil {
		slog.Warn(
			"relay action failed",
			slog.String(constant.Action, req.Action),
			slog.String(constant.RoomID, req.RoomID),
			slog.String(constant.PeerID, req.PeerID),
			slog.Any(constant.Error, err),
		)

		return c.JSON(statusFor(err), dto.Fail(err))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *RelayHandler) dispatch(c echo.Context, req dto.RelayRequest) (dto.RelayResponse, error) {
	ctx := c.Request().Context()

	switch req.Action {
	case dto.ActionPing:
		resp := dto.OK()
		resp.Message = "relay reachable"
		return resp, nil

	case dto.ActionCreateRoom:
		var data dto.CreateRoomData
		if err := decodeData(req, &data); err != nil {
			return dto.RelayResponse{}, err
		}

		_, err := h.relayUsecase.CreateRoom(ctx, req.RoomID, req.PeerID, data.RoomName, data.Rules, data.HostName)
		if err != nil {
			return dto.RelayResponse{}, err
		}

		resp := dto.OK()
		resp.RoomID = req.RoomID
		return resp, nil

	case dto.ActionJoinRoom:
		var data dto.JoinRoomData
		if err := decodeData(req, &data); err != nil {
			return dto.RelayResponse{}, err
		}

		room, err := h.relayUsecase.JoinRoom(ctx, req.RoomID, req.PeerID, data.Name)
		if err != nil {
			return dto.RelayResponse{}, err
		}

		resp := dto.OK()
		resp.Room = room
		return resp, nil

	case dto.ActionCheckMessages:
		msgs, err := h.relayUsecase.CheckMessages(ctx, req.PeerID)
		if err != nil {
			return dto.RelayResponse{}, err
		}

		metric.ObserveCheckedMessages(len(msgs))

		resp := dto.OK()
		resp.Messages = msgs
		return resp, nil

	case dto.ActionAckMessages:
		if err := h.relayUsecase.AckMessages(ctx, req.PeerID); err != nil {
			return dto.RelayResponse{}, err
		}

		return dto.OK(), nil

	case dto.ActionConfirmJoin:
		var data dto.ConfirmJoinData
		if err := decodeData(req, &data); err != nil {
			return dto.RelayResponse{}, err
		}

		err := h.relayUsecase.ConfirmJoin(ctx, req.RoomID, req.PeerID, data.ParticipantID, data.Approved)
		if err != nil {
			return dto.RelayResponse{}, err
		}

		return dto.OK(), nil

	case dto.ActionSendMessage:
		var data dto.SendMessageData
		if err := decodeData(req, &data); err != nil {
			return dto.RelayResponse{}, err
		}

		var msg models.Message
		if len(data.Message) != 0 {
			if err := json.Unmarshal(data.Message, &msg); err != nil {
				return dto.RelayResponse{}, models.ErrMalformedRequest
			}
		}

		if err := h.relayUsecase.SendMessage(ctx, req.PeerID, data.To, msg); err != nil {
			return dto.RelayResponse{}, err
		}

		return dto.OK(), nil

	case dto.ActionBroadcastMessage:
		var data dto.BroadcastData
		if err := decodeData(req, &data); err != nil {
			return dto.RelayResponse{}, err
		}

		err := h.relayUsecase.Broadcast(ctx, req.RoomID, req.PeerID, models.MessageType(data.Type), data.Content)
		if err != nil {
			return dto.RelayResponse{}, err
		}

		return dto.OK(), nil

	default:
		return dto.RelayResponse{}, models.ErrMalformedRequest
	}
}

func decodeData(req dto.RelayRequest, dst any) error {
	if len(req.Data) == 0 {
		return models.ErrMalformedRequest
	}

	if err := json.Unmarshal(req.Data, dst); err != nil {
		return models.ErrMalformedRequest
	}

	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrRoomNotFound),
		errors.Is(err, models.ErrParticipantNotFound):
		return http.StatusNotFound

	case errors.Is(err, models.ErrNotARoomMember):
		return http.StatusForbidden

	case errors.Is(err, models.ErrMalformedRequest),
		errors.Is(err, models.ErrDuplicateRoomID),
		errors.Is(err, models.ErrDuplicateParticipant),
		errors.Is(err, models.ErrInvalidRoomID),
		errors.Is(err, models.ErrSelfAddressed):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
