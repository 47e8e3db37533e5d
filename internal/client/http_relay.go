package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/congsh/PeerHaiguitang/internal/domain/models"
	"github.com/congsh/PeerHaiguitang/internal/infra/ports/http/dto"
)

// HTTPRelay speaks the polling relay protocol against one endpoint. Failover
// across endpoints is the Selector's job, not this type's.
type HTTPRelay struct {
	endpoint string
	peerID   string
	client   *http.Client
}

func NewHTTPRelay(endpoint, peerID string, httpClient *http.Client) *HTTPRelay {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPRelay{
		endpoint: endpoint,
		peerID:   peerID,
		client:   httpClient,
	}
}

func (r *HTTPRelay) Degraded() bool { return false }

func (r *HTTPRelay) Ping(ctx context.Context) error {
	_, err := r.do(ctx, dto.RelayRequest{Action: dto.ActionPing})

	return err
}

func (r *HTTPRelay) CreateRoom(ctx context.Context, roomID, roomName string, rules models.Rules, hostName string) error {
	data, err := encodeData(dto.CreateRoomData{RoomName: roomName, Rules: rules, HostName: hostName})
	if err != nil {
		return err
	}

	_, err = r.do(ctx, dto.RelayRequest{Action: dto.ActionCreateRoom, RoomID: roomID, Data: data})

	return err
}

func (r *HTTPRelay) JoinRoom(ctx context.Context, roomID, name string) (*models.Room, error) {
	data, err := encodeData(dto.JoinRoomData{Name: name})
	if err != nil {
		return nil, err
	}

	resp, err := r.do(ctx, dto.RelayRequest{Action: dto.ActionJoinRoom, RoomID: roomID, Data: data})
	if err != nil {
		return nil, err
	}

	return resp.Room, nil
}

func (r *HTTPRelay) CheckMessages(ctx context.Context) ([]models.Message, error) {
	resp, err := r.do(ctx, dto.RelayRequest{Action: dto.ActionCheckMessages})
	if err != nil {
		return nil, err
	}

	return resp.Messages, nil
}

func (r *HTTPRelay) AckMessages(ctx context.Context) error {
	_, err := r.do(ctx, dto.RelayRequest{Action: dto.ActionAckMessages})

	return err
}

func (r *HTTPRelay) ConfirmJoin(ctx context.Context, roomID, participantID string, approved bool) error {
	data, err := encodeData(dto.ConfirmJoinData{ParticipantID: participantID, Approved: approved})
	if err != nil {
		return err
	}

	_, err = r.do(ctx, dto.RelayRequest{Action: dto.ActionConfirmJoin, RoomID: roomID, Data: data})

	return err
}

func (r *HTTPRelay) SendMessage(ctx context.Context, to string, msg models.Message) error {
	msg = models.NormalizeDirect(r.peerID, msg)

	envelope, err := encodeData(msg)
	if err != nil {
		return err
	}

	data, err := encodeData(dto.SendMessageData{To: to, Message: envelope})
	if err != nil {
		return err
	}

	_, err = r.do(ctx, dto.RelayRequest{Action: dto.ActionSendMessage, Data: data})

	return err
}

func (r *HTTPRelay) Broadcast(ctx context.Context, roomID string, typ models.MessageType, content any) error {
	var raw json.RawMessage

	if content != nil {
		var err error
		if raw, err = models.EncodeContent(content); err != nil {
			return err
		}
	}

	data, err := encodeData(dto.BroadcastData{Type: string(typ), Content: raw})
	if err != nil {
		return err
	}

	_, err = r.do(ctx, dto.RelayRequest{Action: dto.ActionBroadcastMessage, RoomID: roomID, Data: data})

	return err
}

func (r *HTTPRelay) do(ctx context.Context, req dto.RelayRequest) (dto.RelayResponse, error) {
	req.PeerID = r.peerID

	body, err := json.Marshal(req)
	if err != nil {
		return dto.RelayResponse{}, fmt.Errorf("marshal relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return dto.RelayResponse{}, fmt.Errorf("build relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return dto.RelayResponse{}, fmt.Errorf("%s: %w", req.Action, err)
	}
	defer httpResp.Body.Close()

	var resp dto.RelayResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return dto.RelayResponse{}, fmt.Errorf("decode relay response: %w", err)
	}

	if err := errorFor(httpResp.StatusCode, resp); err != nil {
		return dto.RelayResponse{}, err
	}

	return resp, nil
}

// errorFor reverses the server's status mapping back into sentinel errors so
// the session layer can branch without string matching.
func errorFor(status int, resp dto.RelayResponse) error {
	if status == http.StatusOK && resp.Success {
		return nil
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", resp.Error, models.ErrRoomNotFound)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", resp.Error, models.ErrNotARoomMember)
	case http.StatusBadRequest:
		// The wire protocol folds user errors into 400; recover the ones
		// the session layer retries or reports specially.
		switch {
		case strings.Contains(resp.Error, models.ErrDuplicateRoomID.Error()):
			return fmt.Errorf("%s: %w", resp.Error, models.ErrDuplicateRoomID)
		case strings.Contains(resp.Error, models.ErrDuplicateParticipant.Error()):
			return fmt.Errorf("%s: %w", resp.Error, models.ErrDuplicateParticipant)
		default:
			return fmt.Errorf("%s: %w", resp.Error, models.ErrMalformedRequest)
		}
	default:
		return fmt.Errorf("relay error (status %d): %s", status, resp.Error)
	}
}

func encodeData(payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode relay data: %w", err)
	}

	return raw, nil
}
