package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"

	"github.com/congsh/PeerHaiguitang/internal/application/config"
)

type IceHandler struct {
	cfg *config.Config
}

func NewIceHandler(cfg *config.Config) *IceHandler {
	return &IceHandler{cfg: cfg}
}

// IceServers hands clients the STUN list plus, when coturn is configured,
// time-limited TURN credentials derived from the shared secret.
func (h *IceHandler) IceServers(c echo.Context) error {
	servers := make([]webrtc.ICEServer, 0, len(h.cfg.IceServers)+1)
	servers = append(servers, h.cfg.IceServers...)

	if h.cfg.CoturnServer.Secret != "" {
		expiration := time.Now().Add(time.Hour).Unix()
		username := fmt.Sprintf("%d", expiration)

		mac := hmac.New(sha1.New, []byte(h.cfg.CoturnServer.Secret))
		mac.Write([]byte(username))
		password := base64.StdEncoding.EncodeToString(mac.Sum(nil))

		servers = append(servers, webrtc.ICEServer{
			URLs: []string{
				fmt.Sprintf("turn:%s?transport=udp", h.cfg.CoturnServer.Host),
				fmt.Sprintf("turn:%s?transport=tcp", h.cfg.CoturnServer.Host),
			},
			Username:   username,
			Credential: password,
		})
	}

	return c.JSON(http.StatusOK, servers)
}
