package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
)

const defaultZAPIBaseURL = "https://api.z-api.io"

var ErrNotConfigured = errors.New("whatsapp sender is not configured")

// Sender delivers one text message to one phone number.
type Sender interface {
	SendText(ctx context.Context, phone, message string) error
}

type ZAPIConfig struct {
	BaseURL     string
	InstanceID  string
	Token       string
	ClientToken string
	Timeout     time.Duration
}

// ZAPI sends WhatsApp messages through a Z-API compatible instance.
type ZAPI struct {
	cfg        ZAPIConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewZAPI(cfg ZAPIConfig, logger *zap.Logger) *ZAPI {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultZAPIBaseURL
	}
	return &ZAPI{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.OrNop(logger),
	}
}

type sendTextRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (z *ZAPI) SendText(ctx context.Context, phone, message string) error {
	if z.cfg.InstanceID == "" || z.cfg.Token == "" {
		return ErrNotConfigured
	}
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return fmt.Errorf("invalid phone number %q", phone)
	}

	body, err := json.Marshal(sendTextRequest{Phone: normalized, Message: message})
	if err != nil {
		return fmt.Errorf("marshal send-text request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/instances/%s/token/%s/send-text",
		z.baseURL, url.PathEscape(z.cfg.InstanceID), url.PathEscape(z.cfg.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send-text request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if z.cfg.ClientToken != "" {
		req.Header.Set("Client-Token", z.cfg.ClientToken)
	}

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send-text request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("send-text returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	z.logger.Debug("whatsapp message sent", zap.String("phone", normalized))
	return nil
}
