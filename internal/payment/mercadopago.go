package payment

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
	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

const defaultBaseURL = "https://api.mercadopago.com"

var ErrPaymentNotFound = errors.New("payment not found")

type MercadoPagoConfig struct {
	AccessToken string
	// BaseURL overrides the API host, mostly for tests.
	BaseURL string
	// PublicAppURL is where the checkout sends the client back to.
	PublicAppURL string
	// NotificationURL is the public address of POST /payments/webhook.
	NotificationURL string
	Currency        string
	Expiry          time.Duration
	Timeout         time.Duration
}

// MercadoPago creates checkout preferences and reads payments through the REST API.
type MercadoPago struct {
	cfg        MercadoPagoConfig
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

func NewMercadoPago(cfg MercadoPagoConfig, logger *zap.Logger) *MercadoPago {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 30 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "BRL"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &MercadoPago{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		logger:     logging.OrNop(logger),
	}
}

type preferenceItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id"`
}

type preferencePayer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone struct {
		Number string `json:"number"`
	} `json:"phone"`
}

type paymentTypeRef struct {
	ID string `json:"id"`
}

type preferenceRequest struct {
	Items          []preferenceItem `json:"items"`
	Payer          preferencePayer  `json:"payer"`
	PaymentMethods struct {
		ExcludedPaymentTypes []paymentTypeRef `json:"excluded_payment_types"`
		Installments         int              `json:"installments"`
	} `json:"payment_methods"`
	BackURLs struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Pending string `json:"pending"`
	} `json:"back_urls"`
	AutoReturn        string `json:"auto_return,omitempty"`
	NotificationURL   string `json:"notification_url,omitempty"`
	ExternalReference string `json:"external_reference"`
	Expires           bool   `json:"expires"`
	ExpirationDateTo  string `json:"expiration_date_to"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type paymentResponse struct {
	ID                json.RawMessage `json:"id"`
	Status            string          `json:"status"`
	ExternalReference string          `json:"external_reference"`
}

func (m *MercadoPago) newPreference(r *reservation.Reservation) preferenceRequest {
	var p preferenceRequest
	p.Items = []preferenceItem{{
		ID:          r.ID,
		Title:       "Taxa de Agendamento – " + r.Service,
		Description: fmt.Sprintf("%s · %s às %s", r.ProfessionalName, r.Date.Format("02/01/2006"), r.Start),
		Quantity:    1,
		UnitPrice:   float64(r.FeeCents) / 100,
		CurrencyID:  m.cfg.Currency,
	}}
	p.Payer.Name = r.ClientName
	p.Payer.Email = r.ClientEmail
	p.Payer.Phone.Number = onlyDigits(r.ClientContact)

	if r.PaymentMethod == reservation.MethodPix {
		p.PaymentMethods.ExcludedPaymentTypes = []paymentTypeRef{{ID: "credit_card"}, {ID: "debit_card"}, {ID: "ticket"}}
	} else {
		p.PaymentMethods.ExcludedPaymentTypes = []paymentTypeRef{{ID: "bank_transfer"}}
	}
	p.PaymentMethods.Installments = 1

	appURL := strings.TrimRight(m.cfg.PublicAppURL, "/")
	id := url.QueryEscape(r.ID)
	p.BackURLs.Success = appURL + "/sucesso?id=" + id
	p.BackURLs.Failure = appURL + "/falha?id=" + id
	p.BackURLs.Pending = appURL + "/pendente?id=" + id
	if appURL != "" {
		p.AutoReturn = "approved"
	}

	p.NotificationURL = m.cfg.NotificationURL
	p.ExternalReference = r.ID
	p.Expires = true
	p.ExpirationDateTo = m.now().Add(m.cfg.Expiry).UTC().Format(time.RFC3339)
	return p
}

// CreatePaymentIntent creates a checkout preference whose external reference is the reservation id.
func (m *MercadoPago) CreatePaymentIntent(ctx context.Context, r *reservation.Reservation) (*reservation.PaymentIntent, error) {
	if m.cfg.AccessToken == "" {
		return nil, errors.New("mercadopago: access token is not configured")
	}

	var out preferenceResponse
	if err := m.do(ctx, http.MethodPost, "/checkout/preferences", m.newPreference(r), &out); err != nil {
		return nil, fmt.Errorf("create preference for reservation %s failed: %w", r.ID, err)
	}
	if out.ID == "" {
		return nil, errors.New("mercadopago: preference response has no id")
	}

	m.logger.Info("payment preference created",
		zap.String("reservation_id", r.ID),
		zap.String("preference_id", out.ID),
	)
	return &reservation.PaymentIntent{
		Reference:          out.ID,
		CheckoutURL:        out.InitPoint,
		SandboxCheckoutURL: out.SandboxInitPoint,
	}, nil
}

// GetPaymentStatus reads the payment as the gateway currently sees it.
func (m *MercadoPago) GetPaymentStatus(ctx context.Context, paymentID string) (*reservation.PaymentStatus, error) {
	if m.cfg.AccessToken == "" {
		return nil, errors.New("mercadopago: access token is not configured")
	}

	var out paymentResponse
	if err := m.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &out); err != nil {
		return nil, fmt.Errorf("get payment %s failed: %w", paymentID, err)
	}

	id := RawID(out.ID)
	if id == "" {
		id = paymentID
	}
	return &reservation.PaymentStatus{
		PaymentID:         id,
		Status:            out.Status,
		ExternalReference: out.ExternalReference,
	}, nil
}

func (m *MercadoPago) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrPaymentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mercadopago returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RawID renders a JSON id that may arrive as either a number or a string.
func RawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ reservation.PaymentGateway = (*MercadoPago)(nil)
