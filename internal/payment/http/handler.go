package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/metrics"
	"github.com/nekogravitycat/studio-booking-backend/internal/payment"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/response"
)

const maxWebhookBody = 64 << 10

// Processor applies a payment notification to the reservation it references.
type Processor interface {
	HandlePaymentNotification(ctx context.Context, paymentID string) error
}

type Handler struct {
	processor Processor
	secret    string
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewHandler(processor Processor, secret string, logger *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		processor: processor,
		secret:    secret,
		logger:    logging.OrNop(logger),
		metrics:   m,
	}
}

//
// POST /payments/webhook
//

func (h *Handler) Webhook(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	// A malformed body is only reported once the sender has proven who it is.
	var env WebhookEnvelope
	var bodyErr error
	if len(strings.TrimSpace(string(raw))) > 0 {
		bodyErr = json.Unmarshal(raw, &env)
	}

	// The gateway signs the query's data.id; the body copy is the fallback.
	dataID := strings.TrimSpace(c.Query("data.id"))
	if dataID == "" && bodyErr == nil {
		dataID = payment.RawID(env.Data.ID)
	}
	eventType := env.Type
	if eventType == "" {
		eventType = c.Query("type")
	}
	if eventType == "" {
		eventType = "unknown"
	}

	if err := payment.VerifySignature(h.secret, c.GetHeader("x-signature"), c.GetHeader("x-request-id"), dataID); err != nil {
		h.logger.Warn("webhook signature rejected",
			zap.String("data_id", dataID),
			zap.String("request_id", c.GetHeader("x-request-id")),
		)
		h.metrics.ObserveWebhook(eventType, "invalid_signature")
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Error: "invalid signature"})
		return
	}

	if bodyErr != nil {
		h.metrics.ObserveWebhook(eventType, "invalid")
		response.BadRequest(c, "invalid request body")
		return
	}

	if eventType != "payment" {
		h.metrics.ObserveWebhook(eventType, "ignored")
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Status: "ignored"})
		return
	}

	if dataID == "" {
		h.metrics.ObserveWebhook(eventType, "invalid")
		response.BadRequest(c, "data.id is required")
		return
	}

	if err := h.processor.HandlePaymentNotification(c.Request.Context(), dataID); err != nil {
		// Still a 200 once the signature checked out.
		h.logger.Error("payment notification failed",
			zap.String("payment_id", dataID),
			zap.Bool("not_found", errors.Is(err, payment.ErrPaymentNotFound)),
			zap.Error(err),
		)
		h.metrics.ObserveWebhook(eventType, "failed")
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Status: "failed"})
		return
	}

	h.metrics.ObserveWebhook(eventType, "processed")
	c.JSON(http.StatusOK, WebhookResponse{Received: true, Status: "processed"})
}
