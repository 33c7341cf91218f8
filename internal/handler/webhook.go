package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/service"
)

// WebhookHandler handles HTTP requests for webhook endpoints.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// registerWebhookRequest is the JSON request body for POST /webhooks.
type registerWebhookRequest struct {
	URL string `json:"url"`
}

// webhookResponse is a single webhook in the response.
type webhookResponse struct {
	WebhookID string `json:"webhook_id"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// webhookListResponse is the JSON response for GET /webhooks.
type webhookListResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
}

// Register handles POST /webhooks.
func (h *WebhookHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	wh, err := h.webhookSvc.Register(service.RegisterWebhookRequest{
		URL: req.URL,
	})
	if err != nil {
		mapWebhookError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildWebhookResponse(wh))
}

// List handles GET /webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	webhooks := h.webhookSvc.List()

	result := make([]webhookResponse, len(webhooks))
	for i, wh := range webhooks {
		result[i] = buildWebhookResponse(wh)
	}

	WriteJSON(w, http.StatusOK, webhookListResponse{Webhooks: result})
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "webhook_id")

	if err := h.webhookSvc.Delete(webhookID); err != nil {
		mapWebhookError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// buildWebhookResponse converts a domain webhook to a response webhook.
func buildWebhookResponse(wh *domain.Webhook) webhookResponse {
	return webhookResponse{
		WebhookID: wh.WebhookID,
		URL:       wh.URL,
		CreatedAt: formatTime(wh.CreatedAt),
	}
}

// mapWebhookError maps domain errors to HTTP responses for webhook endpoints.
func mapWebhookError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	if errors.Is(err, domain.ErrWebhookNotFound) {
		WriteError(w, http.StatusNotFound, "webhook_not_found", err.Error())
		return
	}

	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
