package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/article-live-api/internal/domain"
	"github.com/article-live-api/internal/pkg/validate"
	"github.com/article-live-api/internal/transport/http/middleware"
)

// SubscriptionStore is what the handler needs from the subscription repo.
type SubscriptionStore interface {
	Upsert(ctx context.Context, s *domain.PushSubscription) error
	Disable(ctx context.Context, username string) error
}

// SubscriptionHandler registers and rotates push endpoints, one per
// username. Registration is an upsert: a client re-registering after an
// endpoint rotation simply overwrites its record.
type SubscriptionHandler struct {
	subs SubscriptionStore
}

func NewSubscriptionHandler(subs SubscriptionStore) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

func (h *SubscriptionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpsertSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	channel := req.Channel
	if channel == "" {
		channel = domain.ChannelWebPush
	}
	now := time.Now().UTC()
	sub := &domain.PushSubscription{
		Username:  claims.Username,
		Channel:   channel,
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.subs.Upsert(r.Context(), sub); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "subscription saved"})
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.subs.Disable(r.Context(), claims.Username); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "subscription removed"})
}
