// internal/api/handlers.go
//
// HTTP handlers for the newsletter API.
//
// Context
// -------
//   - GET  /health_check  liveness probe, 200 with an empty body.
//   - POST /subscribe     form-encoded `name` and `email`; 200 once the
//     subscriber is stored, 400 for an invalid form, 500 when storage
//     fails.
//
// Notes
// -----
//   - Validation uses go-playground/validator on a small form struct.
//   - Every failure is logged with the chi request id; the client only
//     sees the status code.
//   - Oxford commas, two spaces after periods.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Tombleron/z2p/internal/metrics"
	"github.com/Tombleron/z2p/internal/subscription"
)

// SubscribeForm is the decoded POST /subscribe body.
type SubscribeForm struct {
	Name  string `validate:"required,max=256"`
	Email string `validate:"required,email,max=256"`
}

// Handlers carries the dependencies shared by every endpoint.
type Handlers struct {
	DB      sqlx.ExtContext
	Log     *zap.SugaredLogger
	Metrics *metrics.Metrics

	validate *validator.Validate
}

// NewHandlers wires h with a fresh validator.
func NewHandlers(db sqlx.ExtContext, log *zap.SugaredLogger, m *metrics.Metrics) *Handlers {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handlers{
		DB:       db,
		Log:      log,
		Metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck always answers 200.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Subscribe stores a new subscriber from a form post.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	log := h.Log.With("request_id", middleware.GetReqID(r.Context()))

	if err := r.ParseForm(); err != nil {
		h.reject(w, log, "malformed", err)
		return
	}
	form := SubscribeForm{
		Name:  strings.TrimSpace(r.PostForm.Get("name")),
		Email: strings.TrimSpace(r.PostForm.Get("email")),
	}
	if err := h.validate.Struct(form); err != nil {
		h.reject(w, log, "invalid", err)
		return
	}

	sub := subscription.NewSubscriber(form.Email, form.Name)
	if err := subscription.Insert(r.Context(), h.DB, sub); err != nil {
		reason := "storage"
		if errors.Is(err, subscription.ErrDuplicateEmail) {
			reason = "duplicate"
		}
		h.countError(reason)
		log.Errorw("subscribe failed", "reason", reason, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if h.Metrics != nil {
		h.Metrics.SubscriptionsTotal.Inc()
	}
	log.Infow("subscriber stored", "subscriber_id", sub.ID)
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) reject(w http.ResponseWriter, log *zap.SugaredLogger, reason string, err error) {
	h.countError(reason)
	log.Infow("subscribe rejected", "reason", reason, "err", err)
	w.WriteHeader(http.StatusBadRequest)
}

func (h *Handlers) countError(reason string) {
	if h.Metrics != nil {
		h.Metrics.SubscriptionErrorsTotal.WithLabelValues(reason).Inc()
	}
}
