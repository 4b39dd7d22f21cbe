package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-course/internal/common"
	"github.com/noah-isme/backend-course/internal/course"
	"github.com/noah-isme/backend-course/internal/notify"
	"github.com/noah-isme/backend-course/internal/obs"
	"github.com/noah-isme/backend-course/internal/orderref"
)

type replayStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// CallbackHandler receives asynchronous payment notifications, authenticates
// them and drives the notification trigger on a confirmed payment.
//
// The processor delivers callbacks at least once; the handler must therefore
// always produce a well-formed acknowledgment for anything authentic, even
// statuses it does not recognise, or the processor retries indefinitely.
type CallbackHandler struct {
	Providers map[string]Provider
	Trigger   *notify.Trigger
	Replay    replayStore
	ReplayTTL time.Duration
	// AllowUnverified processes callbacks whose signature failed
	// verification. It exists for local testing against processor
	// simulators only and cannot be enabled in production configuration.
	AllowUnverified bool
	DispatchTimeout time.Duration
	Logger          zerolog.Logger
}

// Handle processes one inbound callback for the provider named in the route.
func (h CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Providers == nil {
		common.JSONError(w, http.StatusInternalServerError, "CONFIG_ERROR", "callback handler unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	ctx, span := otel.Tracer("payment.CallbackHandler").Start(r.Context(), "Callback.Handle")
	defer span.End()
	span.SetAttributes(attribute.String("payment.provider", providerKey))
	r = r.WithContext(ctx)

	outcome := "error"
	defer func() {
		if obs.CallbackTotal != nil {
			obs.CallbackTotal.WithLabelValues(providerKey, outcome).Inc()
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		span.RecordError(err)
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unable to read payload", nil)
		return
	}

	fields, err := ParseCallbackBody(r, body)
	if err != nil {
		span.RecordError(err)
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unable to parse payload", nil)
		return
	}

	result := provider.VerifyCallback(fields)
	switch {
	case errors.Is(result.Err, ErrMerchantMismatch):
		span.RecordError(result.Err)
		h.Logger.Error().Str("provider", providerKey).Msg("callback merchant account mismatch")
		outcome = "merchant_mismatch"
		common.JSONError(w, http.StatusBadRequest, "MERCHANT_MISMATCH", "invalid merchant account", nil)
		return
	case errors.Is(result.Err, ErrNoSecret):
		span.RecordError(result.Err)
		outcome = "not_configured"
		common.JSONError(w, http.StatusInternalServerError, "CONFIG_ERROR", "payment service not configured", nil)
		return
	}
	if !result.Valid {
		if result.OrderReference == "" || !h.AllowUnverified {
			span.RecordError(result.Err)
			h.Logger.Error().Err(result.Err).Str("provider", providerKey).Msg("callback signature verification failed")
			outcome = "invalid_signature"
			common.JSONError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "invalid signature", nil)
			return
		}
		// Deliberate escape hatch for non-production simulators; loud on
		// purpose so it can never pass unnoticed.
		h.Logger.Warn().
			Str("provider", providerKey).
			Str("order_ref", result.OrderReference).
			Msg("SIGNATURE MISMATCH IGNORED: processing unverified callback (non-production escape hatch)")
	}
	span.SetAttributes(
		attribute.String("order.reference", result.OrderReference),
		attribute.String("payment.status", string(result.Status)),
	)

	// Replay suppression runs only for authenticated deliveries, so an
	// unverified or misconfigured request never consumes the key. The
	// processor redelivers until acknowledged, so a suppressed duplicate
	// still gets its ack, just without a second dispatch.
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("cb:%s:%s", providerKey, common.Sha256Hex(string(body)))
		fresh, err := h.Replay.SetNX(ctx, key, "1", h.ReplayTTL).Result()
		if err != nil {
			span.RecordError(err)
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "replay protection failed", nil)
			return
		}
		if !fresh {
			span.AddEvent("callback replay suppressed")
			h.Logger.Info().
				Str("provider", providerKey).
				Str("order_ref", result.OrderReference).
				Msg("duplicate callback body acknowledged without reprocessing")
			outcome = "replay"
			common.JSON(w, http.StatusOK, provider.AckBody(result))
			return
		}
	}

	switch result.Status {
	case StatusPaid:
		h.handlePaid(ctx, providerKey, result)
		outcome = "paid"
	case StatusDeclined, StatusPending:
		h.Logger.Info().
			Str("provider", providerKey).
			Str("order_ref", result.OrderReference).
			Str("status", result.RawStatus).
			Msg("payment not completed")
		outcome = strings.ToLower(string(result.Status))
	default:
		// Unrecognised statuses are harmless; acknowledge them so the
		// processor stops redelivering.
		h.Logger.Warn().
			Str("provider", providerKey).
			Str("order_ref", result.OrderReference).
			Str("status", result.RawStatus).
			Msg("unrecognised transaction status ignored")
		outcome = "unknown_status"
	}

	common.JSON(w, http.StatusOK, provider.AckBody(result))
}

func (h CallbackHandler) handlePaid(ctx context.Context, providerKey string, result CallbackResult) {
	logger := h.Logger.With().
		Str("provider", providerKey).
		Str("order_ref", result.OrderReference).
		Logger()

	courseType, err := orderref.Decode(result.OrderReference)
	if err != nil {
		logger.Error().Err(err).Msg("paid callback carries malformed order reference")
		return
	}
	info, ok := course.Lookup(courseType)
	if !ok {
		logger.Error().Str("course", courseType).Msg("paid callback references unknown course")
		return
	}
	if result.Email == "" {
		// The processor still needs its acknowledgment; this is an
		// operational problem to resolve by hand, not a callback failure.
		logger.Error().Msg("no customer email resolvable from callback, cannot send course access")
		return
	}
	if h.Trigger == nil {
		logger.Error().Msg("notification trigger not configured")
		return
	}

	timeout := h.DispatchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := h.Trigger.Notify(ctx, result.OrderReference, result.Email, info, result.Locale)
	if err != nil {
		// Dispatch failures never fail the acknowledgment; the processor's
		// redelivery drives the next attempt once the window expires.
		logger.Warn().Err(err).Msg("course email dispatch failed")
		return
	}
	if res.Duplicate {
		logger.Info().Msg("course email already dispatched for this order")
		return
	}
	logger.Info().Str("course", courseType).Msg("course access granted")
}
