package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-course/internal/common"
	"github.com/noah-isme/backend-course/internal/course"
	"github.com/noah-isme/backend-course/internal/obs"
)

// Result reports the outcome of one notification attempt.
type Result struct {
	Sent      bool
	Duplicate bool
}

// Trigger sends the course-access confirmation at most once per order within
// the dedupe window. The dedupe entry is recorded before the dispatch
// attempt, so a failed send still suppresses retries inside the window; the
// processor's own callback redelivery drives any later attempt.
type Trigger struct {
	Store        DedupeStore
	Mail         common.EmailSender
	TelegramLink string
	BaseURL      string
	Logger       zerolog.Logger
}

// Notify performs a single dispatch attempt for the order unless one was
// already recorded. Transport failures are returned to the caller and never
// retried internally.
func (t *Trigger) Notify(ctx context.Context, orderRef, customerEmail string, info course.Info, loc course.Locale) (Result, error) {
	if t == nil || t.Store == nil || t.Mail == nil {
		return Result{}, common.ConfigError("notification trigger not configured")
	}
	if strings.TrimSpace(customerEmail) == "" {
		return Result{}, common.ValidationError("customerEmail is required")
	}
	ctx, span := otel.Tracer("notify.Trigger").Start(ctx, "Trigger.Notify")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.reference", orderRef),
		attribute.String("course.type", string(info.Type)),
	)

	outcome := "error"
	started := time.Now()
	defer func() {
		if obs.CourseEmailTotal != nil {
			obs.CourseEmailTotal.WithLabelValues(outcome).Inc()
		}
		if obs.CourseEmailLatency != nil {
			obs.CourseEmailLatency.WithLabelValues(outcome).Observe(obs.DurationMillis(time.Since(started)))
		}
	}()

	key := "email_sent_" + orderRef
	first, err := t.Store.MarkIfFirst(ctx, key)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("dedupe check: %w", err)
	}
	if !first {
		span.AddEvent("duplicate notification suppressed")
		t.Logger.Info().Str("order_ref", orderRef).Msg("course email already sent, skipping")
		outcome = "duplicate"
		return Result{Sent: false, Duplicate: true}, nil
	}

	msg := courseEmail{
		Info:          info,
		Locale:        loc,
		OrderRef:      orderRef,
		CustomerEmail: customerEmail,
		TelegramLink:  t.TelegramLink,
		HeroImageURL:  strings.TrimRight(strings.TrimSpace(t.BaseURL), "/") + "/images/feedback/feedback1.PNG",
	}
	if err := t.Mail.Send(customerEmail, msg.subject(), msg.body()); err != nil {
		span.RecordError(err)
		t.Logger.Warn().Err(err).Str("order_ref", orderRef).Msg("course email dispatch failed")
		return Result{Sent: false}, fmt.Errorf("send course email: %w", err)
	}
	t.Logger.Info().Str("order_ref", orderRef).Str("course", string(info.Type)).Msg("course email sent")
	outcome = "sent"
	return Result{Sent: true}, nil
}
