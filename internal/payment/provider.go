package payment

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/noah-isme/backend-course/internal/course"
)

// CheckoutRequest captures what a customer submits to begin a payment.
// Price is never part of this contract: a request carrying one is rejected.
type CheckoutRequest struct {
	CourseType    string      `json:"courseType" validate:"required"`
	Locale        string      `json:"locale" validate:"omitempty,oneof=uk en"`
	CustomerEmail string      `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone string      `json:"customerPhone" validate:"omitempty,max=32"`
	Price         json.Number `json:"price" validate:"isdefault"`
}

// CheckoutResponse is the signed payload handed back to the storefront. The
// Payload map holds the provider-mandated field set including the signature;
// it never contains the signing secret.
type CheckoutResponse struct {
	OrderReference string
	Payload        map[string]any
}

// Status classifies an inbound transaction status string.
type Status string

// Normalised callback statuses.
const (
	StatusPaid     Status = "PAID"
	StatusDeclined Status = "DECLINED"
	StatusPending  Status = "PENDING"
	StatusUnknown  Status = "UNKNOWN"
)

// CallbackResult is the normalised outcome of verifying one callback.
// Interpretation fields are populated even when Valid is false so that a
// deployment with the unverified-callback escape hatch enabled can still
// process the event.
type CallbackResult struct {
	Valid          bool
	OrderReference string
	Status         Status
	RawStatus      string
	Amount         string
	Currency       string
	Email          string
	Phone          string
	Locale         course.Locale
	Err            error
}

// Provider abstracts one upstream payment processor: building the signed
// checkout payload and authenticating its asynchronous callback.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error)
	VerifyCallback(fields Fields) CallbackResult
	// AckBody returns the processor-mandated acknowledgment for a handled
	// callback. It must be well-formed even for declined or unknown statuses
	// so the processor stops redelivering.
	AckBody(res CallbackResult) any
}

// joinBaseURL joins the configured public base URL with a suffix path,
// normalising to exactly one separator between them.
func joinBaseURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/" + strings.TrimLeft(path, "/")
}
