package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-course/internal/common"
	"github.com/noah-isme/backend-course/internal/obs"
)

// Handler exposes the checkout-creation endpoint for every configured
// provider.
type Handler struct {
	Providers map[string]Provider
	Validate  *validator.Validate
}

// CreateCheckout builds a signed payment payload for the requested provider.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Providers == nil {
		common.JSONError(w, http.StatusInternalServerError, "CONFIG_ERROR", "payment handler unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	outcome := "error"
	defer func() {
		if obs.CheckoutTotal != nil {
			obs.CheckoutTotal.WithLabelValues(providerKey, outcome).Inc()
		}
	}()

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body", nil)
		return
	}
	// Amounts are resolved server-side from the course type; a request that
	// tries to supply its own price is rejected outright.
	if req.Price != "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "price is not accepted from the client", nil)
		return
	}
	req.CourseType = strings.TrimSpace(req.CourseType)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid checkout request", validationDetails(err))
			return
		}
	}

	resp, err := provider.CreateCheckout(r.Context(), req)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	outcome = "success"
	common.JSON(w, http.StatusOK, resp.Payload)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return map[string]any{"fields": fields}
}
