package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/backend-course/internal/common"
	"github.com/noah-isme/backend-course/internal/course"
	"github.com/noah-isme/backend-course/internal/orderref"
)

// LiqPay implements Provider for the LiqPay checkout flow: the payload is a
// base64-encoded JSON blob signed with sha1(secret+data+secret), and the
// callback carries the same data/signature pair back.
type LiqPay struct {
	PublicKey  string
	PrivateKey string
	BaseURL    string
	Currency   string
}

// Contact resolution order for LiqPay callbacks, which use sender_* names.
var (
	liqPayEmailOrder = []string{"sender_email", "payer_email", "email"}
	liqPayPhoneOrder = []string{"sender_phone", "payer_phone", "phone"}
)

type liqPayPayload struct {
	PublicKey   string `json:"public_key"`
	Version     string `json:"version"`
	Action      string `json:"action"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	OrderID     string `json:"order_id"`
	Language    string `json:"language"`
	ServerURL   string `json:"server_url"`
	ResultURL   string `json:"result_url"`
	SenderEmail string `json:"sender_email"`
	SenderPhone string `json:"sender_phone"`
	Info        string `json:"info"`
}

// Name implements Provider.
func (p LiqPay) Name() string { return "liqpay" }

// CreateCheckout builds and signs the encoded payment blob.
func (p LiqPay) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutResponse, error) {
	info, ok := course.Lookup(req.CourseType)
	if !ok {
		return CheckoutResponse{}, common.ValidationError("unknown course type")
	}
	if req.CustomerEmail == "" || req.CustomerPhone == "" {
		return CheckoutResponse{}, common.ValidationError("customerEmail and customerPhone are required")
	}
	if p.PublicKey == "" || p.PrivateKey == "" {
		return CheckoutResponse{}, common.ConfigError("liqpay credentials not configured")
	}

	loc := course.ParseLocale(req.Locale)
	ref := orderref.Encode(string(info.Type))
	payload := liqPayPayload{
		PublicKey:   p.PublicKey,
		Version:     "3",
		Action:      "pay",
		Amount:      info.Price,
		Currency:    p.Currency,
		Description: fmt.Sprintf("%s | %s", info.LocalDescription(loc), req.CustomerEmail),
		OrderID:     ref,
		Language:    string(loc),
		ServerURL:   joinBaseURL(p.BaseURL, "/api/v1/payments/liqpay/callback"),
		ResultURL:   joinBaseURL(p.BaseURL, "/payment/success") + "?order_id=" + ref,
		SenderEmail: req.CustomerEmail,
		SenderPhone: req.CustomerPhone,
		Info:        fmt.Sprintf("Email: %s | Tel: %s", req.CustomerEmail, req.CustomerPhone),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return CheckoutResponse{}, fmt.Errorf("liqpay: encode payload: %w", err)
	}
	data := base64.StdEncoding.EncodeToString(raw)
	signature, err := SignEncodedBlob(p.PrivateKey, data)
	if err != nil {
		return CheckoutResponse{}, common.ConfigError("liqpay credentials not configured")
	}
	return CheckoutResponse{
		OrderReference: ref,
		Payload: map[string]any{
			"data":           data,
			"signature":      signature,
			"orderReference": ref,
		},
	}, nil
}

// VerifyCallback authenticates the data/signature pair and decodes the
// embedded payment fields. Interpretation fields are filled in even on a
// signature mismatch so the explicitly-configured escape hatch can use them.
func (p LiqPay) VerifyCallback(fields Fields) CallbackResult {
	if p.PrivateKey == "" {
		return CallbackResult{Err: ErrNoSecret}
	}
	data := fields["data"]
	signature := fields["signature"]
	if data == "" || signature == "" {
		return CallbackResult{Err: errors.New("liqpay: missing data or signature")}
	}
	valid := VerifyEncodedBlob(p.PrivateKey, data, signature)

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return CallbackResult{Valid: valid, Err: fmt.Errorf("liqpay: decode data: %w", err)}
	}
	inner, err := parseJSONFields(raw)
	if err != nil {
		return CallbackResult{Valid: valid, Err: fmt.Errorf("liqpay: decode payload: %w", err)}
	}

	res := CallbackResult{
		Valid:          valid,
		OrderReference: inner["order_id"],
		RawStatus:      inner["status"],
		Status:         normaliseLiqPayStatus(inner["status"]),
		Amount:         inner["amount"],
		Currency:       inner["currency"],
		Email:          inner.First(liqPayEmailOrder),
		Phone:          inner.First(liqPayPhoneOrder),
		Locale:         course.ParseLocale(inner["language"]),
	}
	if !valid {
		res.Err = errors.New("liqpay: invalid signature")
	}
	return res
}

// AckBody returns the acknowledgment LiqPay expects.
func (p LiqPay) AckBody(res CallbackResult) any {
	if res.Status == StatusPaid {
		return map[string]string{"status": "OK"}
	}
	return map[string]string{"status": "Payment not successful"}
}

func normaliseLiqPayStatus(status string) Status {
	switch status {
	case "success", "sandbox":
		return StatusPaid
	case "failure", "error", "reversed":
		return StatusDeclined
	case "processing", "prepared", "wait_accept", "wait_secure", "3ds_verify", "otp_verify":
		return StatusPending
	default:
		return StatusUnknown
	}
}
