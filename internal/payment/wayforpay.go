package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/backend-course/internal/common"
	"github.com/noah-isme/backend-course/internal/course"
	"github.com/noah-isme/backend-course/internal/orderref"
)

// ErrMerchantMismatch reports a callback addressed to a different merchant
// account. It is a hard rejection and short-circuits the signature check.
var ErrMerchantMismatch = errors.New("payment: merchant account mismatch")

// WayForPay implements Provider for the WayForPay purchase flow: the request
// and the callback are both signed with an HMAC-MD5 over a semicolon-joined
// field list in the documented order.
type WayForPay struct {
	MerchantAccount string
	MerchantSecret  string
	BaseURL         string
	Currency        string
}

// Name implements Provider.
func (p WayForPay) Name() string { return "wayforpay" }

// CreateCheckout builds the purchase field set and its signature. The
// purchase signature order is merchantAccount;merchantDomainName;
// orderReference;orderDate;amount;currency;productName;productCount;productPrice.
func (p WayForPay) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutResponse, error) {
	info, ok := course.Lookup(req.CourseType)
	if !ok {
		return CheckoutResponse{}, common.ValidationError("unknown course type")
	}
	if req.CustomerEmail == "" {
		return CheckoutResponse{}, common.ValidationError("customerEmail is required")
	}
	if p.MerchantAccount == "" || p.MerchantSecret == "" {
		return CheckoutResponse{}, common.ConfigError("wayforpay credentials not configured")
	}

	loc := course.ParseLocale(req.Locale)
	ref := orderref.Encode(string(info.Type))
	orderDate := time.Now().Unix()
	domain := stripScheme(p.BaseURL)
	title := info.LocalTitle(loc)
	amount := strconv.FormatInt(info.Price, 10)

	signature, err := SignFieldList(p.MerchantSecret,
		p.MerchantAccount,
		domain,
		ref,
		strconv.FormatInt(orderDate, 10),
		amount,
		p.Currency,
		title,
		"1",
		amount,
	)
	if err != nil {
		return CheckoutResponse{}, common.ConfigError("wayforpay credentials not configured")
	}

	return CheckoutResponse{
		OrderReference: ref,
		Payload: map[string]any{
			"merchantAccount":    p.MerchantAccount,
			"merchantDomainName": domain,
			"authorizationType":  "SimpleSignature",
			"orderReference":     ref,
			"orderDate":          orderDate,
			"amount":             info.Price,
			"currency":           p.Currency,
			"productName":        []string{title},
			"productPrice":       []int64{info.Price},
			"productCount":       []int{1},
			"language":           wayForPayLanguage(loc),
			"serviceUrl":         joinBaseURL(p.BaseURL, "/api/v1/payments/wayforpay/callback"),
			"returnUrl":          joinBaseURL(p.BaseURL, "/payment/success") + "?order_id=" + ref,
			"clientEmail":        req.CustomerEmail,
			"clientPhone":        req.CustomerPhone,
			"merchantSignature":  signature,
		},
	}, nil
}

// VerifyCallback checks the merchant account, then the callback signature
// over merchantAccount;orderReference;amount;currency;transactionStatus.
func (p WayForPay) VerifyCallback(fields Fields) CallbackResult {
	if fields["merchantAccount"] != p.MerchantAccount {
		return CallbackResult{Err: ErrMerchantMismatch}
	}
	if p.MerchantSecret == "" {
		return CallbackResult{Err: ErrNoSecret}
	}

	valid := VerifyFieldList(p.MerchantSecret,
		fields["merchantSignature"],
		fields["merchantAccount"],
		fields["orderReference"],
		fields["amount"],
		fields["currency"],
		fields["transactionStatus"],
	)

	res := CallbackResult{
		Valid:          valid,
		OrderReference: fields["orderReference"],
		RawStatus:      fields["transactionStatus"],
		Status:         normaliseWayForPayStatus(fields["transactionStatus"]),
		Amount:         fields["amount"],
		Currency:       fields["currency"],
		Email:          fields.First(EmailFieldOrder),
		Phone:          fields.First(PhoneFieldOrder),
		Locale:         parseWayForPayLanguage(fields["language"]),
	}
	if !valid {
		res.Err = errors.New("wayforpay: invalid signature")
	}
	return res
}

// AckBody returns the acknowledgment WayForPay expects: the order reference
// echo, a status token and a Unix timestamp.
func (p WayForPay) AckBody(res CallbackResult) any {
	status := "decline"
	if res.Status == StatusPaid {
		status = "accept"
	}
	return map[string]any{
		"orderReference": res.OrderReference,
		"status":         status,
		"time":           time.Now().Unix(),
	}
}

func normaliseWayForPayStatus(status string) Status {
	switch status {
	case "Approved":
		return StatusPaid
	case "Declined", "Expired", "Refunded", "Voided":
		return StatusDeclined
	case "InProcessing", "Pending", "WaitingAuthComplete":
		return StatusPending
	default:
		return StatusUnknown
	}
}

func wayForPayLanguage(loc course.Locale) string {
	if loc == course.LocaleUK {
		return "UA"
	}
	return "EN"
}

func parseWayForPayLanguage(value string) course.Locale {
	if strings.EqualFold(strings.TrimSpace(value), "UA") {
		return course.LocaleUK
	}
	return course.LocaleEN
}

func stripScheme(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	return trimmed
}
