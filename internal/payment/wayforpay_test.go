package payment_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-course/internal/orderref"
	"github.com/noah-isme/backend-course/internal/payment"
)

func newWayForPay() payment.WayForPay {
	return payment.WayForPay{
		MerchantAccount: "merchant_test",
		MerchantSecret:  "wfp_secret",
		BaseURL:         "https://courses.example.com",
		Currency:        "UAH",
	}
}

func wayForPayCallbackFields(t *testing.T, secret string, fields payment.Fields) payment.Fields {
	t.Helper()
	sig, err := payment.SignFieldList(secret,
		fields["merchantAccount"],
		fields["orderReference"],
		fields["amount"],
		fields["currency"],
		fields["transactionStatus"],
	)
	require.NoError(t, err)
	fields["merchantSignature"] = sig
	return fields
}

func TestWayForPayCreateCheckout(t *testing.T) {
	p := newWayForPay()
	resp, err := p.CreateCheckout(context.Background(), payment.CheckoutRequest{
		CourseType:    "advanced",
		Locale:        "en",
		CustomerEmail: "student@example.com",
		CustomerPhone: "+380501234567",
	})
	require.NoError(t, err)

	courseType, err := orderref.Decode(resp.OrderReference)
	require.NoError(t, err)
	require.Equal(t, "advanced", courseType)

	payload := resp.Payload
	require.Equal(t, "merchant_test", payload["merchantAccount"])
	require.Equal(t, "courses.example.com", payload["merchantDomainName"])
	require.Equal(t, "SimpleSignature", payload["authorizationType"])
	require.EqualValues(t, 1800, payload["amount"])
	require.Equal(t, "UAH", payload["currency"])
	require.Equal(t, []int{1}, payload["productCount"])
	require.Equal(t, []int64{1800}, payload["productPrice"])
	require.Equal(t, "EN", payload["language"])
	require.Equal(t, "https://courses.example.com/api/v1/payments/wayforpay/callback", payload["serviceUrl"])
	require.Contains(t, payload["returnUrl"], "order_id="+resp.OrderReference)

	names, ok := payload["productName"].([]string)
	require.True(t, ok)
	require.Len(t, names, 1)

	orderDate, ok := payload["orderDate"].(int64)
	require.True(t, ok)

	sig, ok := payload["merchantSignature"].(string)
	require.True(t, ok)
	require.True(t, payment.VerifyFieldList("wfp_secret", sig,
		"merchant_test",
		"courses.example.com",
		resp.OrderReference,
		strconv.FormatInt(orderDate, 10),
		"1800",
		"UAH",
		names[0],
		"1",
		"1800",
	))
}

func TestWayForPayCreateCheckoutValidation(t *testing.T) {
	p := newWayForPay()

	_, err := p.CreateCheckout(context.Background(), payment.CheckoutRequest{CourseType: "basic"})
	require.Error(t, err, "missing email must be rejected")

	unconfigured := payment.WayForPay{BaseURL: "https://x", Currency: "UAH"}
	_, err = unconfigured.CreateCheckout(context.Background(), payment.CheckoutRequest{
		CourseType:    "basic",
		CustomerEmail: "a@b.com",
	})
	require.Error(t, err)
}

func TestWayForPayVerifyCallbackValid(t *testing.T) {
	p := newWayForPay()
	fields := wayForPayCallbackFields(t, "wfp_secret", payment.Fields{
		"merchantAccount":   "merchant_test",
		"orderReference":    "course_advanced_1717171717171_abcdefghi",
		"amount":            "1800",
		"currency":          "UAH",
		"transactionStatus": "Approved",
		"email":             "student@example.com",
		"phone":             "+380501234567",
		"language":          "UA",
	})

	res := p.VerifyCallback(fields)
	require.True(t, res.Valid)
	require.NoError(t, res.Err)
	require.Equal(t, payment.StatusPaid, res.Status)
	require.Equal(t, "course_advanced_1717171717171_abcdefghi", res.OrderReference)
	require.Equal(t, "student@example.com", res.Email)
	require.Equal(t, "+380501234567", res.Phone)
}

func TestWayForPayContactFallbackOrder(t *testing.T) {
	p := newWayForPay()

	// third-priority field resolves when the first two are absent
	fields := wayForPayCallbackFields(t, "wfp_secret", payment.Fields{
		"merchantAccount":   "merchant_test",
		"orderReference":    "course_basic_1_abcdefghi",
		"amount":            "900",
		"currency":          "UAH",
		"transactionStatus": "Approved",
		"deliveryEmail":     "delivery@example.com",
		"ClientPhone":       "+380670000000",
	})
	res := p.VerifyCallback(fields)
	require.True(t, res.Valid)
	require.Equal(t, "delivery@example.com", res.Email)
	require.Equal(t, "+380670000000", res.Phone)

	// higher-priority field wins when present
	fields = wayForPayCallbackFields(t, "wfp_secret", payment.Fields{
		"merchantAccount":   "merchant_test",
		"orderReference":    "course_basic_1_abcdefghi",
		"amount":            "900",
		"currency":          "UAH",
		"transactionStatus": "Approved",
		"email":             "primary@example.com",
		"clientEmail":       "secondary@example.com",
	})
	res = p.VerifyCallback(fields)
	require.Equal(t, "primary@example.com", res.Email)
}

func TestWayForPayVerifyCallbackMerchantMismatch(t *testing.T) {
	p := newWayForPay()
	fields := wayForPayCallbackFields(t, "wfp_secret", payment.Fields{
		"merchantAccount":   "someone_else",
		"orderReference":    "course_basic_1_abcdefghi",
		"amount":            "900",
		"currency":          "UAH",
		"transactionStatus": "Approved",
	})
	res := p.VerifyCallback(fields)
	require.False(t, res.Valid)
	require.ErrorIs(t, res.Err, payment.ErrMerchantMismatch)
	require.Empty(t, res.OrderReference)
}

func TestWayForPayVerifyCallbackTampered(t *testing.T) {
	p := newWayForPay()
	fields := wayForPayCallbackFields(t, "wfp_secret", payment.Fields{
		"merchantAccount":   "merchant_test",
		"orderReference":    "course_basic_1_abcdefghi",
		"amount":            "900",
		"currency":          "UAH",
		"transactionStatus": "Approved",
	})
	fields["amount"] = "1"

	res := p.VerifyCallback(fields)
	require.False(t, res.Valid)
	require.Error(t, res.Err)
	require.Equal(t, "course_basic_1_abcdefghi", res.OrderReference)
	require.Equal(t, payment.StatusPaid, res.Status)
}

func TestWayForPayVerifyCallbackNoSecret(t *testing.T) {
	p := payment.WayForPay{MerchantAccount: "merchant_test"}
	res := p.VerifyCallback(payment.Fields{"merchantAccount": "merchant_test"})
	require.ErrorIs(t, res.Err, payment.ErrNoSecret)
}

func TestWayForPayStatusNormalisation(t *testing.T) {
	p := newWayForPay()
	cases := map[string]payment.Status{
		"Approved":            payment.StatusPaid,
		"Declined":            payment.StatusDeclined,
		"Expired":             payment.StatusDeclined,
		"Refunded":            payment.StatusDeclined,
		"Voided":              payment.StatusDeclined,
		"InProcessing":        payment.StatusPending,
		"Pending":             payment.StatusPending,
		"WaitingAuthComplete": payment.StatusPending,
		"RefundInProcessing":  payment.StatusUnknown,
	}
	for raw, want := range cases {
		fields := wayForPayCallbackFields(t, "wfp_secret", payment.Fields{
			"merchantAccount":   "merchant_test",
			"orderReference":    "course_basic_1_abcdefghi",
			"amount":            "900",
			"currency":          "UAH",
			"transactionStatus": raw,
		})
		res := p.VerifyCallback(fields)
		require.Equal(t, want, res.Status, "status %q", raw)
	}
}

func TestWayForPayAckBody(t *testing.T) {
	p := newWayForPay()

	paid, ok := p.AckBody(payment.CallbackResult{
		OrderReference: "course_basic_1_abcdefghi",
		Status:         payment.StatusPaid,
	}).(map[string]any)
	require.True(t, ok)
	require.Equal(t, "course_basic_1_abcdefghi", paid["orderReference"])
	require.Equal(t, "accept", paid["status"])
	require.NotZero(t, paid["time"])

	declined, ok := p.AckBody(payment.CallbackResult{
		OrderReference: "course_basic_1_abcdefghi",
		Status:         payment.StatusDeclined,
	}).(map[string]any)
	require.True(t, ok)
	require.Equal(t, "decline", declined["status"])
}
