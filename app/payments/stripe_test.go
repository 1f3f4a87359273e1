package payments

import (
	"fmt"
	"repetika/m/v2/app/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
	"github.com/valyala/fasthttp"
)

func signedStripeRequest(payload, secret string) *fasthttp.RequestCtx {
	now := time.Now()
	signature := webhook.ComputeSignature(now, []byte(payload), secret)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%x", now.Unix(), signature))
	ctx.Request.SetBodyString(payload)
	return ctx
}

func TestKopecks(t *testing.T) {
	// rounding, not truncation: the float products of these prices land
	// just below the integer kopeck value
	assert.Equal(t, int64(1999), kopecks(19.99))
	assert.Equal(t, int64(435), kopecks(4.35))
	assert.Equal(t, int64(99000), kopecks(990))
	assert.Equal(t, int64(49950), kopecks(499.50))
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	setupCallbackTest()
	config.CONFIG.StripeEndpointSecret = "whsec_test"

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	ctx.Request.SetBodyString(`{"type": "checkout.session.completed"}`)

	StripeWebhook(ctx)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestStripeWebhookRecordsCompletedCheckout(t *testing.T) {
	mockMongo := setupCallbackTest()
	config.CONFIG.StripeEndpointSecret = "whsec_test"
	config.CONFIG.BotName = "repetika"

	payload := `{
		"id": "evt_1",
		"api_version": "` + stripe.APIVersion + `",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_1",
				"client_reference_id": "STRIPE-1",
				"payment_status": "paid",
				"amount_total": 99000,
				"metadata": {
					"invoice_id": "STRIPE-1",
					"user_id": "u1",
					"course_id": "oge-math",
					"app_id": "repetika"
				}
			}
		}
	}`

	ctx := signedStripeRequest(payload, "whsec_test")
	StripeWebhook(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Len(t, mockMongo.Subscriptions, 1)

	subscription := mockMongo.Subscriptions["STRIPE-1"]
	assert.Equal(t, "u1", subscription.UserID)
	assert.Equal(t, "oge-math", subscription.CourseID)
	assert.Equal(t, 990.00, subscription.Paid)
	assert.Equal(t, "stripe", subscription.Provider)
}

func TestStripeWebhookIgnoresUnpaidSession(t *testing.T) {
	mockMongo := setupCallbackTest()
	config.CONFIG.StripeEndpointSecret = "whsec_test"
	config.CONFIG.BotName = "repetika"

	payload := `{
		"id": "evt_2",
		"api_version": "` + stripe.APIVersion + `",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_2",
				"client_reference_id": "STRIPE-2",
				"payment_status": "unpaid",
				"metadata": {"invoice_id": "STRIPE-2", "user_id": "u1", "app_id": "repetika"}
			}
		}
	}`

	ctx := signedStripeRequest(payload, "whsec_test")
	StripeWebhook(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Len(t, mockMongo.Subscriptions, 0)
}
