package payments

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/models"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"
	"github.com/valyala/fasthttp"
)

// Checkout session metadata keys used to correlate the webhook back to our
// records.
const (
	InvoiceIDKey = "invoice_id"
	UserIDKey    = "user_id"
	CourseIDKey  = "course_id"
	PromoKey     = "promocode"
	AppIDKey     = "app_id"
)

// kopecks converts a ruble amount to the gateway's minor units. Rounded,
// not truncated: 19.99 is 1999 kopecks, not 1998.
func kopecks(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateCheckoutSession creates a one-time-payment checkout session and
// returns its hosted page URL.
func CreateCheckoutSession(ctx context.Context, userID, invoiceID string, request models.PaymentLinkRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		CancelURL:         stripe.String(config.CONFIG.BaseURL),
		SuccessURL:        stripe.String(config.CONFIG.BaseURL + "/payment-success"),
		ClientReferenceID: stripe.String(invoiceID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyRUB)),
					UnitAmount: stripe.Int64(kopecks(request.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("repetika: 30 дней доступа"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata(InvoiceIDKey, invoiceID)
	params.AddMetadata(UserIDKey, userID)
	params.AddMetadata(CourseIDKey, request.CourseID)
	params.AddMetadata(PromoKey, request.Promocode)
	params.AddMetadata(AppIDKey, config.CONFIG.BotName)

	s, err := session.New(params)
	if err != nil {
		log.Errorf("CreateCheckoutSession: %v", err)
		return "", err
	}
	return s.URL, nil
}

// StripeWebhook handles the signed Stripe event stream. Only completed
// checkout sessions matter here, everything else is acknowledged and
// dropped.
func StripeWebhook(ctx *fasthttp.RequestCtx) {
	payload := ctx.Request.Body()

	endpointSecret := config.CONFIG.StripeEndpointSecret
	signatureHeader := string(ctx.Request.Header.Peek("Stripe-Signature"))
	event, err := webhook.ConstructEvent(payload, signatureHeader, endpointSecret)
	if err != nil {
		log.Errorf("StripeWebhook: signature verification failed: %v", err)
		ctx.Response.Header.SetStatusCode(http.StatusBadRequest)
		return
	}
	config.CONFIG.DataDogClient.Incr("stripe.webhook", []string{"event_type:" + string(event.Type)}, 1)

	switch event.Type {
	case "checkout.session.completed":
		var checkoutSession stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
			log.Errorf("StripeWebhook: error parsing %s event: %v", event.Type, err)
			ctx.Response.Header.SetStatusCode(http.StatusBadRequest)
			return
		}
		handleCheckoutSessionCompleted(checkoutSession)
	case "checkout.session.expired", "payment_intent.succeeded", "payment_intent.created", "charge.succeeded":
		// nothing to reconcile
	default:
		log.Warnf("StripeWebhook: unhandled event type: %s", event.Type)
	}

	ctx.Response.Header.SetStatusCode(http.StatusOK)
}

func handleCheckoutSessionCompleted(checkoutSession stripe.CheckoutSession) {
	// ignore sessions for other apps, if any
	if appID := checkoutSession.Metadata[AppIDKey]; appID != "" && appID != config.CONFIG.BotName {
		log.Infof("Ignoring checkout session %s for app %s", checkoutSession.ID, appID)
		return
	}
	if checkoutSession.PaymentStatus != "paid" {
		log.Errorf("handleCheckoutSessionCompleted: session %s payment status is %s", checkoutSession.ID, checkoutSession.PaymentStatus)
		return
	}

	invoiceID := checkoutSession.Metadata[InvoiceIDKey]
	if invoiceID == "" {
		invoiceID = checkoutSession.ClientReferenceID
	}
	userID := checkoutSession.Metadata[UserIDKey]
	if invoiceID == "" || userID == "" {
		log.Errorf("handleCheckoutSessionCompleted: session %s has no invoice or user metadata", checkoutSession.ID)
		return
	}

	now := time.Now().UTC()
	promocode := checkoutSession.Metadata[PromoKey]
	subscription := models.MongoSubscription{
		InvoiceID:    invoiceID,
		UserID:       userID,
		CourseID:     checkoutSession.Metadata[CourseIDKey],
		StartDate:    now,
		EndDate:      now.Add(models.SubscriptionDuration),
		IsActive:     true,
		Paid:         float64(checkoutSession.AmountTotal) / 100,
		Promocode:    promocode,
		PromoApplied: promocode != "",
		Provider:     models.StripeProvider,
		CreatedAt:    now,
	}

	inserted, err := mongo.MongoDBClient.UpsertSubscription(context.Background(), subscription)
	if err != nil {
		log.Errorf("handleCheckoutSessionCompleted: failed to record subscription for invoice %s: %v", invoiceID, err)
		return
	}
	if !inserted {
		log.Infof("handleCheckoutSessionCompleted: invoice %s already processed", invoiceID)
		return
	}

	config.CONFIG.DataDogClient.Incr("payments.subscription_created", []string{"provider:" + models.StripeProvider}, 1)
	log.Infof("Recorded stripe subscription for user %s, invoice %s", userID, invoiceID)
	notifyPaymentConfirmed(subscription)
}
