package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"repetika/m/v2/app/auth"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/models"
	"repetika/m/v2/app/telegram"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// NewInvoiceID generates a provider-scoped correlation id for a payment.
// It only has to be unique among invoices of this merchant; the uuid tail
// keeps same-second requests apart.
func NewInvoiceID(provider string) string {
	return fmt.Sprintf("%s-%d-%s", strings.ToUpper(provider), time.Now().Unix(), uuid.NewString()[:8])
}

// CreatePaymentLink handles POST /api/payments/link. The caller must be
// authenticated; nothing is persisted here, the invoice id is only recorded
// when the provider callback arrives.
func CreatePaymentLink(ctx *fasthttp.RequestCtx) {
	userID, ok := auth.Authenticate(ctx)
	if !ok {
		return
	}

	var request models.PaymentLinkRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid request body")
		return
	}
	if request.Amount <= 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "amount must be a positive number")
		return
	}

	provider := config.CONFIG.PaymentProvider
	invoiceID := NewInvoiceID(provider)
	outSum := strconv.FormatFloat(request.Amount, 'f', 2, 64)

	shp := map[string]string{ShpUserParam: userID}
	if request.CourseID != "" {
		shp[ShpCourseParam] = request.CourseID
	}
	if request.Promocode != "" {
		shp[ShpPromoParam] = request.Promocode
	}

	var redirectURL string
	var err error
	switch provider {
	case models.RobokassaProvider:
		redirectURL, err = BuildRobokassaURL(invoiceID, outSum, shp)
	case models.StripeProvider:
		redirectURL, err = CreateCheckoutSession(ctx, userID, invoiceID, request)
	case models.MockProvider:
		redirectURL, err = BuildMockURL(invoiceID, outSum, shp)
	default:
		err = fmt.Errorf("unknown payment provider %q", provider)
	}
	if err != nil {
		log.Errorf("CreatePaymentLink: failed to build payment link for user %s: %v", userID, err)
		writeError(ctx, fasthttp.StatusInternalServerError, "failed to create payment link")
		return
	}

	config.CONFIG.DataDogClient.Incr("payments.link_created", []string{"provider:" + provider}, 1)
	log.Infof("Created payment link for user %s, invoice %s, amount %s", userID, invoiceID, outSum)

	writeJSON(ctx, fasthttp.StatusOK, models.PaymentLinkResponse{
		RedirectURL:       redirectURL,
		ExternalInvoiceID: invoiceID,
	})
}

// Callback handles POST /api/payments/callback, the asynchronous payment
// notification. The signature is the sole authentication of this endpoint.
func Callback(ctx *fasthttp.RequestCtx) {
	callback, shp, err := parseCallback(ctx)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}

	if !VerifyCallbackSignature(callback.Signature, callback.OutSum, callback.InvID, config.CONFIG.Robokassa.Password2, shp) {
		config.CONFIG.DataDogClient.Incr("payments.callback_rejected", []string{"reason:signature"}, 1)
		log.Errorf("Callback: signature mismatch for invoice %s", callback.InvID)
		writeError(ctx, fasthttp.StatusBadRequest, "bad signature")
		return
	}

	amount, err := strconv.ParseFloat(callback.OutSum, 64)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid OutSum")
		return
	}

	provider := providerForInvoice(callback.InvID)
	now := time.Now().UTC()
	subscription := models.MongoSubscription{
		InvoiceID:    callback.InvID,
		UserID:       callback.CustomerNumber,
		CourseID:     callback.CourseID,
		StartDate:    now,
		EndDate:      now.Add(models.SubscriptionDuration),
		IsActive:     true,
		Paid:         amount,
		Promocode:    callback.Promocode,
		PromoApplied: callback.Promocode != "",
		Provider:     provider,
		CreatedAt:    now,
	}

	inserted, err := mongo.MongoDBClient.UpsertSubscription(ctx, subscription)
	if err != nil {
		log.Errorf("Callback: failed to record subscription for invoice %s: %v", callback.InvID, err)
		writeError(ctx, fasthttp.StatusInternalServerError, "failed to record subscription")
		return
	}

	if inserted {
		config.CONFIG.DataDogClient.Incr("payments.subscription_created", []string{"provider:" + subscription.Provider}, 1)
		log.Infof("Recorded subscription for user %s, invoice %s, until %s", subscription.UserID, subscription.InvoiceID, subscription.EndDate.Format("2006-01-02"))
		notifyPaymentConfirmed(subscription)
	} else {
		// duplicate delivery, already recorded
		log.Infof("Callback: invoice %s already processed", callback.InvID)
	}

	if provider == models.MockProvider {
		writeJSON(ctx, fasthttp.StatusOK, map[string]bool{"success": true})
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain")
	ctx.SetBodyString("OK" + callback.InvID)
}

// providerForInvoice recovers the gateway from the invoice-id prefix, see
// NewInvoiceID. The configured provider only picks where new links go; a
// late callback from a previously configured gateway still has to be
// attributed to the gateway that posted it.
func providerForInvoice(invoiceID string) string {
	prefix, _, _ := strings.Cut(invoiceID, "-")
	switch strings.ToLower(prefix) {
	case models.RobokassaProvider:
		return models.RobokassaProvider
	case models.StripeProvider:
		return models.StripeProvider
	case models.MockProvider:
		return models.MockProvider
	}
	return config.CONFIG.PaymentProvider
}

// parseCallback accepts the form-encoded shape Robokassa posts and the JSON
// shape the mock gateway posts. The returned shp map feeds the signature.
func parseCallback(ctx *fasthttp.RequestCtx) (*models.PaymentCallback, map[string]string, error) {
	callback := &models.PaymentCallback{}

	contentType := string(ctx.Request.Header.ContentType())
	if strings.Contains(contentType, "application/json") {
		if err := json.Unmarshal(ctx.PostBody(), callback); err != nil {
			return nil, nil, fmt.Errorf("invalid JSON body")
		}
	} else {
		args := ctx.PostArgs()
		callback.OutSum = string(args.Peek("OutSum"))
		callback.InvID = string(args.Peek("InvId"))
		callback.CustomerNumber = string(args.Peek("CustomerNumber"))
		if callback.CustomerNumber == "" {
			callback.CustomerNumber = string(args.Peek(ShpUserParam))
		}
		callback.CourseID = string(args.Peek(ShpCourseParam))
		callback.Promocode = string(args.Peek(ShpPromoParam))
		callback.Signature = string(args.Peek("SignatureValue"))
		if callback.Signature == "" {
			callback.Signature = string(args.Peek("Signature"))
		}
	}

	for field, value := range map[string]string{
		"OutSum":         callback.OutSum,
		"InvId":          callback.InvID,
		"CustomerNumber": callback.CustomerNumber,
		"Signature":      callback.Signature,
	} {
		if value == "" {
			return nil, nil, fmt.Errorf("missing required field %s", field)
		}
	}

	shp := map[string]string{ShpUserParam: callback.CustomerNumber}
	if callback.CourseID != "" {
		shp[ShpCourseParam] = callback.CourseID
	}
	if callback.Promocode != "" {
		shp[ShpPromoParam] = callback.Promocode
	}
	return callback, shp, nil
}

func notifyPaymentConfirmed(subscription models.MongoSubscription) {
	userCtx := context.WithValue(context.Background(), models.UserContext{}, subscription.UserID)
	user, err := mongo.MongoDBClient.GetUser(userCtx)
	if err != nil {
		log.Warnf("notifyPaymentConfirmed: no profile for user %s: %v", subscription.UserID, err)
		return
	}
	message := fmt.Sprintf("Оплата получена! Доступ открыт до %s. Удачной подготовки 🎓", subscription.EndDate.Format("02.01.2006"))
	telegram.BOT.NotifyUser(user.TelegramChatID, message)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	body, _ := json.Marshal(payload)
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, map[string]string{"error": message})
}
