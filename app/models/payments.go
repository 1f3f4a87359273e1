package models

import "time"

const (
	RobokassaProvider = "robokassa"
	StripeProvider    = "stripe"
	MockProvider      = "mock"

	// Fixed term granted by one successful payment.
	SubscriptionDuration = 30 * 24 * time.Hour
)

type PaymentLinkRequest struct {
	CourseID  string  `json:"courseId,omitempty"`
	Amount    float64 `json:"amount"`
	Promocode string  `json:"promocode,omitempty"`
}

type PaymentLinkResponse struct {
	RedirectURL       string `json:"redirectUrl"`
	ExternalInvoiceID string `json:"externalInvoiceId"`
}

// PaymentCallback is the notification the provider posts after a payment,
// form-encoded by Robokassa, JSON by the mock gateway.
type PaymentCallback struct {
	OutSum         string `json:"OutSum"`
	InvID          string `json:"InvId"`
	CustomerNumber string `json:"CustomerNumber"`
	CourseID       string `json:"ShpCourseId,omitempty"`
	Promocode      string `json:"ShpPromocode,omitempty"`
	Signature      string `json:"Signature"`
}
