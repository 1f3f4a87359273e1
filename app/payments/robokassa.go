package payments

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"repetika/m/v2/app/config"
	"sort"
	"strings"
)

const robokassaMerchantURL = "https://auth.robokassa.ru/Merchant/Index.aspx"

// Custom parameter names echoed back by the provider in the callback.
const (
	ShpCourseParam = "Shp_course"
	ShpPromoParam  = "Shp_promocode"
	ShpUserParam   = "Shp_user"
)

// RequestSignature computes the Robokassa payment-request digest:
// MD5 over MerchantLogin:OutSum:InvId:Password1 followed by the custom
// Shp_ parameters as key=value pairs in alphabetical order.
func RequestSignature(merchantLogin, outSum, invID, password string, shp map[string]string) string {
	return signature([]string{merchantLogin, outSum, invID, password}, shp)
}

// CallbackSignature computes the result-notification digest:
// MD5 over OutSum:InvId:Password2 followed by the sorted Shp_ parameters.
func CallbackSignature(outSum, invID, password string, shp map[string]string) string {
	return signature([]string{outSum, invID, password}, shp)
}

func signature(parts []string, shp map[string]string) string {
	keys := make([]string, 0, len(shp))
	for key := range shp {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, key+"="+shp[key])
	}

	digest := md5.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(digest[:])
}

// VerifyCallbackSignature checks a provider-supplied signature, hex case
// insensitively as Robokassa sends uppercase.
func VerifyCallbackSignature(got, outSum, invID, password string, shp map[string]string) bool {
	return strings.EqualFold(got, CallbackSignature(outSum, invID, password, shp))
}

// BuildRobokassaURL builds the redirect URL for the hosted payment page.
func BuildRobokassaURL(invoiceID, outSum string, shp map[string]string) (string, error) {
	rk := config.CONFIG.Robokassa
	if rk.MerchantLogin == "" || rk.Password1 == "" {
		return "", fmt.Errorf("BuildRobokassaURL: merchant credentials are not configured")
	}

	values := url.Values{}
	values.Set("MerchantLogin", rk.MerchantLogin)
	values.Set("OutSum", outSum)
	values.Set("InvId", invoiceID)
	values.Set("SignatureValue", RequestSignature(rk.MerchantLogin, outSum, invoiceID, rk.Password1, shp))
	for key, value := range shp {
		values.Set(key, value)
	}

	return robokassaMerchantURL + "?" + values.Encode(), nil
}

// BuildMockURL builds a redirect to the local mock gateway page, signed with
// the same convention so the mock callback exercises the verification path.
func BuildMockURL(invoiceID, outSum string, shp map[string]string) (string, error) {
	cfg := config.CONFIG
	if cfg.MockPaymentBaseURL == "" {
		return "", fmt.Errorf("BuildMockURL: MOCK_PAYMENT_BASE_URL is not configured")
	}
	if cfg.Robokassa.Password1 == "" {
		return "", fmt.Errorf("BuildMockURL: merchant password is not configured")
	}

	values := url.Values{}
	values.Set("OutSum", outSum)
	values.Set("InvId", invoiceID)
	values.Set("SignatureValue", RequestSignature(cfg.Robokassa.MerchantLogin, outSum, invoiceID, cfg.Robokassa.Password1, shp))
	for key, value := range shp {
		values.Set(key, value)
	}

	return cfg.MockPaymentBaseURL + "/mock-payment?" + values.Encode(), nil
}
