// package to validate bearer tokens against the identity provider
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/redis"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const TIMEOUT = 10 * time.Second

// Tokens are re-validated after this long at most.
const cacheDuration = 5 * time.Minute

var AUTH *API

type API struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// NewAPI creates a new auth API client
func NewAPI(cfg *config.Config) *API {
	return &API{
		baseURL: cfg.AuthAPIURL,
		apiKey:  cfg.AuthAPIKey,
		client: &http.Client{
			Timeout: TIMEOUT,
		},
	}
}

// ValidateToken resolves a bearer token to a user id via the identity
// provider, with a short Redis cache in front of it.
func (a *API) ValidateToken(ctx context.Context, token string) (string, error) {
	hash := sha256.Sum256([]byte(token))
	key := redis.AuthTokenKey(hex.EncodeToString(hash[:]))

	userID, err := redis.WrapInCache(redis.RedisClient, key, cacheDuration, func() (string, error) {
		return a.fetchUser(ctx, token)
	})()
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (a *API) fetchUser(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetchUser: identity provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var user authUser
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("fetchUser: failed to parse identity response: %w", err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("fetchUser: identity response has no user id")
	}
	return user.ID, nil
}

// Authenticate extracts and validates the bearer token of a request.
// On failure it writes a 401 response and returns ok=false.
func Authenticate(ctx *fasthttp.RequestCtx) (string, bool) {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		unauthorized(ctx, "missing bearer token")
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")

	userID, err := AUTH.ValidateToken(ctx, token)
	if err != nil {
		log.Infof("Authenticate: token rejected: %v", err)
		unauthorized(ctx, "invalid token")
		return "", false
	}
	return userID, true
}

func unauthorized(ctx *fasthttp.RequestCtx, message string) {
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"error": message})
	ctx.SetBody(body)
}
