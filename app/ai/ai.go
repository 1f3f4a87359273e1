// package to connect to LLM provider APIs
package ai

import (
	"context"
	"net/http"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/models"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const TIMEOUT = 60 * time.Second

type API struct {
	openAIKey string
	claudeKey string
	client    *http.Client
}

// NewAPI creates new AI API
func NewAPI(cfg *config.Config) *API {
	return &API{
		openAIKey: cfg.OpenAIAPIKey,
		claudeKey: cfg.ClaudeAPIKey,
		client: &http.Client{
			Timeout: TIMEOUT,
		},
	}
}

func IsClaude(model string) bool {
	return strings.HasPrefix(model, "claude")
}

// IsAvailable checks whether the provider behind the model is reachable
func (a *API) IsAvailable(ctx context.Context, model models.Engine) bool {
	response, err := a.ChatComplete(ctx, models.ChatCompletion{
		Model: string(model),
		Messages: []models.Message{
			{
				Role:    "system",
				Content: "Reply only \"OK\" or \"Not OK\"",
			},
			{
				Role:    "user",
				Content: "test",
			},
		},
		MaxTokens: 5,
	})
	if err != nil {
		log.Errorf("PING: API error: %+v", err)
		return false
	}

	log.Debugf("PING: API response: %+v", response)
	return true
}

// prices per token, input/output
var enginePrices = map[models.Engine][2]float64{
	models.ChatGpt4o:     {0.0000025, 0.00001},
	models.ChatGpt4oMini: {0.00000015, 0.0000006},
	models.Sonet35:       {0.000003, 0.000015},
	models.Haiku3:        {0.00000025, 0.00000125},
}

func PriceForEngine(engine models.Engine) (float64, float64) {
	prices, ok := enginePrices[engine]
	if !ok {
		return 0, 0
	}
	return prices[0], prices[1]
}
