package ai

import (
	"context"
	"encoding/json"
	"repetika/m/v2/app/auth"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/models"
	"repetika/m/v2/app/payments"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

var ReviewAPI *API

// Review handles POST /api/ai/review: proxies essay/solution review chats to
// the configured LLM provider and accounts token spend.
func Review(ctx *fasthttp.RequestCtx) {
	userID, ok := auth.Authenticate(ctx)
	if !ok {
		return
	}

	var completion models.ChatCompletion
	if err := json.Unmarshal(ctx.PostBody(), &completion); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid request body")
		return
	}
	if len(completion.Messages) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "messages must not be empty")
		return
	}

	// the platform prompt always leads, client system messages are dropped
	messages := []models.Message{{Role: "system", Content: config.REVIEW_INSTRUCTIONS}}
	for _, message := range completion.Messages {
		if message.Role != "system" {
			messages = append(messages, message)
		}
	}
	completion.Messages = messages

	userCtx := context.WithValue(context.Background(), models.UserContext{}, userID)
	response, err := ReviewAPI.ChatComplete(userCtx, completion)
	if err != nil {
		log.Errorf("Review: completion failed for user %s: %v", userID, err)
		writeError(ctx, fasthttp.StatusBadGateway, "LLM provider unavailable")
		return
	}

	engine := models.Engine(completion.Model)
	inputPrice, outputPrice := PriceForEngine(engine)
	payments.Bill(userCtx, models.CostAndUsage{
		Engine:             engine,
		PricePerInputUnit:  inputPrice,
		PricePerOutputUnit: outputPrice,
		Usage:              response.Usage,
	})
	config.CONFIG.DataDogClient.Incr("ai.review", []string{"engine:" + completion.Model}, 1)

	body, _ := json.Marshal(response)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
