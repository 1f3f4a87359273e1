package payments

import (
	"context"
	"repetika/m/v2/app/db/redis"
	"repetika/m/v2/app/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBill(t *testing.T) {
	redis.RedisClient = redis.NewMockRedisClient()

	ctx := context.WithValue(context.Background(), models.UserContext{}, "u1")
	usage := models.CostAndUsage{
		Engine: models.ChatGpt4o,
		Usage: models.Usage{
			PromptTokens:     550,
			CompletionTokens: 450,
			TotalTokens:      1000,
		},
		PricePerInputUnit:  0.001,
		PricePerOutputUnit: 0.002,
	}

	result := Bill(ctx, usage)

	expectedCost := float64(usage.Usage.PromptTokens)*usage.PricePerInputUnit + float64(usage.Usage.CompletionTokens)*usage.PricePerOutputUnit
	assert.Equal(t, expectedCost, result.Cost, "Incorrect cost calculation")
	assert.Equal(t, "u1", result.User)

	systemCost, err := redis.RedisClient.Get(ctx, redis.SystemTotalCostKey).Float64()
	assert.NoError(t, err)
	assert.Equal(t, expectedCost, systemCost)

	userTokens, err := redis.RedisClient.Get(ctx, redis.UserTotalTokensKey("u1")).Int64()
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), userTokens)
}
