package payments

import (
	"context"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/redis"
	"repetika/m/v2/app/models"

	log "github.com/sirupsen/logrus"
)

// Bill accounts the cost of one LLM call against the user and the system
// totals. Subscriptions here are time based, so this is spend tracking
// rather than quota enforcement.
func Bill(ctx context.Context, usage models.CostAndUsage) models.CostAndUsage {
	usage.Cost = float64(usage.Usage.PromptTokens)*usage.PricePerInputUnit +
		float64(usage.Usage.CompletionTokens)*usage.PricePerOutputUnit
	usage.User = ctx.Value(models.UserContext{}).(string)

	redis.RedisClient.IncrByFloat(ctx, redis.SystemTotalCostKey, usage.Cost)
	config.CONFIG.DataDogClient.Distribution("billing.cost", usage.Cost, []string{"engine:" + string(usage.Engine)}, 1)

	if usage.Usage.TotalTokens > 0 {
		redis.RedisClient.IncrBy(ctx, redis.UserTotalTokensKey(usage.User), int64(usage.Usage.TotalTokens))
		redis.RedisClient.IncrBy(ctx, redis.SystemTotalTokensKey, int64(usage.Usage.TotalTokens))
		config.CONFIG.DataDogClient.Distribution("billing.tokens", float64(usage.Usage.TotalTokens), []string{"engine:" + string(usage.Engine)}, 1)
	}

	redis.RedisClient.IncrByFloat(ctx, redis.UserTotalCostKey(usage.User), usage.Cost)
	log.Infof("Billing: user %s, engine %s, tokens %d, cost %.6f", usage.User, usage.Engine, usage.Usage.TotalTokens, usage.Cost)
	return usage
}
