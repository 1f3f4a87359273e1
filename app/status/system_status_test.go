package status

import (
	"context"
	"log"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/db/redis"
	"repetika/m/v2/app/models"
	"testing"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
)

func init() {
	testClient, err := statsd.New("127.0.0.1:8125", statsd.WithNamespace("tests."))
	if err != nil {
		log.Fatalf("error creating test DataDog client: %v", err)
	}
	config.CONFIG = &config.Config{
		DataDogClient: testClient,
	}
}

func TestGetSystemStatus(t *testing.T) {
	mockRedis := redis.NewMockRedisClient()
	mockMongo := mongo.NewMockMongoDBClient(
		models.MongoUser{ID: "u1"},
		models.MongoUser{ID: "u2"},
	)
	mockMongo.Subscriptions["ROBOKASSA-1"] = models.MongoSubscription{InvoiceID: "ROBOKASSA-1"}

	ctx := context.Background()
	mockRedis.IncrBy(ctx, redis.SystemTotalTokensKey, 1500)
	mockRedis.IncrByFloat(ctx, redis.SystemTotalCostKey, 0.25)

	// no AI API configured, both providers report unavailable
	systemStatus := New(mockMongo, mockRedis, nil).GetSystemStatus()

	assert.True(t, systemStatus.MongoDB.Available)
	assert.True(t, systemStatus.Redis.Available)
	assert.False(t, systemStatus.OpenAI.Available)
	assert.False(t, systemStatus.ClaudeAI.Available)

	assert.Equal(t, int64(2), systemStatus.Usage.TotalUsers)
	assert.Equal(t, int64(1), systemStatus.Usage.ActiveSubscriptions)
	assert.Equal(t, int64(1500), systemStatus.Usage.TotalTokens)
	assert.Equal(t, 0.25, systemStatus.Usage.TotalCost)
}
