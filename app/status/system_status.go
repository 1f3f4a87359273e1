package status

import (
	"context"
	"repetika/m/v2/app/ai"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/db/redis"
	"repetika/m/v2/app/models"
	"time"

	"github.com/sirupsen/logrus"
)

type SystemStatus struct {
	MongoDB  *Status     `json:"mongodb"`
	Redis    *Status     `json:"redis"`
	OpenAI   *Status     `json:"openai"`
	ClaudeAI *Status     `json:"claudeai"`
	Time     time.Time   `json:"time"`
	Usage    SystemUsage `json:"usage"`
}

type SystemUsage struct {
	TotalUsers          int64   `json:"total_users"`
	ActiveSubscriptions int64   `json:"active_subscriptions"`
	TotalTokens         int64   `json:"total_tokens"`
	TotalCost           float64 `json:"total_cost"`
}

// Status
type Status struct {
	Available bool `json:"available"`
}

// SystemStatusHandler is a handler for system status
type SystemStatusHandler struct {
	MongoDB mongo.MongoClient
	Redis   redis.Client
	AI      *ai.API
}

// New creates a new instance of SystemStatusHandler
func New(mongoDB mongo.MongoClient, redisClient redis.Client, aiAPI *ai.API) *SystemStatusHandler {
	return &SystemStatusHandler{
		MongoDB: mongoDB,
		Redis:   redisClient,
		AI:      aiAPI,
	}
}

// GetSystemStatus gets a status of the system
func (h *SystemStatusHandler) GetSystemStatus() SystemStatus {
	mongoAvailable := false
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	err := h.MongoDB.Ping(ctxPing, nil)
	if err != nil {
		logrus.WithError(err).Warn("GetSystemStatus: failed to ping MongoDB")
	} else {
		mongoAvailable = true
	}

	systemStatus := SystemStatus{
		MongoDB: &Status{
			Available: mongoAvailable,
		},
		Redis: &Status{
			Available: h.Redis != nil && h.Redis.Ping(context.Background()).Err() == nil,
		},
		OpenAI: &Status{
			Available: h.AI != nil && h.AI.IsAvailable(context.Background(), models.ChatGpt4oMini),
		},
		ClaudeAI: &Status{
			Available: h.AI != nil && h.AI.IsAvailable(context.Background(), models.Haiku3),
		},
		Usage: SystemUsage{},
		Time:  time.Now(),
	}

	if systemStatus.Redis.Available {
		tokens := h.Redis.Get(context.Background(), redis.SystemTotalTokensKey)
		if tokens.Err() == nil {
			systemStatus.Usage.TotalTokens, _ = tokens.Int64()
		}
		cost := h.Redis.Get(context.Background(), redis.SystemTotalCostKey)
		if cost.Err() == nil {
			systemStatus.Usage.TotalCost, _ = cost.Float64()
		}
	}
	if systemStatus.MongoDB.Available {
		users, _ := h.MongoDB.GetUsersCount(context.Background())
		systemStatus.Usage.TotalUsers = users
		subscriptions, _ := h.MongoDB.GetActiveSubscriptionsCount(context.Background())
		systemStatus.Usage.ActiveSubscriptions = subscriptions
	}
	return systemStatus
}
