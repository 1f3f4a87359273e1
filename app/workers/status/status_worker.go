// Run regularly to check status of the system and persist it to the redis
package status

import (
	"encoding/json"
	"repetika/m/v2/app/ai"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/db/redis"
	"repetika/m/v2/app/status"
	"repetika/m/v2/app/workers"

	log "github.com/sirupsen/logrus"
)

var (
	WORKER *workers.Worker
	AI     *ai.API
)

func Run() {
	systemStatus, err := redis.WrapInCache(redis.RedisClient, redis.SystemStatusKey, WORKER.Interval*10, FetchStatus)()
	if err != nil {
		log.Errorf("failed to fetch system status: %s", err)
		return
	}
	log.Debugf("system status: %s", systemStatus)
}

func FetchStatus() (string, error) {
	w := WORKER
	systemStatus := status.New(mongo.MongoDBClient, redis.RedisClient, AI).GetSystemStatus()

	config.CONFIG.DataDogClient.Gauge("status_worker.mongo_db_available", boolToFloat64(systemStatus.MongoDB.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.redis_available", boolToFloat64(systemStatus.Redis.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.open_ai_available", boolToFloat64(systemStatus.OpenAI.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.claude_ai_available", boolToFloat64(systemStatus.ClaudeAI.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.total_users", float64(systemStatus.Usage.TotalUsers), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.active_subscriptions", float64(systemStatus.Usage.ActiveSubscriptions), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.total_tokens", float64(systemStatus.Usage.TotalTokens), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.total_cost", systemStatus.Usage.TotalCost, nil, 1)

	if !systemStatus.MongoDB.Available {
		reportUnavailable(w, "MongoDB")
	}
	if !systemStatus.Redis.Available {
		reportUnavailable(w, "Redis")
	}
	if !systemStatus.OpenAI.Available {
		reportUnavailable(w, "OpenAI")
	}
	if !systemStatus.ClaudeAI.Available {
		reportUnavailable(w, "ClaudeAI")
	}

	statusBytes, _ := json.Marshal(systemStatus)
	return string(statusBytes), nil
}

func reportUnavailable(w *workers.Worker, systemName string) {
	message := "🔥 " + config.CONFIG.BotName + ": " + systemName + " is down 🔥"
	log.Error(message)
	w.SystemBot.Alert(message)
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
