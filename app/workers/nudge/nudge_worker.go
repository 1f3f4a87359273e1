// Engagement nudge job: one sequential pass over every (user, course) pair,
// resetting stale story flags and requesting fresh personalized tasks for
// students who went quiet.
package nudge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/db/redis"
	"repetika/m/v2/app/models"
	"repetika/m/v2/app/tasks"
	"repetika/m/v2/app/util"
	"repetika/m/v2/app/workers"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// A pair is left alone while the student was active this recently.
const activityWindow = 6 * time.Hour

var (
	WORKER      *workers.Worker
	TaskCreator tasks.Creator

	// pause between task-creation calls so the generator function is not
	// hammered; tests set this to zero
	taskCreationDelay = time.Second
)

type Summary struct {
	Success        bool   `json:"success"`
	TotalUsers     int    `json:"total_users"`
	EligibleUsers  int    `json:"eligible_users"`
	ProcessedUsers int    `json:"processed_users"`
	EligiblePairs  int    `json:"eligible_pairs"`
	ProcessedPairs int    `json:"processed_pairs"`
	SeenResets     int    `json:"seen_resets"`
	Timestamp      string `json:"timestamp"`
}

// pairOutcome accumulates what happened to a single (user, course) pair.
type pairOutcome struct {
	eligible  bool
	processed bool
	seenReset bool
}

func Run() {
	summary := Scan(context.Background())

	config.CONFIG.DataDogClient.Gauge("nudge.total_users", float64(summary.TotalUsers), nil, 1)
	config.CONFIG.DataDogClient.Gauge("nudge.eligible_pairs", float64(summary.EligiblePairs), nil, 1)
	config.CONFIG.DataDogClient.Gauge("nudge.processed_pairs", float64(summary.ProcessedPairs), nil, 1)
	config.CONFIG.DataDogClient.Gauge("nudge.seen_resets", float64(summary.SeenResets), nil, 1)

	summaryBytes, _ := json.Marshal(summary)
	log.Infof("nudge: run finished: %s", string(summaryBytes))
}

// Scan walks every user profile once. Per-pair failures are logged and the
// scan moves on; there is no checkpointing, the next run starts over.
func Scan(ctx context.Context) Summary {
	summary := Summary{Timestamp: time.Now().UTC().Format(time.RFC3339)}

	users, err := mongo.MongoDBClient.GetUserProfiles(ctx)
	if err != nil {
		log.Errorf("nudge: failed to load user profiles: %v", err)
		return summary
	}
	summary.TotalUsers = len(users)

	for _, user := range users {
		userEligible := false
		userProcessed := false
		for _, courseID := range user.Courses {
			outcome, err := processPair(ctx, user.ID, courseID)
			if err != nil {
				log.Errorf("nudge: pair %s/%s failed: %v", user.ID, courseID, err)
				continue
			}
			if outcome.seenReset {
				summary.SeenResets++
			}
			if outcome.eligible {
				summary.EligiblePairs++
				userEligible = true
			}
			if outcome.processed {
				summary.ProcessedPairs++
				userProcessed = true
				time.Sleep(taskCreationDelay)
			}
		}
		if userEligible {
			summary.EligibleUsers++
		}
		if userProcessed {
			summary.ProcessedUsers++
		}
	}

	summary.Success = true

	summaryBytes, _ := json.Marshal(summary)
	if err := redis.RedisClient.Set(ctx, redis.NudgeSummaryKey, string(summaryBytes), 48*time.Hour).Err(); err != nil {
		log.Errorf("nudge: failed to cache run summary: %v", err)
	}
	return summary
}

func processPair(ctx context.Context, userID, courseID string) (pairOutcome, error) {
	outcome := pairOutcome{}

	story, err := mongo.MongoDBClient.GetLatestStory(ctx, userID, courseID)
	if err != nil {
		return outcome, err
	}
	if story == nil {
		return outcome, nil
	}

	graded, err := mongo.MongoDBClient.GetLatestActivity(ctx, userID, courseID, true)
	if err != nil {
		return outcome, err
	}

	now := time.Now().UTC()

	// the prompt was seen but nothing was solved since: re-arm it
	if story.Seen == 1 && isStale(graded, story.CreatedAt, now) {
		if err := mongo.MongoDBClient.ResetStorySeen(ctx, story.ID); err != nil {
			return outcome, err
		}
		outcome.seenReset = true
		story.Seen = 0
	}

	if story.Seen != 1 {
		return outcome, nil
	}
	outcome.eligible = true

	latest, err := mongo.MongoDBClient.GetLatestActivity(ctx, userID, courseID, false)
	if err != nil {
		return outcome, err
	}
	if latest == nil {
		return outcome, nil
	}
	if now.Sub(latest.UpdatedAt) <= activityWindow {
		return outcome, nil
	}
	if util.SameCalendarDay(story.CreatedAt, now) {
		return outcome, nil
	}

	if err := TaskCreator.CreateTask(ctx, userID, courseID); err != nil {
		return outcome, err
	}
	outcome.processed = true
	return outcome, nil
}

// isStale reports that no graded attempt landed within the activity window
// and none landed after the story appeared.
func isStale(graded *models.MongoActivity, storyCreatedAt, now time.Time) bool {
	if graded == nil {
		return true
	}
	return now.Sub(graded.UpdatedAt) > activityWindow && !graded.UpdatedAt.After(storyCreatedAt)
}

// Trigger handles POST /jobs/nudge, the scheduled invocation. The platform
// cron sends the service secret, nothing else may start a scan.
func Trigger(ctx *fasthttp.RequestCtx) {
	secret := string(ctx.Request.Header.Peek("X-Service-Secret"))
	if subtle.ConstantTimeCompare([]byte(secret), []byte(config.CONFIG.ServiceRoleSecret)) != 1 {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"invalid service secret"}`)
		return
	}

	summary := Scan(ctx)
	body, err := json.Marshal(summary)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(fmt.Sprintf(`{"error":%q}`, err))
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
