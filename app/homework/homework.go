// homework feedback delivery: email to the student plus a telegram copy
package homework

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"html"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/models"
	"repetika/m/v2/app/telegram"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

var Sender EmailSender

type FeedbackRequest struct {
	UserID   string `json:"userId"`
	CourseID string `json:"courseId"`
	Subject  string `json:"subject,omitempty"`
	Feedback string `json:"feedback"`
}

// Feedback handles POST /api/homework/feedback. The endpoint is for the
// review staff tooling and is guarded by the service-role secret instead of
// a student bearer token.
func Feedback(ctx *fasthttp.RequestCtx) {
	secret := string(ctx.Request.Header.Peek("X-Service-Secret"))
	if subtle.ConstantTimeCompare([]byte(secret), []byte(config.CONFIG.ServiceRoleSecret)) != 1 {
		writeError(ctx, fasthttp.StatusUnauthorized, "invalid service secret")
		return
	}

	var request FeedbackRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid request body")
		return
	}
	if request.UserID == "" || strings.TrimSpace(request.Feedback) == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "userId and feedback are required")
		return
	}

	userCtx := context.WithValue(context.Background(), models.UserContext{}, request.UserID)
	user, err := mongo.MongoDBClient.GetUser(userCtx)
	if err != nil {
		log.Errorf("Feedback: no profile for user %s: %v", request.UserID, err)
		writeError(ctx, fasthttp.StatusNotFound, "user not found")
		return
	}

	subject := request.Subject
	if subject == "" {
		subject = "Проверка домашнего задания — repetika"
	}

	if user.Email != "" {
		if err := Sender.Send(ctx, user.Email, subject, renderFeedbackHTML(user.Name, request.Feedback)); err != nil {
			log.Errorf("Feedback: failed to email user %s: %v", request.UserID, err)
			writeError(ctx, fasthttp.StatusInternalServerError, "failed to send feedback email")
			return
		}
	}

	// best-effort copy to telegram, email is the source of truth
	telegram.BOT.NotifyUser(user.TelegramChatID, fmt.Sprintf("📝 %s\n\n%s", subject, request.Feedback))

	config.CONFIG.DataDogClient.Incr("homework.feedback_sent", []string{"course:" + request.CourseID}, 1)
	log.Infof("Sent homework feedback to user %s, course %s", request.UserID, request.CourseID)

	body, _ := json.Marshal(map[string]bool{"success": true})
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func renderFeedbackHTML(name, feedback string) string {
	greeting := "Здравствуйте"
	if name != "" {
		greeting = "Здравствуйте, " + html.EscapeString(name)
	}
	paragraphs := strings.Split(html.EscapeString(feedback), "\n")
	return fmt.Sprintf(
		"<p>%s!</p><p>Преподаватель проверил вашу работу:</p><blockquote>%s</blockquote><p>— команда repetika</p>",
		greeting, strings.Join(paragraphs, "<br>"),
	)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
