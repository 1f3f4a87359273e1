package homework

import (
	"context"
	"log"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/models"
	"repetika/m/v2/app/telegram"
	"testing"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func init() {
	testClient, err := statsd.New("127.0.0.1:8125", statsd.WithNamespace("tests."))
	if err != nil {
		log.Fatalf("error creating test DataDog client: %v", err)
	}
	config.CONFIG = &config.Config{
		DataDogClient:     testClient,
		ServiceRoleSecret: "service-secret",
	}
}

type fakeSender struct {
	to      []string
	subject string
	body    string
	err     error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.subject = subject
	f.body = htmlBody
	return nil
}

func setupFeedbackTest(user models.MongoUser) *fakeSender {
	mongo.MongoDBClient = mongo.NewMockMongoDBClient(user)
	telegram.NewStubBot(config.CONFIG)
	sender := &fakeSender{}
	Sender = sender
	return sender
}

func feedbackRequest(secret, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.SetContentType("application/json")
	if secret != "" {
		ctx.Request.Header.Set("X-Service-Secret", secret)
	}
	ctx.Request.SetBodyString(body)
	return ctx
}

func TestFeedbackSendsEmail(t *testing.T) {
	sender := setupFeedbackTest(models.MongoUser{
		ID:             "u1",
		Email:          "student@example.com",
		Name:           "Мария",
		TelegramChatID: 42,
	})

	ctx := feedbackRequest("service-secret", `{"userId": "u1", "courseId": "oge-math", "feedback": "Отличная работа!\nПункт 3 стоит переписать."}`)
	Feedback(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, []string{"student@example.com"}, sender.to)
	assert.Equal(t, "Проверка домашнего задания — repetika", sender.subject)
	assert.Contains(t, sender.body, "Мария")
	assert.Contains(t, sender.body, "Отличная работа!<br>Пункт 3 стоит переписать.")
}

func TestFeedbackSkipsEmailWithoutAddress(t *testing.T) {
	sender := setupFeedbackTest(models.MongoUser{ID: "u1", TelegramChatID: 42})

	ctx := feedbackRequest("service-secret", `{"userId": "u1", "feedback": "Проверено"}`)
	Feedback(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Empty(t, sender.to)
}

func TestFeedbackRejectsBadSecret(t *testing.T) {
	sender := setupFeedbackTest(models.MongoUser{ID: "u1", Email: "student@example.com"})

	ctx := feedbackRequest("wrong", `{"userId": "u1", "feedback": "Проверено"}`)
	Feedback(ctx)

	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.Empty(t, sender.to)
}

func TestFeedbackValidatesRequest(t *testing.T) {
	setupFeedbackTest(models.MongoUser{ID: "u1", Email: "student@example.com"})

	missingUser := feedbackRequest("service-secret", `{"feedback": "Проверено"}`)
	Feedback(missingUser)
	assert.Equal(t, fasthttp.StatusBadRequest, missingUser.Response.StatusCode())

	missingFeedback := feedbackRequest("service-secret", `{"userId": "u1", "feedback": "  "}`)
	Feedback(missingFeedback)
	assert.Equal(t, fasthttp.StatusBadRequest, missingFeedback.Response.StatusCode())

	unknownUser := feedbackRequest("service-secret", `{"userId": "missing", "feedback": "Проверено"}`)
	Feedback(unknownUser)
	assert.Equal(t, fasthttp.StatusNotFound, unknownUser.Response.StatusCode())
}

func TestRenderFeedbackHTMLEscapes(t *testing.T) {
	body := renderFeedbackHTML("<b>Имя</b>", "оценка <5>")
	assert.Contains(t, body, "&lt;b&gt;Имя&lt;/b&gt;")
	assert.Contains(t, body, "оценка &lt;5&gt;")
}
