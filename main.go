package main

import (
	"context"
	"os"
	"os/signal"
	"repetika/m/v2/app/ai"
	"repetika/m/v2/app/auth"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/db/redis"
	"repetika/m/v2/app/homework"
	"repetika/m/v2/app/payments"
	"repetika/m/v2/app/tasks"
	"repetika/m/v2/app/telegram"
	"repetika/m/v2/app/util"
	"repetika/m/v2/app/workers"
	"repetika/m/v2/app/workers/nudge"
	"repetika/m/v2/app/workers/status"
	"syscall"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	fasthttpprom "github.com/carousell/fasthttp-prometheus-middleware"
	"github.com/fasthttp/router"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
	"github.com/valyala/fasthttp"
)

func main() {
	done := make(chan struct{}, 1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	env := util.Env("ENV", "dev")
	dataDogClient, err := statsd.New(util.Env("DATADOG_AGENT_ADDRESS", "127.0.0.1:8125"), statsd.WithNamespace("repetika."))
	if err != nil && env == "production" {
		log.Fatalf("error creating main DataDog client: %v", err)
	}

	nudgeInterval, _ := time.ParseDuration(util.Env("NUDGE_WORKER_INTERVAL", "0"))
	config.CONFIG = &config.Config{
		AuthAPIKey:          util.Env("AUTH_API_KEY"),
		AuthAPIURL:          util.Env("AUTH_API_URL"),
		BaseURL:             util.Env("BASE_URL", "https://repetika.ru"),
		BotName:             "repetika",
		ClaudeAPIKey:        util.Env("CLAUDE_API_KEY", ""),
		DataDogClient:       dataDogClient,
		EmailAPIKey:         util.Env("EMAIL_API_KEY", ""),
		EmailFromAddress:    util.Env("EMAIL_FROM_ADDRESS", "teachers@repetika.ru"),
		EmailFromName:       util.Env("EMAIL_FROM_NAME", "repetika"),
		Environment:         env,
		MockPaymentBaseURL:  util.Env("MOCK_PAYMENT_BASE_URL", ""),
		MongoDBConnection:   util.Env("MONGO_DB_CONNECTION_STRING"),
		MongoDBName:         util.Env("MONGO_DB_NAME", "repetika"),
		NudgeWorkerInterval: nudgeInterval,
		OpenAIAPIKey:        util.Env("OPENAI_API_KEY"),
		PaymentProvider:     util.Env("PAYMENT_PROVIDER", "robokassa"),
		Redis: config.Redis{
			Host:     util.Env("REDIS_HOST"),
			Port:     util.Env("REDIS_PORT", "6379"),
			Password: util.Env("REDIS_PASSWORD"),
		},
		Robokassa: config.Robokassa{
			MerchantLogin: util.Env("ROBOKASSA_MERCHANT_LOGIN", ""),
			Password1:     util.Env("ROBOKASSA_PASSWORD_1", ""),
			Password2:     util.Env("ROBOKASSA_PASSWORD_2", ""),
		},
		ServiceRoleSecret:    util.Env("SERVICE_ROLE_SECRET"),
		StatusWorkerInterval: time.Minute,
		StripeEndpointSecret: util.Env("STRIPE_ENDPOINT_SECRET", ""),
		StripeEndpointSuffix: util.Env("STRIPE_ENDPOINT_SUFFIX", ""),
		StripeToken:          util.Env("STRIPE_TOKEN", ""),
		TaskFunctionURL:      util.Env("TASK_FUNCTION_URL"),
		TelegramBotToken:     util.Env("TELEGRAM_BOT_TOKEN", ""),
		TelegramSystemTo:     util.Env("TELEGRAM_SYSTEM_TO", ""),
	}

	err = dataDogClient.Count("main.start", 1, []string{"env:" + config.CONFIG.Environment}, 1)
	if err != nil {
		log.Errorf("error sending metric: %v", err)
	}
	if config.CONFIG.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{
			DisableTimestamp: true,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
			DisableColors: false,
		})
		log.SetLevel(log.TraceLevel)
	}

	redis.RedisClient = redis.NewClient(config.CONFIG.Redis)
	mongoClient := mongo.NewClient(config.CONFIG.MongoDBConnection)
	mongo.MongoDBClient = mongoClient
	if err := mongoClient.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("failed to ensure mongo indexes: %v", err)
	}

	// notification bot; stub outside production or without a token
	var notifyBot *telegram.Bot
	if config.CONFIG.TelegramBotToken != "" {
		notifyBot, err = telegram.NewBot(config.CONFIG)
		if err != nil {
			log.Fatalf("ERROR creating notification bot: %v", err)
		}
	} else {
		notifyBot = telegram.NewStubBot(config.CONFIG)
	}

	auth.AUTH = auth.NewAPI(config.CONFIG)
	ai.ReviewAPI = ai.NewAPI(config.CONFIG)
	homework.Sender = homework.NewMailer(config.CONFIG)
	nudge.TaskCreator = tasks.NewClient(config.CONFIG)

	stripe.Key = config.CONFIG.StripeToken
	stripe.SetAppInfo(&stripe.AppInfo{
		Name:    "repetika",
		Version: "0.0.1",
		URL:     config.CONFIG.BaseURL,
	})

	rtr := router.New()
	rtr.GET("/", func(ctx *fasthttp.RequestCtx) {
		ctx.Redirect(config.CONFIG.BaseURL, fasthttp.StatusFound)
	})
	rtr.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.WriteString("❤️ from repetika")
	})
	rtr.POST("/api/payments/link", payments.CreatePaymentLink)
	rtr.POST("/api/payments/callback", payments.Callback)
	if config.CONFIG.StripeEndpointSuffix != "" {
		rtr.POST("/stripe_"+config.CONFIG.StripeEndpointSuffix, payments.StripeWebhook)
	}
	rtr.POST("/api/ai/review", ai.Review)
	rtr.POST("/api/homework/feedback", homework.Feedback)
	rtr.POST("/jobs/nudge", nudge.Trigger)

	prom := fasthttpprom.NewPrometheus("")
	prom.Use(rtr)

	status.AI = ai.ReviewAPI
	status.WORKER = workers.NewWorker(notifyBot, config.CONFIG.StatusWorkerInterval, status.Run)
	go status.WORKER.Start()

	// the nudge scan is normally fired through POST /jobs/nudge by the
	// platform cron; the in-process ticker is for single-node deployments
	if config.CONFIG.NudgeWorkerInterval > 0 {
		nudge.WORKER = workers.NewWorker(notifyBot, config.CONFIG.NudgeWorkerInterval, nudge.Run)
		go nudge.WORKER.Start()
	}

	server := &fasthttp.Server{
		Handler: fasthttp.TimeoutHandler(prom.Handler, time.Second*30, "Request timeout"),
	}

	go TearDown(sigs, done, server, notifyBot, mongoClient)

	go func() {
		err := server.ListenAndServe(util.Env("BACKEND_LISTEN_ADDRESS", ":8080"))
		util.Assert(err == nil, "ListenAndServe:", err)
	}()

	startMessage := "🤖 repetika backend started successfully 🚀 inside " + util.Env("POD_NAME", "unknown")
	notifyBot.Alert(startMessage)
	log.Info(startMessage)

	<-done
	log.Info("Done")
}

func TearDown(sigs chan os.Signal, done chan struct{}, server *fasthttp.Server, notifyBot *telegram.Bot, mongoClient *mongo.Client) {
	<-sigs
	exitMessage := "🤖 repetika backend bids farewell ❌ inside " + util.Env("POD_NAME", "unknown")
	log.Info(exitMessage)
	notifyBot.Alert(exitMessage)

	status.WORKER.StopWorker()
	if nudge.WORKER != nil {
		nudge.WORKER.StopWorker()
	}

	if err := server.Shutdown(); err != nil {
		log.Errorf("TearDown: server shutdown: %v", err)
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Errorf("TearDown: Disconnecting from MongoDB: %v", err)
	}
	done <- struct{}{}
}
