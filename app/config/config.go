package config

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

var CONFIG *Config

const (
	REVIEW_INSTRUCTIONS = `You are an OGE/EGE preparation assistant for the repetika platform.

You review student essays and solutions to exam problems. Always answer in Russian.

For essays: point out factual, logical, grammar and style mistakes, estimate the score
against the official criteria and explain what exactly loses points.

For math solutions: check every step, name the first wrong step if any, and suggest
which topic from the question bank the student should drill next.

Keep the tone supportive, the student is preparing for a stressful exam.`
)

type Config struct {
	AuthAPIKey           string
	AuthAPIURL           string
	BaseURL              string
	BotName              string
	ClaudeAPIKey         string
	DataDogClient        *statsd.Client
	EmailAPIKey          string
	EmailFromAddress     string
	EmailFromName        string
	Environment          string
	MockPaymentBaseURL   string
	MongoDBConnection    string
	MongoDBName          string
	NudgeWorkerInterval  time.Duration
	OpenAIAPIKey         string
	PaymentProvider      string
	Redis                Redis
	Robokassa            Robokassa
	ServiceRoleSecret    string
	StatusWorkerInterval time.Duration
	StripeEndpointSecret string
	StripeEndpointSuffix string
	StripeToken          string
	TaskFunctionURL      string
	TelegramBotToken     string
	TelegramSystemTo     string
}

type Redis struct {
	Host     string
	Port     string
	Password string
}

type Robokassa struct {
	MerchantLogin string
	Password1     string
	Password2     string
}
