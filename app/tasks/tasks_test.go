package tasks

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"repetika/m/v2/app/config"
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

func TestCreateTask(t *testing.T) {
	var received createTaskRequest
	function := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer function.Close()

	client := &Client{endpoint: function.URL, secret: "service-secret", client: function.Client()}
	err := client.CreateTask(context.Background(), "u1", "oge-math")
	assert.NoError(t, err)

	assert.Equal(t, "u1", received.UserID)
	assert.Equal(t, "oge-math", received.CourseID)
	assert.Equal(t, "nudge", received.Source)
	assert.Equal(t, 1, received.Count)
}

func TestCreateTaskRetriesOnServerError(t *testing.T) {
	attempts := 0
	function := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer function.Close()

	client := &Client{endpoint: function.URL, secret: "service-secret", client: function.Client()}
	err := client.CreateTask(context.Background(), "u1", "oge-math")
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
