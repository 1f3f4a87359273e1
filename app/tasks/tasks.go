// package to invoke the personalized-task generator function
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"repetika/m/v2/app/config"
	"time"

	log "github.com/sirupsen/logrus"
	backoff "gopkg.in/cenkalti/backoff.v1"
)

const TIMEOUT = 30 * time.Second

type Creator interface {
	CreateTask(ctx context.Context, userID, courseID string) error
}

type Client struct {
	endpoint string
	secret   string
	client   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		endpoint: cfg.TaskFunctionURL,
		secret:   cfg.ServiceRoleSecret,
		client: &http.Client{
			Timeout: TIMEOUT,
		},
	}
}

type createTaskRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	Source   string `json:"source"`
	Count    int    `json:"count"`
}

// CreateTask asks the generator function to produce one personalized task
// for the pair. Parameters besides the pair are fixed.
func (c *Client) CreateTask(ctx context.Context, userID, courseID string) error {
	body, err := json.Marshal(createTaskRequest{
		UserID:   userID,
		CourseID: courseID,
		Source:   "nudge",
		Count:    1,
	})
	if err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.secret)

		resp, err := c.client.Do(req)
		if err != nil {
			log.Warnf("CreateTask: request for %s/%s failed, will retry: %v", userID, courseID, err)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("task function returned status %d", resp.StatusCode)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = TIMEOUT
	if err := backoff.Retry(operation, b); err != nil {
		return fmt.Errorf("CreateTask: failed for %s/%s: %w", userID, courseID, err)
	}

	config.CONFIG.DataDogClient.Incr("tasks.created", []string{"source:nudge"}, 1)
	return nil
}
