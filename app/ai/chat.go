package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"repetika/m/v2/app/models"
	"strconv"
)

// ChatComplete completes a chat, routing to OpenAI or Anthropic by model
// name. Non-streaming only.
func (a *API) ChatComplete(ctx context.Context, completion models.ChatCompletion) (*models.ChatResponse, error) {
	if completion.Model == "" {
		completion.Model = string(models.ChatGpt4oMini)
	}
	if IsClaude(completion.Model) {
		return a.claudeChatComplete(ctx, completion)
	}
	return a.openAIChatComplete(ctx, completion)
}

func (a *API) openAIChatComplete(ctx context.Context, completion models.ChatCompletion) (*models.ChatResponse, error) {
	if a.openAIKey == "" {
		return nil, errors.New("OpenAI API key is not set")
	}

	body, err := json.Marshal(completion)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.openAIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("OpenAI API returned status code " + strconv.Itoa(resp.StatusCode))
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var response models.ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("OpenAI API returned empty choices")
	}
	return &response, nil
}

func (a *API) claudeChatComplete(ctx context.Context, completion models.ChatCompletion) (*models.ChatResponse, error) {
	if a.claudeKey == "" {
		return nil, errors.New("Claude API key is not set")
	}

	request := convertToClaudeRequest(completion)
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.claudeKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("Claude API returned status code " + strconv.Itoa(resp.StatusCode))
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var claudeResponse models.ClaudeResponse
	if err := json.Unmarshal(body, &claudeResponse); err != nil {
		return nil, err
	}
	return convertFromClaudeResponse(claudeResponse), nil
}
