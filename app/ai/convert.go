package ai

import (
	"repetika/m/v2/app/models"
	"strings"
)

// convertToClaudeRequest maps the OpenAI-shaped request to the Anthropic
// messages API. System messages move to the dedicated system field.
func convertToClaudeRequest(completion models.ChatCompletion) models.ClaudeRequest {
	request := models.ClaudeRequest{
		Model:     completion.Model,
		MaxTokens: completion.MaxTokens,
	}
	if request.MaxTokens == 0 {
		request.MaxTokens = 4096
	}

	systemParts := []string{}
	for _, message := range completion.Messages {
		if message.Role == "system" {
			systemParts = append(systemParts, message.Content)
			continue
		}
		request.Messages = append(request.Messages, models.ClaudeMessage{
			Role:    message.Role,
			Content: message.Content,
		})
	}
	request.System = strings.Join(systemParts, "\n")
	return request
}

func convertFromClaudeResponse(response models.ClaudeResponse) *models.ChatResponse {
	text := ""
	for _, content := range response.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}
	return &models.ChatResponse{
		ID:    response.ID,
		Model: response.Model,
		Choices: []models.ChatChoice{
			{
				Message:      models.Message{Role: "assistant", Content: text},
				FinishReason: response.StopReason,
			},
		},
		Usage: models.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
		},
	}
}
