package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

var (
	// ErrEmptyResponse is returned when a provider answers without any text
	ErrEmptyResponse = goerr.New("empty response from model")
)

// Generator produces a text completion for a single prompt with the given
// backing model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}

var credentialMarkers = []string{
	"security token",
	"api key not valid",
	"invalid api key",
	"invalid x-api-key",
	"invalid_api_key",
	"incorrect api key",
	"expired",
	"unauthenticated",
}

// IsCredentialError reports whether err means the credentials of a provider
// are missing, invalid or expired. Retrying with another model of the same
// setup cannot fix such an error.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}

	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		if geminiErr.Code == http.StatusUnauthorized || geminiErr.Code == http.StatusForbidden ||
			geminiErr.Status == "UNAUTHENTICATED" || geminiErr.Status == "PERMISSION_DENIED" {
			return true
		}
	}

	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) {
		if claudeErr.StatusCode == http.StatusUnauthorized || claudeErr.StatusCode == http.StatusForbidden {
			return true
		}
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		if openaiErr.StatusCode == http.StatusUnauthorized || openaiErr.StatusCode == http.StatusForbidden {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range credentialMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
