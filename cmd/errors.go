package cmd

import (
	"context"
	"errors"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
)

// formatAgentError turns an internal error into the text sent back to the
// user on a failed run, classifying provider/timeout errors so the message
// is actionable instead of a raw Go error string.
func formatAgentError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Sorry, that took too long to process. Please try again."
	case errors.Is(err, context.Canceled):
		return "Request was cancelled."
	case errors.Is(err, providers.ErrRateLimited):
		return "The model provider is rate-limiting requests right now. Please try again shortly."
	case errors.Is(err, providers.ErrAuthFailed):
		return "The model provider rejected our credentials. Please contact the administrator."
	case errors.Is(err, providers.ErrNotConfigured):
		return "No model provider is configured for this agent."
	default:
		return "Sorry, something went wrong while processing your message: " + err.Error()
	}
}
