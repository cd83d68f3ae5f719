package cli

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
	"docqa/internal/logger"
)

const (
	connectionMessage = "❌ Connection error. Please check if the services are running and try again."
	genericMessage    = "❌ An unexpected error occurred. Please try again or contact support if the issue persists."
)

// UserMessage turns an error into text fit for the person at the terminal.
// Only validation errors reveal their detail.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case domain.IsValidation(err):
		return "⚠️ " + capitalize(err.Error())
	case errors.Is(err, domain.ErrIndexConnection):
		return connectionMessage
	default:
		return genericMessage
	}
}

// reportError logs the full chain and prints the user-facing message.
func reportError(cmd *cobra.Command, err error) {
	if domain.IsValidation(err) {
		logger.Warn("Validation error: %v", err)
	} else {
		logger.Error("%v", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), UserMessage(err))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
