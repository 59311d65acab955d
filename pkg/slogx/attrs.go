package slogx

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
// A nil error is rendered as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// RunID returns the attribute used to correlate every log line of a single agent run.
func RunID(id uuid.UUID) slog.Attr {
	return slog.String(KeyRunID, id.String())
}

// Model returns an attribute for the model identifier driving a run.
func Model(name string) slog.Attr {
	return slog.String(KeyModel, name)
}

const (
	// KeyLoggerName is the key for the component name of a logger.
	KeyLoggerName = "logger"
	// KeyRunID is the key for the run identifier.
	KeyRunID = "run_id"
	// KeyModel is the key for the model identifier.
	KeyModel = "model"
)

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
//
// Parameters:
//   - name: The name of the logger, conventionally "sqlowl.<component>".
//
// Returns:
//
//	A slog.Attr containing the logger name.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
