package commands

import (
	"errors"

	"github.com/haivivi/speakerid/pkg/voiceprint"
)

// Process exit codes.
const (
	ExitError    = 1
	ExitLoad     = 2
	ExitNotFound = 3
	ExitMismatch = 4
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, voiceprint.ErrLoad):
		return ExitLoad
	case errors.Is(err, voiceprint.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, voiceprint.ErrEmbeddingMismatch), errors.Is(err, voiceprint.ErrDegenerateEmbedding):
		return ExitMismatch
	default:
		return ExitError
	}
}
