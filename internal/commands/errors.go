package commands

import (
	"errors"
	"fmt"
	"io"

	"todochat/internal/backend/googletasks"
	"todochat/internal/chat"
	"todochat/internal/completion"
	"todochat/internal/config"
	"todochat/internal/exitcode"
	"todochat/internal/task"
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, ErrTaskRefRequired), errors.Is(err, ErrOutOfRange),
		errors.Is(err, task.ErrNotPermutation):
		return exitcode.UserError
	case errors.Is(err, googletasks.ErrAuth), errors.Is(err, config.ErrInvalid),
		errors.Is(err, completion.ErrNoAPIKey):
		return exitcode.AuthError
	case errors.Is(err, chat.ErrCompletion):
		return exitcode.CompletionError
	default:
		return exitcode.BackendError
	}
}

// Report prints err in the form matching its exit code and returns the code.
func Report(errOut io.Writer, err error) int {
	code := ExitCode(err)
	switch {
	case errors.Is(err, googletasks.ErrAuth):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	case code == exitcode.CompletionError:
		fmt.Fprintf(errOut, "error: completion error: %v\n", err)
	case code == exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}
