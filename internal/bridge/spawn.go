package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// pipeRefusedMarker is the diagnostic gpsbabel emits when the selected input
// format cannot read from standard input. Its presence is the only failure
// the retry policy treats as recoverable.
const pipeRefusedMarker = "This format cannot be used in piped commands"

// outcome captures one converter invocation: exit status plus the error
// stream, which is retained even for the quiet first attempt so the retry
// policy can classify the failure without surfacing it.
type outcome struct {
	exitCode int
	stderr   string
}

func (o outcome) ok() bool { return o.exitCode == 0 }

func (o outcome) pipeRefused() bool {
	return strings.Contains(o.stderr, pipeRefusedMarker)
}

// diagnostic returns the trimmed converter error output, falling back to the
// exit status when the converter said nothing.
func (o outcome) diagnostic() string {
	if msg := strings.TrimSpace(o.stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("converter exited with status %d", o.exitCode)
}

// runConverter executes one invocation, blocking until the process exits.
// stdin may be nil (direct mode). A non-zero exit status is reported through
// the outcome, not the error; the error is reserved for spawn failures such
// as a missing binary.
func runConverter(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) (outcome, error) {
	cmd := commandContext(ctx, args[0], args[1:]...) //nolint:gosec
	cmd.Stdin = stdin
	cmd.Stdout = stdout

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	out := outcome{stderr: stderrBuf.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.exitCode = exitErr.ExitCode()
			return out, nil
		}
		return out, fmt.Errorf("spawn converter: %w", err)
	}
	return out, nil
}
