// Package confirmation asks the operator before destructive operations.
package confirmation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"printops-snapshot/internal/display"
)

// maxAttempts bounds how often an unrecognized answer is asked again
const maxAttempts = 3

// ErrInterrupted is returned when the prompt is interrupted by a signal or
// a cancelled context
var ErrInterrupted = errors.New("operation cancelled by user")

// ErrNoInput is returned when input ends before an answer was given
var ErrNoInput = errors.New("no confirmation input; rerun with --yes to skip the prompt")

// Request describes the operation awaiting confirmation
type Request struct {
	Action      string
	Details     []string
	Destructive bool
	// Phrase, when set, must be typed exactly instead of answering yes.
	Phrase string
}

// ConfirmationService asks for confirmation
type ConfirmationService interface {
	Confirm(ctx context.Context, req Request, autoApprove bool) (bool, error)
}

type confirmationService struct {
	reader *bufio.Reader
	out    io.Writer
	colors display.ColorSystem
	theme  display.ColorTheme
}

// NewConfirmationService reads answers from in and writes prompts to out
func NewConfirmationService(in io.Reader, out io.Writer, useColors bool) ConfirmationService {
	return &confirmationService{
		reader: bufio.NewReader(in),
		out:    out,
		colors: display.NewColorSystem(out, useColors),
		theme:  display.DarkColorTheme(),
	}
}

// Confirm shows the request and waits for an answer. autoApprove accepts
// without prompting.
func (cs *confirmationService) Confirm(ctx context.Context, req Request, autoApprove bool) (bool, error) {
	cs.displaySummary(req)

	if autoApprove {
		fmt.Fprintln(cs.out, cs.colors.Colorize("Auto-approving...", cs.theme.Success))
		return true, nil
	}

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptChan)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		inputChan := make(chan string, 1)
		errorChan := make(chan error, 1)
		go func() {
			input, err := cs.prompt(req)
			if err != nil {
				errorChan <- err
				return
			}
			inputChan <- input
		}()

		select {
		case <-interruptChan:
			fmt.Fprintln(cs.out, "\n"+cs.colors.Colorize("Operation cancelled by user", cs.theme.Warning))
			return false, ErrInterrupted
		case <-ctx.Done():
			return false, ErrInterrupted
		case err := <-errorChan:
			if errors.Is(err, io.EOF) {
				return false, ErrNoInput
			}
			return false, fmt.Errorf("failed to read user input: %w", err)
		case input := <-inputChan:
			if answer, ok := parseAnswer(input, req.Phrase); ok {
				return answer, nil
			}
			if req.Phrase != "" {
				fmt.Fprintf(cs.out, "Please type %q to continue, or press enter to cancel.\n", req.Phrase)
			} else {
				fmt.Fprintf(cs.out, "Invalid input '%s'. Please enter 'y' for yes or 'n' for no.\n", input)
			}
		}
	}
	return false, nil
}

func (cs *confirmationService) displaySummary(req Request) {
	if req.Destructive {
		fmt.Fprintln(cs.out, cs.colors.Colorize("DESTRUCTIVE OPERATION", cs.theme.Error))
		fmt.Fprintln(cs.out, strings.Repeat("=", 50))
	}
	fmt.Fprintln(cs.out, cs.colors.Colorize(req.Action, cs.theme.Highlight))
	for _, detail := range req.Details {
		fmt.Fprintf(cs.out, "  - %s\n", detail)
	}
	fmt.Fprintln(cs.out)
}

func (cs *confirmationService) prompt(req Request) (string, error) {
	question := "Do you want to continue? [y/N]: "
	if req.Phrase != "" {
		question = fmt.Sprintf("Type %q to continue: ", req.Phrase)
	}
	fmt.Fprint(cs.out, cs.colors.Colorize(question, cs.theme.Primary))

	input, err := cs.reader.ReadString('\n')
	if err != nil && (input == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// parseAnswer reports the answer and whether input was recognized. An empty
// answer declines.
func parseAnswer(input, phrase string) (answer, ok bool) {
	if input == "" {
		return false, true
	}
	if phrase != "" {
		if input == phrase {
			return true, true
		}
		return false, false
	}
	switch strings.ToLower(input) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}
