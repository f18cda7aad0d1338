package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

var (
	outputMu     sync.Mutex
	statusOutput io.Writer = os.Stdout
	errorOutput  io.Writer = os.Stderr
)

// SetProgressOutput redirects status messages and spinners. Nil restores
// stdout and stderr.
func SetProgressOutput(status, errs io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if status == nil {
		status = os.Stdout
	}
	if errs == nil {
		errs = os.Stderr
	}
	statusOutput = status
	errorOutput = errs
}

func outputs() (io.Writer, io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	return statusOutput, errorOutput
}

// ProgressStep represents a single step in a multi-step process
type ProgressStep struct {
	Message string
	Fn      func() error
}

// ShowProgress runs fn behind a spinner when stderr is a terminal, otherwise
// logs the message and runs fn
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	_, errs := outputs()
	if !isTerminal(errs) {
		LogInfo(message)
		return fn()
	}
	return showSpinner(ctx, errs, message, fn)
}

// ShowProgressWithSteps runs steps in order, stopping at the first failure
func ShowProgressWithSteps(ctx context.Context, steps []ProgressStep) error {
	for i, step := range steps {
		msg := fmt.Sprintf("[%d/%d] %s", i+1, len(steps), step.Message)
		if err := ShowProgress(ctx, msg, step.Fn); err != nil {
			return fmt.Errorf("%s: %w", step.Message, err)
		}
	}
	return nil
}

// showSpinner animates message on w until fn returns. A cancelled ctx is
// reported as the error, but fn is always waited for.
func showSpinner(ctx context.Context, w io.Writer, message string, fn func() error) error {
	spinnerChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	done := make(chan error, 1)
	stop := make(chan struct{})
	spinnerDone := make(chan struct{})

	go func() {
		defer close(spinnerDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", progressStyle.Render(spinnerChars[i%len(spinnerChars)]), message)
			}
		}
	}()

	go func() {
		done <- fn()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
		// fn may still hold resources owned by the caller
		<-done
	}
	close(stop)
	<-spinnerDone

	if err != nil {
		fmt.Fprintf(w, "\r%s %s\n", errorStyle.Render("✗"), message)
		return err
	}
	fmt.Fprintf(w, "\r%s %s\n", successStyle.Render("✓"), message)
	return nil
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	out, _ := outputs()
	if isTerminal(out) {
		fmt.Fprintf(out, "%s %s\n", successStyle.Render("✓"), message)
	} else {
		fmt.Fprintln(out, message)
	}
}

// PrintError prints an error message
func PrintError(message string) {
	_, errs := outputs()
	if isTerminal(errs) {
		fmt.Fprintf(errs, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(errs, "%s\n", message)
	}
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	out, _ := outputs()
	if isTerminal(out) {
		fmt.Fprintf(out, "%s %s\n", progressStyle.Render("ℹ"), message)
	} else {
		fmt.Fprintln(out, message)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	_, errs := outputs()
	if isTerminal(errs) {
		fmt.Fprintf(errs, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(errs, "WARNING: %s\n", message)
	}
}

// FormatBytes renders a byte count for display
func FormatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
