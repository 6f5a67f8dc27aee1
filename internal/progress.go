package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
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

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ProgressStep represents a single step in a multi-step process
type ProgressStep struct {
	Message string
	Fn      func() error
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Spinner shows a single changing status line. On a terminal it animates;
// elsewhere it prints each distinct message once.
type Spinner struct {
	w   io.Writer
	tty bool

	mu      sync.Mutex
	message string
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a spinner writing to w
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w, tty: IsTerminal(w)}
}

// Start begins showing message
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		s.Update(message)
		return
	}
	s.message = message
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if !s.tty {
		fmt.Fprintln(s.w, message)
		close(done)
		return
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r\033[K%s %s", progressStyle.Render(spinnerFrames[i%len(spinnerFrames)]), msg)
			select {
			case <-stop:
				fmt.Fprint(s.w, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Update replaces the message
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	changed := s.message != message
	s.message = message
	running := s.stop != nil
	s.mu.Unlock()
	if running && changed && !s.tty {
		fmt.Fprintln(s.w, message)
	}
}

// Stop clears the line and waits for the animation to end
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// ShowProgress runs fn while a spinner shows message
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	return showProgress(ctx, os.Stderr, message, fn)
}

func showProgress(ctx context.Context, w io.Writer, message string, fn func() error) error {
	if !IsTerminal(w) {
		LogInfo("%s", message)
		return fn()
	}

	sp := NewSpinner(w)
	sp.Start(message)

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		sp.Stop()
		if err != nil {
			fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), message)
			return err
		}
		fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), message)
		return nil
	case <-ctx.Done():
		sp.Stop()
		return ctx.Err()
	}
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

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	if IsTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", successStyle.Render("✓"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintError prints an error message
func PrintError(message string) {
	if IsTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(os.Stderr, "%s\n", message)
	}
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if IsTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", progressStyle.Render("ℹ"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if IsTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", message)
	}
}
