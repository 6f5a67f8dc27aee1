package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/iksnae/council-session/internal"
	"github.com/spf13/cobra"
)

var (
	askMode      string
	askSession   string
	askIncognito bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Put a question to the council",
	Long: `Run one round and print the council's work as it arrives.

A new session is created unless --session names one to continue; a
continued session keeps the mode it started with. --incognito runs the
round in a throwaway session that is deleted afterwards.

Examples:
  council ask "What is the best sorting algorithm?"
  council ask --mode chat "Tabs or spaces?"
  council ask --session 3f2a... "And for linked lists?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return internal.ErrEmptyQuestion
		}
		if askIncognito && askSession != "" {
			return errors.New("--incognito cannot be combined with --session")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		ctrl := a.ctrl

		if askMode != "" {
			mode, err := internal.ParseMode(askMode)
			if err != nil {
				return err
			}
			if err := ctrl.SetMode(mode); err != nil {
				internal.LogWarn("Failed to save mode preference: %v", err)
			}
		}
		if err := ctrl.RefreshModels(ctx); err != nil {
			internal.LogWarn("Failed to load models, the service will pick the council: %v", err)
		}

		if askSession != "" {
			if err := ctrl.LoadSession(ctx, askSession); err != nil {
				return fmt.Errorf("failed to load session: %s", internal.UserMessage(err))
			}
		}
		if askIncognito {
			ctrl.SetIncognito(true)
		}

		out := cmd.OutOrStdout()
		printer := newRoundPrinter(out, internal.NewSpinner(cmd.ErrOrStderr()), len(ctrl.State().Messages))
		unsubscribe := ctrl.Subscribe(printer.onState)
		roundErr := ctrl.SubmitQuestion(ctx, question)
		unsubscribe()
		printer.finish(ctrl.State())

		if roundErr != nil {
			return roundErr
		}

		st := ctrl.State()
		if st.SessionID == "" {
			internal.PrintInfo("Incognito round finished; nothing was saved.")
			return nil
		}
		if _, err := a.fetchSession(ctx, st.SessionID); err != nil {
			internal.LogDebug("Could not cache session %s: %v", st.SessionID, err)
		}
		internal.PrintInfo(fmt.Sprintf("Session %s", st.SessionID))
		return nil
	},
}

// roundPrinter prints transcript entries as the controller publishes them
// and keeps the round status on a spinner line
type roundPrinter struct {
	out io.Writer
	sp  *internal.Spinner

	mu      sync.Mutex
	printed int
	status  string
}

func newRoundPrinter(out io.Writer, sp *internal.Spinner, skip int) *roundPrinter {
	return &roundPrinter{out: out, sp: sp, printed: skip}
}

func (p *roundPrinter) onState(st internal.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(st.Messages) < p.printed {
		p.printed = 0
	}
	if len(st.Messages) > p.printed {
		p.sp.Stop()
		p.status = ""
		for _, msg := range st.Messages[p.printed:] {
			printMessage(p.out, msg)
		}
		p.printed = len(st.Messages)
	}

	if !st.Loading {
		p.sp.Stop()
		p.status = ""
		return
	}
	if st.Status != "" && st.Status != p.status {
		p.status = st.Status
		p.sp.Start(statusText(st.Status))
	}
}

// finish flushes anything published after the last callback
func (p *roundPrinter) finish(st internal.State) {
	st.Loading = false
	p.onState(st)
}

func statusText(status string) string {
	switch status {
	case internal.StatusGathering:
		return "Gathering responses..."
	case internal.StatusReviewing:
		return "Council members are reviewing each other..."
	case internal.StatusDeciding:
		return "The chairman is deciding..."
	}
	return status
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askMode, "mode", "m", "", "Conversation mode for new sessions (formal, chat); saved as the default")
	askCmd.Flags().StringVar(&askSession, "session", "", "Continue an existing session")
	askCmd.Flags().BoolVar(&askIncognito, "incognito", false, "Do not keep the session")
}
