package cmd

import (
	"fmt"
	"io"

	"github.com/iksnae/council-session/internal"
	"github.com/spf13/cobra"
)

var (
	limit       int
	showOffline bool
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the transcript of a session",
	Long: `Display every round of a session: the question, each council member's
answer or error, the peer review summary and the chairman's synthesis (or,
in chat mode, the conversation in order).

The session is copied to the local cache so it can be shown later with
--offline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		session, err := a.loadSession(cmd.Context(), args[0], showOffline)
		if err != nil {
			return fmt.Errorf("failed to load session: %s", internal.UserMessage(err))
		}

		displayTranscript(cmd.OutOrStdout(), session, internal.ProjectSession(session), limit)
		return nil
	},
}

// sharedCmd represents the shared command
var sharedCmd = &cobra.Command{
	Use:   "shared <share-token>",
	Short: "Show a session someone shared with you",
	Long:  `Display a publicly shared session by its share token. Nothing is cached.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		session, messages, err := a.ctrl.ViewShared(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load shared session: %s", internal.UserMessage(err))
		}
		displayTranscript(cmd.OutOrStdout(), session, messages, limit)
		return nil
	},
}

func displayTranscript(out io.Writer, session *internal.Session, messages []internal.DisplayMessage, limit int) {
	printSessionHeader(out, session)

	if len(messages) == 0 {
		fmt.Fprintln(out, sessionMetaStyle.Render("(no rounds yet)"))
		return
	}
	shown := messages
	if limit > 0 && limit < len(shown) {
		shown = shown[:limit]
	}
	for _, msg := range shown {
		printMessage(out, msg)
	}
	if len(shown) < len(messages) {
		fmt.Fprintln(out, sessionMetaStyle.Render(fmt.Sprintf("… %d more message(s), use --limit 0 to show all", len(messages)-len(shown))))
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(sharedCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().BoolVar(&showOffline, "offline", false, "Read the session from the local cache")
	sharedCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
}
