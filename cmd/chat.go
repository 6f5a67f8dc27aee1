package cmd

import (
	"fmt"

	"github.com/iksnae/council-session/internal"
	"github.com/iksnae/council-session/internal/tui"
	"github.com/spf13/cobra"
)

var chatSession string

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive council client",
	Long: `Open a full-screen client with the conversation, a question box and a
session sidebar.

Keys:
  enter      send the question (or open the selected session)
  tab        show or hide the session sidebar
  ctrl+n     start a new chat
  ctrl+t     switch between formal and chat mode
  ctrl+g     toggle incognito
  p / d      pin or delete the selected session (sidebar)
  esc        close the sidebar, or quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !internal.IsTerminal(cmd.OutOrStdout()) {
			return fmt.Errorf("chat needs an interactive terminal; use 'council ask' instead")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if chatSession != "" {
			if err := a.ctrl.LoadSession(cmd.Context(), chatSession); err != nil {
				return fmt.Errorf("failed to load session: %s", internal.UserMessage(err))
			}
		}
		return tui.Run(cmd.Context(), a.ctrl)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Open this session")
}
