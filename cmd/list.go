package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/council-session/internal"
	"github.com/spf13/cobra"
)

var (
	listOffline    bool
	listFolder     string
	listClearCache bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Long: `List your council sessions, pinned first, as the service orders them.

With --offline the list comes from the local cache of sessions you have
opened before, and the service is not contacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if listClearCache {
			a.clearCache()
		}

		var sessions []internal.SessionSummary
		folderName := func(id *string) string { return "" }

		if listOffline {
			index, err := a.cache.LoadIndex()
			if err != nil {
				return fmt.Errorf("no offline cache available: %w", err)
			}
			if index.Metadata.ServerURL != a.client.BaseURL() {
				internal.LogWarn("Cache was built against %s", index.Metadata.ServerURL)
			}
			for _, e := range index.Sessions {
				sessions = append(sessions, e.Summary())
			}
		} else {
			catalog := a.ctrl.Catalog()
			if err := catalog.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load sessions: %w", err)
			}
			sessions = catalog.Sessions()
			folderName = catalog.FolderName

			if listFolder != "" {
				folder, err := catalog.ResolveFolder(listFolder)
				if err != nil {
					return err
				}
				filtered := sessions[:0]
				for _, s := range sessions {
					if s.FolderID != nil && *s.FolderID == folder.ID {
						filtered = append(filtered, s)
					}
				}
				sessions = filtered
			}
		}

		displaySessions(cmd.OutOrStdout(), sessions, folderName)
		return nil
	},
}

func displaySessions(out io.Writer, sessions []internal.SessionSummary, folderName func(*string) string) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No sessions found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Rounds")+"\t"+titleStyle.Render("Created")+"\t"+titleStyle.Render("Folder")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, s := range sessions {
		title := truncate(s.DisplayTitle(), 50)
		if s.IsPinned {
			title = "📌 " + title
		}
		title = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(title)

		folder := dateStyle.Render("—")
		if name := folderName(s.FolderID); name != "" {
			folder = folderStyle.Render(truncate(name, 25))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID(s.ID)),
			title,
			countStyle.Render(strconv.Itoa(s.RoundCount)),
			dateStyle.Render(formatCreated(s.CreatedAt)),
			folder,
		)
	}

	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the full ID (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(sessions[0].ID)+
		idStyle.Render(") with `council show <id>`"))
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listOffline, "offline", false, "List sessions from the local cache")
	listCmd.Flags().StringVar(&listFolder, "folder", "", "Only list sessions in this folder (id or name)")
	listCmd.Flags().BoolVar(&listClearCache, "clear-cache", false, "Clear the offline cache before running")
}
