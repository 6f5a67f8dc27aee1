package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/council-session/internal"
	"github.com/iksnae/council-session/internal/export"
	"github.com/spf13/cobra"
)

var (
	format           string
	outputDir        string
	exportAll        bool
	exportOffline    bool
	exportClearCache bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [session-id...]",
	Short: "Export session transcripts to files",
	Long: `Export sessions to various formats (jsonl, md, yaml, json).

Name the sessions to export, or pass --all for every session. With
--offline, sessions are read from the local cache instead of the service.
Use 'council list' to see available session IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}
		if len(args) == 0 && !exportAll {
			return fmt.Errorf("name at least one session or pass --all")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if exportClearCache {
			a.clearCache()
		}

		var sessions []*internal.Session
		requested := len(args)
		switch {
		case exportAll && exportOffline:
			sessions, err = a.cache.LoadAllSessions()
			if err != nil {
				return fmt.Errorf("no offline cache available: %w", err)
			}
			requested = len(sessions)
		case exportAll:
			sessions, requested, err = fetchAllSessions(ctx, a)
			if err != nil {
				return err
			}
		default:
			for _, id := range args {
				session, err := a.loadSession(ctx, id, exportOffline)
				if err != nil {
					internal.LogError("Failed to load session %s: %v", id, err)
					continue
				}
				sessions = append(sessions, session)
			}
		}
		if requested == 0 {
			internal.PrintWarning("No sessions to export")
			return nil
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(sessions), outputDir), func() error {
			for _, session := range sessions {
				path := filepath.Join(outputDir, fmt.Sprintf("session_%s.%s", session.ID, exporter.Extension()))
				if err := writeExport(exporter, session, path); err != nil {
					internal.LogError("Failed to export session %s: %v", session.ID, err)
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}
		if exported < requested {
			return fmt.Errorf("exported %d of %d session(s)", exported, requested)
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", exported, outputDir))
		return nil
	},
}

// fetchAllSessions downloads every listed session and, when all of them
// arrived, rebuilds the offline cache from the result. It returns the
// loaded sessions and how many were listed.
func fetchAllSessions(ctx context.Context, a *app) ([]*internal.Session, int, error) {
	var (
		ids      []string
		sessions []*internal.Session
	)
	steps := []internal.ProgressStep{
		{
			Message: "Listing sessions",
			Fn: func() error {
				if err := a.ctrl.Catalog().RefreshSessions(ctx); err != nil {
					return fmt.Errorf("failed to list sessions: %w", err)
				}
				for _, s := range a.ctrl.Catalog().Sessions() {
					ids = append(ids, s.ID)
				}
				return nil
			},
		},
		{
			Message: "Fetching sessions",
			Fn: func() error {
				for _, id := range ids {
					session, err := a.getSession(ctx, id)
					if err != nil {
						internal.LogError("Failed to load session %s: %v", id, err)
						continue
					}
					sessions = append(sessions, session)
				}
				return nil
			},
		},
		{
			Message: "Caching sessions",
			Fn: func() error {
				if len(sessions) < len(ids) {
					internal.LogWarn("Keeping the existing cache, %d session(s) failed to load", len(ids)-len(sessions))
					return nil
				}
				if err := a.cache.SaveSessions(sessions, a.client.BaseURL()); err != nil {
					internal.LogWarn("Failed to save cache: %v", err)
				}
				return nil
			},
		},
	}

	if err := internal.ShowProgressWithSteps(ctx, steps); err != nil {
		return nil, 0, err
	}
	return sessions, len(ids), nil
}

func writeExport(exporter export.Exporter, session *internal.Session, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Export(internal.NewTranscript(session), file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every session")
	exportCmd.Flags().BoolVar(&exportOffline, "offline", false, "Read sessions from the local cache")
	exportCmd.Flags().BoolVar(&exportClearCache, "clear-cache", false, "Clear the offline cache before running")
}
