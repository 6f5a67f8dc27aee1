package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/council-session/internal"
	"github.com/spf13/cobra"
)

var branchFromRound int

// sessionCmd groups the session metadata commands
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Rename, pin, file, share, branch or delete sessions",
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Set a session's title",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		title := strings.TrimSpace(strings.Join(args[1:], " "))
		if title == "" {
			return fmt.Errorf("title cannot be empty")
		}
		if err := a.ctrl.RenameSession(cmd.Context(), args[0], title); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Renamed %s to %q", shortID(args[0]), title))
		return nil
	}),
}

var sessionPinCmd = &cobra.Command{
	Use:   "pin <session-id>",
	Short: "Pin a session to the top of the list",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		return setPinned(cmd, a, args[0], true)
	}),
}

var sessionUnpinCmd = &cobra.Command{
	Use:   "unpin <session-id>",
	Short: "Unpin a session",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		return setPinned(cmd, a, args[0], false)
	}),
}

func setPinned(cmd *cobra.Command, a *app, id string, pinned bool) error {
	if err := a.ctrl.Catalog().SetPinned(cmd.Context(), id, pinned); err != nil {
		return err
	}
	if pinned {
		internal.PrintSuccess(fmt.Sprintf("Pinned %s", shortID(id)))
	} else {
		internal.PrintSuccess(fmt.Sprintf("Unpinned %s", shortID(id)))
	}
	return nil
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if err := a.ctrl.DeleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		a.uncache(args[0])
		internal.PrintSuccess(fmt.Sprintf("Deleted %s", shortID(args[0])))
		return nil
	}),
}

var sessionMoveCmd = &cobra.Command{
	Use:   "move <session-id> [folder]",
	Short: "File a session under a folder, or remove it from its folder",
	Long: `File a session under a folder given by id or name. Without a folder the
session is taken out of whatever folder holds it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		if len(args) == 1 {
			if err := a.ctrl.MoveSessionToFolder(ctx, args[0], ""); err != nil {
				return err
			}
			internal.PrintSuccess(fmt.Sprintf("Removed %s from its folder", shortID(args[0])))
			return nil
		}

		folder, err := resolveFolder(cmd, a, args[1])
		if err != nil {
			return err
		}
		if err := a.ctrl.MoveSessionToFolder(ctx, args[0], folder.ID); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Moved %s to %s", shortID(args[0]), folder.Name))
		return nil
	}),
}

var sessionShareCmd = &cobra.Command{
	Use:   "share <session-id>",
	Short: "Make a session publicly viewable and print its share token",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		info, err := a.ctrl.ShareSession(cmd.Context(), args[0])
		if info == nil {
			return err
		}
		if err != nil {
			internal.LogWarn("Shared, but the session list could not be refreshed: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.ShareToken)
		internal.PrintInfo(fmt.Sprintf("View it with `council shared %s`", info.ShareToken))
		return nil
	}),
}

var sessionUnshareCmd = &cobra.Command{
	Use:   "unshare <session-id>",
	Short: "Revoke a session's share token",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if err := a.ctrl.UnshareSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Stopped sharing %s", shortID(args[0])))
		return nil
	}),
}

var sessionShareInfoCmd = &cobra.Command{
	Use:   "share-info <session-id>",
	Short: "Show whether a session is shared",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		info, err := a.ctrl.Catalog().ShareInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !info.IsShared {
			fmt.Fprintln(cmd.OutOrStdout(), "not shared")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "shared: %s\n", info.ShareToken)
		return nil
	}),
}

var sessionBranchCmd = &cobra.Command{
	Use:   "branch <session-id>",
	Short: "Copy a session into a new one",
	Long: `Copy a session into a new session. With --from-round N only rounds up to
and including N (counting from 0) are copied.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		var fromRound *int
		if cmd.Flags().Changed("from-round") {
			if branchFromRound < 0 {
				return fmt.Errorf("--from-round must not be negative")
			}
			n := branchFromRound
			fromRound = &n
		}
		branch, err := a.ctrl.BranchSession(cmd.Context(), args[0], fromRound)
		if branch == nil {
			return err
		}
		if err != nil {
			internal.LogWarn("Branch %s created but could not be loaded: %v", branch.ID, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), branch.ID)
		return nil
	}),
}

// withApp builds the app around a RunE body and closes it afterwards
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(
		sessionRenameCmd,
		sessionPinCmd,
		sessionUnpinCmd,
		sessionDeleteCmd,
		sessionMoveCmd,
		sessionShareCmd,
		sessionUnshareCmd,
		sessionShareInfoCmd,
		sessionBranchCmd,
	)
	sessionBranchCmd.Flags().IntVar(&branchFromRound, "from-round", 0, "Copy rounds up to and including this index")
}
