package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/iksnae/council-session/internal"
	"github.com/spf13/cobra"
)

var (
	folderColor    string
	folderPosition int
)

// folderCmd groups the folder commands
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage the folders sessions are filed under",
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders with their session counts",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		catalog := a.ctrl.Catalog()
		if err := catalog.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load folders: %w", err)
		}

		folders := catalog.Folders()
		out := cmd.OutOrStdout()
		if len(folders) == 0 {
			fmt.Fprintln(out, headerStyle.Render("📁 No folders"))
			return nil
		}
		sort.SliceStable(folders, func(i, j int) bool { return folders[i].Position < folders[j].Position })

		counts := make(map[string]int)
		for _, s := range catalog.Sessions() {
			if s.FolderID != nil {
				counts[*s.FolderID]++
			}
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Sessions")+"\t"+titleStyle.Render("State")+"\t")
		for _, f := range folders {
			state := "open"
			if a.ctrl.FolderCollapsed(f.ID) {
				state = "collapsed"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				idStyle.Render(f.ID),
				folderStyle.Render(f.Name),
				countStyle.Render(strconv.Itoa(counts[f.ID])),
				dateStyle.Render(state),
			)
		}
		return w.Flush()
	}),
}

var folderCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a folder",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		name := strings.TrimSpace(strings.Join(args, " "))
		folder, err := a.ctrl.Catalog().CreateFolder(cmd.Context(), name, folderColor)
		if folder == nil {
			return err
		}
		if err != nil {
			internal.LogWarn("Folder created but the folder list could not be refreshed: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), folder.ID)
		return nil
	}),
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename <folder> <name>",
	Short: "Rename, recolor or reorder a folder",
	Long: `Rename a folder given by id or name. --color and --position change its
color and its place in the list.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		folder, err := resolveFolder(cmd, a, args[0])
		if err != nil {
			return err
		}

		var patch internal.FolderPatch
		if len(args) == 2 {
			name := strings.TrimSpace(args[1])
			if name == "" {
				return fmt.Errorf("folder name cannot be empty")
			}
			patch.Name = &name
		}
		if cmd.Flags().Changed("color") {
			patch.Color = &folderColor
		}
		if cmd.Flags().Changed("position") {
			patch.Position = &folderPosition
		}
		if patch.Name == nil && patch.Color == nil && patch.Position == nil {
			return fmt.Errorf("nothing to change: give a new name, --color or --position")
		}

		if err := a.ctrl.Catalog().UpdateFolder(cmd.Context(), folder.ID, patch); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Updated folder %s", folder.Name))
		return nil
	}),
}

var folderDeleteCmd = &cobra.Command{
	Use:   "delete <folder>",
	Short: "Delete a folder; its sessions are kept and unfiled",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		folder, err := resolveFolder(cmd, a, args[0])
		if err != nil {
			return err
		}
		if err := a.ctrl.Catalog().DeleteFolder(cmd.Context(), folder.ID); err != nil {
			return err
		}
		if err := a.prefs.Remove(internal.FolderCollapsedKey(folder.ID)); err != nil {
			internal.LogDebug("Failed to clear collapse state for %s: %v", folder.ID, err)
		}
		internal.PrintSuccess(fmt.Sprintf("Deleted folder %s", folder.Name))
		return nil
	}),
}

var folderCollapseCmd = &cobra.Command{
	Use:   "collapse <folder>",
	Short: "Toggle whether a folder is shown collapsed in the sidebar",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		folder, err := resolveFolder(cmd, a, args[0])
		if err != nil {
			return err
		}
		collapsed, err := a.ctrl.ToggleFolderCollapsed(folder.ID)
		if err != nil {
			return err
		}
		if collapsed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s collapsed\n", folder.Name)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s expanded\n", folder.Name)
		}
		return nil
	}),
}

func resolveFolder(cmd *cobra.Command, a *app, ref string) (internal.Folder, error) {
	if err := a.ctrl.Catalog().RefreshFolders(cmd.Context()); err != nil {
		return internal.Folder{}, fmt.Errorf("failed to load folders: %w", err)
	}
	return a.ctrl.Catalog().ResolveFolder(ref)
}

func init() {
	rootCmd.AddCommand(folderCmd)
	folderCmd.AddCommand(folderListCmd, folderCreateCmd, folderRenameCmd, folderDeleteCmd, folderCollapseCmd)
	folderCreateCmd.Flags().StringVar(&folderColor, "color", "", "Folder color (e.g. #6366f1)")
	folderRenameCmd.Flags().StringVar(&folderColor, "color", "", "New folder color")
	folderRenameCmd.Flags().IntVar(&folderPosition, "position", 0, "New position in the folder list")
}
