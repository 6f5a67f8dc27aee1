package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/iksnae/council-session/internal"
	"github.com/spf13/cobra"
)

// modelsCmd groups the council member selection commands
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Choose which models sit on the council",
	Long: `Show the models the service offers and which of them take part in new
sessions. The selection is saved locally; at least one model always stays
selected.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models and the current selection",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if err := a.ctrl.RefreshModels(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load models: %w", err)
		}
		printModels(cmd, a.ctrl.Models())
		return nil
	}),
}

var modelsToggleCmd = &cobra.Command{
	Use:   "toggle <model-id>",
	Short: "Add a model to the council or remove it",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if err := a.ctrl.RefreshModels(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load models: %w", err)
		}
		sel := a.ctrl.Models()
		changed, err := sel.Toggle(args[0])
		if err != nil {
			return fmt.Errorf("failed to save selection: %w", err)
		}
		if !changed {
			if sel.IsSelected(args[0]) {
				return fmt.Errorf("%s is the only selected model and cannot be removed", args[0])
			}
			return fmt.Errorf("unknown model: %s (see 'council models list')", args[0])
		}
		printModels(cmd, sel)
		return nil
	}),
}

var modelsAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Select every model, or only the chairman when all are selected",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if err := a.ctrl.RefreshModels(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load models: %w", err)
		}
		sel := a.ctrl.Models()
		if err := sel.ToggleAll(); err != nil {
			return fmt.Errorf("failed to save selection: %w", err)
		}
		printModels(cmd, sel)
		return nil
	}),
}

func printModels(cmd *cobra.Command, sel *internal.ModelSelection) {
	out := cmd.OutOrStdout()
	catalog := sel.Catalog()
	if len(catalog) == 0 {
		fmt.Fprintln(out, headerStyle.Render("No models available"))
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, m := range catalog {
		mark := "[ ]"
		if sel.IsSelected(m.ID) {
			mark = countStyle.Render("[x]")
		}
		role := ""
		if m.IsChairman {
			role = folderStyle.Render("chairman")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", mark, m.Name, idStyle.Render(m.ID), role)
	}
	_ = w.Flush()
}

// modeCmd represents the mode command
var modeCmd = &cobra.Command{
	Use:   "mode [formal|chat]",
	Short: "Show or set the mode used for new sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), a.ctrl.Mode())
			return nil
		}
		mode, err := internal.ParseMode(args[0])
		if err != nil {
			return err
		}
		if err := a.ctrl.SetMode(mode); err != nil {
			return fmt.Errorf("failed to save mode: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), mode)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(modeCmd)
	modelsCmd.AddCommand(modelsListCmd, modelsToggleCmd, modelsAllCmd)
}
