package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/council-session/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckVerbose bool
	healthcheckTimeout time.Duration
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the council service and local state are usable",
	Long: `Check the health of the client by verifying:
  • Local state directory
  • Preferences database
  • Council service reachability
  • Model catalog availability
  • Offline cache

This command is useful for debugging connection problems.`,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		out := cmd.OutOrStdout()
		ctx, cancel := context.WithTimeout(cmd.Context(), healthcheckTimeout)
		defer cancel()

		fmt.Fprintln(out, sectionStyle.Render("🔍 Council Health Check"))
		fmt.Fprintln(out)

		// Step 1
		fmt.Fprintln(out, infoStyle.Render("Step 1: Checking local state..."))
		fmt.Fprintln(out, successStyle.Render("✅ State directory ready"))
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Base path: %s\n", a.paths.BasePath)
			fmt.Fprintf(out, "   Cache: %s\n", a.paths.CacheDir)
		}
		fmt.Fprintln(out)

		// Step 2
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking preferences database..."))
		prefsOK := true
		pairs, err := a.prefs.List("")
		if err != nil {
			prefsOK = false
			fmt.Fprintln(out, errorStyle.Render("❌ Preferences unreadable:"), err)
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Preferences readable (%d stored)", len(pairs))))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   Database: %s\n", a.prefs.Path())
			}
		}
		fmt.Fprintln(out)

		// Step 3
		fmt.Fprintln(out, infoStyle.Render("Step 3: Contacting the council service..."))
		serviceOK := true
		health, err := a.client.Health(ctx)
		if err != nil {
			serviceOK = false
			fmt.Fprintln(out, errorStyle.Render("❌ Service unreachable:"), internal.UserMessage(err))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   URL: %s\n", a.client.BaseURL())
				fmt.Fprintf(out, "   Error: %v\n", err)
			}
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Service is %s", health.Status)))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   URL: %s\n", a.client.BaseURL())
				if health.Service != "" {
					fmt.Fprintf(out, "   Service: %s\n", health.Service)
				}
			}
		}
		fmt.Fprintln(out)

		// Step 4
		fmt.Fprintln(out, infoStyle.Render("Step 4: Loading the model catalog..."))
		modelCount := 0
		if !serviceOK {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Skipped, service unreachable"))
		} else if models, err := a.client.ListModels(ctx); err != nil {
			serviceOK = false
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to load models:"), internal.UserMessage(err))
		} else {
			modelCount = len(models)
			if modelCount == 0 {
				fmt.Fprintln(out, warningStyle.Render("⚠️  The service offers no models"))
			} else {
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d model(s)", modelCount)))
			}
			if healthcheckVerbose {
				printModelNames(out, models)
			}
		}
		fmt.Fprintln(out)

		// Step 5
		fmt.Fprintln(out, infoStyle.Render("Step 5: Checking offline cache..."))
		cached := 0
		if a.paths.HasCache() {
			index, err := a.cache.LoadIndex()
			if err != nil {
				fmt.Fprintln(out, warningStyle.Render("⚠️  Cache index unreadable:"), err)
			} else {
				cached = len(index.Sessions)
				valid, _ := a.cache.IsCacheValid(a.client.BaseURL())
				if valid {
					fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %d session(s) cached", cached)))
				} else {
					fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  %d session(s) cached for a different server", cached)))
				}
			}
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No sessions cached yet"))
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)

		if serviceOK && prefsOK {
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Models: %d available", modelCount)))
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Cache: %d session(s)", cached)))
			return nil
		}

		fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
		if !serviceOK {
			fmt.Fprintf(out, "   • Cannot use the council service at %s\n", a.client.BaseURL())
			fmt.Fprintln(out, "   • Set --server, COUNCIL_SERVER_URL or server.url in the config file")
		}
		if !prefsOK {
			fmt.Fprintln(out, "   • Local preferences cannot be read")
		}
		return fmt.Errorf("health check failed")
	}),
}

func printModelNames(out io.Writer, models []internal.Model) {
	for i, m := range models {
		if i == 5 {
			fmt.Fprintf(out, "   ... and %d more\n", len(models)-5)
			return
		}
		role := ""
		if m.IsChairman {
			role = " (chairman)"
		}
		fmt.Fprintf(out, "   [%d] %s%s\n", i+1, m.Name, role)
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
	healthcheckCmd.Flags().DurationVar(&healthcheckTimeout, "timeout", 10*time.Second, "How long to wait for the service")
}
