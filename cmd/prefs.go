package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/iksnae/council-session/internal"
	"github.com/spf13/cobra"
)

var (
	prefsFormat string
	prefsSchema bool
	prefsUnset  string
)

// prefsCmd represents the prefs command
var prefsCmd = &cobra.Command{
	Use:   "prefs [prefix]",
	Short: "Inspect the local preferences database",
	Long: `Show what the client keeps locally: the default mode, the selected
models, and sidebar and folder collapse state.

Examples:
  council prefs                       # All preferences
  council prefs folder_collapsed:     # Only keys with this prefix
  council prefs --format json
  council prefs --schema              # Table layout of the database
  council prefs --unset mode          # Forget one preference`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		out := cmd.OutOrStdout()

		if prefsUnset != "" {
			if err := a.prefs.Remove(prefsUnset); err != nil {
				return err
			}
			internal.PrintSuccess(fmt.Sprintf("Removed %s", prefsUnset))
			return nil
		}

		if prefsSchema {
			return inspectDatabase(out, a.prefs.Path())
		}

		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		pairs, err := a.prefs.List(prefix)
		if err != nil {
			return fmt.Errorf("failed to read preferences: %w", err)
		}

		switch prefsFormat {
		case "json":
			values := make(map[string]string, len(pairs))
			for _, p := range pairs {
				values[p.Key] = p.Value
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(values)
		case "text", "":
		default:
			return fmt.Errorf("unsupported format: %s (supported: text, json)", prefsFormat)
		}

		if len(pairs) == 0 {
			fmt.Fprintln(out, headerStyle.Render("No preferences stored"))
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		for _, p := range pairs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t\n", titleStyle.Render(p.Key), p.Value)
		}
		return w.Flush()
	}),
}

func inspectDatabase(out io.Writer, dbPath string) error {
	db, err := internal.OpenDatabaseReadOnly(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := getTables(db)
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}

	fmt.Fprintf(out, "📋 Database: %s\n", dbPath)
	fmt.Fprintf(out, "📊 Found %d table(s)\n\n", len(tables))

	for _, tableName := range tables {
		var rowCount int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", tableName)).Scan(&rowCount); err != nil {
			fmt.Fprintf(out, "⚠️  Error inspecting table %s: %v\n", tableName, err)
			continue
		}
		columns, err := getTableSchema(db, tableName)
		if err != nil {
			fmt.Fprintf(out, "⚠️  Error inspecting table %s: %v\n", tableName, err)
			continue
		}

		fmt.Fprintf(out, "📦 Table: %s (%d rows)\n", tableName, rowCount)
		for _, col := range columns {
			pk := ""
			if col.PrimaryKey {
				pk = " [PRIMARY KEY]"
			}
			notNull := ""
			if col.NotNull {
				notNull = " NOT NULL"
			}
			fmt.Fprintf(out, "  • %s: %s%s%s\n", col.Name, col.Type, notNull, pk)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func getTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

type columnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

func getTableSchema(db *sql.DB, tableName string) ([]columnInfo, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []columnInfo
	for rows.Next() {
		var col columnInfo
		var cid, notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			continue
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk == 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.Flags().StringVar(&prefsFormat, "format", "text", "Output format (text, json)")
	prefsCmd.Flags().BoolVar(&prefsSchema, "schema", false, "Show the database tables instead of the values")
	prefsCmd.Flags().StringVar(&prefsUnset, "unset", "", "Remove one preference by key")
}
