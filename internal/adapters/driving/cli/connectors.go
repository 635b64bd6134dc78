package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

var (
	connectorsJSON    bool
	connectorsService string
)

var connectorsCmd = &cobra.Command{
	Use:     "connectors",
	Aliases: []string{"connector"},
	Short:   "Browse the connector catalog",
	Long: `Lists the connectors of the workspace and the destination tables they
load. The catalog is read from the API on every call.`,
}

var connectorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connectors",
	Args:  cobra.NoArgs,
	RunE:  runConnectorsList,
}

var connectorsShowCmd = &cobra.Command{
	Use:   "show [connector-id]",
	Short: "Show a connector and its tables",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorsShow,
}

func init() {
	connectorsListCmd.Flags().BoolVar(&connectorsJSON, "json", false, "output as JSON")
	connectorsListCmd.Flags().StringVar(&connectorsService, "service", "", "only list connectors of this source type")
	connectorsShowCmd.Flags().BoolVar(&connectorsJSON, "json", false, "output as JSON")
	connectorsCmd.AddCommand(connectorsListCmd)
	connectorsCmd.AddCommand(connectorsShowCmd)
	rootCmd.AddCommand(connectorsCmd)
}

func runConnectorsList(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	connectors, err := catalogService.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	filtered := make([]domain.Connector, 0, len(connectors))
	for i := range connectors {
		if connectorsService == "" || connectors[i].Service == connectorsService {
			filtered = append(filtered, connectors[i])
		}
	}

	if connectorsJSON {
		return printJSON(cmd, filtered)
	}

	if len(filtered) == 0 {
		cmd.Println("No connectors found.")
		return nil
	}

	rows := make([][]string, len(filtered))
	for i := range filtered {
		c := &filtered[i]
		rows[i] = []string{c.ID, c.Name, c.Service, string(c.Status), string(c.SyncState), strconv.Itoa(len(c.Tables))}
	}
	cmd.Println(renderTable([]string{"ID", "NAME", "SERVICE", "STATUS", "SYNC STATE", "TABLES"}, rows))
	return nil
}

func runConnectorsShow(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	conn, err := catalogService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get connector: %w", err)
	}

	if connectorsJSON {
		return printJSON(cmd, conn)
	}

	cmd.Printf("Connector: %s\n", conn.ID)
	cmd.Printf("  Name: %s\n", conn.Name)
	cmd.Printf("  Service: %s\n", conn.Service)
	cmd.Printf("  Group: %s\n", conn.GroupID)
	cmd.Printf("  Status: %s\n", conn.Status)
	cmd.Printf("  Sync state: %s\n", conn.SyncState)
	if conn.SyncFrequency > 0 {
		cmd.Printf("  Sync frequency: %d minutes\n", conn.SyncFrequency)
	}
	if !conn.SucceededAt.IsZero() {
		cmd.Printf("  Last success: %s\n", conn.SucceededAt.Format("2006-01-02 15:04:05"))
	}
	if !conn.FailedAt.IsZero() {
		cmd.Printf("  Last failure: %s\n", conn.FailedAt.Format("2006-01-02 15:04:05"))
	}
	cmd.Println()

	if len(conn.Tables) == 0 {
		cmd.Println("No enabled tables.")
		return nil
	}

	rows := make([][]string, len(conn.Tables))
	for i, t := range conn.Tables {
		source := ""
		if t.SourceTable != "" {
			source = t.SourceSchema + "." + t.SourceTable
		}
		rows[i] = []string{t.FQN(), source, strconv.Itoa(len(t.Columns))}
	}
	cmd.Println(renderTable([]string{"TABLE", "SOURCE", "COLUMNS"}, rows))
	return nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderTable renders rows as a borderless table with a bold header.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
