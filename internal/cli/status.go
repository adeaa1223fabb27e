package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ppiankov/tradeline/internal/persist"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <dispute-id> <status>",
	Short: "Update the status of a persisted dispute",
	Long: `Status moves a stored dispute to pending, sent, resolved or rejected.

Example:
  tradeline status 3f1c... sent`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, status := args[0], args[1]
		if err := persist.ValidateStatus(status); err != nil {
			return err
		}

		a, err := storeApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		d, err := a.backend.UpdateStatus(ctx, id, status)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		fmt.Printf("✓ %s (%s) is now %s\n", d.ID, d.CreditorName, d.Status)
		return nil
	},
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted disputes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := storeApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		disputes, err := a.backend.ListDisputes(ctx)
		if err != nil {
			return fmt.Errorf("list disputes: %w", err)
		}
		if len(disputes) == 0 {
			fmt.Fprintln(os.Stderr, "No disputes stored")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "ITEM", "CREDITOR", "STATUS", "CREATED")
		for _, d := range disputes {
			t.Row(d.ID, d.AccountID, d.CreditorName, d.Status, d.CreatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Println(t.Render())
		return nil
	},
}

// storeApp wires only the store, for commands that never analyze a report
func storeApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.LLM.Provider = ""
	return newApp(cfg)
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
}
