package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/persist"
	"github.com/spf13/cobra"
)

var (
	templateType     string
	templateCategory string
	templateTitle    string
)

// templateCmd represents the template command
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage custom reason and instruction templates",
	Long: `Custom templates are offered before the built-in suggestions when a
report is analyzed.

Types: reason, instruction
Categories: personal_info, accounts, inquiries`,
}

var templateAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Store a custom template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := model.Template{Type: templateType, Category: templateCategory, Title: templateTitle, Content: args[0]}
		if err := persist.ValidateTemplate(t); err != nil {
			return err
		}

		a, err := storeApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		created, err := a.backend.CreateTemplate(ctx, t)
		if err != nil {
			return fmt.Errorf("create template: %w", err)
		}
		fmt.Printf("✓ Created %s template %s for %s\n", created.Type, created.ID, created.Category)
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom templates of a type and category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := persist.ValidateTemplateKey(templateType, templateCategory); err != nil {
			return err
		}

		a, err := storeApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		list, err := a.backend.Templates(ctx, templateType, templateCategory)
		if err != nil {
			return fmt.Errorf("list templates: %w", err)
		}
		for _, t := range list {
			title := t.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s  %s\n    %s\n", t.ID, title, t.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateAddCmd)
	templateCmd.AddCommand(templateListCmd)

	templateCmd.PersistentFlags().StringVar(&templateType, "type", model.TemplateReason, "template type (reason, instruction)")
	templateCmd.PersistentFlags().StringVar(&templateCategory, "category", string(model.CategoryAccounts), "template category (personal_info, accounts, inquiries)")
	templateAddCmd.Flags().StringVar(&templateTitle, "title", "", "short title")
}
