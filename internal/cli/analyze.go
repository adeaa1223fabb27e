package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/spf13/cobra"
)

var (
	outJSON       string
	outMD         string
	outXLSX       string
	timeout       time.Duration
	noCache       bool
	noFooter      bool
	noColor       bool
	referenceDate string
	llmProvider   string
	llmModel      string
	httpProxy     string
	httpsProxy    string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <report>",
	Short: "Analyze one credit report and render the results",
	Long: `Analyze reads a credit report from a file or http(s) URL and:
- Resolves each bureau's spelling of every field
- Classifies accounts, inquiries and public records (negative / open / closed)
- Groups the same item reported by several bureaus
- Attaches suggested dispute reasons and instructions
- Optionally tags accounts with AI-detected reporting violations

Example:
  tradeline analyze report.json
  tradeline analyze report.json --json out.json --md out.md --xlsx out.xlsx
  tradeline analyze https://example.com/report.json --llm-provider stub`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().StringVar(&outXLSX, "xlsx", "", "output XLSX worksheet path (optional)")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	analyzeCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors in the terminal summary")

	addAnalysisFlags(analyzeCmd)
}

// addAnalysisFlags registers the flags shared by analyze, batch and dispute
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh AI scan and templates)")
	cmd.Flags().StringVar(&referenceDate, "reference-date", "", "reference date for inquiry recency (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "AI scan provider (openai, anthropic, ollama, remote, stub)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "AI scan model name")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// commandConfig loads the config and applies the flags the user changed
func commandConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	if flags.Changed("no-color") {
		cfg.Output.Color = !noColor
	}
	if flags.Changed("reference-date") {
		cfg.Session.ReferenceDate = referenceDate
	}
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
		applyProviderEnv(cfg)
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintf(os.Stderr, "Store: %s\n", cfg.Store.Backend)
		fmt.Fprintln(os.Stderr)
	}

	analysis, err := a.pipeline.AnalyzeSource(ctx, source)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Normalized %d accounts, %d inquiries, %d public records\n",
			len(analysis.Accounts), len(analysis.Inquiries), len(analysis.PublicRecords))
		if analysis.AI != nil && analysis.AI.Enabled {
			fmt.Fprintf(os.Stderr, "✓ AI scan using %s\n", analysis.AI.Provider)
		}
		fmt.Fprintln(os.Stderr)
	}

	if err := a.pipeline.RenderReport(analysis, outJSON, outMD, outXLSX, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	a.pipeline.Renderer().RenderSummary(os.Stdout, analysis)
	return nil
}
