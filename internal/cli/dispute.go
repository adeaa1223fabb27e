package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/tradeline/internal/dispute"
	"github.com/ppiankov/tradeline/internal/session"
	"github.com/ppiankov/tradeline/internal/worker"
	"github.com/spf13/cobra"
)

var (
	actionsFile string
	disputeOut  string
)

// disputeCmd represents the dispute command
var disputeCmd = &cobra.Command{
	Use:   "dispute <report>",
	Short: "Replay dispute actions over a report and persist the saved disputes",
	Long: `Dispute analyzes a report, opens a dispute session over it and replays a
YAML script of user actions: selecting items, writing or suggesting reasons
and instructions, adding violation tags and saving.

Saved disputes are sent to the configured store in the background. The
section completion state is printed at the end.

Example actions file:
  apply_ai_scan: true
  actions:
    - {op: suggest, id: "account:TU-1"}
    - {op: save, id: "account:TU-1"}
    - {op: select, id: "inquiry:INQ-2", confirm: true}
    - {op: save_all, category: inquiries}

Example:
  tradeline dispute report.json --actions actions.yaml
  tradeline dispute report.json --actions actions.yaml --out session.json`,
	Args: cobra.ExactArgs(1),
	RunE: runDispute,
}

func init() {
	rootCmd.AddCommand(disputeCmd)

	disputeCmd.Flags().StringVar(&actionsFile, "actions", "", "YAML file of dispute actions (required)")
	disputeCmd.Flags().StringVar(&disputeOut, "out", "", "write step results and records as JSON (optional)")
	_ = disputeCmd.MarkFlagRequired("actions")

	addAnalysisFlags(disputeCmd)
}

// disputeSummary is the --out document
type disputeSummary struct {
	SessionID string                   `json:"session_id"`
	Source    string                   `json:"source"`
	Steps     []StepResult             `json:"steps"`
	Records   []dispute.Record         `json:"records"`
	Failures  []session.PersistFailure `json:"persist_failures,omitempty"`
}

func runDispute(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	script, err := ReadScript(actionsFile)
	if err != nil {
		return err
	}

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	analysis, err := a.pipeline.AnalyzeSource(ctx, source)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	queue := worker.NewPersistQueue(a.backend, cfg.Concurrency.PersistWorkers, cfg.HTTP.Timeout, a.logger)
	sess := session.New(analysis, session.Options{
		ReferenceDate:  analysis.ReferenceDate,
		TypingInterval: cfg.Session.TypingInterval,
		Persister:      queue,
		Logger:         a.logger,
	})

	steps := Replay(sess, script)
	sess.Close()
	persisted := queue.Flush()

	for _, st := range steps {
		switch {
		case st.Error != "":
			fmt.Fprintf(os.Stderr, "✗ %d %s %s: %s\n", st.Step, st.Op, st.ID, st.Error)
		case st.Warning != "":
			fmt.Fprintf(os.Stderr, "! %d %s %s: %s\n", st.Step, st.Op, st.ID, st.Warning)
		case cfg.Output.Verbose:
			fmt.Fprintf(os.Stderr, "✓ %d %s %s\n", st.Step, st.Op, st.ID)
		}
		for _, out := range st.Outcomes {
			if out.SectionCompleted {
				fmt.Fprintf(os.Stderr, "✓ Section %s complete\n", out.Section.Category)
			}
		}
	}

	fmt.Println()
	a.pipeline.Renderer().RenderSections(os.Stdout, sess.Sections())
	stored := 0
	for _, r := range persisted {
		if r.Error == nil {
			stored++
		}
	}
	fmt.Printf("\nPersisted %d disputes to %s store", stored, cfg.Store.Backend)
	if n := len(sess.Failures()); n > 0 {
		fmt.Printf(" (%d failed)", n)
	}
	fmt.Println()

	if disputeOut != "" {
		data, err := json.MarshalIndent(disputeSummary{
			SessionID: sess.ID,
			Source:    source,
			Steps:     steps,
			Records:   sess.Records(),
			Failures:  sess.Failures(),
		}, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(disputeOut, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", disputeOut, err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote session: %s\n", disputeOut)
		}
	}
	return nil
}
