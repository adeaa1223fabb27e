package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/persist"
	"github.com/ppiankov/tradeline/internal/pipeline"
	"github.com/ppiankov/tradeline/internal/session"
	"github.com/ppiankov/tradeline/internal/worker"
	"github.com/stretchr/testify/require"
)

const fixture = "../pipeline/testdata/report.json"

func fixtureSession(t *testing.T, persister session.Persister) *session.Session {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Session.ReferenceDate = "2026-06-01"

	a, err := pipeline.NewPipeline(cfg, pipeline.Options{}).AnalyzeSource(context.Background(), fixture)
	require.NoError(t, err)
	return session.New(a, session.Options{Persister: persister})
}

func TestDecodeScript(t *testing.T) {
	s, err := DecodeScript(strings.NewReader(`
apply_ai_scan: true
actions:
  - {op: select, id: "inquiry:INQ-1", confirm: true}
  - op: save_all
    category: inquiries
`))
	require.NoError(t, err)
	require.True(t, s.ApplyAIScan)
	require.Len(t, s.Actions, 2)
	require.Equal(t, "inquiry:INQ-1", s.Actions[0].ID)
	require.True(t, s.Actions[0].Confirm)
	require.Equal(t, "inquiries", s.Actions[1].Category)

	_, err = DecodeScript(strings.NewReader("actions:\n  - {op: save, idd: x}\n"))
	require.Error(t, err, "unknown keys must be rejected")

	empty, err := DecodeScript(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, empty.Actions)
}

func TestReplay(t *testing.T) {
	store := persist.NewMemoryBackend()
	queue := worker.NewPersistQueue(store, 2, 0, nil)
	sess := fixtureSession(t, queue)

	script := &Script{Actions: []StepAction{
		{Op: "suggest", ID: "account:TU-1"},
		{Op: "save", ID: "account:TU-1"},
		{Op: "select", ID: "inquiry:INQ-2"},
		{Op: "select", ID: "inquiry:INQ-2", Confirm: true},
		{Op: "reason", ID: "inquiry:INQ-2", Text: "I did not apply for credit with this lender."},
		{Op: "instruction", ID: "inquiry:INQ-2", Text: "Please remove this inquiry."},
		{Op: "save", ID: "inquiry:INQ-2"},
		{Op: "save", ID: "public_record:PR-1"},
		{Op: "suggest", ID: "account:TU-1", Index: 99},
		{Op: "save_all", Category: "bogus"},
		{Op: "fly", ID: "account:TU-1"},
	}}

	steps := Replay(sess, script)
	sess.Close()
	results := queue.Flush()
	require.Len(t, steps, len(script.Actions))

	require.Empty(t, steps[0].Error)
	require.Len(t, steps[1].Outcomes, 1)
	require.True(t, steps[1].Outcomes[0].Result.Saved)
	require.True(t, steps[1].Outcomes[0].SectionCompleted, "the only negative account completes the section")

	require.Contains(t, steps[2].Warning, "more than two years old")
	require.Empty(t, steps[3].Warning)
	require.Empty(t, steps[6].Error)

	require.NotEmpty(t, steps[7].Error, "public record without text cannot be saved")
	require.Contains(t, steps[8].Error, "no suggestion 99")
	require.Contains(t, steps[9].Error, "unknown category")
	require.Contains(t, steps[10].Error, "unknown op")

	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Error)
	}
	stored, err := store.ListDisputes(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)

	d, ok := sess.Persisted("inquiry:INQ-2")
	require.True(t, ok)
	require.Equal(t, model.StatusPending, d.Status)
	require.Equal(t, "OLD LENDER", d.CreditorName)
}

func TestReplay_ApplyAIScan(t *testing.T) {
	sess := fixtureSession(t, nil)
	sess.Analysis().AI = &model.AIScanSummary{
		Enabled:    true,
		Violations: map[string][]string{"account:TU-1": {"Metro 2 Violation: Balance reported on a collection"}},
	}

	steps := Replay(sess, &Script{ApplyAIScan: true, Actions: []StepAction{{Op: "save", ID: "account:TU-1"}}})
	require.Equal(t, "apply_ai_scan", steps[0].Op)
	require.Equal(t, "tagged 1 items", steps[0].Warning)
	require.Empty(t, steps[1].Error, "tags synthesize reason and instruction")

	r, err := sess.Record("account:TU-1")
	require.NoError(t, err)
	require.True(t, r.Saved)
	require.Len(t, r.Tags, 1)
}
