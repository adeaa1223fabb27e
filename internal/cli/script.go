package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/session"
	"gopkg.in/yaml.v3"
)

// Script is a recorded sequence of user actions over one report
//
//	apply_ai_scan: true
//	actions:
//	  - {op: select, id: "inquiry:INQ-1", confirm: true}
//	  - {op: suggest, id: "account:TU-1", index: 1}
//	  - {op: reason, id: "inquiry:INQ-1", text: "I did not apply for credit."}
//	  - {op: save_all, category: accounts}
type Script struct {
	ApplyAIScan bool         `yaml:"apply_ai_scan"`
	Actions     []StepAction `yaml:"actions"`
}

// StepAction is one scripted user action
type StepAction struct {
	Op       string `yaml:"op"` // select, deselect, reason, instruction, tag, untag, resynthesize, suggest, save, save_all
	ID       string `yaml:"id,omitempty"`
	Text     string `yaml:"text,omitempty"`
	Confirm  bool   `yaml:"confirm,omitempty"`
	Index    int    `yaml:"index,omitempty"`
	Animate  bool   `yaml:"animate,omitempty"`
	Category string `yaml:"category,omitempty"`
}

// StepResult is the outcome of one scripted action
type StepResult struct {
	Step     int                   `json:"step"`
	Op       string                `json:"op"`
	ID       string                `json:"id,omitempty"`
	Warning  string                `json:"warning,omitempty"`
	Outcomes []session.SaveOutcome `json:"outcomes,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// ReadScript parses a YAML action script
func ReadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open actions: %w", err)
	}
	defer f.Close()
	return DecodeScript(f)
}

// DecodeScript parses a YAML action script from r. Unknown keys are errors.
func DecodeScript(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	return &s, nil
}

// Replay runs a script against a session. A failing step is recorded and
// the replay continues.
func Replay(s *session.Session, script *Script) []StepResult {
	var results []StepResult
	if script.ApplyAIScan && s.Analysis().AI != nil {
		n := s.ApplyAIScan(s.Analysis().AI.Violations)
		results = append(results, StepResult{Step: 0, Op: "apply_ai_scan", Warning: fmt.Sprintf("tagged %d items", n)})
	}

	for i, step := range script.Actions {
		res := StepResult{Step: i + 1, Op: step.Op, ID: step.ID}
		if err := runStep(s, step, &res); err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

func runStep(s *session.Session, step StepAction, res *StepResult) error {
	switch step.Op {
	case "select":
		sel, err := s.Select(step.ID, step.Confirm)
		if err != nil {
			return err
		}
		if sel.Warning != nil {
			res.Warning = sel.Warning.Message()
		}
		return nil
	case "deselect":
		return s.Deselect(step.ID)
	case "reason":
		return s.SetReason(step.ID, step.Text)
	case "instruction":
		return s.SetInstruction(step.ID, step.Text)
	case "tag":
		return s.AddViolation(step.ID, step.Text)
	case "untag":
		return s.RemoveViolation(step.ID, step.Text)
	case "resynthesize":
		return s.ResynthesizeFromTags(step.ID)
	case "suggest":
		gv, ok := s.Analysis().FindGroup(step.ID)
		if !ok {
			return fmt.Errorf("unknown item %q", step.ID)
		}
		if step.Index < 0 || step.Index >= len(gv.Suggestions) {
			return fmt.Errorf("item %s has no suggestion %d", step.ID, step.Index)
		}
		return s.ApplySuggestion(step.ID, gv.Suggestions[step.Index], step.Animate)
	case "save":
		out, err := s.Save(step.ID)
		if err != nil {
			return err
		}
		res.Outcomes = []session.SaveOutcome{out}
		return out.Result.Err()
	case "save_all":
		c := model.Category(step.Category)
		if !slices.Contains(model.Categories, c) {
			return fmt.Errorf("unknown category %q", step.Category)
		}
		outs, err := s.SaveAll(c)
		res.Outcomes = outs
		return err
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}
