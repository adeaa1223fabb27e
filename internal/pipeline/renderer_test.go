package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/tradeline/internal/model"
	"github.com/xuri/excelize/v2"
)

func analyzedFixture(t *testing.T) *model.Analysis {
	t.Helper()
	a, err := NewPipeline(testConfig(), Options{}).AnalyzeSource(context.Background(), fixture)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestRenderReport_Files(t *testing.T) {
	a := analyzedFixture(t)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "r.json")
	mdPath := filepath.Join(dir, "r.md")
	xlsxPath := filepath.Join(dir, "r.xlsx")

	p := NewPipeline(testConfig(), Options{})
	if err := p.RenderReport(a, jsonPath, mdPath, xlsxPath, false); err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.Analysis
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.ReportID != "RPT-1001" || len(decoded.Accounts) != 3 {
		t.Errorf("unexpected decoded analysis: %s %d", decoded.ReportID, len(decoded.Accounts))
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Credit Report Analysis", "## Accounts", "MIDLAND CREDIT MGMT `NEGATIVE`", "collection_flag", "## Public Records"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Accounts")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 account rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[1][0] != "account:TU-1" {
		t.Errorf("unexpected rows: %v", rows[:2])
	}
	summary, err := f.GetRows("Summary")
	if err != nil || len(summary) != 5 {
		t.Errorf("expected summary sheet with 5 rows, got %d (%v)", len(summary), err)
	}
}

func TestMarkdown_Footer(t *testing.T) {
	a := analyzedFixture(t)
	if !strings.Contains(NewRenderer(true, false).Markdown(a), "---") {
		t.Error("expected footer")
	}
	if strings.Contains(NewRenderer(false, false).Markdown(a), "AI violation tags only") {
		t.Error("footer should be omitted")
	}
}

func TestRenderSummary(t *testing.T) {
	a := analyzedFixture(t)
	a.AI = &model.AIScanSummary{Enabled: true, Provider: "stub", Warnings: []string{"Tokens used: 10"}}

	var buf bytes.Buffer
	NewRenderer(false, false).RenderSummary(&buf, a)
	out := buf.String()
	for _, want := range []string{"RPT-1001", "Negative items", "MIDLAND CREDIT MGMT", "Bankruptcy", "AI scan", "Tokens used: 10"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "CHASE BANK") {
		t.Error("positive accounts are not listed as negative items")
	}
}

func TestRenderSections(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(false, false).RenderSections(&buf, []model.SectionState{
		{Category: model.CategoryAccounts, CompletedCount: 1, TotalDisputable: 2, Pending: []string{"account:2"}},
		{Category: model.CategoryInquiries, Clean: true},
		{Category: model.CategoryPublicRecords, CompletedCount: 1, TotalDisputable: 1, AllSaved: true},
	})
	out := buf.String()
	for _, want := range []string{"1/2 saved", "pending", "- account:2", "clean", "complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("sections missing %q:\n%s", want, out)
		}
	}
}
