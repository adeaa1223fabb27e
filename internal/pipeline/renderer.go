package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/tradeline/internal/model"
	"github.com/xuri/excelize/v2"
)

// Renderer writes analyses as JSON, Markdown, XLSX and a terminal summary
type Renderer struct {
	includeFooter bool
	styles        styles
}

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	negative lipgloss.Style
	closed   lipgloss.Style
	open     lipgloss.Style
	muted    lipgloss.Style
	box      lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{
			title:    plain.Bold(true),
			label:    plain,
			negative: plain,
			closed:   plain,
			open:     plain,
			muted:    plain,
			box:      plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		}
	}
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		label:    lipgloss.NewStyle().Bold(true),
		negative: lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		closed:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9e9e9e")),
		open:     lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		muted:    lipgloss.NewStyle().Faint(true),
		box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a3850")).Padding(0, 1),
	}
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter, color bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, styles: newStyles(color)}
}

// RenderJSON writes the analysis as indented JSON
func (r *Renderer) RenderJSON(a *model.Analysis, path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes the analysis as Markdown
func (r *Renderer) RenderMarkdown(a *model.Analysis, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(a)), 0o644)
}

// sectionTitles are the human titles of each category
var sectionTitles = map[model.Category]string{
	model.CategoryPersonalInfo:  "Personal Information",
	model.CategoryAccounts:      "Accounts",
	model.CategoryInquiries:     "Inquiries",
	model.CategoryPublicRecords: "Public Records",
}

// Markdown renders the analysis as a Markdown document
func (r *Renderer) Markdown(a *model.Analysis) string {
	var b strings.Builder

	b.WriteString("# Credit Report Analysis\n\n")
	fmt.Fprintf(&b, "- **Source:** %s\n", a.Source)
	if a.ReportID != "" {
		fmt.Fprintf(&b, "- **Report ID:** %s\n", a.ReportID)
	}
	fmt.Fprintf(&b, "- **Reference date:** %s\n", a.ReferenceDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "- **Analyzed:** %s\n\n", a.AnalyzedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Section | Items | Negative | Closed |\n|---|---:|---:|---:|\n")
	for _, c := range model.Categories {
		total, negative, closed := counts(a.Section(c))
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", sectionTitles[c], total, negative, closed)
	}
	b.WriteString("\n")

	for _, c := range model.Categories {
		views := a.Section(c)
		if len(views) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sectionTitles[c])
		for _, gv := range views {
			writeGroupMarkdown(&b, gv)
		}
	}

	if a.AI != nil {
		b.WriteString("## AI Violation Scan\n\n")
		fmt.Fprintf(&b, "Provider: %s", a.AI.Provider)
		if a.AI.Model != "" {
			fmt.Fprintf(&b, " (%s)", a.AI.Model)
		}
		b.WriteString("\n\n")
		for _, w := range a.AI.Warnings {
			fmt.Fprintf(&b, "> %s\n", w)
		}
		if len(a.AI.Warnings) > 0 {
			b.WriteString("\n")
		}
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Classification uses only the data in the report. AI violation tags only ever feed dispute text._\n")
	}
	return b.String()
}

func writeGroupMarkdown(b *strings.Builder, gv model.GroupView) {
	p := gv.Group.Primary()
	fmt.Fprintf(b, "### %s %s\n\n", p.Title(), badge(gv.Group))
	fmt.Fprintf(b, "- **ID:** `%s`\n", gv.Group.ID)
	fmt.Fprintf(b, "- **Bureaus:** %s\n", bureauList(gv.Group.Bureaus))

	switch gv.Group.Kind {
	case model.KindAccount:
		b.WriteString("\n| Bureau | Account | Status | Balance | Past Due | Rating |\n|---|---|---|---:|---:|---|\n")
		for _, m := range gv.Group.Members {
			fmt.Fprintf(b, "| %s | %s | %s | %.2f | %.2f | %s |\n",
				m.Bureau, dash(m.AccountNumber), dash(m.Status), m.Balance, m.PastDue, dash(m.CurrentRating))
		}
		b.WriteString("\n")
	case model.KindInquiry:
		if !p.Date.IsZero() {
			fmt.Fprintf(b, "- **Date:** %s\n", p.Date.Format("2006-01-02"))
		}
	case model.KindPublicRecord:
		fmt.Fprintf(b, "- **Case:** %s\n", dash(p.CaseNumber))
	}

	if fired := firedChecks(gv); len(fired) > 0 {
		fmt.Fprintf(b, "- **Signals:** %s\n", strings.Join(fired, ", "))
	}
	if len(gv.Suggestions) > 0 {
		s := gv.Suggestions[0]
		fmt.Fprintf(b, "- **Suggested reason:** %s\n", s.Reason)
		fmt.Fprintf(b, "- **Suggested instruction:** %s\n", s.Instruction)
	}
	for _, v := range gv.Violations {
		fmt.Fprintf(b, "- ⚠ %s\n", v)
	}
	b.WriteString("\n")
}

// RenderXLSX writes one worksheet per non-empty section plus a summary sheet
func (r *Renderer) RenderXLSX(a *model.Analysis, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(summary, "A1", &[]any{"Section", "Items", "Negative", "Closed"}); err != nil {
		return err
	}
	row := 2
	for _, c := range model.Categories {
		total, negative, closed := counts(a.Section(c))
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summary, cell, &[]any{sectionTitles[c], total, negative, closed}); err != nil {
			return err
		}
		row++
	}
	_ = f.SetCellStyle(summary, "A1", "D1", header)
	_ = f.SetColWidth(summary, "A", "A", 24)

	columns := []any{"ID", "Title", "Bureaus", "Negative", "Closed", "Category", "Balance", "Past Due", "Status", "Suggested Reason", "Violations"}
	for _, c := range model.Categories {
		views := a.Section(c)
		if len(views) == 0 {
			continue
		}
		sheet := sectionTitles[c]
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
			return err
		}
		for i, gv := range views {
			p := gv.Group.Primary()
			var reason string
			if len(gv.Suggestions) > 0 {
				reason = gv.Suggestions[0].Reason
			}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			values := []any{
				gv.Group.ID, p.Title(), bureauList(gv.Group.Bureaus),
				gv.Group.Negative, gv.Group.Closed, string(gv.Category),
				p.Balance, p.PastDue, p.Status, reason, strings.Join(gv.Violations, "; "),
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return err
			}
		}
		_ = f.SetCellStyle(sheet, "A1", "K1", header)
		_ = f.SetColWidth(sheet, "A", "B", 28)
		_ = f.SetColWidth(sheet, "J", "K", 48)
	}

	return f.SaveAs(path)
}

// RenderSummary prints a styled overview of the analysis
func (r *Renderer) RenderSummary(w io.Writer, a *model.Analysis) {
	s := r.styles
	var lines []string
	lines = append(lines, s.title.Render("Credit Report: "+a.Source))
	if a.ReportID != "" {
		lines = append(lines, s.muted.Render("Report "+a.ReportID))
	}
	lines = append(lines, "")

	for _, c := range model.Categories {
		total, negative, closed := counts(a.Section(c))
		lines = append(lines, fmt.Sprintf("%s %s  %s  %s",
			s.label.Render(fmt.Sprintf("%-22s", sectionTitles[c])),
			fmt.Sprintf("%3d items", total),
			s.negative.Render(fmt.Sprintf("%3d negative", negative)),
			s.closed.Render(fmt.Sprintf("%3d closed", closed))))
	}

	var negatives []model.GroupView
	for _, c := range []model.Category{model.CategoryAccounts, model.CategoryPublicRecords} {
		for _, gv := range a.Section(c) {
			if gv.Group.Negative {
				negatives = append(negatives, gv)
			}
		}
	}
	if len(negatives) > 0 {
		lines = append(lines, "", s.label.Render("Negative items"))
		for i, gv := range negatives {
			if i == 10 {
				lines = append(lines, s.muted.Render(fmt.Sprintf("  ... and %d more", len(negatives)-10)))
				break
			}
			line := fmt.Sprintf("  %s %s", s.negative.Render("●"), gv.Group.Primary().Title())
			line += s.muted.Render(" [" + bureauList(gv.Group.Bureaus) + "]")
			if len(gv.Violations) > 0 {
				line += s.negative.Render(fmt.Sprintf(" %d AI tags", len(gv.Violations)))
			}
			lines = append(lines, line)
		}
	}

	if a.AI != nil {
		lines = append(lines, "", s.label.Render("AI scan: ")+a.AI.Provider)
		for _, warn := range a.AI.Warnings {
			lines = append(lines, s.muted.Render("  "+warn))
		}
	}

	fmt.Fprintln(w, s.box.Render(strings.Join(lines, "\n")))
}

// RenderSections prints the completion state of each section
func (r *Renderer) RenderSections(w io.Writer, states []model.SectionState) {
	s := r.styles
	for _, st := range states {
		var state string
		switch {
		case st.Clean:
			state = s.open.Render("clean")
		case st.AllSaved:
			state = s.title.Render("complete")
		default:
			state = s.negative.Render("pending")
		}
		fmt.Fprintf(w, "%s %d/%d saved  %s\n",
			s.label.Render(fmt.Sprintf("%-22s", sectionTitles[st.Category])),
			st.CompletedCount, st.TotalDisputable, state)
		for _, id := range st.Pending {
			fmt.Fprintf(w, "  %s\n", s.muted.Render("- "+id))
		}
	}
}

func counts(views []model.GroupView) (total, negative, closed int) {
	for _, gv := range views {
		total++
		if gv.Group.Negative {
			negative++
		}
		if gv.Group.Closed {
			closed++
		}
	}
	return total, negative, closed
}

func badge(g model.Group) string {
	switch {
	case g.Kind == model.KindPersonalInfo:
		return ""
	case g.Negative && g.Closed:
		return "`NEGATIVE` `CLOSED`"
	case g.Negative:
		return "`NEGATIVE`"
	case g.Closed:
		return "`CLOSED`"
	default:
		return "`OPEN`"
	}
}

func firedChecks(gv model.GroupView) []string {
	seen := make(map[model.CheckName]bool)
	var out []string
	for _, m := range gv.Group.Members {
		for _, c := range gv.Classification[m.Bureau].Checks {
			if c.Fired && !seen[c.Name] {
				seen[c.Name] = true
				out = append(out, string(c.Name))
			}
		}
	}
	return out
}

func bureauList(bureaus []model.Bureau) string {
	parts := make([]string, 0, len(bureaus))
	for _, b := range bureaus {
		parts = append(parts, string(b))
	}
	return strings.Join(parts, ", ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
