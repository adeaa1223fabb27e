// Package pipeline loads credit reports and turns them into analyses:
// normalized, classified, correlated and annotated with guidance.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/tradeline/internal/cache"
	"github.com/ppiankov/tradeline/internal/classify"
	"github.com/ppiankov/tradeline/internal/correlate"
	"github.com/ppiankov/tradeline/internal/extract"
	"github.com/ppiankov/tradeline/internal/llm"
	"github.com/ppiankov/tradeline/internal/logging"
	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/suggest"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TemplateSource lists custom templates by type and category
type TemplateSource interface {
	Templates(ctx context.Context, typ, category string) ([]model.Template, error)
}

// Pipeline orchestrates report loading and analysis
type Pipeline struct {
	loader     *Loader
	normalizer *extract.Normalizer
	classifier *classify.Classifier
	correlator *correlate.Correlator
	renderer   *Renderer
	templates  TemplateSource // Optional (nil skips custom templates)
	scanner    *llm.Scanner   // Optional AI scan (nil if disabled)
	cache      cache.Cache
	config     *model.Config
	logger     *zap.Logger
	now        func() time.Time
}

// Options carries the optional collaborators of a pipeline
type Options struct {
	Templates TemplateSource
	Scanner   *llm.Scanner
	Cache     cache.Cache
	Logger    *zap.Logger
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts Options) *Pipeline {
	c := opts.Cache
	if c == nil {
		c = cache.Nop{}
	}
	return &Pipeline{
		loader:     NewLoader(cfg.HTTP),
		normalizer: extract.NewNormalizer(),
		classifier: classify.NewClassifier(),
		correlator: correlate.NewCorrelator(),
		renderer:   NewRenderer(cfg.Output.IncludeFooter, cfg.Output.Color),
		templates:  opts.Templates,
		scanner:    opts.Scanner,
		cache:      c,
		config:     cfg,
		logger:     logging.OrNop(opts.Logger),
		now:        time.Now,
	}
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// AnalyzeSource loads a report from a path or URL and analyzes it
func (p *Pipeline) AnalyzeSource(ctx context.Context, source string) (*model.Analysis, error) {
	loaded, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, loaded.Document, loaded.Raw, source)
}

// Analyze turns a parsed report into an analysis. raw is the original
// document, used only as the AI scan payload and cache key; it may be nil.
func (p *Pipeline) Analyze(ctx context.Context, doc *model.Document, raw []byte, source string) (*model.Analysis, error) {
	ref, err := p.referenceDate()
	if err != nil {
		return nil, err
	}

	// 1. Normalize raw bureau records
	items := p.normalizer.Normalize(doc)

	// 2. Custom templates (fetched concurrently; failures degrade to built-ins)
	templates := p.loadTemplates(ctx)

	// 3. Correlate and classify each section
	a := &model.Analysis{
		Source:        source,
		AnalyzedAt:    p.now().UTC(),
		ReferenceDate: ref,
		Templates:     templates,
	}
	if doc != nil {
		a.ReportID = doc.Response.ReportID
	}
	a.PersonalInfo = p.views(p.correlator.Correlate(items.PersonalInfo), ref, templates)
	a.Accounts = p.views(p.correlator.Correlate(items.Accounts), ref, templates)
	a.Inquiries = p.views(p.correlator.Correlate(items.Inquiries), ref, templates)
	a.PublicRecords = p.views(p.correlator.Correlate(items.PublicRecords), ref, templates)

	// 4. AI scan if enabled (after classification, never affects it)
	if p.scanner != nil && p.scanner.IsEnabled() {
		a.AI = p.scanner.ScanAnalysis(ctx, a, raw)
		if a.AI != nil {
			for i := range a.Accounts {
				a.Accounts[i].Violations = a.AI.Violations[a.Accounts[i].Group.ID]
			}
		}
	}

	p.logger.Debug("report analyzed",
		zap.String("source", source),
		zap.Int("accounts", len(a.Accounts)),
		zap.Int("inquiries", len(a.Inquiries)),
		zap.Int("public_records", len(a.PublicRecords)),
		zap.Int("personal_info", len(a.PersonalInfo)))
	return a, nil
}

func (p *Pipeline) referenceDate() (time.Time, error) {
	if s := strings.TrimSpace(p.config.Session.ReferenceDate); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("session.reference_date: %w", err)
		}
		return t, nil
	}
	now := p.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
}

// views classifies every member of every group and attaches guidance.
// Views are ordered negative first, then open, then closed; ties keep
// first-seen order.
func (p *Pipeline) views(groups []model.Group, ref time.Time, templates map[string][]model.Template) []model.GroupView {
	out := make([]model.GroupView, 0, len(groups))
	for _, g := range groups {
		gv := model.GroupView{Classification: make(map[model.Bureau]model.Classification, len(g.Members))}

		closed := len(g.Members) > 0
		for _, m := range g.Members {
			c := p.classifier.Classify(m, ref)
			gv.Classification[m.Bureau] = c
			g.Negative = g.Negative || c.Negative
			closed = closed && c.Closed
		}
		g.Closed = closed
		gv.Group = g

		switch g.Kind {
		case model.KindPersonalInfo:
			if def, ok := suggest.PersonalDefault(g.Primary().Field); ok {
				gv.Suggestions = append(gv.Suggestions, def)
			}
			gv.Suggestions = append(gv.Suggestions, customSuggestions(templates, model.CategoryPersonalInfo)...)
		case model.KindInquiry:
			gv.Category = model.SuggestInquiry
			gv.Suggestions = append(customSuggestions(templates, model.CategoryInquiries), suggest.For(gv.Category)...)
		default:
			gv.Category = suggest.Category(g.Primary(), g.Closed)
			gv.Suggestions = append(customSuggestions(templates, model.CategoryAccounts), suggest.For(gv.Category)...)
		}
		out = append(out, gv)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Group) < rank(out[j].Group)
	})
	return out
}

func rank(g model.Group) int {
	return classify.Priority(model.Classification{Negative: g.Negative, Closed: g.Closed})
}

// TemplateKey is the Analysis.Templates key of a type and category
func TemplateKey(typ, category string) string {
	return typ + "/" + category
}

func customSuggestions(templates map[string][]model.Template, c model.Category) []model.Suggestion {
	return suggest.FromTemplates(
		templates[TemplateKey(model.TemplateReason, string(c))],
		templates[TemplateKey(model.TemplateInstruction, string(c))],
	)
}

// loadTemplates fetches every type/category pair concurrently. A failed
// fetch leaves that pair empty.
func (p *Pipeline) loadTemplates(ctx context.Context) map[string][]model.Template {
	if p.templates == nil {
		return nil
	}

	var mu sync.Mutex
	out := make(map[string][]model.Template)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, typ := range model.TemplateTypes {
		for _, category := range model.TemplateCategories {
			typ, category := typ, category
			g.Go(func() error {
				list := p.templatesFor(gctx, typ, category)
				if len(list) == 0 {
					return nil
				}
				mu.Lock()
				out[TemplateKey(typ, category)] = list
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	if len(out) == 0 {
		return nil
	}
	return out
}

func (p *Pipeline) templatesFor(ctx context.Context, typ, category string) []model.Template {
	key := cache.Key(cache.NamespaceTemplates, typ, category)
	var list []model.Template
	if cache.GetJSON(p.cache, key, &list) {
		return list
	}

	list, err := p.templates.Templates(ctx, typ, category)
	if err != nil {
		p.logger.Warn("templates unavailable",
			zap.String("type", typ),
			zap.String("category", category),
			zap.String("op", "list_templates"),
			zap.Error(err))
		return nil
	}
	if err := cache.SetJSON(p.cache, key, list, 10*time.Minute); err != nil {
		p.logger.Debug("template cache write failed", zap.Error(err))
	}
	return list
}

// RenderReport renders the analysis to the requested outputs
func (p *Pipeline) RenderReport(a *model.Analysis, jsonPath, mdPath, xlsxPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(a, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(a, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	if xlsxPath != "" {
		if err := p.renderer.RenderXLSX(a, xlsxPath); err != nil {
			return fmt.Errorf("render xlsx: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote XLSX: %s\n", xlsxPath)
		}
	}

	return nil
}
