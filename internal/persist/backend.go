// Package persist stores saved disputes and custom templates.
//
// Three backends share one interface: the HTTP client for the remote
// persistence API, an in-memory store and a SQLite store.
package persist

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ppiankov/tradeline/internal/model"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a dispute id does not exist
	ErrNotFound = errors.New("dispute not found")
	// ErrInvalidTemplate is returned for templates with an unknown type or category, or no content
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrInvalidStatus is returned for unknown dispute statuses
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidDispute is returned when a dispute lacks an account id or reason
	ErrInvalidDispute = errors.New("invalid dispute")
)

// Backend is the persistence and template collaborator
type Backend interface {
	CreateDispute(ctx context.Context, d model.NewDispute) (*model.Dispute, error)
	UpdateStatus(ctx context.Context, id, status string) (*model.Dispute, error)
	ListDisputes(ctx context.Context) ([]model.Dispute, error)
	Templates(ctx context.Context, typ, category string) ([]model.Template, error)
	CreateTemplate(ctx context.Context, t model.Template) (*model.Template, error)
	Close() error
}

// Statuses lists the accepted dispute statuses
var Statuses = []string{model.StatusPending, model.StatusSent, model.StatusResolved, model.StatusRejected}

// ValidateStatus rejects statuses outside Statuses
func ValidateStatus(status string) error {
	if !slices.Contains(Statuses, status) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrInvalidStatus, status, strings.Join(Statuses, ", "))
	}
	return nil
}

// ValidateTemplateKey checks a template type and category
func ValidateTemplateKey(typ, category string) error {
	if !slices.Contains(model.TemplateTypes, typ) {
		return fmt.Errorf("%w: type %q", ErrInvalidTemplate, typ)
	}
	if !slices.Contains(model.TemplateCategories, category) {
		return fmt.Errorf("%w: category %q", ErrInvalidTemplate, category)
	}
	return nil
}

// ValidateTemplate checks the key and requires non-blank content
func ValidateTemplate(t model.Template) error {
	if err := ValidateTemplateKey(t.Type, t.Category); err != nil {
		return err
	}
	if strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidTemplate)
	}
	return nil
}

// ValidateDispute requires an account id and a dispute reason
func ValidateDispute(d model.NewDispute) error {
	if strings.TrimSpace(d.AccountID) == "" {
		return fmt.Errorf("%w: missing accountId", ErrInvalidDispute)
	}
	if strings.TrimSpace(d.DisputeReason) == "" {
		return fmt.Errorf("%w: missing disputeReason", ErrInvalidDispute)
	}
	return nil
}

// New builds the backend selected by cfg.Store.Backend
func New(cfg *model.Config, limiter RateLimiter, logger *zap.Logger) (Backend, error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = filepath.Join(model.HomeDir(), "tradeline.db")
		}
		return NewSQLiteBackend(path)
	case "http":
		if cfg.Store.BaseURL == "" {
			return nil, fmt.Errorf("store.base_url is required for the http backend")
		}
		return NewClient(cfg.Store.BaseURL, cfg.HTTP, limiter, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: memory, sqlite, http)", cfg.Store.Backend)
	}
}
