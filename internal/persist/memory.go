package persist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/tradeline/internal/model"
)

// MemoryBackend keeps disputes and templates in process memory
type MemoryBackend struct {
	mu        sync.RWMutex
	disputes  map[string]*model.Dispute
	byAccount map[string]string
	order     []string
	templates []model.Template
	now       func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		disputes:  make(map[string]*model.Dispute),
		byAccount: make(map[string]string),
		now:       time.Now,
	}
}

// CreateDispute stores a pending dispute. A dispute already stored for the
// same account is replaced in place: it keeps its id and creation time.
func (m *MemoryBackend) CreateDispute(ctx context.Context, d model.NewDispute) (*model.Dispute, error) {
	if err := ValidateDispute(d); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	if id, ok := m.byAccount[d.AccountID]; ok {
		stored := m.disputes[id]
		stored.CreditorName = d.CreditorName
		stored.DisputeReason = d.DisputeReason
		stored.Instructions = d.Instructions
		stored.Status = model.StatusPending
		stored.UpdatedAt = now

		out := *stored
		return &out, nil
	}

	stored := &model.Dispute{
		ID:            uuid.NewString(),
		AccountID:     d.AccountID,
		CreditorName:  d.CreditorName,
		DisputeReason: d.DisputeReason,
		Instructions:  d.Instructions,
		Status:        model.StatusPending,
		CreatedAt:     now,
	}
	m.disputes[stored.ID] = stored
	m.byAccount[stored.AccountID] = stored.ID
	m.order = append(m.order, stored.ID)

	out := *stored
	return &out, nil
}

// UpdateStatus changes the status of an existing dispute
func (m *MemoryBackend) UpdateStatus(ctx context.Context, id, status string) (*model.Dispute, error) {
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = m.now().UTC()

	out := *d
	return &out, nil
}

// ListDisputes returns all disputes, oldest first
func (m *MemoryBackend) ListDisputes(ctx context.Context) ([]model.Dispute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Dispute, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.disputes[id])
	}
	return out, nil
}

// Templates returns the templates for a type and category in creation order
func (m *MemoryBackend) Templates(ctx context.Context, typ, category string) ([]model.Template, error) {
	if err := ValidateTemplateKey(typ, category); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Template
	for _, t := range m.templates {
		if t.Type == typ && t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

// CreateTemplate validates and stores a template
func (m *MemoryBackend) CreateTemplate(ctx context.Context, t model.Template) (*model.Template, error) {
	if err := ValidateTemplate(t); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = uuid.NewString()
	t.CreatedAt = m.now().UTC()
	m.templates = append(m.templates, t)
	return &t, nil
}

// Close is a no-op
func (m *MemoryBackend) Close() error {
	return nil
}
