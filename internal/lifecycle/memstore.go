package lifecycle

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"caseflow/internal/models"
)

// MemStore is an in-memory Store. One mutex serializes every unit of work,
// which gives the same effective guarantee as the row locks the SQL store
// takes: at most one mutating transaction per entity at a time. Handlers and
// engine tests run against it without a database.
type MemStore struct {
	mu             sync.Mutex
	cases          map[uuid.UUID]*models.Case
	suspects       map[uuid.UUID]*models.Suspect
	warrants       map[uuid.UUID]*models.Warrant
	interrogations map[uuid.UUID][]*models.Interrogation
	trials         map[uuid.UUID][]*models.Trial
	audit          []*models.AuditEntry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		cases:          make(map[uuid.UUID]*models.Case),
		suspects:       make(map[uuid.UUID]*models.Suspect),
		warrants:       make(map[uuid.UUID]*models.Warrant),
		interrogations: make(map[uuid.UUID][]*models.Interrogation),
		trials:         make(map[uuid.UUID][]*models.Trial),
	}
}

// InTx runs fn against a staging copy of the store and publishes the staged
// writes only when fn returns nil, so a failed unit of work leaves no
// partial state behind.
func (m *MemStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Case returns a copy of a stored case, for test assertions.
func (m *MemStore) Case(id uuid.UUID) (*models.Case, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// Suspect returns a copy of a stored suspect, for test assertions.
func (m *MemStore) Suspect(id uuid.UUID) (*models.Suspect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suspects[id]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// Warrants returns copies of the suspect's warrants, for test assertions.
func (m *MemStore) Warrants(suspectID uuid.UUID) []*models.Warrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Warrant
	for _, w := range m.warrants {
		if w.SuspectID == suspectID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out
}

// Audit returns the audit trail of one entity in append order.
func (m *MemStore) Audit(kind models.EntityKind, id uuid.UUID) []*models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuditEntry
	for _, e := range m.audit {
		if e.EntityKind == kind && e.EntityID == id {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// memTx stages writes until commit. Reads see staged state layered over the
// published store.
type memTx struct {
	store          *MemStore
	cases          []*models.Case
	suspects       []*models.Suspect
	warrants       []*models.Warrant
	interrogations []*models.Interrogation
	trials         []*models.Trial
	audit          []*models.AuditEntry
}

func (t *memTx) commit() {
	for _, c := range t.cases {
		t.store.cases[c.ID] = c
	}
	for _, s := range t.suspects {
		t.store.suspects[s.ID] = s
	}
	for _, w := range t.warrants {
		t.store.warrants[w.ID] = w
	}
	for _, i := range t.interrogations {
		t.store.interrogations[i.SuspectID] = append(t.store.interrogations[i.SuspectID], i)
	}
	for _, tr := range t.trials {
		t.store.trials[tr.SuspectID] = append(t.store.trials[tr.SuspectID], tr)
	}
	t.store.audit = append(t.store.audit, t.audit...)
}

func (t *memTx) CreateCase(ctx context.Context, c *models.Case) error {
	cp := *c
	t.cases = append(t.cases, &cp)
	return nil
}

func (t *memTx) GetCaseForUpdate(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	for i := len(t.cases) - 1; i >= 0; i-- {
		if t.cases[i].ID == id {
			cp := *t.cases[i]
			return &cp, nil
		}
	}
	if c, ok := t.store.cases[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, NewNotFound("case", id)
}

func (t *memTx) UpdateCase(ctx context.Context, c *models.Case) error {
	cp := *c
	t.cases = append(t.cases, &cp)
	return nil
}

func (t *memTx) CreateSuspect(ctx context.Context, s *models.Suspect) error {
	cp := *s
	t.suspects = append(t.suspects, &cp)
	return nil
}

func (t *memTx) GetSuspect(ctx context.Context, id uuid.UUID) (*models.Suspect, error) {
	return t.GetSuspectForUpdate(ctx, id)
}

func (t *memTx) GetSuspectForUpdate(ctx context.Context, id uuid.UUID) (*models.Suspect, error) {
	for i := len(t.suspects) - 1; i >= 0; i-- {
		if t.suspects[i].ID == id {
			cp := *t.suspects[i]
			return &cp, nil
		}
	}
	if s, ok := t.store.suspects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, NewNotFound("suspect", id)
}

func (t *memTx) UpdateSuspect(ctx context.Context, s *models.Suspect) error {
	cp := *s
	t.suspects = append(t.suspects, &cp)
	return nil
}

func (t *memTx) ListCaseSuspects(ctx context.Context, caseID uuid.UUID) ([]*models.Suspect, error) {
	latest := make(map[uuid.UUID]*models.Suspect)
	for id, s := range t.store.suspects {
		if s.CaseID == caseID {
			latest[id] = s
		}
	}
	for _, s := range t.suspects {
		if s.CaseID == caseID {
			latest[s.ID] = s
		}
	}
	out := make([]*models.Suspect, 0, len(latest))
	for _, s := range latest {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (t *memTx) ActiveWarrant(ctx context.Context, suspectID uuid.UUID) (*models.Warrant, error) {
	var found *models.Warrant
	for _, w := range t.store.warrants {
		if w.SuspectID == suspectID && w.Status == models.WarrantActive {
			found = w
		}
	}
	for _, w := range t.warrants {
		if w.SuspectID == suspectID {
			if w.Status == models.WarrantActive {
				found = w
			} else if found != nil && found.ID == w.ID {
				found = nil
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (t *memTx) CreateWarrant(ctx context.Context, w *models.Warrant) error {
	cp := *w
	t.warrants = append(t.warrants, &cp)
	return nil
}

func (t *memTx) UpdateWarrant(ctx context.Context, w *models.Warrant) error {
	cp := *w
	t.warrants = append(t.warrants, &cp)
	return nil
}

func (t *memTx) CreateInterrogation(ctx context.Context, i *models.Interrogation) error {
	cp := *i
	t.interrogations = append(t.interrogations, &cp)
	return nil
}

func (t *memTx) CreateTrial(ctx context.Context, tr *models.Trial) error {
	cp := *tr
	t.trials = append(t.trials, &cp)
	return nil
}

func (t *memTx) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	seq := int64(1)
	for _, prev := range t.store.audit {
		if prev.EntityKind == e.EntityKind && prev.EntityID == e.EntityID {
			seq++
		}
	}
	for _, prev := range t.audit {
		if prev.EntityKind == e.EntityKind && prev.EntityID == e.EntityID {
			seq++
		}
	}
	cp := *e
	cp.Sequence = seq
	t.audit = append(t.audit, &cp)
	return nil
}
