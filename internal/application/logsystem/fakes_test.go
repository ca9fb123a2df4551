package logsystem

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
)

type memLogRepo struct {
	mu      sync.Mutex
	entries []logsystem.LogEntry
}

func (r *memLogRepo) Save(_ context.Context, e *logsystem.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uint(len(r.entries) + 1)
	// round trip through JSON like the database does
	raw, _ := json.Marshal(e.Extra)
	stored := *e
	stored.Extra = map[string]any{}
	_ = json.Unmarshal(raw, &stored.Extra)
	r.entries = append(r.entries, stored)
	return nil
}

func (r *memLogRepo) FindByID(_ context.Context, id uint) (*logsystem.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			e := r.entries[i]
			return &e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLogRepo) match(fn func(e *logsystem.LogEntry) bool) []logsystem.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []logsystem.LogEntry
	for i := range r.entries {
		if fn(&r.entries[i]) {
			out = append(out, r.entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (r *memLogRepo) FindAll(_ context.Context, f logsystem.Filter) ([]logsystem.LogEntry, error) {
	return r.match(func(e *logsystem.LogEntry) bool {
		return (f.TargetType == "" || e.TargetType == f.TargetType) && (f.TargetID == 0 || e.TargetID == f.TargetID)
	}), nil
}

func (r *memLogRepo) Count(ctx context.Context, f logsystem.Filter) (int64, error) {
	all, _ := r.FindAll(ctx, f)
	return int64(len(all)), nil
}

func (r *memLogRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memLogRepo) FindLatestDeletion(_ context.Context, t shared.TargetType, id uint) (*logsystem.LogEntry, error) {
	found := r.match(func(e *logsystem.LogEntry) bool {
		return e.Type == logsystem.TypeElementDeleted && e.TargetType == t && e.TargetID == id
	})
	if len(found) == 0 {
		found = r.match(func(e *logsystem.LogEntry) bool {
			return e.Type == logsystem.TypeCollectionElementDeleted &&
				e.String(logsystem.ExtraDeletedClass) == string(t) && e.Uint(logsystem.ExtraDeletedID) == id
		})
	}
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	return &found[0], nil
}

func (r *memLogRepo) FindCreation(_ context.Context, t shared.TargetType, id uint) (*logsystem.LogEntry, error) {
	found := r.match(func(e *logsystem.LogEntry) bool {
		return e.Type == logsystem.TypeElementCreated && e.TargetType == t && e.TargetID == id
	})
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	return &found[0], nil
}

func (r *memLogRepo) FindEditsSince(_ context.Context, t shared.TargetType, id uint, since time.Time) ([]logsystem.LogEntry, error) {
	return r.match(func(e *logsystem.LogEntry) bool {
		return e.Type == logsystem.TypeElementEdited && e.TargetType == t && e.TargetID == id && !e.Timestamp.Before(since)
	}), nil
}

func (r *memLogRepo) FindCollectionDeletionsSince(_ context.Context, t shared.TargetType, id uint, since time.Time) ([]logsystem.LogEntry, error) {
	return r.match(func(e *logsystem.LogEntry) bool {
		return e.Type == logsystem.TypeCollectionElementDeleted && e.TargetType == t && e.TargetID == id && !e.Timestamp.Before(since)
	}), nil
}

func (r *memLogRepo) FindLastEditor(_ context.Context, t shared.TargetType, id uint) (*logsystem.LogEntry, error) {
	found := r.match(func(e *logsystem.LogEntry) bool {
		return (e.Type == logsystem.TypeElementCreated || e.Type == logsystem.TypeElementEdited) && e.TargetType == t && e.TargetID == id
	})
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	return &found[0], nil
}

func (r *memLogRepo) ofType(t logsystem.Type) []logsystem.LogEntry {
	return r.match(func(e *logsystem.LogEntry) bool { return e.Type == t })
}

type storeKey struct {
	t  shared.TargetType
	id uint
}

// memStore keeps elements as JSON, keyed by type and ID
type memStore struct {
	mu     sync.Mutex
	rows   map[storeKey][]byte
	nextID uint
}

func newMemStore() *memStore {
	return &memStore{rows: map[storeKey][]byte{}, nextID: 100}
}

func (s *memStore) New(t shared.TargetType) (shared.Trackable, error) {
	switch t {
	case shared.TargetPart:
		return &parts.Part{}, nil
	case shared.TargetPartLot:
		return &parts.PartLot{}, nil
	case shared.TargetCategory:
		return &parts.Category{}, nil
	case shared.TargetOrderdetail:
		return &pricing.Orderdetail{}, nil
	case shared.TargetPricedetail:
		return &pricing.Pricedetail{}, nil
	}
	return nil, shared.NewDomainError("INVALID_TARGET_TYPE", "unknown type")
}

func (s *memStore) Find(_ context.Context, t shared.TargetType, id uint) (shared.Trackable, error) {
	s.mu.Lock()
	raw, ok := s.rows[storeKey{t, id}]
	s.mu.Unlock()
	if !ok {
		return nil, shared.ErrNotFound
	}
	el, err := s.New(t)
	if err != nil {
		return nil, err
	}
	return el, json.Unmarshal(raw, el)
}

func (s *memStore) Exists(_ context.Context, t shared.TargetType, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[storeKey{t, id}]
	return ok, nil
}

func (s *memStore) put(el shared.Trackable) error {
	raw, err := json.Marshal(el)
	if err != nil {
		return err
	}
	s.rows[storeKey{el.TargetType(), el.GetID()}] = raw
	return nil
}

func (s *memStore) Insert(_ context.Context, el shared.Trackable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[storeKey{el.TargetType(), el.GetID()}]; ok {
		return shared.ErrAlreadyExists
	}
	return s.put(el)
}

func (s *memStore) Save(_ context.Context, el shared.Trackable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el.GetID() == 0 {
		s.nextID++
		el.SetID(s.nextID)
		if el.GetCreatedAt().IsZero() {
			el.SetCreatedAt(time.Now())
		}
	}
	return s.put(el)
}

func (s *memStore) Delete(_ context.Context, el shared.Trackable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := storeKey{el.TargetType(), el.GetID()}
	if _, ok := s.rows[k]; !ok {
		return shared.ErrNotFound
	}
	delete(s.rows, k)
	return nil
}

func (s *memStore) FindChildren(ctx context.Context, owner shared.Trackable, c shared.Collection) ([]shared.Trackable, error) {
	ownerKey := map[shared.TargetType]string{
		shared.TargetPartLot:     "part_id",
		shared.TargetOrderdetail: "part_id",
		shared.TargetPricedetail: "orderdetail_id",
	}[c.Child]
	s.mu.Lock()
	var ids []uint
	for k, raw := range s.rows {
		if k.t != c.Child || ownerKey == "" {
			continue
		}
		var m map[string]any
		_ = json.Unmarshal(raw, &m)
		if v, ok := m[ownerKey].(float64); ok && uint(v) == owner.GetID() {
			ids = append(ids, k.id)
		}
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]shared.Trackable, 0, len(ids))
	for _, id := range ids {
		el, err := s.Find(ctx, c.Child, id)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func (s *memStore) CheckDelete(context.Context, shared.Trackable) error { return nil }

func (s *memStore) CheckReferences(context.Context, shared.Trackable) error { return nil }

// passTx runs functions directly and fires commit hooks afterwards
type passTx struct{}

func (passTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, hooks := shared.WithCommitHooks(ctx)
	if err := fn(txCtx); err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

type allowAll struct{ granted bool }

func (a allowAll) IsGranted(context.Context, string, string) (bool, error) { return a.granted, nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

type fixture struct {
	logs      *memLogRepo
	store     *memStore
	recorder  *Recorder
	tracker   *Tracker
	tt        *TimeTravel
	publisher *recordingPublisher
}

func newFixture(settings Settings) *fixture {
	f := &fixture{logs: &memLogRepo{}, store: newMemStore(), publisher: &recordingPublisher{}}
	f.recorder = NewRecorder(f.logs, settings, WithPublisher(f.publisher))
	f.tracker = NewTracker(f.store, f.recorder, passTx{}, f.publisher)
	f.tt = NewTimeTravel(f.store, f.logs)
	return f
}
