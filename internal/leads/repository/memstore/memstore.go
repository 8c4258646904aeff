// Package memstore is an in-process lead store with the same contract as
// the Postgres repository. Services use it in tests and in dry runs of
// the import command.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type row struct {
	lead domain.Lead
	keys repository.Keys
}

// Store keeps leads and history in memory. All methods are safe for
// concurrent use; a single mutex stands in for row locks.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	nextID    int64
	nextEntry int64
	rows      map[int64]*row
	history   map[int64][]domain.HistoryEntry
	owners    map[uuid.UUID]string
}

var _ repository.LeadsRepository = (*Store)(nil)

// New returns an empty store. Owners must be registered with AddOwner
// before leads can reference them.
func New() *Store {
	return &Store{
		now:     time.Now,
		rows:    make(map[int64]*row),
		history: make(map[int64][]domain.HistoryEntry),
		owners:  make(map[uuid.UUID]string),
	}
}

// AddOwner registers a user leads may be assigned to.
func (s *Store) AddOwner(id uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[id] = name
}

// Lookup resolves an owner's display name.
func (s *Store) Lookup(_ context.Context, id uuid.UUID) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.owners[id]
	return name, ok, nil
}

// Seed stores a lead as-is, bypassing normalization. Used to set up
// fixtures with arbitrary dates.
func (s *Store) Seed(lead domain.Lead, keys repository.Keys) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	lead.ID = s.nextID
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.now()
	}
	lead.UpdatedAt = lead.CreatedAt
	s.rows[lead.ID] = &row{lead: lead, keys: keys}
	return s.view(lead)
}

func (s *Store) view(lead domain.Lead) domain.Lead {
	lead.OwnerName = s.owners[lead.OwnerID]
	lead.LastContactDate = cloneTime(lead.LastContactDate)
	lead.NextContactDate = cloneTime(lead.NextContactDate)
	return lead
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// conflict mirrors the unique indexes: name key always, phone key only
// when non-empty. skip excludes the lead being updated.
func (s *Store) conflict(keys repository.Keys, skip int64) error {
	for id, r := range s.rows {
		if id == skip {
			continue
		}
		if r.keys.NameKey == keys.NameKey {
			return &repository.DuplicateError{Field: "name"}
		}
		if keys.PhoneKey != "" && r.keys.PhoneKey == keys.PhoneKey {
			return &repository.DuplicateError{Field: "phone"}
		}
	}
	return nil
}

func (s *Store) insert(in repository.NewLead) (domain.Lead, error) {
	if _, ok := s.owners[in.Lead.OwnerID]; !ok {
		return domain.Lead{}, repository.ErrUnknownOwner
	}
	if err := s.conflict(in.Keys, 0); err != nil {
		return domain.Lead{}, err
	}
	s.nextID++
	lead := in.Lead
	lead.ID = s.nextID
	lead.CreatedAt = s.now()
	lead.UpdatedAt = lead.CreatedAt
	lead.LastContactDate = cloneTime(lead.LastContactDate)
	lead.NextContactDate = cloneTime(lead.NextContactDate)
	s.rows[lead.ID] = &row{lead: lead, keys: in.Keys}
	for _, e := range in.History {
		s.appendEntry(lead.ID, e)
	}
	return s.view(lead), nil
}

func (s *Store) appendEntry(leadID int64, e domain.HistoryEntry) {
	s.nextEntry++
	e.ID = s.nextEntry
	e.LeadID = leadID
	s.history[leadID] = append(s.history[leadID], e)
}

func (s *Store) Create(_ context.Context, in repository.NewLead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(in)
}

func (s *Store) GetByID(_ context.Context, id int64) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return s.view(r.lead), nil
}

// Mutate holds the store lock for the duration of fn, so concurrent
// mutations serialize the same way row locks do.
func (s *Store) Mutate(_ context.Context, id int64, fn repository.MutateFunc) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	lead := s.view(r.lead)
	change, err := fn(&lead)
	if err != nil {
		return domain.Lead{}, err
	}

	if _, ok := s.owners[lead.OwnerID]; !ok {
		return domain.Lead{}, repository.ErrUnknownOwner
	}
	keys := r.keys
	if change.Keys != nil {
		keys = *change.Keys
		if err := s.conflict(keys, id); err != nil {
			return domain.Lead{}, err
		}
	}

	lead.ID = id
	lead.CreatedAt = r.lead.CreatedAt
	lead.CreatedDate = r.lead.CreatedDate
	lead.UpdatedAt = s.now()
	s.rows[id] = &row{lead: lead, keys: keys}
	for _, e := range change.History {
		s.appendEntry(id, e)
	}
	return s.view(lead), nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	delete(s.history, id)
	return nil
}

func (s *Store) List(_ context.Context, params repository.ListParams) ([]domain.Lead, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]domain.Lead, 0)
	for _, r := range s.rows {
		if matches(r.lead, params) {
			matched = append(matched, s.view(r.lead))
		}
	}
	slices.SortFunc(matched, func(a, b domain.Lead) int {
		c := compareBy(params.SortBy, a, b)
		if c == 0 {
			c = cmpInt64(a.ID, b.ID)
		}
		if params.SortOrder != "asc" {
			c = -c
		}
		return c
	})

	total := len(matched)
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	start := min(params.Offset, total)
	end := min(start+limit, total)
	return matched[start:end], total, nil
}

func (s *Store) ListAll(_ context.Context) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, s.view(r.lead))
	}
	slices.SortFunc(out, func(a, b domain.Lead) int { return cmpInt64(a.ID, b.ID) })
	return out, nil
}

func matches(l domain.Lead, p repository.ListParams) bool {
	if p.OwnerID != nil && l.OwnerID != *p.OwnerID {
		return false
	}
	if p.Stage != nil && l.Stage != *p.Stage {
		return false
	}
	if p.Intent != nil && l.Intent != *p.Intent {
		return false
	}
	if p.Channel != "" && l.ChannelName != p.Channel {
		return false
	}
	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(l.CustomerName), needle) && !strings.Contains(strings.ToLower(l.Phone), needle) {
			return false
		}
	}
	if p.OverdueBefore != nil && !l.IsOverdue(*p.OverdueBefore) {
		return false
	}
	return true
}

func compareBy(sortBy string, a, b domain.Lead) int {
	switch sortBy {
	case "customerName":
		return strings.Compare(a.CustomerName, b.CustomerName)
	case "totalAmount":
		return cmpFloat(a.TotalAmount, b.TotalAmount)
	case "lastContactDate":
		return cmpDate(a.LastContactDate, b.LastContactDate)
	case "nextContactDate":
		return cmpDate(a.NextContactDate, b.NextContactDate)
	case "createdDate":
		return a.CreatedDate.Compare(b.CreatedDate)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpDate(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	return cmpFloat(float64(a), float64(b))
}

func (s *Store) FindDuplicate(_ context.Context, nameKey, phoneKey string) (*repository.DuplicateMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *repository.DuplicateMatch
	for _, id := range s.sortedIDs() {
		r := s.rows[id]
		switch {
		case r.keys.NameKey == nameKey:
			m := s.match(r, "name")
			return &m, nil
		case best == nil && phoneKey != "" && r.keys.PhoneKey == phoneKey:
			m := s.match(r, "phone")
			best = &m
		}
	}
	return best, nil
}

func (s *Store) FindDuplicates(_ context.Context, nameKeys, phoneKeys []string) ([]repository.DuplicateMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]repository.DuplicateMatch, 0)
	for _, id := range s.sortedIDs() {
		r := s.rows[id]
		switch {
		case slices.Contains(nameKeys, r.keys.NameKey):
			out = append(out, s.match(r, "name"))
		case r.keys.PhoneKey != "" && slices.Contains(phoneKeys, r.keys.PhoneKey):
			out = append(out, s.match(r, "phone"))
		}
	}
	return out, nil
}

func (s *Store) match(r *row, field string) repository.DuplicateMatch {
	return repository.DuplicateMatch{
		LeadID:    r.lead.ID,
		OwnerID:   r.lead.OwnerID,
		OwnerName: s.owners[r.lead.OwnerID],
		Field:     field,
		NameKey:   r.keys.NameKey,
		PhoneKey:  r.keys.PhoneKey,
	}
}

func (s *Store) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) ListHistory(_ context.Context, leadID int64) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history[leadID]), nil
}

func (s *Store) ListAllHistory(_ context.Context) (map[int64][]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64][]domain.HistoryEntry, len(s.history))
	for id, entries := range s.history {
		out[id] = slices.Clone(entries)
	}
	return out, nil
}

func (s *Store) AppendHistory(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[entry.LeadID]; !ok {
		return repository.ErrNotFound
	}
	s.appendEntry(entry.LeadID, entry)
	return nil
}

func stale(l domain.Lead, fallback uuid.UUID, cutoff time.Time) bool {
	return l.OwnerID != fallback && l.Intent != domain.IntentWon && l.ContactAnchor().Before(cutoff)
}

func (s *Store) candidate(l domain.Lead) repository.StaleCandidate {
	return repository.StaleCandidate{
		LeadID:       l.ID,
		OwnerID:      l.OwnerID,
		OwnerName:    s.owners[l.OwnerID],
		CustomerName: l.CustomerName,
		ContactDate:  l.ContactAnchor(),
	}
}

func (s *Store) ListStaleCandidates(_ context.Context, fallback uuid.UUID, cutoff time.Time, limit int) ([]repository.StaleCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 1000
	}
	out := make([]repository.StaleCandidate, 0)
	for _, id := range s.sortedIDs() {
		if l := s.rows[id].lead; stale(l, fallback, cutoff) {
			out = append(out, s.candidate(l))
		}
	}
	slices.SortStableFunc(out, func(a, b repository.StaleCandidate) int {
		return a.ContactDate.Compare(b.ContactDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ReassignIfStale(_ context.Context, leadID int64, fallback uuid.UUID, cutoff time.Time, entry repository.EntryFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[leadID]
	if !ok || !stale(r.lead, fallback, cutoff) {
		return false, nil
	}
	if _, ok := s.owners[fallback]; !ok {
		return false, repository.ErrUnknownOwner
	}

	prev := s.candidate(r.lead)
	r.lead.OwnerID = fallback
	r.lead.Stage = domain.StageEscalated
	r.lead.UpdatedAt = s.now()
	s.appendEntry(leadID, entry(prev))
	return true, nil
}

// InsertBatch is all-or-nothing: the batch is checked against the store
// and against itself before anything is written.
func (s *Store) InsertBatch(_ context.Context, leads []repository.NewLead) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seenNames := make(map[string]bool, len(leads))
	seenPhones := make(map[string]bool, len(leads))
	for _, in := range leads {
		if _, ok := s.owners[in.Lead.OwnerID]; !ok {
			return 0, repository.ErrUnknownOwner
		}
		if err := s.conflict(in.Keys, 0); err != nil {
			return 0, err
		}
		if seenNames[in.Keys.NameKey] {
			return 0, &repository.DuplicateError{Field: "name"}
		}
		if in.Keys.PhoneKey != "" && seenPhones[in.Keys.PhoneKey] {
			return 0, &repository.DuplicateError{Field: "phone"}
		}
		seenNames[in.Keys.NameKey] = true
		if in.Keys.PhoneKey != "" {
			seenPhones[in.Keys.PhoneKey] = true
		}
	}

	for _, in := range leads {
		if _, err := s.insert(in); err != nil {
			return 0, err
		}
	}
	return len(leads), nil
}

// Len reports the number of stored leads.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
