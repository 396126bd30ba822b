package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eden-hr/casetracker/internal/record/domain"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

// MemoryStore is an in-process domain.Store. Transactions are serialized and run
// against a copy of the committed state, which replaces it only on success.
// Records are copied in and out, so callers never share memory with the store.
type MemoryStore struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memState
}

var _ domain.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

type memState struct {
	records              map[domain.Kind]map[types.ID]domain.Record
	revisions            map[string][]domain.Revision
	counters             map[string]int
	incidentVictims      map[types.ID]domain.IncidentVictim
	victimViolations     map[types.ID]domain.IncidentVictimViolation
	incidentPerpetrators map[types.ID]domain.IncidentPerpetrator
	caseUpdates          map[types.ID]domain.CaseUpdate
	blobs                map[string]domain.Blob
}

func newMemState() *memState {
	s := &memState{
		records:              make(map[domain.Kind]map[types.ID]domain.Record),
		revisions:            make(map[string][]domain.Revision),
		counters:             make(map[string]int),
		incidentVictims:      make(map[types.ID]domain.IncidentVictim),
		victimViolations:     make(map[types.ID]domain.IncidentVictimViolation),
		incidentPerpetrators: make(map[types.ID]domain.IncidentPerpetrator),
		caseUpdates:          make(map[types.ID]domain.CaseUpdate),
		blobs:                make(map[string]domain.Blob),
	}
	for _, k := range domain.Kinds {
		s.records[k] = make(map[types.ID]domain.Record)
	}
	return s
}

// clone copies every map. Values are never mutated in place, so sharing them is safe.
func (s *memState) clone() *memState {
	c := &memState{
		records:              make(map[domain.Kind]map[types.ID]domain.Record, len(s.records)),
		revisions:            copyMap(s.revisions),
		counters:             copyMap(s.counters),
		incidentVictims:      copyMap(s.incidentVictims),
		victimViolations:     copyMap(s.victimViolations),
		incidentPerpetrators: copyMap(s.incidentPerpetrators),
		caseUpdates:          copyMap(s.caseUpdates),
		blobs:                copyMap(s.blobs),
	}
	for k, m := range s.records {
		c.records[k] = copyMap(m)
	}
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) snapshot() *memState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// InTx runs fn against a private copy of the state and commits it if fn succeeds.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.snapshot().clone()
	if err := fn(&memTx{memState: work}); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Get(ctx context.Context, kind domain.Kind, id types.ID) (domain.Record, error) {
	return s.snapshot().Get(ctx, kind, id)
}

func (s *MemoryStore) Exists(ctx context.Context, kind domain.Kind, id types.ID) (bool, error) {
	return s.snapshot().Exists(ctx, kind, id)
}

func (s *MemoryStore) List(ctx context.Context, kind domain.Kind, q domain.ListQuery) ([]domain.Record, int, error) {
	return s.snapshot().List(ctx, kind, q)
}

func (s *MemoryStore) Suggest(ctx context.Context, kind domain.Kind, q string, limit int) ([]domain.Record, error) {
	return s.snapshot().Suggest(ctx, kind, q, limit)
}

func (s *MemoryStore) Revisions(ctx context.Context, kind domain.Kind, id types.ID) ([]domain.Revision, error) {
	return s.snapshot().Revisions(ctx, kind, id)
}

func (s *MemoryStore) IncidentVictims(ctx context.Context, incidentID types.ID) ([]domain.IncidentVictim, error) {
	return s.snapshot().IncidentVictims(ctx, incidentID)
}

func (s *MemoryStore) VictimViolations(ctx context.Context, incidentVictimID types.ID) ([]domain.IncidentVictimViolation, error) {
	return s.snapshot().VictimViolations(ctx, incidentVictimID)
}

func (s *MemoryStore) IncidentPerpetrators(ctx context.Context, incidentID types.ID) ([]domain.IncidentPerpetrator, error) {
	return s.snapshot().IncidentPerpetrators(ctx, incidentID)
}

func (s *MemoryStore) CaseUpdates(ctx context.Context, incidentID types.ID) ([]domain.CaseUpdate, error) {
	return s.snapshot().CaseUpdates(ctx, incidentID)
}

func (s *MemoryStore) Blob(ctx context.Context, fileRef string) (*domain.Blob, error) {
	return s.snapshot().Blob(ctx, fileRef)
}

// --- reads ---

func (s *memState) Get(_ context.Context, kind domain.Kind, id types.ID) (domain.Record, error) {
	rec, ok := s.records[kind][id]
	if !ok {
		return nil, apperrors.NotFound(string(kind), id.String())
	}
	return cloneRecord(rec)
}

func (s *memState) Exists(_ context.Context, kind domain.Kind, id types.ID) (bool, error) {
	_, ok := s.records[kind][id]
	return ok, nil
}

func (s *memState) List(_ context.Context, kind domain.Kind, q domain.ListQuery) ([]domain.Record, int, error) {
	schema := kind.Schema()
	needle := strings.ToLower(q.Search)

	var matched []map[string]any
	byID := map[types.ID]domain.Record{}
	for id, rec := range s.records[kind] {
		row := rowOf(rec)
		if q.Status != nil && rec.Base().Status != *q.Status {
			continue
		}
		if !matchesFilters(row, schema, q.Filters) {
			continue
		}
		if needle != "" && !containsAny(row, schema.Search, needle) {
			continue
		}
		matched = append(matched, row)
		byID[id] = rec
	}

	col := q.SortColumn(schema)
	sort.SliceStable(matched, func(i, j int) bool {
		c := compareValues(matched[i][col], matched[j][col])
		if c == 0 {
			return textValue(matched[i]["id"]) < textValue(matched[j]["id"])
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})

	total := len(matched)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)

	out := make([]domain.Record, 0, end-start)
	for _, row := range matched[start:end] {
		rec, err := cloneRecord(byID[row["id"].(types.ID)])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, nil
}

func (s *memState) Suggest(_ context.Context, kind domain.Kind, q string, limit int) ([]domain.Record, error) {
	schema := kind.Schema()
	needle := strings.ToLower(strings.TrimSpace(q))

	var rows []map[string]any
	byID := map[types.ID]domain.Record{}
	for id, rec := range s.records[kind] {
		if !rec.Base().Status {
			continue
		}
		row := rowOf(rec)
		if needle != "" && !containsAny(row, schema.Suggest, needle) {
			continue
		}
		rows = append(rows, row)
		byID[id] = rec
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, col := range schema.SuggestOrder {
			if c := compareValues(rows[i][col], rows[j][col]); c != 0 {
				return c < 0
			}
		}
		return textValue(rows[i]["id"]) < textValue(rows[j]["id"])
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := cloneRecord(byID[row["id"].(types.ID)])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *memState) Revisions(_ context.Context, kind domain.Kind, id types.ID) ([]domain.Revision, error) {
	revs := s.revisions[revisionKey(kind, id)]
	out := make([]domain.Revision, len(revs))
	copy(out, revs)
	return out, nil
}

func (s *memState) IncidentVictims(_ context.Context, incidentID types.ID) ([]domain.IncidentVictim, error) {
	var out []domain.IncidentVictim
	for _, iv := range s.incidentVictims {
		if iv.IncidentID == incidentID {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *memState) VictimViolations(_ context.Context, incidentVictimID types.ID) ([]domain.IncidentVictimViolation, error) {
	var out []domain.IncidentVictimViolation
	for _, v := range s.victimViolations {
		if v.IncidentVictimID == incidentVictimID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *memState) IncidentPerpetrators(_ context.Context, incidentID types.ID) ([]domain.IncidentPerpetrator, error) {
	var out []domain.IncidentPerpetrator
	for _, ip := range s.incidentPerpetrators {
		if ip.IncidentID == incidentID {
			out = append(out, ip)
		}
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *memState) CaseUpdates(_ context.Context, incidentID types.ID) ([]domain.CaseUpdate, error) {
	var out []domain.CaseUpdate
	for _, u := range s.caseUpdates {
		if u.IncidentID == incidentID {
			u.Documents = append([]domain.CaseUpdateDocument(nil), u.Documents...)
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID) })
	return out, nil
}

func (s *memState) Blob(_ context.Context, fileRef string) (*domain.Blob, error) {
	b, ok := s.blobs[fileRef]
	if !ok {
		return nil, apperrors.NotFound("file", fileRef)
	}
	return &b, nil
}

// memTx adds the write side on top of a private state copy.
type memTx struct {
	*memState
}

var _ domain.Tx = (*memTx)(nil)

func (t *memTx) NextSerial(_ context.Context, period string) (int, error) {
	t.counters[period]++
	return t.counters[period], nil
}

func (t *memTx) Insert(_ context.Context, rec domain.Record) error {
	kind := rec.Kind()
	id := rec.Base().ID
	if _, ok := t.records[kind][id]; ok {
		return fmt.Errorf("%w: %s %s", domain.ErrDuplicate, kind, id)
	}
	if inc, ok := rec.(*domain.Incident); ok {
		for _, other := range t.records[domain.KindIncident] {
			if other.(*domain.Incident).CaseNumber == inc.CaseNumber {
				return fmt.Errorf("%w: case number %s", domain.ErrDuplicate, inc.CaseNumber)
			}
		}
	}
	if err := t.checkForeignKeys(rec); err != nil {
		return err
	}
	stored, err := cloneRecord(rec)
	if err != nil {
		return err
	}
	t.records[kind][id] = stored
	return nil
}

func (t *memTx) Update(_ context.Context, rec domain.Record) error {
	kind := rec.Kind()
	id := rec.Base().ID
	if _, ok := t.records[kind][id]; !ok {
		return apperrors.NotFound(string(kind), id.String())
	}
	if err := t.checkForeignKeys(rec); err != nil {
		return err
	}
	stored, err := cloneRecord(rec)
	if err != nil {
		return err
	}
	t.records[kind][id] = stored
	return nil
}

func (t *memTx) checkForeignKeys(rec domain.Record) error {
	for _, ref := range rec.References() {
		if _, ok := t.records[ref.Kind][ref.ID]; !ok {
			return apperrors.Conflict(fmt.Sprintf("%s references a missing %s", ref.Field, ref.Kind))
		}
	}
	return nil
}

func (t *memTx) Delete(ctx context.Context, kind domain.Kind, id types.ID) error {
	if _, ok := t.records[kind][id]; !ok {
		return apperrors.NotFound(string(kind), id.String())
	}
	n, _ := t.ReferenceCount(ctx, kind, id)
	if n > 0 {
		return apperrors.Conflict(fmt.Sprintf("%s is still referenced", kind))
	}
	delete(t.records[kind], id)
	return nil
}

func (t *memTx) ReferenceCount(_ context.Context, kind domain.Kind, id types.ID) (int, error) {
	n := 0
	switch kind {
	case domain.KindLocation:
		for _, k := range []domain.Kind{domain.KindIncident, domain.KindVictim, domain.KindPerpetrator} {
			for _, rec := range t.records[k] {
				for _, ref := range rec.References() {
					if ref.Kind == domain.KindLocation && ref.ID == id {
						n++
					}
				}
			}
		}
	case domain.KindSector:
		for _, rec := range t.records[domain.KindVictim] {
			for _, sid := range rec.(*domain.Victim).SectorIDs {
				if sid == id {
					n++
				}
			}
		}
	case domain.KindPerpetrator:
		for _, ip := range t.incidentPerpetrators {
			if ip.PerpetratorID == id {
				n++
			}
		}
	case domain.KindIncident:
		for _, iv := range t.incidentVictims {
			if iv.IncidentID == id {
				n++
			}
		}
		for _, ip := range t.incidentPerpetrators {
			if ip.IncidentID == id {
				n++
			}
		}
		for _, u := range t.caseUpdates {
			if u.IncidentID == id {
				n++
			}
		}
	case domain.KindVictim:
		for _, iv := range t.incidentVictims {
			if iv.VictimID == id {
				n++
			}
		}
	case domain.KindViolation:
		for _, v := range t.victimViolations {
			if v.ViolationID == id {
				n++
			}
		}
	}
	return n, nil
}

func (t *memTx) LastRevision(_ context.Context, kind domain.Kind, id types.ID) (*domain.Revision, error) {
	revs := t.revisions[revisionKey(kind, id)]
	if len(revs) == 0 {
		return nil, nil
	}
	last := revs[len(revs)-1]
	return &last, nil
}

func (t *memTx) AppendRevision(_ context.Context, rev *domain.Revision) error {
	key := revisionKey(rev.EntityKind, rev.EntityID)
	revs := t.revisions[key]
	if rev.Number != len(revs)+1 {
		return fmt.Errorf("%w: revision %d of %s", domain.ErrDuplicate, rev.Number, key)
	}
	t.revisions[key] = append(append([]domain.Revision(nil), revs...), *rev)
	return nil
}

func (t *memTx) FindIncidentVictim(_ context.Context, incidentID, victimID types.ID) (*domain.IncidentVictim, error) {
	for _, iv := range t.incidentVictims {
		if iv.IncidentID == incidentID && iv.VictimID == victimID {
			return &iv, nil
		}
	}
	return nil, apperrors.NotFound("incident_victim", incidentID.String()+"/"+victimID.String())
}

func (t *memTx) InsertIncidentVictim(ctx context.Context, iv *domain.IncidentVictim) error {
	if _, err := t.FindIncidentVictim(ctx, iv.IncidentID, iv.VictimID); err == nil {
		return fmt.Errorf("%w: incident victim", domain.ErrDuplicate)
	}
	if !t.has(domain.KindIncident, iv.IncidentID) || !t.has(domain.KindVictim, iv.VictimID) {
		return apperrors.Conflict("incident victim references a missing record")
	}
	t.incidentVictims[iv.ID] = *iv
	return nil
}

func (t *memTx) UpdateIncidentVictim(_ context.Context, iv *domain.IncidentVictim) error {
	if _, ok := t.incidentVictims[iv.ID]; !ok {
		return apperrors.NotFound("incident_victim", iv.ID.String())
	}
	t.incidentVictims[iv.ID] = *iv
	return nil
}

func (t *memTx) DeleteIncidentVictim(_ context.Context, id types.ID) error {
	if _, ok := t.incidentVictims[id]; !ok {
		return apperrors.NotFound("incident_victim", id.String())
	}
	for _, v := range t.victimViolations {
		if v.IncidentVictimID == id {
			return apperrors.Conflict("incident victim still has violations")
		}
	}
	delete(t.incidentVictims, id)
	return nil
}

func (t *memTx) FindVictimViolation(_ context.Context, incidentVictimID, violationID types.ID) (*domain.IncidentVictimViolation, error) {
	for _, v := range t.victimViolations {
		if v.IncidentVictimID == incidentVictimID && v.ViolationID == violationID {
			return &v, nil
		}
	}
	return nil, apperrors.NotFound("incident_victim_violation", incidentVictimID.String()+"/"+violationID.String())
}

func (t *memTx) InsertVictimViolation(ctx context.Context, v *domain.IncidentVictimViolation) error {
	if _, err := t.FindVictimViolation(ctx, v.IncidentVictimID, v.ViolationID); err == nil {
		return fmt.Errorf("%w: incident victim violation", domain.ErrDuplicate)
	}
	if _, ok := t.incidentVictims[v.IncidentVictimID]; !ok || !t.has(domain.KindViolation, v.ViolationID) {
		return apperrors.Conflict("incident victim violation references a missing record")
	}
	t.victimViolations[v.ID] = *v
	return nil
}

func (t *memTx) UpdateVictimViolation(_ context.Context, v *domain.IncidentVictimViolation) error {
	if _, ok := t.victimViolations[v.ID]; !ok {
		return apperrors.NotFound("incident_victim_violation", v.ID.String())
	}
	t.victimViolations[v.ID] = *v
	return nil
}

func (t *memTx) DeleteVictimViolation(_ context.Context, id types.ID) error {
	if _, ok := t.victimViolations[id]; !ok {
		return apperrors.NotFound("incident_victim_violation", id.String())
	}
	delete(t.victimViolations, id)
	return nil
}

func (t *memTx) FindIncidentPerpetrator(_ context.Context, incidentID, perpetratorID types.ID) (*domain.IncidentPerpetrator, error) {
	for _, ip := range t.incidentPerpetrators {
		if ip.IncidentID == incidentID && ip.PerpetratorID == perpetratorID {
			return &ip, nil
		}
	}
	return nil, apperrors.NotFound("incident_perpetrator", incidentID.String()+"/"+perpetratorID.String())
}

func (t *memTx) InsertIncidentPerpetrator(ctx context.Context, ip *domain.IncidentPerpetrator) error {
	if _, err := t.FindIncidentPerpetrator(ctx, ip.IncidentID, ip.PerpetratorID); err == nil {
		return fmt.Errorf("%w: incident perpetrator", domain.ErrDuplicate)
	}
	if !t.has(domain.KindIncident, ip.IncidentID) || !t.has(domain.KindPerpetrator, ip.PerpetratorID) {
		return apperrors.Conflict("incident perpetrator references a missing record")
	}
	t.incidentPerpetrators[ip.ID] = *ip
	return nil
}

func (t *memTx) UpdateIncidentPerpetrator(_ context.Context, ip *domain.IncidentPerpetrator) error {
	if _, ok := t.incidentPerpetrators[ip.ID]; !ok {
		return apperrors.NotFound("incident_perpetrator", ip.ID.String())
	}
	t.incidentPerpetrators[ip.ID] = *ip
	return nil
}

func (t *memTx) DeleteIncidentPerpetrator(_ context.Context, id types.ID) error {
	if _, ok := t.incidentPerpetrators[id]; !ok {
		return apperrors.NotFound("incident_perpetrator", id.String())
	}
	delete(t.incidentPerpetrators, id)
	return nil
}

func (t *memTx) InsertCaseUpdate(_ context.Context, u *domain.CaseUpdate) error {
	if _, ok := t.caseUpdates[u.ID]; ok {
		return fmt.Errorf("%w: case update %s", domain.ErrDuplicate, u.ID)
	}
	if !t.has(domain.KindIncident, u.IncidentID) {
		return apperrors.Conflict("case update references a missing incident")
	}
	for _, d := range u.Documents {
		if _, ok := t.blobs[d.FileRef]; !ok {
			return apperrors.Conflict("case update document references a missing file")
		}
	}
	stored := *u
	stored.Documents = append([]domain.CaseUpdateDocument(nil), u.Documents...)
	t.caseUpdates[u.ID] = stored
	return nil
}

func (t *memTx) InsertBlob(_ context.Context, b *domain.Blob) error {
	if _, ok := t.blobs[b.FileRef]; ok {
		return fmt.Errorf("%w: file %s", domain.ErrDuplicate, b.FileRef)
	}
	t.blobs[b.FileRef] = *b
	return nil
}

func (t *memTx) UseBlob(_ context.Context, fileRef string) error {
	b, ok := t.blobs[fileRef]
	if !ok {
		return apperrors.NotFound("file", fileRef)
	}
	b.UsageCount++
	b.Permanent = true
	t.blobs[fileRef] = b
	return nil
}

func (t *memTx) DeleteBlob(_ context.Context, fileRef string) error {
	if _, ok := t.blobs[fileRef]; !ok {
		return apperrors.NotFound("file", fileRef)
	}
	for _, u := range t.caseUpdates {
		for _, d := range u.Documents {
			if d.FileRef == fileRef {
				return apperrors.Conflict("file is attached to a case update")
			}
		}
	}
	delete(t.blobs, fileRef)
	return nil
}

func (t *memTx) OrphanBlobs(_ context.Context, cutoff time.Time) ([]domain.Blob, error) {
	var out []domain.Blob
	for _, b := range t.blobs {
		if !b.Permanent && b.UsageCount == 0 && b.CreatedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memState) has(kind domain.Kind, id types.ID) bool {
	_, ok := s.records[kind][id]
	return ok
}

// --- helpers ---

func revisionKey(kind domain.Kind, id types.ID) string {
	return string(kind) + "/" + id.String()
}

func cloneRecord(rec domain.Record) (domain.Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", rec.Kind(), err)
	}
	out := domain.MustNew(rec.Kind())
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", rec.Kind(), err)
	}
	return out, nil
}

func createdBefore(a, b time.Time, aID, bID types.ID) bool {
	if a.Equal(b) {
		return aID < bID
	}
	return a.Before(b)
}

// rowOf maps column names to values, the way a table row would.
func rowOf(rec domain.Record) map[string]any {
	schema := rec.Kind().Schema()
	row := make(map[string]any, len(domain.MetaColumns)+len(schema.Columns))
	for i, v := range rec.Base().MetaFields() {
		row[domain.MetaColumns[i]] = v
	}
	for i, v := range rec.Fields() {
		row[schema.Columns[i]] = v
	}
	return row
}

func matchesFilters(row map[string]any, schema domain.Schema, filters map[string]string) bool {
	for name, want := range filters {
		f := schema.Filters[name]
		got := textValue(row[f.Column])
		if f.Type == domain.FilterID {
			got = strings.ToLower(got)
		}
		if got != want {
			return false
		}
	}
	return true
}

func containsAny(row map[string]any, cols []string, needle string) bool {
	for _, col := range cols {
		if strings.Contains(strings.ToLower(textValue(row[col])), needle) {
			return true
		}
	}
	return false
}

// textValue renders a column value the way Postgres casts it to text.
func textValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case types.ID:
		return val.String()
	case domain.VictimType:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case *int:
		if val == nil {
			return ""
		}
		return strconv.Itoa(*val)
	case types.Date:
		if val.IsZero() {
			return ""
		}
		return val.String()
	case *types.Date:
		if val == nil {
			return ""
		}
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

// compareValues orders two column values. Nulls sort after everything and text
// compares lower-cased by code point, matching orderExpr in the Postgres store.
func compareValues(a, b any) int {
	an, bn := isNull(a), isNull(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}

	switch av := a.(type) {
	case int:
		return cmpInt(av, b.(int))
	case *int:
		return cmpInt(*av, *b.(*int))
	case bool:
		return cmpInt(boolInt(av), boolInt(b.(bool)))
	case time.Time:
		return av.Compare(b.(time.Time))
	case types.Date:
		return av.Time().Compare(b.(types.Date).Time())
	case *types.Date:
		return av.Time().Compare(b.(*types.Date).Time())
	}
	return strings.Compare(strings.ToLower(textValue(a)), strings.ToLower(textValue(b)))
}

func isNull(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case *int:
		return val == nil
	case *types.Date:
		return val == nil
	}
	return false
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
