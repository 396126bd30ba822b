package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eden-hr/casetracker/internal/record/domain"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements domain.Store using PostgreSQL
type PostgresStore struct {
	pgReader
	pool *pgxpool.Pool
}

var _ domain.Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgReader: pgReader{q: pool}, pool: pool}
}

// InTx runs fn inside a database transaction
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{pgReader: pgReader{q: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr(err, "failed to commit transaction")
	}
	return nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// storeErr maps constraint violations onto the store contract.
func storeErr(err error, msg string) error {
	switch {
	case apperrors.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", domain.ErrDuplicate, err)
	case apperrors.IsForeignKeyViolation(err):
		return apperrors.Conflict("record is referenced by or references a missing record")
	}
	return apperrors.Wrap(err, msg)
}

func columnList(kind domain.Kind) string {
	return strings.Join(append(append([]string{}, domain.MetaColumns...), kind.Schema().Columns...), ", ")
}

func scanTargets(rec domain.Record) []any {
	return append(rec.Base().MetaPtrs(), rec.FieldPtrs()...)
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

// escapeLike escapes LIKE wildcards in user input.
// orderExpr sorts text columns by lower-cased code point, independent of the
// database collation, so both stores return hits in the same order.
func orderExpr(schema domain.Schema, col string) string {
	if schema.IsText(col) {
		return fmt.Sprintf(`LOWER(%s) COLLATE "C"`, col)
	}
	return col
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// pgReader implements domain.Reader over a pool or a transaction.
type pgReader struct {
	q querier
}

func (r pgReader) Get(ctx context.Context, kind domain.Kind, id types.ID) (domain.Record, error) {
	schema := kind.Schema()
	rec := domain.MustNew(kind)

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columnList(kind), schema.Table)
	err := r.q.QueryRow(ctx, query, id).Scan(scanTargets(rec)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound(string(kind), id.String())
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find "+string(kind))
	}

	if err := r.loadSectors(ctx, []domain.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r pgReader) Exists(ctx context.Context, kind domain.Kind, id types.ID) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, kind.Schema().Table)
	if err := r.q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check "+string(kind))
	}
	return exists, nil
}

// List runs a filtered, sorted, paged query. q must already be normalized.
func (r pgReader) List(ctx context.Context, kind domain.Kind, q domain.ListQuery) ([]domain.Record, int, error) {
	schema := kind.Schema()

	var conditions []string
	var args []any
	argNum := 1

	if q.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *q.Status)
		argNum++
	}

	names := make([]string, 0, len(q.Filters))
	for name := range q.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := schema.Filters[name]
		conditions = append(conditions, fmt.Sprintf("%s::text = $%d", f.Column, argNum))
		args = append(args, q.Filters[name])
		argNum++
	}

	if q.Search != "" {
		ors := make([]string, len(schema.Search))
		for i, col := range schema.Search {
			ors[i] = fmt.Sprintf("%s ILIKE $%d", col, argNum)
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
		args = append(args, "%"+escapeLike(q.Search)+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", schema.Table, whereClause)
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to count "+string(kind))
	}

	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s %s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d`,
		columnList(kind), schema.Table, whereClause,
		orderExpr(schema, q.SortColumn(schema)), direction,
		argNum, argNum+1,
	)
	args = append(args, q.Limit, q.Offset)

	recs, err := r.queryRecords(ctx, kind, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (r pgReader) Suggest(ctx context.Context, kind domain.Kind, q string, limit int) ([]domain.Record, error) {
	schema := kind.Schema()

	ors := make([]string, len(schema.Suggest))
	for i, col := range schema.Suggest {
		ors[i] = col + " ILIKE $1"
	}

	order := make([]string, len(schema.SuggestOrder))
	for i, col := range schema.SuggestOrder {
		order[i] = orderExpr(schema, col)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status = TRUE AND (%s)
		ORDER BY %s, id
		LIMIT $2`,
		columnList(kind), schema.Table,
		strings.Join(ors, " OR "),
		strings.Join(order, ", "),
	)

	return r.queryRecords(ctx, kind, query, "%"+escapeLike(strings.TrimSpace(q))+"%", limit)
}

func (r pgReader) queryRecords(ctx context.Context, kind domain.Kind, query string, args ...any) ([]domain.Record, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query "+string(kind))
	}
	defer rows.Close()

	var recs []domain.Record
	for rows.Next() {
		rec := domain.MustNew(kind)
		if err := rows.Scan(scanTargets(rec)...); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan "+string(kind))
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to read "+string(kind))
	}

	if err := r.loadSectors(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// loadSectors fills SectorIDs for any victims in recs.
func (r pgReader) loadSectors(ctx context.Context, recs []domain.Record) error {
	victims := map[types.ID]*domain.Victim{}
	var ids []string
	for _, rec := range recs {
		if v, ok := rec.(*domain.Victim); ok {
			v.SectorIDs = []types.ID{}
			victims[v.ID] = v
			ids = append(ids, v.ID.String())
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.q.Query(ctx, `
		SELECT victim_id, sector_id FROM victim_sectors
		WHERE victim_id = ANY($1::uuid[])
		ORDER BY victim_id, sector_id`, ids)
	if err != nil {
		return apperrors.Wrap(err, "failed to load victim sectors")
	}
	defer rows.Close()

	for rows.Next() {
		var victimID, sectorID types.ID
		if err := rows.Scan(&victimID, &sectorID); err != nil {
			return apperrors.Wrap(err, "failed to scan victim sector")
		}
		if v, ok := victims[victimID]; ok {
			v.SectorIDs = append(v.SectorIDs, sectorID)
		}
	}
	return rows.Err()
}

func (r pgReader) Revisions(ctx context.Context, kind domain.Kind, id types.ID) ([]domain.Revision, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, entity_kind, entity_id, number, actor_id, created_at, log, snapshot, prev_hash, hash
		FROM revisions
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY number`, string(kind), id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query revisions")
	}
	defer rows.Close()

	var revs []domain.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, *rev)
	}
	return revs, rows.Err()
}

func scanRevision(row pgx.Row) (*domain.Revision, error) {
	var rev domain.Revision
	var kind string
	var snapshot []byte
	err := row.Scan(
		&rev.ID, &kind, &rev.EntityID, &rev.Number, &rev.ActorID,
		&rev.CreatedAt, &rev.Log, &snapshot, &rev.PrevHash, &rev.Hash,
	)
	if err != nil {
		return nil, err
	}
	rev.EntityKind = domain.Kind(kind)
	rev.Snapshot = snapshot
	return &rev, nil
}

const incidentVictimColumns = `id, incident_id, victim_id, date_of_detention, place_of_arrest,
	place_of_detention, charges, already_released, remarks_on_release,
	owner_id, status, created_at, updated_at`

func scanIncidentVictim(row pgx.Row) (*domain.IncidentVictim, error) {
	var iv domain.IncidentVictim
	d := &iv.Detention
	err := row.Scan(
		&iv.ID, &iv.IncidentID, &iv.VictimID, &d.DateOfDetention, &d.PlaceOfArrest,
		&d.PlaceOfDetention, &d.Charges, &d.AlreadyReleased, &d.RemarksOnRelease,
		&iv.OwnerID, &iv.Status, &iv.CreatedAt, &iv.UpdatedAt,
	)
	return &iv, err
}

func (r pgReader) IncidentVictims(ctx context.Context, incidentID types.ID) ([]domain.IncidentVictim, error) {
	rows, err := r.q.Query(ctx, `SELECT `+incidentVictimColumns+`
		FROM incident_victims WHERE incident_id = $1
		ORDER BY created_at, id`, incidentID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query incident victims")
	}
	defer rows.Close()

	var out []domain.IncidentVictim
	for rows.Next() {
		iv, err := scanIncidentVictim(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan incident victim")
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}

const victimViolationColumns = `id, incident_victim_id, incident_id, victim_id, violation_id,
	description, owner_id, status, created_at, updated_at`

func scanVictimViolation(row pgx.Row) (*domain.IncidentVictimViolation, error) {
	var v domain.IncidentVictimViolation
	err := row.Scan(
		&v.ID, &v.IncidentVictimID, &v.IncidentID, &v.VictimID, &v.ViolationID,
		&v.Description, &v.OwnerID, &v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	return &v, err
}

func (r pgReader) VictimViolations(ctx context.Context, incidentVictimID types.ID) ([]domain.IncidentVictimViolation, error) {
	rows, err := r.q.Query(ctx, `SELECT `+victimViolationColumns+`
		FROM incident_victim_violations WHERE incident_victim_id = $1
		ORDER BY created_at, id`, incidentVictimID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query victim violations")
	}
	defer rows.Close()

	var out []domain.IncidentVictimViolation
	for rows.Next() {
		v, err := scanVictimViolation(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan victim violation")
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

const incidentPerpetratorColumns = `id, incident_id, perpetrator_id, description,
	owner_id, status, created_at, updated_at`

func scanIncidentPerpetrator(row pgx.Row) (*domain.IncidentPerpetrator, error) {
	var ip domain.IncidentPerpetrator
	err := row.Scan(
		&ip.ID, &ip.IncidentID, &ip.PerpetratorID, &ip.Description,
		&ip.OwnerID, &ip.Status, &ip.CreatedAt, &ip.UpdatedAt,
	)
	return &ip, err
}

func (r pgReader) IncidentPerpetrators(ctx context.Context, incidentID types.ID) ([]domain.IncidentPerpetrator, error) {
	rows, err := r.q.Query(ctx, `SELECT `+incidentPerpetratorColumns+`
		FROM incident_perpetrators WHERE incident_id = $1
		ORDER BY created_at, id`, incidentID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query incident perpetrators")
	}
	defer rows.Close()

	var out []domain.IncidentPerpetrator
	for rows.Next() {
		ip, err := scanIncidentPerpetrator(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan incident perpetrator")
		}
		out = append(out, *ip)
	}
	return out, rows.Err()
}

func (r pgReader) CaseUpdates(ctx context.Context, incidentID types.ID) ([]domain.CaseUpdate, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, incident_id, actor_id, note, created_at
		FROM case_updates WHERE incident_id = $1
		ORDER BY created_at DESC, id DESC`, incidentID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query case updates")
	}

	var updates []domain.CaseUpdate
	index := map[types.ID]int{}
	var ids []string
	for rows.Next() {
		var u domain.CaseUpdate
		if err := rows.Scan(&u.ID, &u.IncidentID, &u.ActorID, &u.Note, &u.CreatedAt); err != nil {
			rows.Close()
			return nil, apperrors.Wrap(err, "failed to scan case update")
		}
		u.Documents = []domain.CaseUpdateDocument{}
		index[u.ID] = len(updates)
		ids = append(ids, u.ID.String())
		updates = append(updates, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to read case updates")
	}
	if len(ids) == 0 {
		return updates, nil
	}

	docRows, err := r.q.Query(ctx, `
		SELECT id, case_update_id, file_ref, description, file_date, created_at
		FROM case_update_documents
		WHERE case_update_id = ANY($1::uuid[])
		ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query case update documents")
	}
	defer docRows.Close()

	for docRows.Next() {
		var d domain.CaseUpdateDocument
		if err := docRows.Scan(&d.ID, &d.CaseUpdateID, &d.FileRef, &d.Description, &d.FileDate, &d.CreatedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan case update document")
		}
		i := index[d.CaseUpdateID]
		updates[i].Documents = append(updates[i].Documents, d)
	}
	return updates, docRows.Err()
}

const blobColumns = `file_ref, object_key, filename, content_type, size, usage_count, permanent, owner_id, created_at`

func scanBlob(row pgx.Row) (*domain.Blob, error) {
	var b domain.Blob
	err := row.Scan(&b.FileRef, &b.ObjectKey, &b.Filename, &b.ContentType, &b.Size,
		&b.UsageCount, &b.Permanent, &b.OwnerID, &b.CreatedAt)
	return &b, err
}

func (r pgReader) Blob(ctx context.Context, fileRef string) (*domain.Blob, error) {
	b, err := scanBlob(r.q.QueryRow(ctx, `SELECT `+blobColumns+` FROM blobs WHERE file_ref = $1`, fileRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("file", fileRef)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find file")
	}
	return b, nil
}

// pgTx implements domain.Tx
type pgTx struct {
	pgReader
}

var _ domain.Tx = (*pgTx)(nil)

func (t *pgTx) NextSerial(ctx context.Context, period string) (int, error) {
	var serial int
	err := t.q.QueryRow(ctx, `
		INSERT INTO case_number_counters (period, last_serial) VALUES ($1, 1)
		ON CONFLICT (period) DO UPDATE SET last_serial = case_number_counters.last_serial + 1
		RETURNING last_serial`, period).Scan(&serial)
	if err != nil {
		return 0, storeErr(err, "failed to draw case number serial")
	}
	return serial, nil
}

func (t *pgTx) Insert(ctx context.Context, rec domain.Record) error {
	kind := rec.Kind()
	values := append(rec.Base().MetaFields(), rec.Fields()...)

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		kind.Schema().Table, columnList(kind), placeholders(1, len(values)))
	if _, err := t.q.Exec(ctx, query, values...); err != nil {
		return storeErr(err, "failed to save "+string(kind))
	}

	return t.saveSectors(ctx, rec)
}

func (t *pgTx) Update(ctx context.Context, rec domain.Record) error {
	kind := rec.Kind()
	meta := rec.Base()
	cols := append([]string{"status", "owner_id", "updated_at", "revision_id", "revision_user", "revision_timestamp", "revision_log"},
		kind.Schema().Columns...)
	values := append([]any{meta.ID, meta.Status, meta.OwnerID, meta.UpdatedAt, meta.RevisionID, meta.RevisionUser, meta.RevisionTimestamp, meta.RevisionLog},
		rec.Fields()...)

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+2)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, kind.Schema().Table, strings.Join(sets, ", "))
	result, err := t.q.Exec(ctx, query, values...)
	if err != nil {
		return storeErr(err, "failed to update "+string(kind))
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(string(kind), meta.ID.String())
	}

	return t.saveSectors(ctx, rec)
}

// saveSectors replaces a victim's sector memberships.
func (t *pgTx) saveSectors(ctx context.Context, rec domain.Record) error {
	v, ok := rec.(*domain.Victim)
	if !ok {
		return nil
	}
	if _, err := t.q.Exec(ctx, `DELETE FROM victim_sectors WHERE victim_id = $1`, v.ID); err != nil {
		return storeErr(err, "failed to clear victim sectors")
	}
	for _, sectorID := range v.SectorIDs {
		if _, err := t.q.Exec(ctx, `INSERT INTO victim_sectors (victim_id, sector_id) VALUES ($1, $2)`, v.ID, sectorID); err != nil {
			return storeErr(err, "failed to save victim sector")
		}
	}
	return nil
}

func (t *pgTx) Delete(ctx context.Context, kind domain.Kind, id types.ID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, kind.Schema().Table)
	result, err := t.q.Exec(ctx, query, id)
	if err != nil {
		return storeErr(err, "failed to delete "+string(kind))
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(string(kind), id.String())
	}
	return nil
}

var referenceQueries = map[domain.Kind]string{
	domain.KindLocation: `SELECT
		(SELECT COUNT(*) FROM incidents WHERE location_id = $1) +
		(SELECT COUNT(*) FROM victims WHERE location_id = $1) +
		(SELECT COUNT(*) FROM perpetrators WHERE location_id = $1)`,
	domain.KindSector:      `SELECT COUNT(*) FROM victim_sectors WHERE sector_id = $1`,
	domain.KindPerpetrator: `SELECT COUNT(*) FROM incident_perpetrators WHERE perpetrator_id = $1`,
	domain.KindIncident: `SELECT
		(SELECT COUNT(*) FROM incident_victims WHERE incident_id = $1) +
		(SELECT COUNT(*) FROM incident_perpetrators WHERE incident_id = $1) +
		(SELECT COUNT(*) FROM case_updates WHERE incident_id = $1)`,
	domain.KindVictim:    `SELECT COUNT(*) FROM incident_victims WHERE victim_id = $1`,
	domain.KindViolation: `SELECT COUNT(*) FROM incident_victim_violations WHERE violation_id = $1`,
}

func (t *pgTx) ReferenceCount(ctx context.Context, kind domain.Kind, id types.ID) (int, error) {
	var n int
	if err := t.q.QueryRow(ctx, referenceQueries[kind], id).Scan(&n); err != nil {
		return 0, apperrors.Wrap(err, "failed to count references")
	}
	return n, nil
}

func (t *pgTx) LastRevision(ctx context.Context, kind domain.Kind, id types.ID) (*domain.Revision, error) {
	rev, err := scanRevision(t.q.QueryRow(ctx, `
		SELECT id, entity_kind, entity_id, number, actor_id, created_at, log, snapshot, prev_hash, hash
		FROM revisions
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY number DESC
		LIMIT 1`, string(kind), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find last revision")
	}
	return rev, nil
}

func (t *pgTx) AppendRevision(ctx context.Context, rev *domain.Revision) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO revisions (id, entity_kind, entity_id, number, actor_id, created_at, log, snapshot, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rev.ID, string(rev.EntityKind), rev.EntityID, rev.Number, rev.ActorID,
		rev.CreatedAt, rev.Log, []byte(rev.Snapshot), rev.PrevHash, rev.Hash,
	)
	if err != nil {
		return storeErr(err, "failed to save revision")
	}
	return nil
}

func (t *pgTx) FindIncidentVictim(ctx context.Context, incidentID, victimID types.ID) (*domain.IncidentVictim, error) {
	iv, err := scanIncidentVictim(t.q.QueryRow(ctx, `SELECT `+incidentVictimColumns+`
		FROM incident_victims WHERE incident_id = $1 AND victim_id = $2
		FOR UPDATE`, incidentID, victimID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("incident_victim", incidentID.String()+"/"+victimID.String())
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find incident victim")
	}
	return iv, nil
}

func (t *pgTx) InsertIncidentVictim(ctx context.Context, iv *domain.IncidentVictim) error {
	d := iv.Detention
	result, err := t.q.Exec(ctx, `INSERT INTO incident_victims (`+incidentVictimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (incident_id, victim_id) DO NOTHING`,
		iv.ID, iv.IncidentID, iv.VictimID, d.DateOfDetention, d.PlaceOfArrest,
		d.PlaceOfDetention, d.Charges, d.AlreadyReleased, d.RemarksOnRelease,
		iv.OwnerID, iv.Status, iv.CreatedAt, iv.UpdatedAt,
	)
	return insertedOrDuplicate(result, err, "incident victim")
}

func (t *pgTx) UpdateIncidentVictim(ctx context.Context, iv *domain.IncidentVictim) error {
	d := iv.Detention
	result, err := t.q.Exec(ctx, `
		UPDATE incident_victims SET
			date_of_detention = $2, place_of_arrest = $3, place_of_detention = $4,
			charges = $5, already_released = $6, remarks_on_release = $7,
			status = $8, updated_at = $9
		WHERE id = $1`,
		iv.ID, d.DateOfDetention, d.PlaceOfArrest, d.PlaceOfDetention,
		d.Charges, d.AlreadyReleased, d.RemarksOnRelease,
		iv.Status, iv.UpdatedAt,
	)
	if err != nil {
		return storeErr(err, "failed to update incident victim")
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("incident_victim", iv.ID.String())
	}
	return nil
}

func (t *pgTx) DeleteIncidentVictim(ctx context.Context, id types.ID) error {
	return t.deleteByID(ctx, "incident_victims", "incident_victim", id)
}

func (t *pgTx) FindVictimViolation(ctx context.Context, incidentVictimID, violationID types.ID) (*domain.IncidentVictimViolation, error) {
	v, err := scanVictimViolation(t.q.QueryRow(ctx, `SELECT `+victimViolationColumns+`
		FROM incident_victim_violations WHERE incident_victim_id = $1 AND violation_id = $2
		FOR UPDATE`, incidentVictimID, violationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("incident_victim_violation", incidentVictimID.String()+"/"+violationID.String())
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find victim violation")
	}
	return v, nil
}

func (t *pgTx) InsertVictimViolation(ctx context.Context, v *domain.IncidentVictimViolation) error {
	result, err := t.q.Exec(ctx, `INSERT INTO incident_victim_violations (`+victimViolationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (incident_victim_id, incident_id, victim_id, violation_id) DO NOTHING`,
		v.ID, v.IncidentVictimID, v.IncidentID, v.VictimID, v.ViolationID,
		v.Description, v.OwnerID, v.Status, v.CreatedAt, v.UpdatedAt,
	)
	return insertedOrDuplicate(result, err, "victim violation")
}

func (t *pgTx) UpdateVictimViolation(ctx context.Context, v *domain.IncidentVictimViolation) error {
	result, err := t.q.Exec(ctx, `
		UPDATE incident_victim_violations SET description = $2, status = $3, updated_at = $4
		WHERE id = $1`, v.ID, v.Description, v.Status, v.UpdatedAt)
	if err != nil {
		return storeErr(err, "failed to update victim violation")
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("incident_victim_violation", v.ID.String())
	}
	return nil
}

func (t *pgTx) DeleteVictimViolation(ctx context.Context, id types.ID) error {
	return t.deleteByID(ctx, "incident_victim_violations", "incident_victim_violation", id)
}

func (t *pgTx) FindIncidentPerpetrator(ctx context.Context, incidentID, perpetratorID types.ID) (*domain.IncidentPerpetrator, error) {
	ip, err := scanIncidentPerpetrator(t.q.QueryRow(ctx, `SELECT `+incidentPerpetratorColumns+`
		FROM incident_perpetrators WHERE incident_id = $1 AND perpetrator_id = $2
		FOR UPDATE`, incidentID, perpetratorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("incident_perpetrator", incidentID.String()+"/"+perpetratorID.String())
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find incident perpetrator")
	}
	return ip, nil
}

func (t *pgTx) InsertIncidentPerpetrator(ctx context.Context, ip *domain.IncidentPerpetrator) error {
	result, err := t.q.Exec(ctx, `INSERT INTO incident_perpetrators (`+incidentPerpetratorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (incident_id, perpetrator_id) DO NOTHING`,
		ip.ID, ip.IncidentID, ip.PerpetratorID, ip.Description,
		ip.OwnerID, ip.Status, ip.CreatedAt, ip.UpdatedAt,
	)
	return insertedOrDuplicate(result, err, "incident perpetrator")
}

// insertedOrDuplicate turns a skipped ON CONFLICT DO NOTHING insert into ErrDuplicate.
// The transaction stays usable, so callers can fall back to an update.
func insertedOrDuplicate(result pgconn.CommandTag, err error, what string) error {
	if err != nil {
		return storeErr(err, "failed to save "+what)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, what)
	}
	return nil
}

func (t *pgTx) UpdateIncidentPerpetrator(ctx context.Context, ip *domain.IncidentPerpetrator) error {
	result, err := t.q.Exec(ctx, `
		UPDATE incident_perpetrators SET description = $2, status = $3, updated_at = $4
		WHERE id = $1`, ip.ID, ip.Description, ip.Status, ip.UpdatedAt)
	if err != nil {
		return storeErr(err, "failed to update incident perpetrator")
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("incident_perpetrator", ip.ID.String())
	}
	return nil
}

func (t *pgTx) DeleteIncidentPerpetrator(ctx context.Context, id types.ID) error {
	return t.deleteByID(ctx, "incident_perpetrators", "incident_perpetrator", id)
}

func (t *pgTx) deleteByID(ctx context.Context, table, kind string, id types.ID) error {
	result, err := t.q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return storeErr(err, "failed to delete "+kind)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(kind, id.String())
	}
	return nil
}

func (t *pgTx) InsertCaseUpdate(ctx context.Context, u *domain.CaseUpdate) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO case_updates (id, incident_id, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.IncidentID, u.ActorID, u.Note, u.CreatedAt,
	)
	if err != nil {
		return storeErr(err, "failed to save case update")
	}

	for _, d := range u.Documents {
		_, err := t.q.Exec(ctx, `
			INSERT INTO case_update_documents (id, case_update_id, file_ref, description, file_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, d.CaseUpdateID, d.FileRef, d.Description, d.FileDate, d.CreatedAt,
		)
		if err != nil {
			return storeErr(err, "failed to save case update document")
		}
	}
	return nil
}

func (t *pgTx) InsertBlob(ctx context.Context, b *domain.Blob) error {
	_, err := t.q.Exec(ctx, `INSERT INTO blobs (`+blobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.FileRef, b.ObjectKey, b.Filename, b.ContentType, b.Size,
		b.UsageCount, b.Permanent, b.OwnerID, b.CreatedAt,
	)
	if err != nil {
		return storeErr(err, "failed to save file")
	}
	return nil
}

func (t *pgTx) UseBlob(ctx context.Context, fileRef string) error {
	result, err := t.q.Exec(ctx, `
		UPDATE blobs SET usage_count = usage_count + 1, permanent = TRUE
		WHERE file_ref = $1`, fileRef)
	if err != nil {
		return storeErr(err, "failed to record file usage")
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("file", fileRef)
	}
	return nil
}

func (t *pgTx) DeleteBlob(ctx context.Context, fileRef string) error {
	result, err := t.q.Exec(ctx, `DELETE FROM blobs WHERE file_ref = $1`, fileRef)
	if err != nil {
		return storeErr(err, "failed to delete file")
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("file", fileRef)
	}
	return nil
}

func (t *pgTx) OrphanBlobs(ctx context.Context, cutoff time.Time) ([]domain.Blob, error) {
	rows, err := t.q.Query(ctx, `SELECT `+blobColumns+` FROM blobs
		WHERE NOT permanent AND usage_count = 0 AND created_at < $1
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED`, cutoff)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query orphaned files")
	}
	defer rows.Close()

	var out []domain.Blob
	for rows.Next() {
		b, err := scanBlob(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan file")
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
