package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// DefaultTable holds incidents when no table is configured.
const DefaultTable = "incidents"

var incidentColumns = []string{
	"id", "title", "source", "author", "published_at", "content",
	"location", "airport_hangar_name", "url", "collected_at",
}

// PostgresRepository persists incidents in Postgres and answers nearest-neighbour queries
// through the pgvector cosine distance operator.
type PostgresRepository struct {
	db    *sql.DB
	table string
	psql  sq.StatementBuilderType
}

var _ ports.IncidentStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB opened with the lib/pq driver.
func NewPostgresRepository(db *sql.DB, table string) *PostgresRepository {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	return &PostgresRepository{
		db:    db,
		table: pq.QuoteIdentifier(table),
		psql:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Migrate creates the pgvector extension, the incidents table and its indexes.
func (r *PostgresRepository) Migrate(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return domain.ValidationError("migrate", fmt.Errorf("embedding dimensions must be positive, got %d", dimensions))
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id                  BIGSERIAL PRIMARY KEY,
			title               TEXT NOT NULL DEFAULT '',
			source              TEXT,
			author              TEXT,
			published_at        TEXT,
			content             TEXT,
			location            TEXT NOT NULL DEFAULT '',
			airport_hangar_name TEXT NOT NULL DEFAULT '',
			url                 TEXT[] NOT NULL DEFAULT '{}',
			embedding           vector(%d),
			collected_at        TEXT NOT NULL,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, r.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pq.QuoteIdentifier(r.indexName("embedding")), r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (collected_at)`,
			pq.QuoteIdentifier(r.indexName("collected_at")), r.table),
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return domain.StoreError("migrate", err)
		}
	}
	return nil
}

// Insert stores a new incident and returns it with the assigned id.
func (r *PostgresRepository) Insert(ctx context.Context, incident domain.Incident) (domain.Incident, error) {
	var embedding any
	if len(incident.Embedding) > 0 {
		embedding = sq.Expr("?::vector", VectorLiteral(incident.Embedding))
	}

	query, args, err := r.psql.Insert(r.table).
		Columns("title", "source", "author", "published_at", "content",
			"location", "airport_hangar_name", "url", "embedding", "collected_at").
		Values(
			incident.Title,
			nullString(incident.Source),
			nullString(incident.Author),
			nullString(incident.PublishedAt),
			nullString(incident.Content),
			incident.Location,
			incident.AirportHangarName,
			pq.Array(nonNil(incident.URLs)),
			embedding,
			incident.CollectedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.Incident{}, domain.StoreError("build insert", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&incident.ID); err != nil {
		return domain.Incident{}, domain.StoreError("insert incident", err)
	}
	return incident, nil
}

// Update writes the merged record. The embedding column is left as written on creation.
func (r *PostgresRepository) Update(ctx context.Context, incident domain.Incident) error {
	query, args, err := r.psql.Update(r.table).
		SetMap(map[string]any{
			"title":               incident.Title,
			"source":              nullString(incident.Source),
			"author":              nullString(incident.Author),
			"published_at":        nullString(incident.PublishedAt),
			"content":             nullString(incident.Content),
			"location":            incident.Location,
			"airport_hangar_name": incident.AirportHangarName,
			"url":                 pq.Array(nonNil(incident.URLs)),
			"collected_at":        incident.CollectedAt,
			"updated_at":          sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": incident.ID}).
		ToSql()
	if err != nil {
		return domain.StoreError("build update", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.StoreError(fmt.Sprintf("update incident %d", incident.ID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StoreError(fmt.Sprintf("update incident %d", incident.ID), err)
	}
	if n == 0 {
		return domain.StoreError(fmt.Sprintf("update incident %d", incident.ID), domain.ErrNotFound)
	}
	return nil
}

// Get loads one incident by id, without its embedding.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (domain.Incident, error) {
	query, args, err := r.psql.Select(incidentColumns...).
		From(r.table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Incident{}, domain.StoreError("build get", err)
	}

	inc, err := scanIncident(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Incident{}, domain.StoreError(fmt.Sprintf("get incident %d", id), domain.ErrNotFound)
	}
	if err != nil {
		return domain.Incident{}, domain.StoreError(fmt.Sprintf("get incident %d", id), err)
	}
	return inc, nil
}

// NearestNeighbors returns up to k incidents ordered by cosine distance, then by id.
func (r *PostgresRepository) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) == 0 {
		return nil, domain.ValidationError("nearest neighbors", errors.New("query vector is empty"))
	}

	literal := VectorLiteral(vector)
	query, args, err := r.psql.Select(incidentColumns...).
		Column(sq.Expr("1 - (embedding <=> ?::vector) AS similarity", literal)).
		From(r.table).
		Where("embedding IS NOT NULL").
		OrderByClause("embedding <=> ?::vector ASC, id ASC", literal).
		Limit(uint64(k)).
		ToSql()
	if err != nil {
		return nil, domain.StoreError("build nearest neighbors", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("query nearest neighbors", err)
	}
	defer rows.Close()

	neighbors := make([]domain.Neighbor, 0, k)
	for rows.Next() {
		var similarity float64
		inc, err := scanIncident(rows, &similarity)
		if err != nil {
			return nil, domain.StoreError("scan neighbor", err)
		}
		neighbors = append(neighbors, domain.Neighbor{Incident: inc, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate neighbors", err)
	}
	return neighbors, nil
}

// DeleteAll empties the incidents table.
func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	query, args, err := r.psql.Delete(r.table).ToSql()
	if err != nil {
		return domain.StoreError("build delete", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.StoreError("delete incidents", err)
	}
	return nil
}

// ListForReport returns every incident not imported from the document archive.
func (r *PostgresRepository) ListForReport(ctx context.Context) ([]domain.Incident, error) {
	query, args, err := r.psql.Select(incidentColumns...).
		From(r.table).
		Where(sq.NotEq{"collected_at": domain.TagArchive}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, domain.StoreError("build list", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("list incidents", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, domain.StoreError("scan incident", err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate incidents", err)
	}
	return out, nil
}

func (r *PostgresRepository) indexName(suffix string) string {
	return strings.Trim(r.table, `"`) + "_" + suffix + "_idx"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner, extra ...any) (domain.Incident, error) {
	var (
		inc                                  domain.Incident
		source, author, publishedAt, content sql.NullString
		urls                                 pq.StringArray
	)
	dest := []any{
		&inc.ID, &inc.Title, &source, &author, &publishedAt, &content,
		&inc.Location, &inc.AirportHangarName, &urls, &inc.CollectedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Incident{}, err
	}
	inc.Source = fromNull(source)
	inc.Author = fromNull(author)
	inc.PublishedAt = fromNull(publishedAt)
	inc.Content = fromNull(content)
	inc.URLs = []string(urls)
	return inc, nil
}

// VectorLiteral renders a vector in pgvector's text input format.
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
