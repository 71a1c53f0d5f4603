package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vastu-check/api/internal/vastu"
)

var ErrNotFound = sql.ErrNoRows

// AnalysisRepo keeps every analysis and serves recent ones back as a cache
// keyed by (image_hash, engine, model).
type AnalysisRepo struct {
	DB     *sql.DB
	driver string
}

func NewAnalysisRepo(db *sql.DB, driver string) *AnalysisRepo {
	return &AnalysisRepo{DB: db, driver: driver}
}

type AnalysisRow struct {
	ID            string
	CreatedAt     time.Time
	Source        string // "http", "telegram", "cli"
	ChatID        int64
	ImageHash     string
	Engine        string
	Model         string
	Report        vastu.Report
	AnnotatedJPEG []byte
}

var schema = map[string][]string{
	DriverPostgres: {`
create table if not exists plan_analyses (
  id             uuid primary key,
  created_at     timestamptz not null,
  source         text not null,
  chat_id        bigint,
  image_hash     text not null,
  engine         text not null,
  model          text not null,
  total_rooms    integer not null,
  verified       integer not null,
  not_verified   integer not null,
  report_json    jsonb not null,
  annotated_jpeg bytea,
  unique (image_hash, engine, model)
)`,
		`create index if not exists plan_analyses_chat_idx on plan_analyses (chat_id, created_at)`,
	},
	DriverSQLite: {`
create table if not exists plan_analyses (
  id             text primary key,
  created_at     timestamp not null,
  source         text not null,
  chat_id        integer,
  image_hash     text not null,
  engine         text not null,
  model          text not null,
  total_rooms    integer not null,
  verified       integer not null,
  not_verified   integer not null,
  report_json    text not null,
  annotated_jpeg blob,
  unique (image_hash, engine, model)
)`,
		`create index if not exists plan_analyses_chat_idx on plan_analyses (chat_id, created_at)`,
	},
}

func (r *AnalysisRepo) EnsureSchema(ctx context.Context) error {
	stmts, ok := schema[r.driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", r.driver)
	}
	for _, q := range stmts {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Save stores row, replacing an earlier analysis of the same image with the
// same engine and model. The replaced row keeps its id, and a save without a
// chat keeps the chat and source it had. row.ID is set to the stored id.
func (r *AnalysisRepo) Save(ctx context.Context, row *AnalysisRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.CreatedAt = row.CreatedAt.UTC()
	js, err := json.Marshal(row.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	s := row.Report.Summary
	const q = `
insert into plan_analyses (
  id, created_at, source, chat_id, image_hash, engine, model,
  total_rooms, verified, not_verified, report_json, annotated_jpeg
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
on conflict (image_hash, engine, model) do update
set created_at = excluded.created_at,
    source = case when excluded.chat_id = 0 then plan_analyses.source else excluded.source end,
    chat_id = coalesce(nullif(excluded.chat_id, 0), plan_analyses.chat_id),
    total_rooms = excluded.total_rooms,
    verified = excluded.verified,
    not_verified = excluded.not_verified,
    report_json = excluded.report_json,
    annotated_jpeg = excluded.annotated_jpeg
returning id`
	err = r.DB.QueryRowContext(ctx, rebind(r.driver, q),
		row.ID, row.CreatedAt, row.Source, row.ChatID, row.ImageHash, row.Engine, row.Model,
		s.TotalRoomsAnalyzed, s.VerifiedPlacements, s.NotVerifiedPlacements, string(js), row.AnnotatedJPEG,
	).Scan(&row.ID)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// FindByHash returns the newest analysis for the key. With maxAge > 0 an
// older row counts as missing.
func (r *AnalysisRepo) FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*AnalysisRow, error) {
	const q = `
select id, created_at, source, coalesce(chat_id,0), image_hash, engine, model,
       report_json, annotated_jpeg
from plan_analyses
where image_hash = $1 and engine = $2 and model = $3
order by created_at desc
limit 1`
	var (
		row AnalysisRow
		js  []byte
	)
	err := r.DB.QueryRowContext(ctx, rebind(r.driver, q), imageHash, engine, model).Scan(
		&row.ID, &row.CreatedAt, &row.Source, &row.ChatID, &row.ImageHash, &row.Engine, &row.Model,
		&js, &row.AnnotatedJPEG,
	)
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(row.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	if err := json.Unmarshal(js, &row.Report); err != nil {
		// a row we cannot read is treated as absent
		return nil, ErrNotFound
	}
	return &row, nil
}

// ChatSummary is one line of a chat's history.
type ChatSummary struct {
	ID        string
	CreatedAt time.Time
	Engine    string
	Summary   vastu.Summary
}

// ListByChat returns the newest analyses of a chat, newest first.
func (r *AnalysisRepo) ListByChat(ctx context.Context, chatID int64, limit int) ([]ChatSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
select id, created_at, engine, total_rooms, verified, not_verified
from plan_analyses
where chat_id = $1
order by created_at desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, rebind(r.driver, q), chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatSummary
	for rows.Next() {
		var s ChatSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.Engine,
			&s.Summary.TotalRoomsAnalyzed, &s.Summary.VerifiedPlacements, &s.Summary.NotVerifiedPlacements); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PurgeOlderThan drops cached analyses older than olderThan.
func (r *AnalysisRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan).UTC()
	const q = `delete from plan_analyses where created_at < $1`
	res, err := r.DB.ExecContext(ctx, rebind(r.driver, q), cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
