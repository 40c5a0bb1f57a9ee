package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/postgres"
)

// Schema creates the tables used by Store.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS evaluation_runs (
	    id          BIGSERIAL PRIMARY KEY,
	    run_id      TEXT NOT NULL,
	    summary     JSONB NOT NULL,
	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS evaluation_scores (
	    run_pk   BIGINT NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
	    setting  TEXT NOT NULL,
	    measure  TEXT NOT NULL,
	    value    DOUBLE PRECISION,
	    p_value  DOUBLE PRECISION,
	    PRIMARY KEY (run_pk, setting, measure)
	)`,
}

// Summary is the persisted form of a report. Undefined values (NaN) are
// stored as null.
type Summary struct {
	RunID       string           `json:"run_id"`
	CreatedAt   time.Time        `json:"created_at"`
	Baseline    string           `json:"baseline"`
	SortMeasure string           `json:"sort_measure"`
	NumQueries  int              `json:"num_queries"`
	Failed      []string         `json:"failed"`
	Duration    time.Duration    `json:"duration"`
	Settings    []SettingSummary `json:"settings"`
}

type SettingSummary struct {
	Label    string              `json:"label"`
	Rankings int                 `json:"rankings"`
	Scores   map[string]*float64 `json:"scores"`
	PValues  map[string]*float64 `json:"p_values"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Summarize flattens r into a Summary, keeping the report's setting order.
func Summarize(r *evaluation.Report, now time.Time) Summary {
	s := Summary{
		RunID:       r.RunID,
		CreatedAt:   now.UTC(),
		Baseline:    r.Baseline.Label,
		SortMeasure: r.SortMeasure.String(),
		NumQueries:  r.NumQueries,
		Failed:      make([]string, 0, len(r.Failures)),
		Duration:    r.Duration,
	}
	for _, f := range r.Failures {
		s.Failed = append(s.Failed, f.QueryID)
	}
	for _, res := range r.Settings {
		ss := SettingSummary{
			Label:    res.Setting.Label,
			Rankings: res.Score.NumRankings(),
			Scores:   make(map[string]*float64, len(r.Measures)),
			PValues:  make(map[string]*float64, len(r.Measures)),
		}
		for _, m := range r.Measures {
			ss.Scores[m.String()] = nullable(res.Score.Get(m))
			ss.PValues[m.String()] = nullable(res.PValue(m))
		}
		s.Settings = append(s.Settings, ss)
	}
	return s
}

// Store persists run summaries in PostgreSQL. The tables are created by
// EnsureSchema.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "report-store"),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.Migrate(ctx, Schema...); err != nil {
		return fmt.Errorf("creating report schema: %w", err)
	}
	return nil
}

// Save writes the summary row and one score row per setting and measure in
// a single transaction. It returns the database ID of the run.
func (s *Store) Save(ctx context.Context, r *evaluation.Report) (int64, error) {
	summary := Summarize(r, time.Now())
	data, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("marshaling run summary: %w", err)
	}

	var id int64
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO evaluation_runs (run_id, summary, created_at) VALUES ($1, $2, $3) RETURNING id`,
			summary.RunID, data, summary.CreatedAt,
		).Scan(&id); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO evaluation_scores (run_pk, setting, measure, value, p_value) VALUES ($1, $2, $3, $4, $5)`,
		)
		if err != nil {
			return fmt.Errorf("preparing score insert: %w", err)
		}
		defer stmt.Close()
		for _, st := range summary.Settings {
			for _, m := range r.Measures {
				name := m.String()
				if _, err := stmt.ExecContext(ctx, id, st.Label, name, st.Scores[name], st.PValues[name]); err != nil {
					return fmt.Errorf("inserting score %s/%s: %w", st.Label, name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("saving evaluation run: %w", err)
	}

	s.logger.Info("evaluation run saved",
		"id", id,
		"run_id", summary.RunID,
		"settings", len(summary.Settings),
	)
	return id, nil
}

// Latest loads the most recent summary. It returns nil, nil when no run
// has been stored.
func (s *Store) Latest(ctx context.Context) (*Summary, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT summary FROM evaluation_runs ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshaling run summary: %w", err)
	}
	return &summary, nil
}

// List returns the last limit summaries, newest first. Corrupt rows are
// skipped.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT summary FROM evaluation_runs ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		var summary Summary
		if err := json.Unmarshal(data, &summary); err != nil {
			s.logger.Warn("skipping corrupt run summary", "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
