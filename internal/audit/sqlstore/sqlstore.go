// Package sqlstore is an audit sink backed by SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
	// PostgreSQL via pgx's database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/model"
)

// Dialect selects SQL flavour differences.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func schema(d Dialect) string {
	float := "REAL"
	if d == Postgres {
		float = "DOUBLE PRECISION"
	}
	return `CREATE TABLE IF NOT EXISTS screenings (
	id              TEXT PRIMARY KEY,
	created_at      TEXT NOT NULL,
	source          TEXT NOT NULL,
	classifier      TEXT NOT NULL DEFAULT '',
	prediction      INTEGER NOT NULL,
	probability     ` + float + ` NOT NULL,
	risk_level      TEXT NOT NULL,
	total_score     INTEGER NOT NULL,
	recommendations TEXT,
	features        TEXT
);
CREATE INDEX IF NOT EXISTS idx_screenings_created_at ON screenings(created_at)`
}

// Store writes audit records to the screenings table.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	verbosity audit.Verbosity
}

// OpenSQLite opens or creates a SQLite database at path.
func OpenSQLite(path string, verbosity audit.Verbosity) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlstore: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
	}
	for _, p := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlstore: %s: %w", p, err)
		}
	}
	return New(context.Background(), db, SQLite, verbosity)
}

// OpenPostgres connects to dsn through pgx.
func OpenPostgres(ctx context.Context, dsn string, verbosity audit.Verbosity) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping postgres: %w", err)
	}
	return New(ctx, db, Postgres, verbosity)
}

// New wraps an open database and creates the schema if needed. The Store
// takes ownership of db.
func New(ctx context.Context, db *sql.DB, d Dialect, verbosity audit.Verbosity) (*Store, error) {
	s := &Store{db: db, dialect: d, verbosity: verbosity}
	for _, stmt := range strings.Split(schema(d), ";\n") {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlstore: migrate %s: %w", d, err)
		}
	}
	return s, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func marshalNullable(v any, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func (s *Store) Write(ctx context.Context, rec audit.Record) error {
	rec = audit.Format(rec, s.verbosity)
	recs, err := marshalNullable(rec.Recommendations, len(rec.Recommendations) == 0)
	if err != nil {
		return fmt.Errorf("sqlstore: marshal recommendations: %w", err)
	}
	feats, err := marshalNullable(rec.Features, len(rec.Features) == 0)
	if err != nil {
		return fmt.Errorf("sqlstore: marshal features: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO screenings
		(id, created_at, source, classifier, prediction, probability, risk_level, total_score, recommendations, features)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Timestamp.UTC().Format(timeLayout), rec.Source, rec.Classifier,
		rec.Prediction, rec.Probability, string(rec.RiskLevel), rec.TotalScore, recs, feats)
	if err != nil {
		return fmt.Errorf("sqlstore: insert %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
		id, created_at, source, classifier, prediction, probability, risk_level, total_score, recommendations, features
		FROM screenings ORDER BY created_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query: %w", err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var (
			rec         audit.Record
			created     string
			risk        string
			recs, feats sql.NullString
		)
		if err := rows.Scan(&rec.ID, &created, &rec.Source, &rec.Classifier, &rec.Prediction,
			&rec.Probability, &risk, &rec.TotalScore, &recs, &feats); err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}
		rec.Timestamp, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: record %s: %w", rec.ID, err)
		}
		rec.RiskLevel = model.RiskTier(risk)
		if recs.Valid {
			if err := json.Unmarshal([]byte(recs.String), &rec.Recommendations); err != nil {
				return nil, fmt.Errorf("sqlstore: record %s recommendations: %w", rec.ID, err)
			}
		}
		if feats.Valid {
			if err := json.Unmarshal([]byte(feats.String), &rec.Features); err != nil {
				return nil, fmt.Errorf("sqlstore: record %s features: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM screenings").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: count: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
