// Package sqlite provides a SQLite-backed storage driver with an FTS5
// full-text index.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite" // register the pure-Go SQLite driver as "sqlite"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/storage"
	"github.com/papercomputeco/meh/pkg/storage/sqldriver"
)

// bm25Weights ranks matches in path highest, then title, then the rest. The
// leading zero is the unindexed id column.
const bm25Weights = "0.0, 10.0, 5.0, 1.0, 1.0, 1.0"

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL,
	summary     TEXT,
	tags        TEXT NOT NULL DEFAULT '[]',
	source      TEXT NOT NULL DEFAULT 'local',
	namespace   TEXT NOT NULL DEFAULT '',
	trust_score REAL NOT NULL DEFAULT 0.5,
	status      TEXT NOT NULL DEFAULT 'active',
	fact_type   TEXT NOT NULL DEFAULT 'fact',
	supersedes  TEXT,
	extends     TEXT NOT NULL DEFAULT '[]',
	author_type TEXT NOT NULL DEFAULT 'ai',
	author_id   TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	accessed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_facts_path ON facts(path);
CREATE INDEX IF NOT EXISTS idx_facts_status ON facts(status);
CREATE INDEX IF NOT EXISTS idx_facts_supersedes ON facts(supersedes);
CREATE INDEX IF NOT EXISTS idx_facts_updated_at ON facts(updated_at);

CREATE VIRTUAL TABLE IF NOT EXISTS facts_fts USING fts5(
	id UNINDEXED,
	path,
	title,
	content,
	summary,
	tags,
	content='facts',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS facts_fts_insert AFTER INSERT ON facts BEGIN
	INSERT INTO facts_fts(rowid, id, path, title, content, summary, tags)
	VALUES (new.rowid, new.id, new.path, new.title, new.content, new.summary, new.tags);
END;
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

// Driver implements storage.Driver on a single SQLite connection.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver opens or creates the database at dbPath, which can be a file
// path or ":memory:".
func NewDriver(ctx context.Context, dbPath string, opts ...sqldriver.Option) (*Driver, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storage.Backend(err, "failed to open database")
	}

	// One connection: ":memory:" databases are per-connection, and writes
	// are serialized by the driver mutex anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, storage.Backend(err, "failed to apply %q", pragma)
		}
	}

	drv, err := sqldriver.New(ctx, db, Dialect{}, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: drv}, nil
}

// Dialect is the SQLite flavor of sqldriver.Dialect.
type Dialect struct{}

// Name implements sqldriver.Dialect.
func (Dialect) Name() string {
	return dialect.SQLite
}

// Migrate implements sqldriver.Dialect.
func (Dialect) Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SearchQuery implements sqldriver.Dialect with an FTS5 MATCH ranked by bm25.
// bm25 is lower-is-better, so the score is its negation.
func (Dialect) SearchQuery(tokens []string, limit int) (string, []any) {
	query := `SELECT ` + sqldriver.QualifiedColumns("f") + `, -bm25(facts_fts, ` + bm25Weights + `) AS score
FROM facts_fts
JOIN facts f ON f.rowid = facts_fts.rowid
WHERE facts_fts MATCH ? AND f.status = ?
ORDER BY score DESC, f.created_at DESC
LIMIT ?`

	return query, []any{MatchExpression(tokens), string(fact.StatusActive), limit}
}

// MatchExpression quotes every token as an FTS5 string and ORs them, so
// query syntax in user input is matched literally.
func MatchExpression(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// ChildrenQuery implements sqldriver.Dialect. Paths only hold ASCII
// characters, so byte offsets and SQLite character offsets agree.
func (Dialect) ChildrenQuery(prefix, cursor string, limit int) (string, []any) {
	query := `SELECT grouped_path, SUM(cnt) AS fact_count FROM (
	SELECT
		CASE
			WHEN instr(substr(path, ?1 + 1), '/') > 0
			THEN substr(path, 1, ?1 + instr(substr(path, ?1 + 1), '/') - 1)
			ELSE path
		END AS grouped_path,
		COUNT(*) AS cnt
	FROM facts
	WHERE status = ?2 AND path GLOB ?3
	GROUP BY path
)
WHERE grouped_path > ?4
GROUP BY grouped_path
ORDER BY grouped_path
LIMIT ?5`

	return query, []any{len(prefix), string(fact.StatusActive), globPrefix(prefix), cursor, limit}
}

// Below implements sqldriver.Dialect. GLOB is case-sensitive and treats "_"
// literally, unlike LIKE.
func (Dialect) Below(prefix string) *entsql.Predicate {
	return entsql.ExprP("path GLOB ?", globPrefix(prefix))
}

// RebuildIndex implements sqldriver.Dialect. The external-content FTS table
// has no delete trigger, so it is rebuilt from facts after deletes.
func (Dialect) RebuildIndex(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO facts_fts(facts_fts) VALUES('rebuild')`)
	return err
}

func globPrefix(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('*')
	return b.String()
}

var _ sqldriver.Dialect = Dialect{}
