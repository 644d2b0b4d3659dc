package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/remedymatch/pkg/remedymatch/classify"
	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// dsn sets busy_timeout on every pooled connection so concurrent writers
// wait for the lock instead of failing with SQLITE_BUSY.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)"
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS drugs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT,
	ingredients TEXT,
	benefits TEXT
);

CREATE TABLE IF NOT EXISTS remedies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	image_url TEXT,
	category TEXT,
	ingredients TEXT,
	benefits TEXT,
	evidence_level TEXT
);

CREATE TABLE IF NOT EXISTS drug_remedy_mappings (
	id TEXT PRIMARY KEY,
	drug_id TEXT NOT NULL,
	remedy_id TEXT NOT NULL,
	similarity_score REAL NOT NULL,
	matching_nutrients TEXT,
	replacement_type TEXT NOT NULL,
	run_id TEXT,
	created_at TEXT NOT NULL,
	UNIQUE(drug_id, remedy_id)
);

CREATE INDEX IF NOT EXISTS idx_mappings_drug ON drug_remedy_mappings(drug_id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertDrug inserts or updates a drug
func (s *sqliteStore) UpsertDrug(ctx context.Context, d store.Drug) error {
	if d.ID == "" {
		return fmt.Errorf("drug without id: %w", internalerr.ErrInvalidInput)
	}
	ingredients, err := encodeList(d.Ingredients)
	if err != nil {
		return err
	}
	benefits, err := encodeList(d.Benefits)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO drugs (id, name, category, ingredients, benefits)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	category=excluded.category,
	ingredients=excluded.ingredients,
	benefits=excluded.benefits;
`, d.ID, d.Name, d.Category, ingredients, benefits)
	return err
}

// GetDrug retrieves a drug by ID
func (s *sqliteStore) GetDrug(ctx context.Context, id string) (store.Drug, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, category, ingredients, benefits FROM drugs WHERE id = ?`, id)

	d, err := scanDrug(row)
	if err == sql.ErrNoRows {
		return store.Drug{}, false, nil
	}
	if err != nil {
		return store.Drug{}, false, err
	}
	return d, true, nil
}

// ListDrugs returns all drugs in insertion order
func (s *sqliteStore) ListDrugs(ctx context.Context) ([]store.Drug, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, category, ingredients, benefits FROM drugs ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drugs []store.Drug
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, err
		}
		drugs = append(drugs, d)
	}
	return drugs, rows.Err()
}

// UpsertRemedy inserts or updates a remedy
func (s *sqliteStore) UpsertRemedy(ctx context.Context, r store.Remedy) error {
	if r.ID == "" {
		return fmt.Errorf("remedy without id: %w", internalerr.ErrInvalidInput)
	}
	ingredients, err := encodeList(r.Ingredients)
	if err != nil {
		return err
	}
	benefits, err := encodeList(r.Benefits)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO remedies (id, name, description, image_url, category, ingredients, benefits, evidence_level)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	description=excluded.description,
	image_url=excluded.image_url,
	category=excluded.category,
	ingredients=excluded.ingredients,
	benefits=excluded.benefits,
	evidence_level=excluded.evidence_level;
`, r.ID, r.Name, r.Description, r.ImageURL, r.Category, ingredients, benefits, string(r.Evidence))
	return err
}

// ListRemedies returns every remedy in insertion order
func (s *sqliteStore) ListRemedies(ctx context.Context) ([]store.Remedy, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, description, image_url, category, ingredients, benefits, evidence_level
FROM remedies
ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var remedies []store.Remedy
	for rows.Next() {
		var (
			r                        store.Remedy
			desc, img, cat, ing, ben sql.NullString
			evidence                 sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &desc, &img, &cat, &ing, &ben, &evidence); err != nil {
			return nil, err
		}
		r.Description = desc.String
		r.ImageURL = img.String
		r.Category = cat.String
		r.Evidence = store.ParseEvidenceLevel(evidence.String)
		if r.Ingredients, err = decodeList(ing.String); err != nil {
			return nil, fmt.Errorf("remedy %s ingredients: %w", r.ID, err)
		}
		if r.Benefits, err = decodeList(ben.String); err != nil {
			return nil, fmt.Errorf("remedy %s benefits: %w", r.ID, err)
		}
		remedies = append(remedies, r)
	}
	return remedies, rows.Err()
}

// InsertMappings inserts mappings in one transaction, skipping any
// (drug_id, remedy_id) pair that already exists. Any other constraint
// violation, such as an ID reused for a different pair, aborts the batch.
func (s *sqliteStore) InsertMappings(ctx context.Context, mappings []store.Mapping) (int, error) {
	for _, m := range mappings {
		if err := store.ValidateMapping(m); err != nil {
			return 0, err
		}
	}
	if len(mappings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO drug_remedy_mappings
	(id, drug_id, remedy_id, similarity_score, matching_nutrients, replacement_type, run_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(drug_id, remedy_id) DO NOTHING;
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, m := range mappings {
		nutrients, err := encodeList(m.MatchingNutrients)
		if err != nil {
			return 0, err
		}
		id := m.ID
		if id == "" {
			id = m.Key()
		}
		created := m.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}

		res, err := stmt.ExecContext(ctx,
			id,
			m.DrugID,
			m.RemedyID,
			m.SimilarityScore,
			nutrients,
			string(m.ReplacementType),
			m.RunID,
			created.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return 0, fmt.Errorf("insert mapping %s→%s: %w", m.DrugID, m.RemedyID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListMappings retrieves the stored mappings for a drug
func (s *sqliteStore) ListMappings(ctx context.Context, drugID string) ([]store.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, drug_id, remedy_id, similarity_score, matching_nutrients, replacement_type, run_id, created_at
FROM drug_remedy_mappings
WHERE drug_id = ?
ORDER BY similarity_score DESC, remedy_id ASC;
`, drugID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []store.Mapping
	for rows.Next() {
		var (
			m                  store.Mapping
			nutrients, runID   sql.NullString
			replacement, stamp string
		)
		if err := rows.Scan(&m.ID, &m.DrugID, &m.RemedyID, &m.SimilarityScore, &nutrients, &replacement, &runID, &stamp); err != nil {
			return nil, err
		}
		if m.MatchingNutrients, err = decodeList(nutrients.String); err != nil {
			return nil, err
		}
		if replacement != "" {
			if m.ReplacementType, err = classify.ParseReplacementType(replacement); err != nil {
				return nil, err
			}
		}
		m.RunID = runID.String
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDrug(row rowScanner) (store.Drug, error) {
	var (
		d             store.Drug
		cat, ing, ben sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Name, &cat, &ing, &ben); err != nil {
		return store.Drug{}, err
	}
	d.Category = cat.String

	var err error
	if d.Ingredients, err = decodeList(ing.String); err != nil {
		return store.Drug{}, fmt.Errorf("drug %s ingredients: %w", d.ID, err)
	}
	if d.Benefits, err = decodeList(ben.String); err != nil {
		return store.Drug{}, fmt.Errorf("drug %s benefits: %w", d.ID, err)
	}
	return d, nil
}

func encodeList(items []string) (string, error) {
	data, err := json.Marshal(store.NormalizeList(items))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeList reads a list column. Rows written by older importers hold a
// delimited string rather than a JSON array; both come back as one list.
func decodeList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	if !strings.HasPrefix(raw, "[") {
		return store.SplitList(raw), nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return store.NormalizeList(items), nil
}
