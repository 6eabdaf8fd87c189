package invoice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adhikarip/invoice-extractor/internal/schema"
)

// Pragmas carried in the DSN so they apply to every pooled connection,
// not just the one that happens to run an open-time Exec. WAL plus a
// busy timeout lets concurrent uploads append independently without
// stepping on each other.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)"

// created_at is assigned by the database, as unix seconds.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS invoice_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	file_content BLOB NOT NULL,
	extracted_schema_content TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
CREATE INDEX IF NOT EXISTS idx_invoice_logs_created_at ON invoice_logs (created_at);
`

// defaultListLimit caps a List call that does not specify a limit.
const defaultListLimit = 10

// SQLiteStore implements Store on a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create writes one row coupling filename, raw bytes and the serialized
// record. The insert is a single statement, so the row is atomic and
// the timestamp is server assigned.
func (s *SQLiteStore) Create(ctx context.Context, filename string, fileContent []byte, data *schema.InvoiceData) (int64, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("marshaling extracted data: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invoice_logs (filename, file_content, extracted_schema_content) VALUES (?, ?, ?)`,
		filename, fileContent, string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting invoice log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading assigned id: %w", err)
	}
	return id, nil
}

// Get retrieves a full log by id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Log, error) {
	var (
		log       Log
		payload   string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, file_content, extracted_schema_content, created_at FROM invoice_logs WHERE id = ?`,
		id,
	).Scan(&log.ID, &log.Filename, &log.FileContent, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying invoice log: %w", err)
	}

	log.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := json.Unmarshal([]byte(payload), &log.Extracted); err != nil {
		return nil, fmt.Errorf("unmarshaling extracted data: %w", err)
	}
	return &log, nil
}

// List returns a page of metadata, most recent first. The blob itself
// stays in the database; only its length travels.
func (s *SQLiteStore) List(ctx context.Context, q ListQuery) ([]Metadata, error) {
	where := ""
	args := make([]any, 0, 3)

	if q.Search != "" {
		switch q.Mode {
		case SearchByID:
			id, err := strconv.ParseInt(q.Search, 10, 64)
			if err != nil {
				// Searching by id with non-numeric text matches nothing.
				return []Metadata{}, nil
			}
			where = "WHERE id = ?"
			args = append(args, id)
		default:
			where = "WHERE instr(lower(filename), lower(?)) > 0"
			args = append(args, q.Search)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, q.Offset)

	query := fmt.Sprintf(
		`SELECT id, filename, extracted_schema_content, length(file_content), created_at
		 FROM invoice_logs %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		where,
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying invoice logs: %w", err)
	}
	defer rows.Close()

	results := make([]Metadata, 0)
	for rows.Next() {
		var (
			m         Metadata
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.Filename, &payload, &m.FileSize, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning invoice log: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		if err := json.Unmarshal([]byte(payload), &m.Extracted); err != nil {
			return nil, fmt.Errorf("unmarshaling extracted data: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice logs: %w", err)
	}
	return results, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
