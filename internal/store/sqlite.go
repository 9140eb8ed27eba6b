package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsift/internal/model"
)

var (
	// ErrUnknownColumn is returned when a row names a column a closed schema lacks.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrMissingKey is returned when a row has no job_url.
	ErrMissingKey = errors.New("row has no job_url")
)

// maxParams stays under SQLite's bound-parameter limit per statement.
const maxParams = 32000

// SQLiteStore persists listing and classification rows with upsert
// semantics keyed by job_url.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// modernc sqlite takes pragmas in the DSN.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Upsert merges rows into table, creating it from ds's schema if needed.
// The whole call is one transaction: either every row lands or none does.
func (s *SQLiteStore) Upsert(ctx context.Context, table string, ds Dataset, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if !identRe.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	sch, err := ds.schema()
	if err != nil {
		return err
	}

	cols, err := batchColumns(rows)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", table, err)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert into %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sch.createSQL(table)); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	if err := ensureColumns(ctx, tx, table, sch, cols); err != nil {
		return err
	}

	perStmt := max(1, maxParams/len(cols))
	for chunk := range slices.Chunk(rows, perStmt) {
		query, args := upsertSQL(table, cols, chunk)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upserting %d rows into %s: %w", len(chunk), table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert into %s: %w", table, err)
	}
	return nil
}

// batchColumns returns the union of row keys, key column first and the rest
// sorted, after checking names and keys.
func batchColumns(rows []Row) ([]string, error) {
	seen := map[string]bool{KeyColumn: true}
	var rest []string
	for i, row := range rows {
		key, _ := row[KeyColumn].(string)
		if key == "" {
			return nil, fmt.Errorf("row %d: %w", i, ErrMissingKey)
		}
		for col := range row {
			if seen[col] {
				continue
			}
			if !identRe.MatchString(col) {
				return nil, fmt.Errorf("row %d: invalid column name %q", i, col)
			}
			seen[col] = true
			rest = append(rest, col)
		}
	}
	slices.Sort(rest)
	return append([]string{KeyColumn}, rest...), nil
}

// ensureColumns adds missing columns to open schemas and rejects them for
// closed ones.
func ensureColumns(ctx context.Context, tx *sql.Tx, table string, sch schema, cols []string) error {
	existing, err := tableColumns(ctx, tx, table)
	if err != nil {
		return err
	}
	for _, col := range cols {
		if existing[col] {
			continue
		}
		if !sch.open {
			return fmt.Errorf("table %s: %q: %w", table, col, ErrUnknownColumn)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", quoteIdent(table), quoteIdent(col))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding column %s to %s: %w", col, table, err)
		}
	}
	return nil
}

func tableColumns(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// upsertSQL builds one multi-row INSERT with an ON CONFLICT clause that
// overwrites every non-key column. A key-only batch leaves existing rows alone.
func upsertSQL(table string, cols []string, rows []Row) (string, []any) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quoteIdent(table), strings.Join(quoted, ", "))

	args := make([]any, 0, len(rows)*len(cols))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholder)
		for _, c := range cols {
			args = append(args, encodeValue(row[c]))
		}
	}

	fmt.Fprintf(&b, " ON CONFLICT(%s) ", quoteIdent(KeyColumn))
	if len(cols) == 1 {
		b.WriteString("DO NOTHING")
		return b.String(), args
	}
	sets := make([]string, 0, len(cols)-1)
	for _, c := range quoted[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	b.WriteString("DO UPDATE SET " + strings.Join(sets, ", "))
	return b.String(), args
}

// encodeValue converts list and map values to JSON text; scalars pass through.
func encodeValue(v any) any {
	switch v.(type) {
	case nil, string, int, int64, float64, bool, time.Time:
		return v
	case []string, []any, map[string]string, map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

// ListListings returns every row of a listings table as JobListings, ordered
// by job_url. Columns beyond the fixed fields come back as criteria.
func (s *SQLiteStore) ListListings(ctx context.Context, table string) ([]model.JobListing, error) {
	rows, err := s.query(ctx, table, "")
	if err != nil {
		return nil, err
	}
	out := make([]model.JobListing, 0, len(rows))
	for _, r := range rows {
		out = append(out, listingFromRow(r))
	}
	return out, nil
}

// GetClassification loads the classification stored for jobURL. ok is false
// when no row exists.
func (s *SQLiteStore) GetClassification(ctx context.Context, table, jobURL string) (model.Classification, bool, error) {
	rows, err := s.query(ctx, table, jobURL)
	if err != nil || len(rows) == 0 {
		return model.Classification{}, false, err
	}

	r := rows[0]
	c := model.Classification{JobURL: jobURL, Fields: make(map[string]any, len(model.ClassificationFields))}
	for _, f := range model.ClassificationFields {
		v, _ := r[f].(string)
		if f == model.FieldSkillsMentioned {
			var skills []string
			if v != "" {
				if err := json.Unmarshal([]byte(v), &skills); err != nil {
					return model.Classification{}, false, fmt.Errorf("decoding %s for %s: %w", f, jobURL, err)
				}
			}
			c.Fields[f] = skills
			continue
		}
		c.Fields[f] = v
	}
	return c, true, nil
}

// Keys returns the job URLs already stored in table. A missing table holds none.
func (s *SQLiteStore) Keys(ctx context.Context, table string) (map[string]bool, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	keys := make(map[string]bool)
	existing, err := tableColumns(ctx, s.db, table)
	if err != nil || len(existing) == 0 {
		return keys, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", quoteIdent(KeyColumn), quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("querying keys of %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning keys of %s: %w", table, err)
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

// query selects all rows of table, or the one row for key when key is set.
// A table that does not exist yet reads as empty.
func (s *SQLiteStore) query(ctx context.Context, table, key string) ([]Row, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	existing, err := tableColumns(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}

	q := fmt.Sprintf("SELECT * FROM %s", quoteIdent(table))
	var args []any
	if key != "" {
		q += fmt.Sprintf(" WHERE %s = ?", quoteIdent(KeyColumn))
		args = append(args, key)
	}
	q += fmt.Sprintf(" ORDER BY %s", quoteIdent(KeyColumn))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = decodeValue(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// decodeValue normalizes driver values to strings where possible.
func decodeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		return v
	}
}

func listingFromRow(r Row) model.JobListing {
	str := func(k string) string {
		s, _ := r[k].(string)
		return s
	}
	j := model.JobListing{
		Title:       str("title"),
		Company:     str("company"),
		Location:    str("location"),
		PostingDate: str("posting_date"),
		JobURL:      str(KeyColumn),
		Description: str("job_description"),
	}
	fixed := []string{"title", "company", "location", "posting_date", KeyColumn, "job_description"}
	for k, v := range r {
		if v == nil || slices.Contains(fixed, k) {
			continue
		}
		if j.Criteria == nil {
			j.Criteria = make(map[string]string)
		}
		j.Criteria[k] = fmt.Sprint(v)
	}
	return j
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
