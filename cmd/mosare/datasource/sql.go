package datasource

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// DefaultRosterQuery reads the CarteraVisare roster with the extract's column name
const DefaultRosterQuery = `SELECT num_docmto AS "NUM-DOCMTO" FROM cartera_visare`

// SQLSource reads an extract table from a database query. The result
// columns become the header; rows are already well-formed so no repair runs.
type SQLSource struct {
	name  string
	db    *sqlx.DB
	query string
	log   zerolog.Logger
}

// OpenRosterDB connects to the Postgres database holding the roster
func OpenRosterDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the roster database: %w", err)
	}
	return db, nil
}

// NewSQLSource creates a source backed by a query; an empty query falls back
// to DefaultRosterQuery.
func NewSQLSource(name string, db *sqlx.DB, query string, log zerolog.Logger) *SQLSource {
	if query == "" {
		query = DefaultRosterQuery
	}
	return &SQLSource{
		name:  name,
		db:    db,
		query: query,
		log:   log.With().Str("component", "sql_source").Logger(),
	}
}

func (s *SQLSource) Name() string { return s.name }

// Load executes the query and converts every value to its text form. NULLs
// become empty fields, like an empty column in a pipe extract.
func (s *SQLSource) Load(ctx context.Context) (*Table, error) {
	rows, err := s.db.QueryxContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading columns: %w", err)
	}

	var data [][]string
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		fields := make([]string, len(values))
		for i, v := range values {
			fields[i] = textValue(v)
		}
		data = append(data, fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	s.log.Debug().
		Str("source", s.name).
		Strs("columns", columns).
		Int("rows", len(data)).
		Msg("Loaded extract from database")

	return NewTable(s.name, columns, data), nil
}

func textValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}
