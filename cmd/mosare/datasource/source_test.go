package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
		Timeout:      5 * time.Second,
		Log:          zerolog.Nop(),
	})
}

func TestBytesSource_Load(t *testing.T) {
	src := NewBytesSource("CarteraVisare", []byte("NUM-DOCMTO\n1-1\n1-2\n"), newTestLoader(t, ""))

	table, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "CarteraVisare", src.Name())
	assert.Equal(t, 2, table.Len())
}

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CarteraVisare.txt")
	require.NoError(t, os.WriteFile(path, []byte("NUM-DOCMTO\n1-1\n"), 0o644))

	table, err := NewFileSource("CarteraVisare", path, newTestLoader(t, "")).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1-1", table.Value(0, "NUM-DOCMTO"))

	_, err = NewFileSource("CarteraVisare", filepath.Join(t.TempDir(), "missing.txt"), newTestLoader(t, "")).Load(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("DNI|EXAMEN\n1|82043\n"))
	}))
	defer srv.Close()

	src := NewHTTPSource("ResulExam_PatCli", srv.URL+"/resul.txt", newTestLoader(t, ""), newTestClient())
	table, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "82043", table.Value(0, "EXAMEN"))
}

func TestHTTPSource_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src := NewHTTPSource("ResulExam_PatCli", srv.URL, newTestLoader(t, ""), newTestClient())
	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestResolveSource(t *testing.T) {
	loader := newTestLoader(t, "")
	client := newTestClient()

	assert.IsType(t, &HTTPSource{}, ResolveSource("a", "https://example.org/a.txt", loader, client))
	assert.IsType(t, &HTTPSource{}, ResolveSource("a", "HTTP://example.org/a.txt", loader, client))
	assert.IsType(t, &FileSource{}, ResolveSource("a", "./data/a.txt", loader, client))
}

func TestSQLSource_Load(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlmock")

	mock.ExpectQuery(regexp.QuoteMeta(DefaultRosterQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"NUM-DOCMTO"}).
			AddRow("1-11111111").
			AddRow(nil).
			AddRow([]byte("1-22222222")))

	table, err := NewSQLSource("CarteraVisare", db, "", zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"NUM-DOCMTO"}, table.Columns)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, "1-11111111", table.Value(0, "NUM-DOCMTO"))
	assert.Equal(t, "", table.Value(1, "NUM-DOCMTO"))
	assert.Equal(t, "1-22222222", table.Value(2, "NUM-DOCMTO"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_QueryError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	_, err = NewSQLSource("CarteraVisare", sqlx.NewDb(mockDB, "sqlmock"), "SELECT 1", zerolog.Nop()).Load(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTextValue(t *testing.T) {
	assert.Equal(t, "42", textValue(int64(42)))
	assert.Equal(t, "1.5", textValue(1.5))
	assert.Equal(t, "true", textValue(true))
	assert.Equal(t, "2024-03-01", textValue(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}
