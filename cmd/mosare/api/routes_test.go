package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/cmd/mosare/output"
	"github.com/SanteonNL/mosare/cmd/mosare/processor"
	"github.com/SanteonNL/mosare/cmd/mosare/reference"
	"github.com/SanteonNL/mosare/cmd/mosare/repair"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	atenPayload = "DOC_PACIENTE|PACIENTE|CENTRO|PERIODO|FECHA_CITA|ANNOS\n" +
		"87654321|ROSA DIAZ|646|202402|2024-01-20|61\n" +
		"12345678|JUAN PEREZ|478|202402|2024-01-15|54\n"
	resulPayload = "DNI|EXAMEN|FECHA_RESULTADO|CENTRO|PERIODO|PACIENTE|FECHA_CITA\n" +
		"87654321|82043|2024-02-01|646|202402|ROSA DIAZ|2024-01-20\n" +
		"87654321|82565|2024-02-02|646|202402|ROSA DIAZ|2024-01-20\n" +
		"87654321|82570|2024-02-03|646|202402|ROSA DIAZ|2024-01-20\n" +
		"12345678|82043|2024-02-01|478|202402|JUAN PEREZ|2024-01-15\n" +
		"12345678|82565|2024-02-02|478|202402|JUAN PEREZ|2024-01-15\n"
	carteraPayload = "NUM-DOCMTO\n1-11111111\n"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dict, err := reference.Default()
	require.NoError(t, err)
	svc, err := processor.NewProcessorService(processor.ProcessorConfig{Log: zerolog.Nop(), Dictionary: dict})
	require.NoError(t, err)
	loader, err := datasource.NewLoader(datasource.LoaderConfig{Schema: repair.DefaultSchema(), Log: zerolog.Nop()})
	require.NoError(t, err)

	router := NewExtractRouter(svc, loader, 1<<20, zerolog.Nop())
	router.now = func() time.Time { return time.Date(2024, 1, 31, 9, 15, 0, 0, time.Local) }
	return router.SetupRoutes()
}

func uploadRequest(t *testing.T, target string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range files {
		part, err := mw.CreateFormFile(field, field+".txt")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func allUploads() map[string]string {
	return map[string]string{
		FieldAttention:   atenPayload,
		FieldExamResults: resulPayload,
		FieldEnrollment:  carteraPayload,
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRequestIDIsEchoed(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, id)

	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}

func TestSearch(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, uploadRequest(t, "/api/v1/search", allUploads()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Se encontraron 3 registros válidos.", resp.Message)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, processor.ReportColumns(), resp.Columns)
	require.Len(t, resp.Rows, 3)
	for _, row := range resp.Rows {
		assert.Equal(t, "CAP III EL AGUSTINO", row[0])
		assert.Equal(t, "87654321", row[2])
		assert.Equal(t, "61", row[6])
	}
	assert.Equal(t, 1, resp.Stats.CompletePatients)
	assert.Equal(t, 3, resp.Stats.ReportRows)
}

func TestSearch_MissingField(t *testing.T) {
	files := allUploads()
	delete(files, FieldEnrollment)

	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, uploadRequest(t, "/api/v1/search", files))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, FieldEnrollment)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), resp.RequestID)
}

func TestSearch_MalformedPayload(t *testing.T) {
	for name, files := range map[string]map[string]string{
		"empty attention": {
			FieldAttention:   "",
			FieldExamResults: resulPayload,
			FieldEnrollment:  carteraPayload,
		},
		"missing column": {
			FieldAttention:   atenPayload,
			FieldExamResults: "DNI|FECHA_RESULTADO\n1|2024-01-01\n",
			FieldEnrollment:  carteraPayload,
		},
		"invalid encoding": {
			FieldAttention:   atenPayload,
			FieldExamResults: resulPayload,
			FieldEnrollment:  "NUM-DOCMTO\n\xff\xfe\n",
		},
	} {
		rec := httptest.NewRecorder()
		newTestRouter(t).ServeHTTP(rec, uploadRequest(t, "/api/v1/search", files))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestSearch_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_UploadTooLarge(t *testing.T) {
	files := allUploads()
	files[FieldAttention] = atenPayload + strings.Repeat("x", 2<<20)

	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, uploadRequest(t, "/api/v1/search", files))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	for _, target := range []string{"/api/v1/search", "/api/v1/export/csv"} {
		rec := httptest.NewRecorder()
		newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, target)
	}

	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExport_Delimited(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, uploadRequest(t, "/api/v1/export/txt", allUploads()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resultado_20240131_0915.txt"`, rec.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "IPRES|PERIODO|DNI|"))
	assert.True(t, strings.HasPrefix(lines[1], "CAP III EL AGUSTINO|202402|87654321|ROSA DIAZ|82043|"))
}

func TestExport_Spreadsheet(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, uploadRequest(t, "/api/v1/export/xlsx", allUploads()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, output.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(output.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, processor.ReportColumns(), rows[0])
}

func TestExport_UnknownFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, uploadRequest(t, "/api/v1/export/pdf", allUploads()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
