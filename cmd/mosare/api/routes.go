package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/cmd/mosare/output"
	"github.com/SanteonNL/mosare/cmd/mosare/processor"
	"github.com/SanteonNL/mosare/models/mosare"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Multipart field names of the three uploaded extracts
const (
	FieldAttention   = "aten"
	FieldExamResults = "resul"
	FieldEnrollment  = "cartera"
)

// RequestIDHeader carries the id every response is tagged with
const RequestIDHeader = "X-Request-ID"

var errMissingUpload = errors.New("missing upload")

// ExtractRouter serves the upload, search and export endpoints. Every request
// parses its own uploads; nothing is shared between requests.
type ExtractRouter struct {
	processorService *processor.ProcessorService
	loader           *datasource.Loader
	maxUploadBytes   int64
	now              func() time.Time
	log              zerolog.Logger
}

// NewExtractRouter wires the router to the pipeline services
func NewExtractRouter(
	processorService *processor.ProcessorService,
	loader *datasource.Loader,
	maxUploadBytes int64,
	log zerolog.Logger,
) *ExtractRouter {
	return &ExtractRouter{
		processorService: processorService,
		loader:           loader,
		maxUploadBytes:   maxUploadBytes,
		now:              time.Now,
		log:              log.With().Str("component", "api").Logger(),
	}
}

// SearchResponse is the JSON body of a successful search
type SearchResponse struct {
	Message string          `json:"message"`
	Total   int             `json:"total"`
	Columns []string        `json:"columns"`
	Rows    [][]string      `json:"rows"`
	Stats   processor.Stats `json:"stats"`
}

// ErrorResponse is the JSON body of a failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

func (er *ExtractRouter) SetupRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(er.requestContext)
	r.Use(er.recoverer)

	r.HandleFunc("/health", er.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/search", er.handleSearch).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/export/{format}", er.handleExport).Methods(http.MethodPost)

	return r
}

func (er *ExtractRouter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (er *ExtractRouter) handleSearch(w http.ResponseWriter, r *http.Request) {
	report, ok := er.processUploads(w, r)
	if !ok {
		return
	}

	rows := report.Records()
	respondWithJSON(w, http.StatusOK, SearchResponse{
		Message: report.Message(),
		Total:   len(rows),
		Columns: report.Columns,
		Rows:    rows,
		Stats:   report.Stats,
	})
}

func (er *ExtractRouter) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := output.ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		er.respondWithError(w, r, http.StatusBadRequest, err)
		return
	}

	report, ok := er.processUploads(w, r)
	if !ok {
		return
	}

	data, err := output.Encode(format, report)
	if err != nil {
		er.respondWithError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(er.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// processUploads runs the pipeline over the request's three uploads. On
// failure the error response has been written and ok is false.
func (er *ExtractRouter) processUploads(w http.ResponseWriter, r *http.Request) (*processor.Report, bool) {
	log := zerolog.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, er.maxUploadBytes)
	if err := r.ParseMultipartForm(er.maxUploadBytes); err != nil {
		er.respondWithError(w, r, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	var sources []datasource.Source
	for _, upload := range []struct{ field, name string }{
		{FieldAttention, mosare.SourceAttention},
		{FieldExamResults, mosare.SourceExamResult},
		{FieldEnrollment, mosare.SourceEnrollment},
	} {
		payload, err := readUpload(r, upload.field)
		if err != nil {
			er.respondWithError(w, r, http.StatusBadRequest, err)
			return nil, false
		}
		log.Debug().
			Str("field", upload.field).
			Int("bytes", len(payload)).
			Msg("Received upload")
		sources = append(sources, datasource.NewBytesSource(upload.name, payload, er.loader))
	}

	report, err := er.processorService.LoadAndProcess(r.Context(), sources[0], sources[1], sources[2])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, datasource.ErrMalformedInput) {
			status = http.StatusBadRequest
		}
		er.respondWithError(w, r, status, err)
		return nil, false
	}

	log.Info().
		Int("rows", len(report.Rows)).
		Msg("Processed uploads")

	return report, true
}

func readUpload(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q", errMissingUpload, field)
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read field %q: %w", field, err)
	}
	return payload, nil
}

// requestContext tags the request with an id and a logger carrying it
func (er *ExtractRouter) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		log := er.log.With().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(log.WithContext(r.Context())))
		log.Debug().
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

func (er *ExtractRouter) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Msg("Recovered from panic")
				er.respondWithError(w, r, http.StatusInternalServerError, fmt.Errorf("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (er *ExtractRouter) respondWithError(w http.ResponseWriter, r *http.Request, status int, err error) {
	event := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("Request failed")

	respondWithJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
