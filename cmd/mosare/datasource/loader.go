package datasource

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/SanteonNL/mosare/cmd/mosare/repair"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrMalformedInput marks a payload that cannot be turned into a table
	ErrMalformedInput = errors.New("malformed input")
	// ErrMissingColumn marks a table without a column the pipeline reads
	ErrMissingColumn = fmt.Errorf("%w: missing column", ErrMalformedInput)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Supported input encodings. Payloads are always accepted as UTF-8; a legacy
// encoding is only used for payloads that are not valid UTF-8.
var encodings = map[string]encoding.Encoding{
	"utf-8":        nil,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
}

// LoaderConfig holds the settings of a Loader
type LoaderConfig struct {
	Schema   repair.Schema
	Encoding string
	Log      zerolog.Logger
}

// Loader turns raw extract payloads into tables, repairing each data row
type Loader struct {
	schema   repair.Schema
	fallback encoding.Encoding
	log      zerolog.Logger
}

// NewLoader creates a Loader; an empty encoding means UTF-8 only
func NewLoader(config LoaderConfig) (*Loader, error) {
	if err := config.Schema.Validate(); err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(config.Encoding))
	if name == "" {
		name = "utf-8"
	}
	enc, ok := encodings[name]
	if !ok {
		return nil, fmt.Errorf("unsupported input encoding %q", config.Encoding)
	}

	return &Loader{
		schema:   config.Schema,
		fallback: enc,
		log:      config.Log.With().Str("component", "loader").Logger(),
	}, nil
}

// Schema returns the repair schema applied to data rows
func (l *Loader) Schema() repair.Schema {
	return l.schema
}

// Parse decodes a payload, reads its header and repairs every data line to
// the schema width. Only undecodable payloads and missing headers fail.
func (l *Loader) Parse(name string, payload []byte) (*Table, error) {
	text, err := l.decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var (
		header []string
		rows   [][]string
		stats  struct{ changed, repaired, padded, truncated int }
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if header == nil {
			header = strings.Split(line, repair.Delimiter)
			continue
		}

		fields, outcome := l.schema.RepairLine(line)
		if outcome.Changed() {
			stats.changed++
		}
		if outcome.Removed > 0 {
			stats.repaired++
		}
		if outcome.Padded > 0 {
			stats.padded++
		}
		if outcome.Truncated > 0 {
			stats.truncated++
		}
		rows = append(rows, fields)
	}

	if !usableHeader(header) {
		return nil, fmt.Errorf("%s: %w: missing or empty header line", name, ErrMalformedInput)
	}

	l.log.Debug().
		Str("source", name).
		Int("columns", len(header)).
		Int("rows", len(rows)).
		Int("changed", stats.changed).
		Int("repaired", stats.repaired).
		Int("padded", stats.padded).
		Int("truncated", stats.truncated).
		Msg("Parsed extract")

	return NewTable(name, header, rows), nil
}

func (l *Loader) decode(payload []byte) (string, error) {
	payload = bytes.TrimPrefix(payload, utf8BOM)
	if utf8.Valid(payload) {
		return string(payload), nil
	}
	if l.fallback == nil {
		return "", fmt.Errorf("%w: payload is not valid UTF-8 text", ErrMalformedInput)
	}
	decoded, err := l.fallback.NewDecoder().Bytes(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return string(decoded), nil
}

func usableHeader(header []string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			return true
		}
	}
	return false
}
