package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/SanteonNL/mosare/cmd/mosare/processor"
	"github.com/rs/zerolog"
)

// OutputManager writes the exports of one run into its own directory
type OutputManager struct {
	baseDir     string
	timestamp   string
	generatedAt time.Time
	logFile     *os.File
	log         zerolog.Logger
}

// OutputConfig holds the settings of an OutputManager
type OutputConfig struct {
	BaseDir string
	Now     time.Time
	Console io.Writer // defaults to os.Stdout
	Level   zerolog.Level
}

// NewOutputManager creates <BaseDir>/<timestamp> with a logs/app.log file.
// The manager logs to both the console and that file.
func NewOutputManager(config OutputConfig) (*OutputManager, error) {
	timestamp := config.Now.Local().Format("20060102_150405")

	// Create the base output directory with timestamp
	outputPath := filepath.Join(config.BaseDir, timestamp)
	if err := os.MkdirAll(outputPath, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	logsDir := filepath.Join(outputPath, "logs")
	if err := os.MkdirAll(logsDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(logsDir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	console := config.Console
	if console == nil {
		console = os.Stdout
	}
	consoleWriter := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = console
	})
	multiWriter := zerolog.MultiLevelWriter(consoleWriter, logFile)

	combinedLogger := zerolog.New(multiWriter).
		Level(config.Level).
		With().
		Timestamp().
		Caller().
		Str("run", timestamp).
		Logger()

	return &OutputManager{
		baseDir:     outputPath,
		timestamp:   timestamp,
		generatedAt: config.Now,
		logFile:     logFile,
		log:         combinedLogger,
	}, nil
}

// WriteReport writes the report in every requested format and returns the
// written paths. Nothing is written for a nil report.
func (om *OutputManager) WriteReport(report *processor.Report, formats []Format) ([]string, error) {
	if report == nil {
		return nil, fmt.Errorf("no report to write")
	}

	var paths []string
	for _, format := range formats {
		data, err := Encode(format, report)
		if err != nil {
			return paths, fmt.Errorf("failed to encode %s: %w", format, err)
		}

		outputPath := om.GetOutputPath(format.FileName(om.generatedAt))
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write output file: %w", err)
		}
		paths = append(paths, outputPath)

		om.log.Info().
			Str("file", outputPath).
			Str("format", string(format)).
			Int("rows", len(report.Rows)).
			Msg("Wrote report")
	}

	return paths, nil
}

// WriteToJSON writes data to a JSON file in the output directory
func (om *OutputManager) WriteToJSON(data interface{}, prefix string) error {
	filename := fmt.Sprintf("%s_%s.json", prefix, om.timestamp)
	outputPath := filepath.Join(om.baseDir, filename)

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data to JSON: %w", err)
	}

	om.log.Debug().
		Str("file", outputPath).
		Str("prefix", prefix).
		Msg("Wrote data to JSON file")

	return nil
}

// Close releases the run log file
func (om *OutputManager) Close() error {
	return om.logFile.Close()
}

// GetLogger returns the configured logger
func (om *OutputManager) GetLogger() zerolog.Logger {
	return om.log
}

// GetOutputPath returns the full path for a given filename
func (om *OutputManager) GetOutputPath(filename string) string {
	return filepath.Join(om.baseDir, filename)
}

// GetTimestamp returns the timestamp being used
func (om *OutputManager) GetTimestamp() string {
	return om.timestamp
}

// GetBaseDir returns the run output directory
func (om *OutputManager) GetBaseDir() string {
	return om.baseDir
}
