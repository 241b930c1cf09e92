package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/SanteonNL/mosare/cmd/mosare/config"
	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/cmd/mosare/output"
	"github.com/SanteonNL/mosare/cmd/mosare/processor"
	"github.com/SanteonNL/mosare/cmd/mosare/reference"
	"github.com/SanteonNL/mosare/models/mosare"
	"github.com/SanteonNL/mosare/util"
	"github.com/rs/zerolog"
)

// app holds the services shared by every command
type app struct {
	cfg        *config.Config
	dictionary *reference.Dictionary
	loader     *datasource.Loader
	client     *datasource.HTTPClient
	console    io.Writer
	log        zerolog.Logger
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := cfg.Level()
	log = log.Level(level)

	dictionary, err := reference.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	loader, err := datasource.NewLoader(cfg.LoaderConfig(log))
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		dictionary: dictionary,
		loader:     loader,
		client:     datasource.NewHTTPClient(cfg.HTTPClientConfig(log)),
		log:        log,
	}, nil
}

func (a *app) newProcessor(log zerolog.Logger) (*processor.ProcessorService, error) {
	return processor.NewProcessorService(processor.ProcessorConfig{
		Log:        log,
		Dictionary: a.dictionary,
		SortMode:   a.cfg.Sort(),
	})
}

// rosterSource returns the enrollment source for a command line reference.
// Without a reference the roster is read from CARTERA_DATABASE_URL; the
// returned close func releases that connection.
func (a *app) rosterSource(ctx context.Context, ref string) (datasource.Source, func(), error) {
	if ref != "" {
		return datasource.ResolveSource(mosare.SourceEnrollment, ref, a.loader, a.client), func() {}, nil
	}
	if a.cfg.CarteraDatabaseURL == "" {
		return nil, nil, fmt.Errorf("no %s extract given and CARTERA_DATABASE_URL is not set", mosare.SourceEnrollment)
	}

	db, err := datasource.OpenRosterDB(ctx, a.cfg.CarteraDatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	source := datasource.NewSQLSource(mosare.SourceEnrollment, db, a.cfg.CarteraQuery, a.log)
	return source, func() { db.Close() }, nil
}

// execute runs the pipeline and writes the report into a new run directory
// under outDir. Nothing but the run log is written when a stage fails.
func (a *app) execute(ctx context.Context, attention, examResults, enrollment datasource.Source, outDir string, formats []output.Format) ([]string, error) {
	baseDir, err := util.GetAbsolutePath(outDir)
	if err != nil {
		return nil, err
	}
	level, _ := a.cfg.Level()
	om, err := output.NewOutputManager(output.OutputConfig{
		BaseDir: baseDir,
		Now:     time.Now(),
		Console: a.console,
		Level:   level,
	})
	if err != nil {
		return nil, err
	}
	defer om.Close()

	log := om.GetLogger()
	svc, err := a.newProcessor(log)
	if err != nil {
		return nil, err
	}

	report, err := svc.LoadAndProcess(ctx, attention, examResults, enrollment)
	if err != nil {
		log.Error().Err(err).Msg("Run aborted")
		return nil, fmt.Errorf("run %s: %w", om.GetTimestamp(), err)
	}

	paths, err := om.WriteReport(report, formats)
	if err != nil {
		return nil, err
	}
	if err := om.WriteToJSON(report.Stats, "stats"); err != nil {
		return nil, err
	}

	log.Info().
		Str("dir", om.GetBaseDir()).
		Int("files", len(paths)).
		Msg(report.Message())
	return paths, nil
}
