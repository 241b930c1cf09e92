package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SanteonNL/mosare/cmd/mosare/api"
	"github.com/SanteonNL/mosare/cmd/mosare/config"
	"github.com/SanteonNL/mosare/cmd/mosare/datasource"
	"github.com/SanteonNL/mosare/cmd/mosare/output"
	"github.com/SanteonNL/mosare/cmd/mosare/watch"
	"github.com/SanteonNL/mosare/models/mosare"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func loadApp(cmd *cobra.Command, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("sort") {
		cfg.SortMode, _ = cmd.Flags().GetString("sort")
	}
	return newApp(cfg, log)
}

func runCmd(log *zerolog.Logger) *cobra.Command {
	var (
		aten, resul, cartera, out string
		formats                   []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one set of extracts and write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, *log)
			if err != nil {
				return err
			}

			selected, err := parseFormats(formats)
			if err != nil {
				return err
			}
			if out == "" {
				out = a.cfg.OutputDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			enrollment, closeRoster, err := a.rosterSource(ctx, cartera)
			if err != nil {
				return err
			}
			defer closeRoster()

			start := time.Now()
			paths, err := a.execute(ctx,
				datasource.ResolveSource(mosare.SourceAttention, aten, a.loader, a.client),
				datasource.ResolveSource(mosare.SourceExamResult, resul, a.loader, a.client),
				enrollment,
				out,
				selected,
			)
			if err != nil {
				return err
			}
			a.log.Info().
				Strs("files", paths).
				Dur("duration", time.Since(start)).
				Msg("Run complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&aten, "aten", "", "AtenMedxServ extract (path or URL)")
	cmd.Flags().StringVar(&resul, "resul", "", "ResulExam_PatCli extract (path or URL)")
	cmd.Flags().StringVar(&cartera, "cartera", "", "CarteraVisare extract (path or URL); read from CARTERA_DATABASE_URL when empty")
	cmd.Flags().StringVar(&out, "out", "", "output directory (default OUTPUT_DIR)")
	cmd.Flags().StringSliceVar(&formats, "format", []string{"txt", "csv", "xlsx"}, "export formats")
	cmd.Flags().String("sort", "", "DNI ordering: lexical or numeric (default SORT_MODE)")
	cmd.MarkFlagRequired("aten")
	cmd.MarkFlagRequired("resul")

	return cmd
}

func serveCmd(log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload and export API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, *log)
			if err != nil {
				return err
			}
			svc, err := a.newProcessor(a.log)
			if err != nil {
				return err
			}

			router := api.NewExtractRouter(svc, a.loader, a.cfg.MaxUploadBytes(), a.log)
			server := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           router.SetupRoutes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", server.Addr).Msg("Starting server")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info().Msg("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("sort", "", "DNI ordering: lexical or numeric (default SORT_MODE)")
	return cmd
}

func watchCmd(log *zerolog.Logger) *cobra.Command {
	var inbox string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process extract sets as they arrive in the inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, *log)
			if err != nil {
				return err
			}
			if inbox == "" {
				inbox = a.cfg.InboxDir
			}

			w, err := watch.New(watch.WatcherConfig{
				InboxDir: inbox,
				Runner:   a.runExtractSet,
				Log:      a.log,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := w.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&inbox, "inbox", "", "directory to watch (default INBOX_DIR)")
	cmd.Flags().String("sort", "", "DNI ordering: lexical or numeric (default SORT_MODE)")
	return cmd
}

// runExtractSet processes an inbox set into every export format
func (a *app) runExtractSet(ctx context.Context, runID string, set watch.ExtractSet) error {
	_, err := a.execute(ctx,
		datasource.NewFileSource(mosare.SourceAttention, set.Attention, a.loader),
		datasource.NewFileSource(mosare.SourceExamResult, set.ExamResults, a.loader),
		datasource.NewFileSource(mosare.SourceEnrollment, set.Enrollment, a.loader),
		a.cfg.OutputDir,
		output.AllFormats,
	)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	return nil
}

func parseFormats(names []string) ([]output.Format, error) {
	formats := make([]output.Format, 0, len(names))
	for _, name := range names {
		f, err := output.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("at least one export format is required")
	}
	return formats, nil
}
