package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	h "github.com/veranemoloko/video-downloader/internal/api/http"
	cfgpkg "github.com/veranemoloko/video-downloader/internal/config"
	"github.com/veranemoloko/video-downloader/internal/engine"
	repo "github.com/veranemoloko/video-downloader/internal/repository"
	svc "github.com/veranemoloko/video-downloader/internal/service"
	"github.com/veranemoloko/video-downloader/internal/storage"
	"github.com/veranemoloko/video-downloader/internal/worker"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

var envFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "video-downloader: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video-downloader",
		Short: "Media download REST service",
		Long: `video-downloader accepts media URLs over HTTP, downloads them in the background
with yt-dlp, and serves the result files until they expire.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before the environment")
	cmd.AddCommand(newServerCmd(), newCleanupCmd())
	return cmd
}

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API, download workers and cleanup scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := cfgpkg.Load(envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := cfgpkg.SetupLogger(cfg)
	logger.Info("configuration loaded successfully", "download_dir", cfg.DownloadDir, "workers", cfg.WorkerPoolSize)

	taskStorage := repo.NewTaskStorage()
	fileStorage := storage.NewFileStorage(cfg.DownloadDir)
	if err := fileStorage.EnsureDir(); err != nil {
		return err
	}

	eng := engine.NewYTDLP(engine.YTDLPOptions{
		Executable:    cfg.YTDLPPath,
		CookieDir:     cfg.CookieDir,
		SocketTimeout: cfg.SocketTimeout,
		Retries:       cfg.MaxRetries,
	}, logger)
	wrk := worker.NewDownloadWorker(taskStorage, eng, fileStorage, cfg.DownloadTimeout, cfg.RetentionWindow, cfg.ExpiryPolicy, logger)

	downloadService := svc.NewDownloadService(taskStorage, wrk, cfg, logger)
	cleanupService := svc.NewCleanupService(taskStorage, fileStorage, cfg.RetentionWindow, cfg.CleanupPeriod, logger)
	if err := cleanupService.Start(ctx); err != nil {
		return err
	}
	taskService := svc.NewTaskService(taskStorage, fileStorage, cleanupService, logger)

	router := h.NewRouter(h.NewTaskHandler(downloadService, taskService, version, logger))
	// No WriteTimeout: result files stream for as long as the client reads.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTPTimeout,
		ReadTimeout:       cfg.HTTPTimeout,
		IdleTimeout:       cfg.HTTPTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "address", server.Addr, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		if err := downloadService.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("download service shutdown: %w", err))
		}
		if err := cleanupService.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("cleanup scheduler stop: %w", err))
		}
		if len(errs) == 0 {
			logger.Info("server stopped gracefully")
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func newCleanupCmd() *cobra.Command {
	var (
		dir    string
		maxAge = 5 * time.Hour
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete downloaded files older than --max-age and exit",
		Long: `cleanup sweeps the download directory once without a running server. Every file
older than --max-age is removed; there is no task registry to consult.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd, dir, maxAge)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Download directory (defaults to VD_DOWNLOAD_DIR)")
	cmd.Flags().DurationVar(&maxAge, "max-age", maxAge, "Remove files last modified longer ago than this")
	return cmd
}

func runCleanup(cmd *cobra.Command, dir string, maxAge time.Duration) error {
	if maxAge <= 0 {
		return fmt.Errorf("max-age must be positive: %s", maxAge)
	}

	cfg, err := cfgpkg.Load(envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if dir == "" {
		dir = cfg.DownloadDir
	}

	logger := cfgpkg.SetupLogger(cfg)
	fileStorage := storage.NewFileStorage(dir)
	if !fileStorage.Accessible() {
		return fmt.Errorf("download directory %s is not accessible", dir)
	}

	cleanup := svc.NewCleanupService(repo.NewTaskStorage(), fileStorage, maxAge, cfg.CleanupPeriod, logger)
	summary, err := cleanup.RunOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("cleanup: %d files could not be removed", summary.Errors)
	}

	logger.Info("standalone cleanup finished", slog.String("dir", dir), slog.Int("files_removed", summary.OrphansRemoved), slog.Int64("bytes_freed", summary.BytesFreed))
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d files (%d bytes) from %s\n", summary.OrphansRemoved, summary.BytesFreed, dir)
	return nil
}
