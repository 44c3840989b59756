// Command tablekv-server serves the tables declared in a YAML configuration
// file over the tablekv line protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/nickyhof/tablekv"
	"github.com/nickyhof/tablekv/config"
	"github.com/nickyhof/tablekv/db"
	"github.com/nickyhof/tablekv/metrics"
	"github.com/nickyhof/tablekv/server"
)

// Version is set at build time via -ldflags
var Version = ""

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "tablekv-server: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "tablekv.yaml", "Configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	restore := flag.String("restore", "", "Roll every table back to this history tag or commit id before serving")
	hashPassword := flag.String("hash-password", "", "Print the bcrypt digest of a password for the config file and exit")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		fmt.Printf("tablekv-server %s\n", buildVersion())
		return nil
	}
	if *hashPassword != "" {
		digest, err := bcrypt.GenerateFromPassword([]byte(*hashPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Println(string(digest))
		return nil
	}

	ll := &slog.LevelVar{}
	if err := setLevel(ll, *logLevel); err != nil {
		return err
	}
	slog.SetDefault(newLogger(os.Stderr, ll, !isatty.IsTerminal(os.Stderr.Fd())))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	instance, err := tablekv.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := instance.Close(); err != nil {
			slog.Error("Failed to close storage", "err", err)
		}
	}()
	slog.InfoContext(ctx, "Storage ready", "policy", cfg.StoragePolicy, "tables", cfg.Catalog.Len(), "dir", cfg.DataDirectory)
	if h := instance.History(); h.IsInitialized() {
		if latest := h.Latest(); latest.Id != "" {
			slog.InfoContext(ctx, "History", "head", latest.Id, "when", latest.When, "message", latest.Message)
		}
	}

	if *restore != "" {
		asof, err := instance.Restore(*restore)
		if err != nil {
			return fmt.Errorf("failed to restore %q: %w", *restore, err)
		}
		slog.InfoContext(ctx, "Restored tables", "commit", asof.Id, "when", asof.When)
	}

	if cfg.SnapshotURL != "" {
		n, err := instance.Engine().Load(ctx, cfg.SnapshotURL, snapshotConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		slog.InfoContext(ctx, "Snapshot loaded", "url", cfg.SnapshotURL, "rows", n)
	}

	srv := instance.Server(cfg)
	if err := srv.Start(cfg.Addr()); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return config.Watch(gctx, *configPath, func(next *config.Config) {
			reload(srv.Authenticator(), cfg, next)
		})
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr)
		})
	}

	<-gctx.Done()
	slog.Info("Shutting down")
	if err := srv.Stop(); err != nil {
		slog.Error("Failed to stop server", "err", err)
	}
	runErr := g.Wait()

	if cfg.SnapshotURL != "" {
		// The signal context is done; give the dump its own deadline.
		dctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := instance.Engine().Dump(dctx, cfg.SnapshotURL, snapshotConfig(cfg))
		if err != nil {
			return errors.Join(runErr, fmt.Errorf("failed to dump snapshot: %w", err))
		}
		slog.Info("Snapshot written", "url", cfg.SnapshotURL, "rows", n)
	}
	slog.Info("Server stopped")
	return runErr
}

// reload applies the parts of a changed configuration that can change while
// running. Everything else needs a restart.
func reload(auth *server.Authenticator, current, next *config.Config) {
	auth.Update(tablekv.Credentials(next))
	if next.Addr() != current.Addr() || next.StoragePolicy != current.StoragePolicy ||
		next.DataDirectory != current.DataDirectory || len(next.Tables) != len(current.Tables) {
		slog.Warn("Configuration change needs a restart to take effect")
	}
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	s := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	slog.InfoContext(ctx, "Metrics listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func snapshotConfig(cfg *config.Config) *db.S3Config {
	if cfg.SnapshotS3 == (config.S3{}) {
		return nil
	}
	return &db.S3Config{
		AccessKey: cfg.SnapshotS3.AccessKey,
		SecretKey: cfg.SnapshotS3.SecretKey,
		Region:    cfg.SnapshotS3.Region,
		Endpoint:  cfg.SnapshotS3.Endpoint,
	}
}

func setLevel(ll *slog.LevelVar, level string) error {
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}
	return nil
}

func newLogger(w io.Writer, ll *slog.LevelVar, noColor bool) *slog.Logger {
	if f, ok := w.(*os.File); ok {
		w = colorable.NewColorable(f)
	}
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func buildVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}
