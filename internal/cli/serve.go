package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drgroup/asistencia-go/internal/config"
	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	appHTTP "github.com/drgroup/asistencia-go/internal/handler/http"
	"github.com/drgroup/asistencia-go/internal/pkg/cron"
	"github.com/drgroup/asistencia-go/internal/pkg/database"
	"github.com/drgroup/asistencia-go/internal/pkg/location"
	"github.com/drgroup/asistencia-go/internal/pkg/netwatch"
	"github.com/drgroup/asistencia-go/internal/pkg/notify"
	"github.com/drgroup/asistencia-go/internal/pkg/sse"
	"github.com/drgroup/asistencia-go/internal/pkg/storage"
	"github.com/drgroup/asistencia-go/internal/repository/memory"
	"github.com/drgroup/asistencia-go/internal/repository/postgresql"
	attendancesvc "github.com/drgroup/asistencia-go/internal/service/attendance"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Memory bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the attendance API",
		Long: `Start the attendance API for this device's employee.

The server keeps the workday session locally, queues every clock action
in durable storage, and synchronizes the queue with the remote session
database whenever connectivity allows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Memory, "memory", false, "use an in-memory session store instead of PostgreSQL (demo mode)")

	return cmd
}

func runServe(opts *ServeOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg.App.LogLevel, opts.Verbose)

	var docStore attendance.DocumentStore
	if opts.Memory {
		docStore = memory.NewSessionStore()
		slog.Warn("using in-memory session store, nothing will survive a restart")
	} else {
		db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := postgresql.EnsureSchema(context.Background(), db); err != nil {
			return err
		}
		docStore = postgresql.NewSessionStore(db)
	}

	kv, err := storage.NewSQLiteKV(cfg.Local.Path)
	if err != nil {
		return err
	}
	defer kv.Close()

	queue := attendancesvc.NewActionQueue(kv)
	engine := attendancesvc.NewEngine(queue, docStore, cfg.Sync.Retries, cfg.Sync.Timeout, cfg.Sync.Backoff, cfg.Sync.PruneAge)

	office := &attendancesvc.Office{
		Lat:     cfg.Attendance.OfficeLat,
		Lon:     cfg.Attendance.OfficeLon,
		RadiusM: cfg.Attendance.OfficeRadiusM,
	}
	// No positioning hardware on a server deployment; fixes arrive through
	// the request override fields instead.
	capture := attendancesvc.NewLocationCapture(location.NewEmptyProvider(), office, 0, 0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	net := netwatch.NewProbeWatcher(cfg.Net.ProbeURL, cfg.Net.ProbeInterval, cfg.Net.ProbeTimeout)
	net.Start(ctx)

	hub := sse.NewHub()
	dispatcher := notify.NewSlogDispatcher()

	sessions := attendancesvc.NewSessionStore(
		cfg.Attendance.UID,
		cfg.Attendance.Dispositivo,
		attendancesvc.ClockConfig{
			StartTime:   cfg.Attendance.StartTime,
			EarlyMargin: cfg.Attendance.EarlyMargin,
		},
		queue,
		engine,
		docStore,
		kv,
		capture,
		net,
		dispatcher,
		hub,
	)
	sessions.Start(ctx)
	defer sessions.Stop()

	scheduler := cron.NewScheduler()
	cron.NewSyncJobs(sessions, queue, net, cfg.Sync.DrainInterval, cfg.Sync.PruneAge).Register(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	attendanceHandler := appHTTP.NewAttendanceHandler(sessions, hub)
	syncHandler := appHTTP.NewSyncHandler(sessions)
	router := appHTTP.NewRouter(cfg.App.Env, attendanceHandler, syncHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "port", cfg.App.Port, "uid", cfg.Attendance.UID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
