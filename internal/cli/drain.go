package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drgroup/asistencia-go/internal/config"
	"github.com/drgroup/asistencia-go/internal/pkg/database"
	"github.com/drgroup/asistencia-go/internal/pkg/storage"
	"github.com/drgroup/asistencia-go/internal/repository/postgresql"
	attendancesvc "github.com/drgroup/asistencia-go/internal/service/attendance"
)

// NewDrainCommand creates the drain command. It pushes the pending queue
// once, without starting the server, which is useful after a long
// offline stretch or from a maintenance shell.
func NewDrainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "drain",
		Short:         "Push the pending action queue to the remote store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrain(rootOpts)
		},
	}
	return cmd
}

func runDrain(opts *RootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg.App.LogLevel, opts.Verbose)

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	kv, err := storage.NewSQLiteKV(cfg.Local.Path)
	if err != nil {
		return err
	}
	defer kv.Close()

	queue := attendancesvc.NewActionQueue(kv)
	if !queue.HasPending() {
		fmt.Println("nothing to sync")
		return nil
	}

	engine := attendancesvc.NewEngine(queue, postgresql.NewSessionStore(db), cfg.Sync.Retries, cfg.Sync.Timeout, cfg.Sync.Backoff, cfg.Sync.PruneAge)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res := engine.Drain(ctx)
	fmt.Printf("synced %d action(s), %d failed\n", res.Succeeded, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d action(s) left pending", res.Failed)
	}
	return nil
}
