package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drgroup/asistencia-go/internal/config"
	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/storage"
	attendancesvc "github.com/drgroup/asistencia-go/internal/service/attendance"
)

// NewStatusCommand creates the status command. It reads the local queue
// only and never touches the network.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show the local sync queue state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg.App.LogLevel, opts.Verbose)

	kv, err := storage.NewSQLiteKV(cfg.Local.Path)
	if err != nil {
		return err
	}
	defer kv.Close()

	queue := attendancesvc.NewActionQueue(kv)
	snap := queue.Snapshot()

	if opts.Format == "json" {
		status := attendance.SyncStatusResponse{
			HasPendingSync: snap.HasPending(),
			PendingCount:   snap.PendingCount(),
			LastSync:       snap.LastSync,
		}
		return json.NewEncoder(os.Stdout).Encode(status)
	}

	if snap.UID == "" {
		fmt.Println("no queue stored")
		return nil
	}

	fmt.Printf("uid:     %s\n", snap.UID)
	fmt.Printf("fecha:   %s\n", snap.Fecha)
	fmt.Printf("pending: %d of %d action(s)\n", snap.PendingCount(), len(snap.Acciones))
	if snap.LastSync != nil {
		fmt.Printf("last sync: %s\n", snap.LastSync.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("last sync: never")
	}

	for _, a := range snap.Acciones {
		marker := " "
		if a.Estado == attendance.SyncPendiente {
			marker = "*"
		}
		fmt.Printf("  %s %-16s %s\n", marker, a.Tipo, a.Timestamp.Format("15:04:05"))
	}
	return nil
}
