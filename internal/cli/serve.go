package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/clock"
	"github.com/bprzybysz/integra/internal/config"
	"github.com/bprzybysz/integra/internal/engine"
	"github.com/bprzybysz/integra/internal/ledger"
	"github.com/bprzybysz/integra/internal/notify"
	"github.com/bprzybysz/integra/internal/server"
	"github.com/bprzybysz/integra/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the integra daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	msgr, err := notify.NewMessenger(cfg.Notify)
	if err != nil {
		return fmt.Errorf("configure notify: %w", err)
	}

	db, eng, err := buildEngine(cfg, msgr)
	if err != nil {
		return err
	}
	defer db.Close()

	eng.StartScheduler(cfg.Schedule)
	defer eng.StopScheduler()

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "integra serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		fmt.Fprintf(os.Stderr, "  tz: %s\n", cfg.Clock.Timezone)
		fmt.Fprintf(os.Stderr, "  notify: %s\n", cfg.Notify.Provider)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// buildEngine assembles the full engine stack from config: catalog, clock,
// store, local ledger. Used by serve and by the commands that run in-process
// against the database.
func buildEngine(cfg config.Config, msgr notify.Messenger) (*store.DB, *engine.Engine, error) {
	cat := config.DefaultCatalog()
	if cfg.CatalogPath != "" {
		var err error
		cat, err = config.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
	}

	ck, err := clock.New(cfg.Clock.Timezone)
	if err != nil {
		return nil, nil, err
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	eng := engine.New(db, ledger.NewLocal(db), msgr, ck, cat)
	if cfg.Approvals.Timeout > 0 {
		eng.ApprovalTimeout = cfg.Approvals.Timeout
	}
	eng.TrackingStart = cfg.Clock.TrackingStart
	return db, eng, nil
}

// openDB opens just the database, for read-only commands that need no engine.
func openDB() (*store.DB, error) {
	dbPath := os.Getenv("INTEGRA_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}
