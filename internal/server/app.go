// Package server initializes and runs the sharegate server: it opens the
// shared database pool, applies migrations, wires the core services and
// starts the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/sharegate/internal/logging"
	"github.com/dmitrijs2005/sharegate/internal/server/config"
	"github.com/dmitrijs2005/sharegate/internal/server/httpapi"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sharegate/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// One pooled handle for the whole process; request handlers borrow
	// connections from it instead of opening their own.
	rm := repomanager.ForDSN(c.DatabaseDSN)
	db, err := rm.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	fileService := services.NewFileService(db, rm)
	shareService := services.NewShareService(db, rm)
	gate := services.NewAccessGate(db, rm)

	handler := httpapi.NewHandler(db, fileService, shareService, gate, logger)
	srv := httpapi.NewServer(c.EndpointAddr, c.ShutdownTimeout, logger, handler)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
