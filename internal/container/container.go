// Package container provides dependency injection for the clawback application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"time"

	"clawback/clawback/internal/audit"
	"clawback/clawback/internal/config"
	"clawback/clawback/internal/export"
	"clawback/clawback/internal/fx"
	"clawback/clawback/internal/handler"
	"clawback/clawback/internal/ledger"
	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/server"
	"clawback/clawback/internal/sheets"
	"clawback/clawback/internal/store"
)

// Container holds all application dependencies and provides methods to access them.
// It is immutable after creation.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	store     store.StateStore
	converter ledger.Converter
	syncer    sheets.Syncer
	auditor   *audit.Logger
	handler   *handler.Handler
	exporter  *export.Exporter
}

// NewContainer creates and wires all application dependencies using a logrus logger built from cfg.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return NewContainerWithLogger(ctx, cfg, logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format))
}

// NewContainerWithLogger is NewContainer with an explicit logger.
func NewContainerWithLogger(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	clock := func() time.Time { return time.Now().UTC() }

	st, err := store.Open(ctx, store.Config{
		Driver:  cfg.State.Driver,
		Dir:     cfg.State.Dir,
		DSN:     cfg.State.DSN,
		Options: store.Options{PendingTTL: cfg.Pending.TTL, Clock: clock},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("error opening %s state store: %w", cfg.State.Driver, err)
	}

	converter := fx.NewClient(fx.ClientConfig{
		BaseURL:           cfg.FX.BaseURL,
		Timeout:           cfg.FX.Timeout,
		CacheTTL:          cfg.FX.CacheTTL,
		RequestsPerSecond: cfg.FX.RequestsPerSecond,
	}, logger)

	var syncer sheets.Syncer = sheets.Disabled{}
	if cfg.Sheets.Enabled {
		syncer = sheets.NewGogClient(sheets.Config{
			Binary:  cfg.Sheets.Binary,
			Account: cfg.Sheets.Account,
			Timeout: cfg.Sheets.Timeout,
		}, nil, logger)
	}

	auditor := audit.NewLogger(audit.ResolvePath(cfg.Audit.Path, cfg.State.Dir), clock)

	h := handler.New(st, converter, syncer, auditor, logger, handler.Options{
		DefaultCurrency: cfg.Trip.DefaultCurrency,
		Clock:           clock,
	})

	logger.Debug("Container initialized",
		logging.F(logging.FieldDriver, cfg.State.Driver),
		logging.F("sheets_enabled", cfg.Sheets.Enabled),
		logging.F(logging.FieldPath, auditor.Path()))

	return &Container{
		logger:    logger,
		config:    cfg,
		store:     st,
		converter: converter,
		syncer:    syncer,
		auditor:   auditor,
		handler:   h,
		exporter:  export.New(converter, logger, cfg.ExportDelimiter()),
	}, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the state store.
func (c *Container) GetStore() store.StateStore {
	return c.store
}

// GetConverter returns the currency converter.
func (c *Container) GetConverter() ledger.Converter {
	return c.converter
}

// GetSyncer returns the spreadsheet syncer. It is sheets.Disabled when sync is off.
func (c *Container) GetSyncer() sheets.Syncer {
	return c.syncer
}

// GetAuditor returns the raw input log.
func (c *Container) GetAuditor() *audit.Logger {
	return c.auditor
}

// GetHandler returns the chat message handler.
func (c *Container) GetHandler() *handler.Handler {
	return c.handler
}

// GetExporter returns the CSV exporter.
func (c *Container) GetExporter() *export.Exporter {
	return c.exporter
}

// NewServer builds the webhook server from the server configuration.
func (c *Container) NewServer() *server.Server {
	return server.New(server.Config{
		Addr:           c.config.Server.Addr,
		TokenHash:      c.config.Server.TokenHash,
		MaxConnections: c.config.Server.MaxConnections,
	}, c.handler, c.store, c.logger)
}

// Close releases the state store.
func (c *Container) Close() error {
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("error closing state store: %w", err)
	}
	c.logger.Debug("Container closed")
	return nil
}
