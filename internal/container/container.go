package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/anime-shed/note-inspector-go/internal/config"
	"github.com/anime-shed/note-inspector-go/internal/engine"
	"github.com/anime-shed/note-inspector-go/internal/factory"
	"github.com/anime-shed/note-inspector-go/internal/logger"
	"github.com/anime-shed/note-inspector-go/internal/observer"
	"github.com/anime-shed/note-inspector-go/internal/repository"
	"github.com/anime-shed/note-inspector-go/internal/repository/postgresql"
	"github.com/anime-shed/note-inspector-go/internal/service"
	"github.com/anime-shed/note-inspector-go/internal/storage"
	"github.com/anime-shed/note-inspector-go/internal/transport"
	"github.com/anime-shed/note-inspector-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config      *config.Config
	engine      engine.Authenticator
	references  *service.ReferenceCache
	snapshots   *repository.SnapshotStore
	db          *sql.DB
	metrics     *observer.MetricsObserver
	authService service.AuthenticationService
	handler     http.Handler
}

// NewContainer builds the dependency graph from cfg
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{config: cfg}

	store, err := factory.ReferenceStore(cfg.References)
	if err != nil {
		return nil, fmt.Errorf("failed to create reference store: %w", err)
	}
	referenceRepo := repository.NewReferenceRepository(store, cfg.References.Prefix, cfg.References.Extensions)

	c.engine, err = engine.New(cfg.Engine)
	if err != nil {
		return nil, err
	}

	if cfg.References.SnapshotPath != "" {
		c.snapshots, err = repository.NewSnapshotStore(cfg.References.SnapshotPath)
		if err != nil {
			c.Close()
			return nil, err
		}
	}

	var verdicts repository.VerdictRepository
	if cfg.History.DatabaseURL != "" {
		c.db, err = postgresql.NewDB(ctx, cfg.History.DatabaseURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to connect to verdict database: %w", err)
		}
		if err := postgresql.EnsureSchema(ctx, c.db); err != nil {
			c.Close()
			return nil, err
		}
		verdicts = postgresql.NewPgVerdictRepository(c.db)
	} else {
		verdicts = repository.NewMemoryVerdictRepository(cfg.History.Capacity)
	}

	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	c.metrics = observer.NewMetricsObserver()
	publisher.Subscribe(c.metrics)

	c.references = service.NewReferenceCache(
		referenceRepo, c.engine, c.snapshots, publisher, cfg.References.RefreshInterval)
	fetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout, cfg.MaxRequestBodySize)

	urlOpts := []validation.URLOption{}
	if len(cfg.FetchAllowedHosts) > 0 {
		urlOpts = append(urlOpts, validation.WithHosts(cfg.FetchAllowedHosts...))
	}
	if cfg.FetchDenyPrivate {
		urlOpts = append(urlOpts, validation.DenyPrivateNetworks())
	}

	c.authService = service.NewAuthenticationService(
		c.engine, c.references, referenceRepo, fetcher, verdicts, publisher, cfg.AuthTimeout,
		service.WithURLValidator(validation.NewURLValidator(urlOpts...)))
	c.handler = transport.NewHandler(c.authService, c.metrics, cfg)

	return c, nil
}

// WarmUp loads the reference set so the first request does not pay for it
func (c *Container) WarmUp(ctx context.Context) error {
	_, err := c.references.Get(ctx)
	return err
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the worker pool, snapshot codec and database
func (c *Container) Close() error {
	var errs []error
	if c.engine != nil {
		errs = append(errs, c.engine.Close())
	}
	if c.snapshots != nil {
		errs = append(errs, c.snapshots.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}
