package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	httpadapter "cv-builder/internal/adapter/http"
	repo "cv-builder/internal/adapter/repository"
	"cv-builder/internal/config"
	"cv-builder/internal/imaging"
	"cv-builder/internal/infrastructure/migration"
	"cv-builder/internal/logging"
	"cv-builder/internal/render"
	"cv-builder/internal/store"
	"cv-builder/internal/usecase"
	"cv-builder/pkg/ai"
	"cv-builder/pkg/backend"
	"cv-builder/pkg/payment"
	infra "cv-builder/pkg/infrastructure"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

const minBodyLimit = 4 * 1024 * 1024

// server is the assembled process: backend API and page routes on one
// fiber app, plus whatever needs closing on the way out.
type server struct {
	app     *fiber.App
	service *usecase.Service
	log     zerolog.Logger
	closers []func()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: cfg.Logging.Service,
	})
}

func newServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*server, error) {
	s := &server{log: log}

	docs, err := s.openDocuments(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	sessions, err := s.openSessions(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	summarizer, err := s.openSummarizer(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}

	renderer, err := render.New()
	if err != nil {
		s.close()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	var payments httpadapter.Payments
	if cfg.Payment.Enabled() {
		payments = payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.AccessToken, cfg.Payment.TimeoutDuration())
	} else {
		log.Warn().Msg("payment credentials missing, checkout disabled")
	}

	api := httpadapter.NewHandler(
		docs,
		infra.NewChromedpRenderer(cfg.Renderer.ChromePath, cfg.Renderer.TimeoutDuration()),
		renderer,
		payments,
		summarizer,
		httpadapter.Options{
			PublicKey: cfg.Payment.PublicKey,
			PublicURL: cfg.Server.PublicURL,
			Product: httpadapter.Product{
				Title:     cfg.Payment.ItemTitle,
				Currency:  cfg.Payment.Currency,
				UnitPrice: cfg.Payment.UnitPrice,
			},
		},
		log.With().Str("component", "api").Logger(),
	)

	normalizer := imaging.NewNormalizer(imaging.Config{
		MaxBytes:            cfg.Image.MaxUploadBytes(),
		MaxDimension:        cfg.Image.MaxDimension,
		JPEGQuality:         cfg.Image.JPEGQuality,
		FlattenTransparency: cfg.Image.FlattenTransparency,
	}, log)
	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.TimeoutDuration())
	s.service = usecase.NewService(normalizer, renderer, client, log.With().Str("component", "page").Logger())

	pages := httpadapter.NewPages(s.service, sessions, httpadapter.PageOptions{
		SecureCookies: cfg.Server.SecureCookies,
		SessionTTL:    cfg.Redis.SessionTTLDuration(),
	}, log.With().Str("component", "page").Logger())

	limit := int(2 * cfg.Image.MaxUploadBytes())
	if limit < minBodyLimit {
		limit = minBodyLimit
	}
	s.app = fiber.New(fiber.Config{
		AppName:               cfg.Logging.Service,
		BodyLimit:             limit,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(httpadapter.RequestLogger(log))
	api.Register(s.app)
	pages.Register(s.app)

	return s, nil
}

func (s *server) openDocuments(ctx context.Context, cfg *config.Config) (httpadapter.Documents, error) {
	pool, err := infra.NewDocumentsPool(ctx, cfg.Database.URL)
	if errors.Is(err, infra.ErrNoDatabase) {
		s.log.Warn().Msg("no database configured, saved documents are kept in memory")
		return repo.NewMemoryDocuments(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	s.closers = append(s.closers, pool.Close)

	if cfg.Database.Migrate {
		if err := migration.RunMigrations(ctx, pool, s.log); err != nil {
			return nil, err
		}
	}
	return repo.NewDocumentsRepo(pool), nil
}

func (s *server) openSessions(ctx context.Context, cfg *config.Config) (store.Provider, error) {
	client, err := infra.NewRedisClient(ctx, cfg.Redis.URL)
	if errors.Is(err, infra.ErrNoRedis) {
		s.log.Info().Msg("no redis configured, sessions are kept in memory")
		return store.NewMemoryProvider(cfg.Redis.SessionTTLDuration()), nil
	}
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = client.Close() })
	return store.NewRedisProvider(client, cfg.Redis.Prefix, cfg.Redis.SessionTTLDuration()), nil
}

func (s *server) openSummarizer(ctx context.Context, cfg *config.Config) (httpadapter.Summarizer, error) {
	switch cfg.AI.Provider {
	case config.AIProviderService:
		return ai.NewClient(cfg.AI.ServiceURL, cfg.AI.TimeoutDuration(), s.log), nil
	case config.AIProviderGemini:
		g, err := ai.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = g.Close() })
		return g, nil
	}
	s.log.Info().Msg("no summary provider configured")
	return nil, nil
}

// serve runs the app on ln until ctx is done, then shuts down within
// timeout. The payment key is looked up once the listener accepts
// connections, since the page tier may be calling this same process.
func (s *server) serve(ctx context.Context, ln net.Listener, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	s.service.InitPayments(initCtx)
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	if err := s.app.ShutdownWithTimeout(timeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
