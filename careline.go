// Package careline wires the Pharmacy First triage assistant: the
// session store, the conversation controller and its collaborators, the
// webhook listener, and the observability endpoints.
package careline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pharmafirst/careline/internal/conversation"
	"github.com/pharmafirst/careline/internal/directory"
	"github.com/pharmafirst/careline/internal/httpapi"
	"github.com/pharmafirst/careline/internal/language"
	intobs "github.com/pharmafirst/careline/internal/observability"
	"github.com/pharmafirst/careline/internal/prescriptions"
	"github.com/pharmafirst/careline/pkg/config"
	"github.com/pharmafirst/careline/pkg/observability"
	"github.com/pharmafirst/careline/pkg/session"
)

// Run starts the service and blocks until ctx is cancelled or a server
// fails.
func Run(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	observability.InitMetrics()
	if err := intobs.InitFromEnv(); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := intobs.Shutdown(shutdownCtx); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("store close error: %v", err)
		}
	}()

	healthChecker := observability.InitHealthChecker()
	healthChecker.RegisterCheck(observability.PingCheck())
	healthChecker.RegisterCheck(observability.StoreCheck(storePing(store)))

	controller, err := newController(cfg, store)
	if err != nil {
		return err
	}

	webhook := httpapi.NewServer(httpapi.Options{
		Port:       cfg.Server.Port,
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
		Controller: controller,
		Transport:  newTransport(cfg),
	})
	obsServer := observability.NewServer(cfg.Server.MetricsPort)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("webhook server listening on :%d", cfg.Server.Port)
		if err := webhook.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("observability server listening on :%d", cfg.Server.MetricsPort)
		if err := obsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("observability server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := webhook.Shutdown(shutdownCtx); err != nil {
			log.Printf("webhook shutdown error: %v", err)
		}
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("observability shutdown error: %v", err)
		}
		return nil
	})

	return g.Wait()
}

func newStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		ttl, err := cfg.Store.SessionTTLDuration()
		if err != nil {
			return nil, err
		}
		store, err := session.NewRedisStore(session.RedisConfig{
			Addr:       cfg.Store.RedisAddr,
			Password:   cfg.Store.RedisPassword,
			DB:         cfg.Store.RedisDB,
			Prefix:     cfg.Store.RedisPrefix,
			SessionTTL: ttl,
		})
		if err != nil {
			return nil, fmt.Errorf("connect session store: %w", err)
		}
		log.Printf("using redis session store at %s", cfg.Store.RedisAddr)
		return store, nil
	default:
		log.Println("using in-memory session store")
		return session.NewMemoryStore(), nil
	}
}

// storePing adapts the store to a health check. Backends without a ping
// report healthy.
func storePing(store session.Store) func(context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := store.(pinger); ok {
		return p.Ping
	}
	return func(context.Context) error { return nil }
}

func newController(cfg *config.Config, store session.Store) (*conversation.Controller, error) {
	var lang language.Service
	if cfg.OpenAI.APIKey != "" {
		lang = language.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	} else {
		log.Println("no OpenAI key configured, using heuristic language detection")
		lang = language.NewHeuristicService()
	}

	handlers := conversation.NewHandlers(
		directory.NewMemoryDirectory(),
		prescriptions.NewMemoryIndex(),
		lang,
		cfg.Triage.BookingURL,
	)
	return conversation.NewController(store, handlers)
}

func newTransport(cfg *config.Config) httpapi.MessageTransport {
	if cfg.Transport.Provider == "rest" {
		return httpapi.NewRESTTransport(
			cfg.Transport.BaseURL,
			cfg.Transport.AccountSID,
			cfg.Transport.AuthToken,
			cfg.Transport.FromNumber,
		)
	}
	return httpapi.NewLogTransport()
}
