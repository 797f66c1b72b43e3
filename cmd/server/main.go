package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"route-scheduling-service/internal/adapters/cache"
	"route-scheduling-service/internal/adapters/catalog"
	"route-scheduling-service/internal/adapters/events"
	"route-scheduling-service/internal/adapters/nominatim"
	"route-scheduling-service/internal/adapters/ors"
	"route-scheduling-service/internal/adapters/repositories"
	"route-scheduling-service/internal/adapters/visibility"
	"route-scheduling-service/internal/api"
	"route-scheduling-service/internal/api/handlers"
	"route-scheduling-service/internal/config"
	"route-scheduling-service/internal/platform/db"
	"route-scheduling-service/internal/platform/obs"
	"route-scheduling-service/internal/ports"
	"route-scheduling-service/internal/services"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Hide state is per plan date; keep it around long enough to cover re-planning.
const hiddenStateTTL = 30 * 24 * time.Hour

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS, RabbitMQ) behind ports and starts the HTTP server.
// Without DATABASE_URL, REDIS_URL or RABBITMQ_URL the in-memory variants are used.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := obs.NewLogger(cfg.LogLevel, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	obs.RegisterDefault()
	checks := map[string]handlers.Check{}

	var (
		sqlDB  *sql.DB
		orders ports.OrderRepository
		tasks  ports.TaskRepository
	)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := repositories.InitSchema(ctx, conn); err != nil {
			return err
		}
		sqlDB = conn
		orders = repositories.NewSQLOrderRepository(conn)
		tasks = repositories.NewSQLTaskRepository(conn)
		checks["postgres"] = conn.PingContext
	} else {
		seeded, err := repositories.ReadOrderSeeds(cfg.SeedPath)
		if err != nil {
			return err
		}
		orders = repositories.NewMemoryOrderRepository(seeded...)
		tasks = repositories.NewMemoryTaskRepository()
		logger.Warn().Int("orders", len(seeded)).Msg("DATABASE_URL not set; using in-memory orders and tasks")
	}

	orsOpts := ors.Options{
		BaseURL:           cfg.ORSBaseURL,
		RequestsPerMinute: cfg.ORSRequestsPerMinute,
	}
	// ORS provider uses persistent SQL caches to avoid repeated geocode/matrix calls.
	if sqlDB != nil {
		orsOpts.GeocodeCache = cache.NewSQLGeocodeCache(sqlDB)
		orsOpts.MatrixCache = cache.NewSQLDistanceCache(sqlDB)
	}
	orsClient, err := ors.NewClient(cfg.ORSAPIKey, orsOpts)
	if err != nil {
		return fmt.Errorf("ors client: %w", err)
	}

	var geocoder ports.Geocoder = orsClient
	if strings.EqualFold(cfg.Geocoder, "nominatim") {
		geocoder = nominatim.New(nominatim.Options{
			BaseURL:   cfg.NominatimURL,
			UserAgent: cfg.NominatimUserAgent,
		})
	}

	var store ports.VisibilityStore = visibility.NewMemoryStore()
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rs, err := visibility.NewRedisStore(cfg.RedisURL, hiddenStateTTL)
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
		checks["redis"] = rs.Ping
	}

	var publisher ports.EventPublisher = events.LogPublisher{}
	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		rp, err := events.DialRabbit(cfg.RabbitMQURL, events.DefaultExchange)
		if err != nil {
			return err
		}
		defer rp.Close()
		publisher = rp
	}

	templates, err := catalog.Load(cfg.TemplatesPath)
	if err != nil {
		return err
	}

	var rng *rand.Rand
	if cfg.KMeansSeed != 0 {
		rng = rand.New(rand.NewSource(cfg.KMeansSeed))
	}

	optimizer := services.NewRouteOptimizer(geocoder, orsClient, orsClient, cfg.MaxLegKm)
	router := api.NewRouter(api.Deps{
		Logger:     logger,
		Optimizer:  optimizer,
		Drivers:    services.NewMultiDriverOptimizer(optimizer, services.NewGeoClusterer(rng)),
		Overlay:    services.NewVisibilityOverlay(store),
		Converter:  services.NewRouteToTaskConverter(orders, services.NewTemplateEngine(cfg.Location())),
		Batch:      services.NewBatchTaskCreator(tasks, publisher),
		Catalog:    templates,
		HubAddress: cfg.HubAddress,
		Checks:     checks,
	})

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("geocoder", cfg.Geocoder).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
