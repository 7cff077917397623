package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nasi-kandar-bot/bot"
	"nasi-kandar-bot/config"
	"nasi-kandar-bot/db"
	"nasi-kandar-bot/httpapi"
	"nasi-kandar-bot/logger"
	"nasi-kandar-bot/metrics"
	"nasi-kandar-bot/order"
	"nasi-kandar-bot/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const throttleIdle = 30 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "nasi-kandar-bot",
		Level:       logger.ParseLevel(cfg.Log.Level),
		Format:      cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "bot stopped", err)
		os.Exit(1)
	}
	log.Info(ctx, "bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// The database is optional: without DB_HOST the built-in menu is served.
	if cfg.DB.Enabled() {
		if err := db.Init(ctx, cfg.DB); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer db.Close()

		if cfg.DB.AutoMigrate {
			if _, err := applyMigrations(ctx, log); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
	}
	catalog := services.LoadCatalog(ctx, log)

	restaurant := services.Restaurant{
		Name:     cfg.Delivery.OriginName,
		Origin:   services.Coordinates{Lat: cfg.Delivery.OriginLat, Lon: cfg.Delivery.OriginLon},
		RadiusKm: cfg.Delivery.ServiceRadiusKm,
	}
	geocoder, err := services.NewGeocodingClient(cfg.Geocoding.UserAgent,
		services.WithGeocoderBaseURL(cfg.Geocoding.BaseURL),
		services.WithCountry(cfg.Geocoding.CountryCode, cfg.Geocoding.CountryName),
		services.WithGeocoderTimeout(cfg.Geocoding.Timeout),
		services.WithRestaurant(restaurant),
		services.WithCoordinateFee(services.FeeSchedule{Base: cfg.Delivery.CoordinateBaseFee, PerKm: cfg.Delivery.CoordinatePerKm}),
		services.WithGeocoderLogger(log),
		services.WithGeocoderMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("geocoder: %w", err)
	}

	oracle, closeOracle, err := newOracle(ctx, cfg.Oracle)
	if err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	defer closeOracle()
	verifier := services.NewReceiptVerifier(oracle,
		services.WithOracleTimeout(cfg.Oracle.Timeout),
		services.WithVerifierLogger(log),
		services.WithVerifierMetrics(m),
	)

	artifacts := services.NewArtifactChain(log, m,
		&services.StaticQR{
			URL:     cfg.Payment.QRImageURL,
			Path:    cfg.Payment.QRImagePath,
			Timeout: cfg.Payment.Timeout,
		},
		&services.GeneratedQR{Merchant: cfg.Payment.Merchant},
		services.AmountDueText{},
	)

	machine := order.NewMachine(order.Config{
		Catalog:              catalog,
		Resolver:             geocoder,
		Verifier:             verifier,
		Artifacts:            artifacts,
		TextFee:              &services.FeeSchedule{Base: cfg.Delivery.TextBaseFee, PerKm: cfg.Delivery.TextPerKm},
		TextMeasuredDistance: cfg.Delivery.TextMeasuredDistance,
		DispatchDelay:        cfg.Delivery.DispatchNoticeDelay,
		Logger:               log,
		Metrics:              m,
	})
	store := order.NewStore()

	b, err := bot.New(cfg, log, m)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	dispatcher := order.NewDispatcher(store, machine, b,
		order.WithDispatcherLogger(log),
		order.WithDispatcherMetrics(m),
	)

	srv := httpapi.NewServer(cfg.HTTP.Port, httpapi.NewRouter(reg, store, time.Now), log)

	log.Info(ctx, "starting",
		"menu_items", catalog.Len(),
		"oracle", cfg.Oracle.Provider,
		"radius_km", restaurant.RadiusKm,
		"text_fee_measured", cfg.Delivery.TextMeasuredDistance,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Start(gctx, dispatcher) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		store.RunSweeper(gctx, cfg.Session.SweepInterval, cfg.Session.IdleTTL, log)
		return nil
	})
	g.Go(func() error {
		sweepThrottle(gctx, b.Throttle(), cfg.Session.SweepInterval, log)
		return nil
	})
	return g.Wait()
}

func newOracle(ctx context.Context, cfg config.OracleConfig) (services.ImageOracle, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case "huggingface":
		o, err := services.NewHuggingFaceOracle(cfg.HFToken, cfg.HFBaseURL, cfg.HFModel, &http.Client{Timeout: cfg.Timeout})
		if err != nil {
			return nil, noop, err
		}
		return o, noop, nil
	case "gemini":
		o, err := services.NewGeminiOracle(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, err
		}
		return o, func() { _ = o.Close() }, nil
	default:
		// No oracle: every receipt is accepted and flagged for a manual check.
		return nil, noop, nil
	}
}

func sweepThrottle(ctx context.Context, t *services.ChatThrottle, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := t.Sweep(throttleIdle, now); n > 0 {
				log.Debug(ctx, "idle rate limiters dropped", "count", n, "remaining", t.Len())
			}
		}
	}
}

func runMigrate(cfg *config.Config) {
	ctx := context.Background()
	log := logger.New(logger.Options{ServiceName: "nasi-kandar-bot", Format: "console"})
	if err := db.Init(ctx, cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	n, err := applyMigrations(ctx, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("%d migration(s) applied.\n", n)
}
