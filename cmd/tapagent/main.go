package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tapwire/internal/agent"
	"tapwire/internal/backend"
	"tapwire/internal/clock"
	"tapwire/internal/config"
	"tapwire/internal/flows"
	"tapwire/internal/keystore"
	"tapwire/internal/logging"
	"tapwire/internal/metrics"
	"tapwire/internal/nfc"
	"tapwire/internal/poller"
	"tapwire/internal/session"
	"tapwire/internal/signing"
	"tapwire/internal/store/localfs"
	"tapwire/internal/sweeper"
	"tapwire/internal/taperr"
)

const version = "0.1"

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "", log.LstdFlags)
	clk := clock.RealClock{}
	counters := metrics.NewCounters()

	st, err := localfs.New(cfg.DataDir)
	if err != nil {
		logging.Fatal(logger, map[string]string{
			"event": "storage_init_failed",
			"error": "storage",
		})
	}

	key, err := keystore.LoadOrCreate(cfg.DataDir)
	if err != nil {
		logging.Fatal(logger, map[string]string{
			"event": "keystore_init_failed",
			"error": "storage",
		})
	}
	signer := signing.New(key.Private())

	deviceID := os.Getenv("TW_DEVICE_ID")
	if deviceID == "" {
		deviceID = "dev-" + key.PublicHex()[:16]
	}
	client, err := backend.NewClient(
		&http.Client{Timeout: cfg.BackendTimeout},
		cfg.BackendURL,
		deviceID,
		uuid.NewString(),
	)
	if err != nil {
		logging.Fatal(logger, map[string]string{
			"event": "backend_init_failed",
			"error": "config",
		})
	}

	// Registration is best-effort at startup; the backend rejects unsigned
	// traffic from unknown devices anyway, so failure here just surfaces
	// later.
	regCtx, regCancel := context.WithTimeout(context.Background(), cfg.BackendTimeout)
	_, err = client.RegisterDevice(regCtx, backend.RegisterDeviceRequest{
		PublicKey:  signer.PublicHex(),
		DeviceName: cfg.DeviceName,
	})
	regCancel()
	if err != nil {
		logging.Allowlist(logger, map[string]string{
			"event": "device_register_failed",
			"error": "backend",
		})
	}

	device := nfc.NewEmulated(cfg.DeviceName)

	var geo *backend.Geo
	if cfg.GeoEnabled {
		geo = &backend.Geo{Latitude: cfg.GeoLatitude, Longitude: cfg.GeoLongitude}
	}
	var confirm flows.Confirmer
	if !cfg.AutoConfirm {
		confirm = flows.AutoDecline{}
	}

	factory := flows.NewFactory(flows.Deps{
		Writer:  device,
		Backend: client,
		Signer:  signer,
		Identity: flows.Identity{
			UserID:      deviceID,
			DisplayName: cfg.DeviceName,
		},
		Store:     st,
		Clock:     clk,
		Metrics:   counters,
		Logger:    logger,
		Confirm:   confirm,
		Poller:    poller.New(client),
		Freshness: cfg.PayloadFreshness,
		Currency:  cfg.Currency,
		Geo:       geo,
		Retention: cfg.TapRetention,
	})

	controller := session.NewController(session.Dependencies{
		Device:  device,
		Flows:   factory,
		Logger:  logger,
		Clock:   clk,
		Metrics: counters,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := controller.Initialize(ctx); err != nil {
		logging.Allowlist(logger, map[string]string{
			"event": "nfc_init_degraded",
			"error": string(taperr.CodeOf(err)),
		})
	}

	liveness := sweeper.NewLiveness()
	sweep := sweeper.New(st, clk, cfg.SweepInterval, logger, liveness, counters)
	sweep.Start(ctx)

	server := agent.NewServer(agent.Dependencies{
		Config:     cfg,
		Controller: controller,
		Device:     device,
		Injector:   device,
		Store:      st,
		Metrics:    counters,
		Liveness:   liveness,
		Logger:     logger,
		Version:    version,
	})

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Allowlist(logger, map[string]string{
				"event": "server_error",
				"error": "listen",
			})
		}
	}()

	<-ctx.Done()
	controller.StopCurrentOperation()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
