package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/localbasket/posagent/internal/backend"
	"github.com/localbasket/posagent/internal/bridge"
	"github.com/localbasket/posagent/internal/config"
	"github.com/localbasket/posagent/internal/logging"
	"github.com/localbasket/posagent/internal/panel"
	"github.com/localbasket/posagent/internal/poller"
	"github.com/localbasket/posagent/internal/printing"
	"github.com/localbasket/posagent/internal/session"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	restaurantID := flag.String("set-restaurant-id", "", "store the restaurant id and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log := logging.New("posagent", cfg.Logging.Level, cfg.Logging.Console)

	store, err := session.Open(cfg.Session.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("opening session store")
	}
	defer store.Close()

	if *restaurantID != "" {
		if err := store.SetRestaurantID(*restaurantID); err != nil {
			log.Fatal().Err(err).Msg("storing restaurant id")
		}
		fmt.Println("restaurant id stored")
		return
	}

	if cfg.Backend.BaseURL == "" {
		log.Fatal().Msg("backend.base_url is required")
	}

	businessID, err := store.RestaurantID()
	if err != nil {
		log.Fatal().Err(err).Msg("reading restaurant id")
	}
	if businessID == "" {
		log.Warn().Msg("no restaurant id configured; run with -set-restaurant-id after registering")
	}

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, log.With().Str("component", "backend").Logger())
	bridgeClient := bridge.NewClient(cfg.Bridge, log.With().Str("component", "bridge").Logger())
	alerter := &poller.ExecAlerter{Player: cfg.Alert.Player, Sound: cfg.Alert.Sound}
	poll := poller.New(backendClient, store, alerter, cfg.Poller, log.With().Str("component", "poller").Logger())

	renderer := printing.NewRenderer()
	orch := printing.NewOrchestrator(bridgeClient, renderer, backendClient, log.With().Str("component", "print").Logger())

	pnl := panel.New(panel.Config{
		BusinessID: businessID,
		Backend:    backendClient,
		Orch:       orch,
		Bridge:     bridgeClient,
		Notifier:   panel.LogNotifier{Log: log},
		Picker:     &consolePicker{},
		UpdatedBy:  cfg.Backend.UpdatedBy,
		OnToggle: func(open bool) {
			log.Info().Bool("open", open).Msg("notification panel toggled")
		},
		Publish: poll.PublishStatusUpdate,
		Log:     log.With().Str("component", "panel").Logger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := suture.New("posagent", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Str("event", e.String()).Msg("supervisor")
		},
	})
	sup.Add(bridgeClient)
	sup.Add(poll)
	errCh := sup.ServeBackground(ctx)

	go pnl.Run(ctx, poll.Orders())
	go drainUpdates(ctx, poll, log)
	go serveDebug(ctx, cfg.Agent.Listen, log)

	if businessID != "" {
		if err := pnl.LoadInitial(ctx, 0, cfg.Poller.PageSize); err != nil {
			log.Error().Err(err).Msg("loading initial placed orders")
		}
	}

	go runConsole(ctx, pnl, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info().Msg("shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		cancel()
		if err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("supervisor exited")
		}
	}
}

// serveDebug exposes health and metrics on the agent's localhost port.
func serveDebug(ctx context.Context, listen string, log zerolog.Logger) {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: listen, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("listen", listen).Msg("debug endpoints listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("debug server stopped")
	}
}

// drainUpdates keeps the status-update stream flowing for future screens;
// headless it only logs the transitions.
func drainUpdates(ctx context.Context, poll *poller.Poller, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-poll.Updates():
			log.Debug().Str("order", u.OrderNumber).Str("status", string(u.Status)).Msg("order status updated")
		}
	}
}
