package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"

	"github.com/localbasket/posagent/internal/config"
	"github.com/localbasket/posagent/internal/logging"
	"github.com/localbasket/posagent/internal/printerd"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	discover := flag.Bool("discover", false, "scan the local subnet for thermal printers and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log := logging.New("printerd", cfg.Logging.Level, cfg.Logging.Console)

	if *discover {
		ips, err := printerd.DiscoverThermal(9100)
		if err != nil {
			log.Fatal().Err(err).Msg("discovery failed")
		}
		if len(ips) == 0 {
			fmt.Println("No thermal printers found on the local subnet.")
			return
		}
		fmt.Println("Thermal printer candidates (add to printers.json):")
		for _, ip := range ips {
			fmt.Printf("  %s:9100\n", ip)
		}
		return
	}

	// A host that cannot render cannot print.
	if cfg.Printerd.ChromePath == "" {
		path, ok := printerd.FindChrome()
		if !ok {
			log.Fatal().Msg("chrome/chromium not found; it is required for receipt rendering")
		}
		cfg.Printerd.ChromePath = path
	}
	log.Info().Str("chrome", cfg.Printerd.ChromePath).Msg("render surface ready")

	printers, err := printerd.LoadPrinters(cfg.Printerd.PrintersFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Printerd.PrintersFile).Msg("loading configured printers")
	}
	log.Info().Int("configured", len(printers)).Msg("printer fleet loaded")

	svc := printerd.NewService(cfg.Printerd, printers, log)
	server := printerd.NewServer(svc, cfg.Printerd.Listen, log)

	sup := suture.New("printerd", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Str("event", e.String()).Msg("supervisor")
		},
	})
	sup.Add(server)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

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
