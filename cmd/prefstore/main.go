package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/timzifer/prefstore/config"
	"github.com/timzifer/prefstore/internal/logging"
	"github.com/timzifer/prefstore/service"
	"github.com/timzifer/prefstore/telemetry"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	configCheck := flag.Bool("config-check", false, "Validate configuration and exit")
	showStatus := flag.Bool("status", false, "Print the configured cells and queues")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		os.Exit(1)
	}

	if *configCheck {
		fmt.Printf("Configuration OK: %d cells, %d queues, backend %s\n", len(cfg.Cells), len(cfg.Queues), cfg.Storage.Backend)
		os.Exit(0)
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	collector := telemetry.Noop()
	if cfg.Telemetry.Enabled {
		prom, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry disabled")
		} else {
			collector = prom
		}
	}

	svc, err := service.New(cfg, logger, collector)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create service")
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close service")
		}
	}()

	if *showStatus {
		printStatus(os.Stdout, svc)
	}
}

func printStatus(w io.Writer, svc *service.Service) {
	status := svc.Status()
	fmt.Fprintf(w, "Backend: %s\n", status.Backend)

	if len(status.Cells) > 0 {
		fmt.Fprintln(w, "Cells:")
		for _, cs := range status.Cells {
			state := "unset"
			if cs.Set {
				state = "set"
			}
			fmt.Fprintf(w, "  %s (%s) key=%s %s\n", cs.ID, cs.Kind, cs.Key, state)
		}
	}

	if len(status.Queues) > 0 {
		fmt.Fprintln(w, "Queues:")
		for _, qs := range status.Queues {
			fmt.Fprintf(w, "  %s (%s) prefix=%s %d/%d\n", qs.ID, qs.Kind, qs.Prefix, qs.Count, qs.Length)
		}
	}
}
