package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"roi-calculator/config"
	"roi-calculator/costmodel"
	"roi-calculator/formatter"
	"roi-calculator/logging"
	"roi-calculator/metrics"
	"roi-calculator/models"
	"roi-calculator/parser"
	"roi-calculator/server"
	"roi-calculator/session"
)

// assignments collects repeated -set flags.
type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(v string) error {
	*a = append(*a, v)
	return nil
}

func main() {
	// Define flags
	preset := flag.String("preset", session.PresetDefault, "Starting preset: default|zero")
	scenarioPath := flag.String("scenario", "", "YAML scenario file applied on top of -preset")
	channelsPath := flag.String("channels", "", "CSV file replacing the channel list (id,name,daily,unresolved[,icon])")
	format := flag.String("format", "text", "Output format: text|json|csv")
	breakdown := flag.Bool("breakdown", false, "Include the formula breakdown in text output")
	printScenario := flag.Bool("print-scenario", false, "Print the resolved scenario as YAML and exit")
	serve := flag.Bool("serve", false, "Run the HTTP/websocket server instead of a one-shot computation")
	configPath := flag.String("config", "", "YAML config file for the server, logging and metrics")
	metricsAddr := flag.String("metrics-addr", "", "Address to expose Prometheus metrics (e.g., :9090)")
	pushGateway := flag.String("push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	wait := flag.Bool("wait", false, "Keep process running after completion to allow for metric scraping")
	var sets assignments
	flag.Var(&sets, "set", "Override a field, e.g. model_b.ai_resolution_rate=80 (repeatable)")

	// Parse command-line flags
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *pushGateway != "" {
		cfg.Metrics.PushURL = *pushGateway
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.ServiceName = cfg.App.Name
	logCfg.Environment = cfg.App.Environment
	logger := logging.NewLogger(logCfg)
	slog.SetDefault(logger)

	// Validate format enum
	validFormats := map[string]bool{"text": true, "json": true, "csv": true}
	if !validFormats[*format] {
		fmt.Printf("Error: format must be one of: text, json, csv (got: %s)\n", *format)
		os.Exit(1)
	}

	scenario, err := resolveScenario(*preset, *scenarioPath, *channelsPath, sets)
	if err != nil {
		fmt.Printf("Error building scenario: %v\n", err)
		os.Exit(1)
	}

	if *printScenario {
		if err := parser.WriteScenario(os.Stdout, scenario); err != nil {
			fmt.Printf("Error writing scenario: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *serve {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := server.New(cfg, logger, scenario).ListenAndServe(ctx); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	// Start metrics server if address provided
	if cfg.Metrics.Addr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
			logger.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, nil); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	metrics.ResetResultGauges()
	start := time.Now()
	results := costmodel.Compute(scenario)
	metrics.ComputeDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.ObserveResults("cli", results)

	if err := costmodel.CheckFinite(results); err != nil {
		fmt.Printf("Error computing results: %v\n", err)
		os.Exit(1)
	}

	// Output based on format
	switch *format {
	case "json":
		output, err := formatter.FormatJSON(results)
		if err != nil {
			fmt.Printf("Error formatting results: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(output)
	case "csv":
		fmt.Print(formatter.FormatCSV(results))
	default: // "text"
		fmt.Print(formatter.FormatText(results, *breakdown))
	}

	// Handle metrics pushing or waiting
	if cfg.Metrics.PushURL != "" {
		if err := push.New(cfg.Metrics.PushURL, cfg.Metrics.JobName).Gatherer(metrics.Registry).Push(); err != nil {
			logger.Error("pushing to Pushgateway failed", "url", cfg.Metrics.PushURL, "error", err)
		} else {
			logger.Info("metrics pushed to Pushgateway", "url", cfg.Metrics.PushURL)
		}
	}

	if *wait && cfg.Metrics.Addr != "" {
		fmt.Fprintln(os.Stderr, "Process kept alive for metric scraping. Press Ctrl+C to exit.")
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
	} else if cfg.Metrics.Addr != "" && cfg.Metrics.PushURL == "" {
		// Give a scraper a moment before a batch run exits.
		time.Sleep(100 * time.Millisecond)
	}
}

// resolveScenario layers preset, scenario file, channel CSV and -set overrides.
func resolveScenario(preset, scenarioPath, channelsPath string, sets []string) (models.Scenario, error) {
	scenario, err := session.Preset(preset)
	if err != nil {
		return models.Scenario{}, err
	}

	if scenarioPath != "" {
		file, err := os.Open(scenarioPath)
		if err != nil {
			return models.Scenario{}, fmt.Errorf("opening scenario: %w", err)
		}
		defer file.Close()
		if scenario, err = parser.ParseScenarioOnto(file, scenario); err != nil {
			return models.Scenario{}, fmt.Errorf("parsing %s: %w", scenarioPath, err)
		}
	}

	if channelsPath != "" {
		file, err := os.Open(channelsPath)
		if err != nil {
			return models.Scenario{}, fmt.Errorf("opening channels: %w", err)
		}
		defer file.Close()
		channels, err := parser.ParseChannels(file)
		if err != nil {
			return models.Scenario{}, fmt.Errorf("parsing %s: %w", channelsPath, err)
		}
		scenario.Channels = channels
	}

	for _, assignment := range sets {
		path, value, err := session.ParseAssignment(assignment)
		if err != nil {
			return models.Scenario{}, err
		}
		if err := session.SetField(&scenario, path, value); err != nil {
			return models.Scenario{}, err
		}
	}
	return scenario, nil
}
