// Command stream-loader is the ingestion bridge's entry point: it
// dispatches on a required subcommand (kafka, rabbitmq, sqs, azure-queue
// — each with a -withinfo sibling — url, sleep, version, and
// docker-acceptance-test), loads and validates configuration, then hands
// off to the worker pool until an OS signal or fatal resolver error ends
// the run.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/senzing-garage/stream-loader/internal/config"
	"github.com/senzing-garage/stream-loader/internal/dispatch"
	"github.com/senzing-garage/stream-loader/internal/plugin"
	"github.com/senzing-garage/stream-loader/internal/resolver"
	"github.com/senzing-garage/stream-loader/internal/workerpool"
	pkgconfig "github.com/senzing-garage/stream-loader/pkg/config"
	"github.com/senzing-garage/stream-loader/pkg/logger"
	"github.com/senzing-garage/stream-loader/pkg/telemetry"
)

const version = "1.0.0"

var consumerSubcommands = map[string]bool{
	"kafka": true, "kafka-withinfo": true,
	"rabbitmq": true, "rabbitmq-withinfo": true,
	"sqs": true, "sqs-withinfo": true,
	"azure-queue": true, "azure-queue-withinfo": true,
	"url": true,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	subcommand := ""
	rest := args
	if len(args) > 0 {
		subcommand = args[0]
		rest = args[1:]
	}

	if subcommand == "" {
		if os.Getenv("SENZING_DOCKER_LAUNCHED") == "true" {
			subcommand = "sleep"
		} else {
			printHelp()
			return 0
		}
	}

	switch subcommand {
	case "help", "-h", "--help":
		printHelp()
		return 0
	case "version":
		fmt.Println(version)
		return 0
	}

	cfg, err := config.Load(subcommand, rest)
	if err != nil {
		return 1
	}

	logger.Init(logger.Config{Level: normalizeLevel(cfg.LogLevel), Redact: true})
	ctx, cancel := signalContext()
	defer cancel()

	logEntry(ctx, cfg)
	exitCode := dispatchSubcommand(ctx, cfg)
	logExit(ctx, cfg)
	if exitCode != 0 {
		logger.L().ErrorContext(ctx, "program terminated with error", "subcommand", cfg.Subcommand, "exit_code", exitCode)
	}

	return exitCode
}

func dispatchSubcommand(ctx context.Context, cfg *config.Config) int {
	switch {
	case cfg.Subcommand == "sleep":
		doSleep(ctx, cfg)
		return 0
	case cfg.Subcommand == "docker-acceptance-test":
		return 0
	case consumerSubcommands[cfg.Subcommand]:
		return doConsumer(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", cfg.Subcommand)
		printHelp()
		return 1
	}
}

func doSleep(ctx context.Context, cfg *config.Config) {
	if cfg.SleepTimeInSeconds > 0 {
		logger.L().InfoContext(ctx, "sleeping", "seconds", cfg.SleepTimeInSeconds)
		select {
		case <-time.After(time.Duration(cfg.SleepTimeInSeconds) * time.Second):
		case <-ctx.Done():
		}
		return
	}
	for ctx.Err() == nil {
		logger.L().InfoContext(ctx, "sleeping indefinitely")
		select {
		case <-time.After(time.Hour):
		case <-ctx.Done():
			return
		}
	}
}

func doConsumer(ctx context.Context, cfg *config.Config) int {
	var telemetryCfg telemetry.Config
	if err := pkgconfig.Load(&telemetryCfg); err != nil {
		logger.L().WarnContext(ctx, "telemetry configuration not loaded, tracing disabled", "error", err)
	} else if shutdown, err := telemetry.Init(telemetryCfg); err != nil {
		logger.L().WarnContext(ctx, "telemetry initialization failed, continuing without tracing", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.L().WarnContext(shutdownCtx, "telemetry shutdown failed", "error", err)
			}
		}()
	}

	engine := resolver.NewStubEngine()
	facade := resolver.NewFacade(engine)
	if err := facade.Init(ctx, cfg.ProductID, cfg.EngineConfigurationJSON, cfg.Debug); err != nil {
		logger.L().ErrorContext(ctx, "resolver initialization failed", "error", err)
		return 1
	}
	defer func() {
		destroyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := facade.Destroy(destroyCtx); err != nil {
			logger.L().ErrorContext(destroyCtx, "resolver destroy failed", "error", err)
		}
	}()

	if cfg.PrimeEngine {
		if err := facade.PrimeEngine(ctx); err != nil {
			logger.L().ErrorContext(ctx, "resolver prime failed", "error", err)
			return 1
		}
	}

	governor := plugin.NoopGovernor{}
	defer governor.Close()
	filter := plugin.IdentityInfoFilter{}

	var fatal error
	var onFatal dispatch.FatalHandler = func(err error) { fatal = err }

	pool := workerpool.New(facade, governor)
	if err := pool.Run(ctx, cfg, filter, onFatal); err != nil && ctx.Err() == nil {
		logger.L().ErrorContext(ctx, "worker pool exited with error", "error", err)
		return 1
	}
	if fatal != nil {
		logger.L().ErrorContext(ctx, "fatal resolver error, stopping", "error", fatal)
		return 1
	}
	return 0
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx, stop
}

func logEntry(ctx context.Context, cfg *config.Config) {
	redacted := cfg.Redact()
	body, err := json.Marshal(redacted)
	if err != nil {
		logger.L().InfoContext(ctx, "starting stream-loader", "subcommand", cfg.Subcommand)
		return
	}
	logger.L().InfoContext(ctx, "starting stream-loader", "subcommand", cfg.Subcommand, "config", string(body))
}

func logExit(ctx context.Context, cfg *config.Config) {
	elapsed := time.Since(cfg.StartTime)
	args := []any{
		"subcommand", cfg.Subcommand,
		"start_time", cfg.StartTime,
		"stop_time", time.Now(),
		"elapsed_seconds", elapsed.Seconds(),
	}
	if body, err := json.Marshal(cfg.Redact()); err == nil {
		args = append(args, "config", string(body))
	}
	logger.L().InfoContext(ctx, "stopping stream-loader", args...)
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	return strings.ToUpper(level)
}

func printHelp() {
	fmt.Println(`usage: stream-loader <subcommand> [flags]

subcommands:
  kafka, kafka-withinfo
  rabbitmq, rabbitmq-withinfo
  sqs, sqs-withinfo
  azure-queue, azure-queue-withinfo
  url
  sleep
  version
  docker-acceptance-test`)
}
