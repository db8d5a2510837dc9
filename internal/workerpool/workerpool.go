// Package workerpool assembles the per-subcommand runtime: one resolver
// handle and governor shared by cfg.ThreadsPerProcess worker goroutines,
// each driving an independent source consumer through the shared
// dispatcher, plus the monitor admin thread. This is the structure
// main() delegates to once configuration has been loaded and validated.
package workerpool

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/senzing-garage/stream-loader/internal/config"
	"github.com/senzing-garage/stream-loader/internal/dispatch"
	"github.com/senzing-garage/stream-loader/internal/monitor"
	"github.com/senzing-garage/stream-loader/internal/plugin"
	"github.com/senzing-garage/stream-loader/internal/resolver"
	"github.com/senzing-garage/stream-loader/internal/sink"
	"github.com/senzing-garage/stream-loader/internal/source/azureservicebus"
	"github.com/senzing-garage/stream-loader/internal/source/kafka"
	"github.com/senzing-garage/stream-loader/internal/source/rabbitmq"
	"github.com/senzing-garage/stream-loader/internal/source/sqs"
	"github.com/senzing-garage/stream-loader/internal/source/urlstdin"
	"github.com/senzing-garage/stream-loader/pkg/concurrency"
	"github.com/senzing-garage/stream-loader/pkg/logger"
)

// BackendRunner drives one worker's source consumer until ctx is
// canceled or a fatal resolver error is reported through onFatal.
type BackendRunner func(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, onFatal dispatch.FatalHandler) error

// SinkBuilder constructs the failure or info destination for a backend,
// returning an unconfigured *sink.Sink when the deployment sets none.
type SinkBuilder func(ctx context.Context, cfg *config.Config) (*sink.Sink, error)

// backend bundles a subcommand family's consumer loop with its
// failure/info sink constructors. url is handled separately: it runs a
// single reader with its own internal writer pool rather than N
// independent consumers.
type backend struct {
	run         BackendRunner
	failureSink SinkBuilder
	infoSink    SinkBuilder
}

var backends = map[string]backend{
	"kafka": {
		run:         kafka.Run,
		failureSink: func(_ context.Context, cfg *config.Config) (*sink.Sink, error) { return kafka.FailureSink(cfg) },
		infoSink:    func(_ context.Context, cfg *config.Config) (*sink.Sink, error) { return kafka.InfoSink(cfg) },
	},
	"rabbitmq": {
		run:         rabbitmq.Run,
		failureSink: func(_ context.Context, cfg *config.Config) (*sink.Sink, error) { return rabbitmq.FailureSink(cfg) },
		infoSink:    func(_ context.Context, cfg *config.Config) (*sink.Sink, error) { return rabbitmq.InfoSink(cfg) },
	},
	"sqs": {
		run:         sqs.Run,
		failureSink: sqs.FailureSink,
		infoSink:    sqs.InfoSink,
	},
	"azure-queue": {
		run:         azureservicebus.Run,
		failureSink: func(_ context.Context, cfg *config.Config) (*sink.Sink, error) { return azureservicebus.FailureSink(cfg) },
		infoSink:    func(_ context.Context, cfg *config.Config) (*sink.Sink, error) { return azureservicebus.InfoSink(cfg) },
	},
}

// family strips a "-withinfo" suffix so both variants of a subcommand
// share one backend entry.
func family(subcommand string) string {
	const suffix = "-withinfo"
	if len(subcommand) > len(suffix) && subcommand[len(subcommand)-len(suffix):] == suffix {
		return subcommand[:len(subcommand)-len(suffix)]
	}
	return subcommand
}

// Pool owns the resolver facade, governor, and the set of worker
// goroutines for one subcommand invocation.
type Pool struct {
	facade   *resolver.Facade
	governor plugin.Governor
	counters dispatch.Counters

	mu    sync.Mutex
	alive []*atomic.Bool
}

// New builds a Pool around an already-initialized facade and governor.
func New(facade *resolver.Facade, governor plugin.Governor) *Pool {
	return &Pool{facade: facade, governor: governor}
}

// Run, for the url subcommand, hands off to urlstdin.Run; for every
// broker-backed subcommand it starts cfg.ThreadsPerProcess independent
// consumer workers, then starts the monitor thread once cfg.DelayInSeconds
// (optionally randomized) has passed, and blocks until ctx is canceled or
// all workers have exited. A fatal resolver classification reported by any
// worker cancels the remaining workers immediately rather than waiting for
// them to exit on their own.
func (p *Pool) Run(ctx context.Context, cfg *config.Config, filter plugin.InfoFilter, onFatal dispatch.FatalHandler) error {
	// runCtx is canceled the moment any worker reports a fatal resolver
	// classification, so sibling workers blocked inside Consume stop
	// immediately instead of waiting for their own delivery to fail.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cancelOnce sync.Once
	wrappedOnFatal := func(err error) {
		onFatal(err)
		cancelOnce.Do(cancel)
	}

	if family(cfg.Subcommand) == "url" {
		failureSink := sink.New(nil, "")
		infoSink := sink.New(nil, "")
		d := dispatch.New(p.facade, p.governor, filter, failureSink, infoSink, checkFrequency(cfg), &p.counters)
		return urlstdin.Run(runCtx, cfg, d, wrappedOnFatal)
	}

	be, ok := backends[family(cfg.Subcommand)]
	if !ok {
		return unknownSubcommandError(cfg.Subcommand)
	}

	failureSink, err := be.failureSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer failureSink.Close()

	infoSink, err := be.infoSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer infoSink.Close()

	d := dispatch.New(p.facade, p.governor, filter, failureSink, infoSink, checkFrequency(cfg), &p.counters)

	threads := cfg.ThreadsPerProcess
	if threads < 1 {
		threads = 1
	}

	var wg sync.WaitGroup
	p.mu.Lock()
	p.alive = make([]*atomic.Bool, threads)
	p.mu.Unlock()

	for i := 0; i < threads; i++ {
		alive := &atomic.Bool{}
		alive.Store(true)
		p.mu.Lock()
		p.alive[i] = alive
		p.mu.Unlock()

		wg.Add(1)
		concurrency.SafeGo(runCtx, func() {
			defer wg.Done()
			defer alive.Store(false)
			if err := be.run(runCtx, cfg, d, wrappedOnFatal); err != nil {
				logger.L().ErrorContext(runCtx, "worker exited with error", "error", err)
			}
		})
	}

	monitorCfg := monitor.Config{
		MonitoringPeriod:      time.Duration(cfg.MonitoringPeriodInSeconds) * time.Second,
		LogLicensePeriod:      time.Duration(cfg.LogLicensePeriodInSeconds) * time.Second,
		ExpirationWarningDays: cfg.ExpirationWarningInDays,
	}
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		if err := delay(runCtx, cfg); err != nil {
			return
		}
		monitor.Run(runCtx, monitorCfg, p.facade, &p.counters, p.workerStatuses())
	}()

	wg.Wait()
	<-monitorDone

	return nil
}

func (p *Pool) workerStatuses() []monitor.WorkerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	statuses := make([]monitor.WorkerStatus, len(p.alive))
	for i, a := range p.alive {
		statuses[i] = a.Load
	}
	return statuses
}

func checkFrequency(cfg *config.Config) time.Duration {
	return time.Duration(cfg.ConfigurationCheckFrequency) * time.Second
}

func delay(ctx context.Context, cfg *config.Config) error {
	d := time.Duration(cfg.DelayInSeconds) * time.Second
	if d <= 0 {
		return nil
	}
	if cfg.DelayRandomized {
		d = time.Duration(rand.Int63n(int64(d)))
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type unknownSubcommandError string

func (e unknownSubcommandError) Error() string {
	return "no backend registered for subcommand " + string(e)
}
