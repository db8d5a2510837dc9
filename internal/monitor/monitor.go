// Package monitor runs the periodic admin thread that logs throughput,
// worker liveness, resolver stats, and license expiration while a
// subcommand's workers are running.
package monitor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/senzing-garage/stream-loader/internal/dispatch"
	"github.com/senzing-garage/stream-loader/internal/resolver"
	"github.com/senzing-garage/stream-loader/pkg/logger"
)

// Config controls the monitor's tick intervals.
type Config struct {
	MonitoringPeriod     time.Duration
	LogLicensePeriod     time.Duration
	ExpirationWarningDays int
}

// WorkerStatus reports whether a worker goroutine is still alive.
type WorkerStatus func() bool

// Run logs periodic statistics until ctx is canceled or every worker has
// died. Fewer than half alive only logs a warning; the monitor keeps
// running as long as at least one worker is still processing deliveries.
func Run(ctx context.Context, cfg Config, facade *resolver.Facade, counters *dispatch.Counters, workers []WorkerStatus) {
	if cfg.MonitoringPeriod <= 0 {
		cfg.MonitoringPeriod = 10 * time.Minute
	}

	ticker := time.NewTicker(cfg.MonitoringPeriod)
	defer ticker.Stop()

	var lastLicenseLog time.Time
	var lastQueued, lastProcessed int64
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			elapsed := now.Sub(lastTick)
			lastTick = now

			queued := counters.Queued.Load()
			processed := counters.Processed.Load()
			logThroughput(ctx, queued, processed, queued-lastQueued, processed-lastProcessed, elapsed)
			lastQueued, lastProcessed = queued, processed

			alive := countAlive(workers)
			logger.L().InfoContext(ctx, "worker liveness", "alive", alive, "total", len(workers))
			if len(workers) > 0 && alive*2 < len(workers) {
				logger.L().WarnContext(ctx, "majority of workers have died")
			}
			if len(workers) > 0 && alive == 0 {
				logger.L().ErrorContext(ctx, "all workers have died, stopping monitor")
				return
			}

			logStats(ctx, facade)

			if cfg.LogLicensePeriod > 0 && now.Sub(lastLicenseLog) >= cfg.LogLicensePeriod {
				logLicense(ctx, facade, cfg.ExpirationWarningDays)
				lastLicenseLog = now
			}
		}
	}
}

func countAlive(workers []WorkerStatus) int {
	alive := 0
	for _, w := range workers {
		if w() {
			alive++
		}
	}
	return alive
}

func logThroughput(ctx context.Context, queuedTotal, processedTotal, queuedDelta, processedDelta int64, elapsed time.Duration) {
	seconds := elapsed.Seconds()
	var queuedRate, processedRate float64
	if seconds > 0 {
		queuedRate = float64(queuedDelta) / seconds
		processedRate = float64(processedDelta) / seconds
	}
	logger.L().InfoContext(ctx, "throughput",
		"queued_total", queuedTotal,
		"processed_total", processedTotal,
		"queued_per_second", queuedRate,
		"processed_per_second", processedRate,
	)
}

// logStats fetches the resolver's stats blob and re-emits it with its
// keys sorted, so two runs against an identical engine state produce
// byte-identical log lines.
func logStats(ctx context.Context, facade *resolver.Facade) {
	raw, err := facade.Stats(ctx)
	if err != nil {
		logger.L().WarnContext(ctx, "failed to fetch resolver stats", "error", err)
		return
	}
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.L().WarnContext(ctx, "resolver stats not valid JSON", "error", err)
		return
	}
	// encoding/json sorts map keys on marshal, giving a canonical rendering
	// regardless of the key order the resolver returned.
	canonical, err := json.Marshal(parsed)
	if err != nil {
		logger.L().WarnContext(ctx, "failed to re-marshal resolver stats", "error", err)
		return
	}
	logger.L().InfoContext(ctx, "resolver stats", "stats", string(canonical))
}

func logLicense(ctx context.Context, facade *resolver.Facade, expirationWarningDays int) {
	raw, err := facade.License(ctx)
	if err != nil {
		logger.L().WarnContext(ctx, "failed to fetch resolver license", "error", err)
		return
	}

	var license struct {
		ExpireDate string `json:"expireDate"`
	}
	if err := json.Unmarshal([]byte(raw), &license); err != nil {
		logger.L().InfoContext(ctx, "resolver license", "license", raw)
		return
	}

	logger.L().InfoContext(ctx, "resolver license", "license", raw)

	if license.ExpireDate == "" {
		return
	}
	expires, err := time.Parse("2006-01-02", license.ExpireDate)
	if err != nil {
		return
	}
	daysLeft := int(time.Until(expires).Hours() / 24)
	if daysLeft <= expirationWarningDays {
		logger.L().WarnContext(ctx, "resolver license nearing expiration", "expire_date", license.ExpireDate, "days_left", daysLeft)
	}
}
