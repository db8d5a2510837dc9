// Package urlstdin implements the url subcommand: a single reader drains
// newline-delimited records from stdin, a local file, or an HTTP(S) URL
// (selected by cfg.InputURL's scheme) into a bounded in-process queue,
// fanned out to cfg.ThreadsPerProcess dispatcher workers. Unlike the
// broker-backed sources, there is no reconnect loop here — EOF on the
// input ends the subcommand.
package urlstdin

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/senzing-garage/stream-loader/internal/config"
	"github.com/senzing-garage/stream-loader/internal/dispatch"
	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/pkg/concurrency"
	"github.com/senzing-garage/stream-loader/pkg/logger"
	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

const maxScanTokenSize = 4 * 1024 * 1024

// Run reads lines from cfg.InputURL (or stdin, if empty) until EOF or ctx
// cancellation, dispatching each through the worker pool.
func Run(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, onFatal dispatch.FatalHandler) error {
	reader, closer, err := open(cfg.InputURL)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	envelopeCfg := dispatch.EnvelopeConfig{
		DefaultDataSource: cfg.DataSource,
		DefaultEntityType: cfg.EntityType,
		DirectiveKey:      cfg.DirectiveKey,
		DefaultAction:     record.DefaultActionForSubcommand(cfg.Subcommand),
	}
	handler := dispatch.Handler(d, envelopeCfg, onFatal)

	pool := concurrency.NewWorkerPool(cfg.ThreadsPerProcess, cfg.QueueMax)
	pool.Start(ctx)

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payload := []byte(line)
		pool.Submit(func(taskCtx context.Context) {
			if err := handler(taskCtx, &messaging.Message{Payload: payload}); err != nil {
				logger.L().ErrorContext(taskCtx, "urlstdin handler failed", "error", err)
			}
		})
	}

	pool.Stop()

	return scanner.Err()
}

// open resolves inputURL into a reader per its scheme: empty means stdin,
// file/no scheme reads from the local filesystem, http/https issues a GET.
func open(inputURL string) (io.Reader, io.Closer, error) {
	if inputURL == "" {
		return os.Stdin, nil, nil
	}

	parsed, err := url.Parse(inputURL)
	if err != nil {
		return nil, nil, err
	}

	switch parsed.Scheme {
	case "http", "https":
		resp, err := http.Get(inputURL)
		if err != nil {
			return nil, nil, err
		}
		return resp.Body, resp.Body, nil
	case "file", "":
		path := parsed.Path
		if path == "" {
			path = inputURL
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	default:
		f, err := os.Open(inputURL)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}
