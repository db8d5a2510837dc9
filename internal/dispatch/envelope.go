package dispatch

import (
	"context"

	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/pkg/logger"
	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// EnvelopeConfig carries the per-subcommand normalize defaults applied to
// every record extracted from a delivery.
type EnvelopeConfig struct {
	DefaultDataSource string
	DefaultEntityType string
	DirectiveKey      string

	// DefaultAction is used for a record that carries no directive:
	// addRecord for plain consumers, addRecordWithInfo for -withinfo ones.
	DefaultAction record.Action
}

// FatalHandler is invoked when the dispatcher reports an unrecoverable
// resolver state; the caller wires this to whatever shuts the process down.
type FatalHandler func(error)

// Handler builds a messaging.MessageHandler that implements the parse,
// normalize, per-record dispatch, and acknowledgement contract described
// for source consumers: the envelope is acked (handler returns nil) only
// after every record it carried reached a terminal state.
func Handler(dispatcher *Dispatcher, cfg EnvelopeConfig, onFatal FatalHandler) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.Message) error {
		records, err := record.ParseBody(msg.Payload)
		if err != nil {
			// Poison message: forward the raw bytes to the failure sink
			// and ack once that write succeeds (see ackIfSunk).
			return ackIfSunk(ctx, dispatcher, msg.Payload)
		}

		allTerminal := true
		for _, rec := range records {
			rec.ApplyDefaults(cfg.DefaultDataSource, cfg.DefaultEntityType)
			terminal, fatal := dispatcher.Dispatch(ctx, cfg.DirectiveKey, rec, cfg.DefaultAction)
			if fatal != nil {
				onFatal(fatal)
				return messaging.ErrFatal(fatal)
			}
			if !terminal {
				allTerminal = false
			}
		}

		if !allTerminal {
			logger.L().WarnContext(ctx, "not all records in envelope reached a terminal state, withholding ack")
			return errEnvelopeIncomplete
		}
		return nil
	}
}

var errEnvelopeIncomplete = &envelopeIncompleteError{}

type envelopeIncompleteError struct{}

func (*envelopeIncompleteError) Error() string {
	return "not every record in the delivery reached a terminal state"
}

// ackIfSunk routes an unparsable body to the failure sink directly (it has
// no record structure to normalize). The delivery is acked only once the
// sink write succeeds; if the sink write itself fails, the error is
// returned so the ack is withheld and the delivery is retried.
func ackIfSunk(ctx context.Context, dispatcher *Dispatcher, body []byte) error {
	if err := dispatcher.failureSink.Publish(ctx, body); err != nil {
		logger.L().ErrorContext(ctx, "failed to publish unparsable body to failure sink, delivery will not be acked", "error", err)
		return err
	}
	return nil
}
