package exchange

import (
	"context"

	"go.uber.org/zap"

	"pairScope/internal/dex"
	"pairScope/internal/metrics"
	"pairScope/internal/model"
)

// LogProcessor decodes raw log batches and feeds them to an Engine in order.
type LogProcessor struct {
	decoder dex.Decoder
	engine  *Engine
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewLogProcessor(decoder dex.Decoder, engine *Engine, m *metrics.Metrics, logger *zap.Logger) *LogProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogProcessor{decoder: decoder, engine: engine, metrics: m, logger: logger}
}

// PutLogBatch applies logs one by one. Undecodable logs are skipped.
func (p *LogProcessor) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	for _, log := range logs {
		if log.Removed {
			p.metrics.Skipped("removed_log")
			continue
		}
		if !p.decoder.CanDecode(log.Topic0()) {
			p.metrics.Skipped("unknown_topic")
			continue
		}
		ev, err := p.decoder.Decode(log)
		if err != nil {
			p.metrics.Skipped("decode_error")
			p.logger.Warn("decode failed",
				zap.String("tx_hash", log.TxHash),
				zap.Uint64("log_index", log.LogIndex),
				zap.Error(err),
			)
			continue
		}
		if err := p.engine.Handle(ctx, *ev); err != nil {
			return err
		}
	}
	return nil
}
