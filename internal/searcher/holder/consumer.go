package holder

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/kafka"
)

// HandleIndexBuilt returns a Kafka MessageHandler that reloads the holder
// whenever the store it reads from announces a new index. Events for other
// stores or analyzers are ignored. A failed reload is returned and the
// previous snapshot keeps serving.
func HandleIndexBuilt(h *Holder) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeIndexBuilt(value)
		if err != nil {
			logger.Error("failed to decode index event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if event.Store != h.loader.Name() {
			logger.Debug("ignoring index event for another store",
				"store", event.Store,
				"source", h.loader.Name(),
			)
			return nil
		}
		if event.Analyzer != tokenizer.AnalyzerVersion {
			logger.Warn("ignoring index built with another analyzer",
				"analyzer", event.Analyzer,
				"expected", tokenizer.AnalyzerVersion,
			)
			return nil
		}
		if _, err := h.Reload(ctx); err != nil {
			return err
		}
		logger.Info("index swapped after build notification",
			"store", event.Store,
			"documents", event.DocCount,
			"terms", event.TermCount,
		)
		return nil
	}
}
