package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-bet-ledger/internal/ledger/repo"
	"github.com/radieske/lottery-bet-ledger/pkg/contracts/events"
)

// ResultStore carrega o resultado referenciado por um evento
type ResultStore interface {
	GetResult(ctx context.Context, resultID string) (*repo.Result, error)
}

// Worker consome eventos result_published do Kafka e dispara a liquidação
// do slot. Como o ledger-service já liquida na publicação, aqui o engine
// roda como rede de segurança: apostas já resolvidas viram no-op.
type Worker struct {
	Log     *zap.Logger
	Reader  *kafka.Reader
	Results ResultStore
	Engine  *Engine
	DLQ     *kafka.Writer // opcional

	OnConsumed func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e liquidação
func (w *Worker) Run(ctx context.Context) error {
	for {
		m, err := w.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.Log.Warn("kafka read failed", zap.Error(err))
			if w.OnError != nil {
				w.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if w.OnConsumed != nil {
			w.OnConsumed()
		}

		var ev events.ResultPublished
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			w.Log.Warn("invalid result_published message", zap.Error(err))
			if w.OnError != nil {
				w.OnError("decode")
			}
			continue
		}

		if err := w.processOne(ctx, &ev); err != nil {
			w.Log.Error("process result", zap.String("resultId", ev.ResultID), zap.Error(err))
			if w.OnError != nil {
				w.OnError("settle")
			}
			if w.DLQ != nil {
				_ = w.DLQ.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value, Time: time.Now()})
			}
		}
	}
}

// processOne carrega o resultado e liquida o slot. Falhas por aposta não
// derrubam o lote; só erro de carga do resultado sobe para a DLQ.
func (w *Worker) processOne(ctx context.Context, ev *events.ResultPublished) error {
	result, err := w.Results.GetResult(ctx, ev.ResultID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			w.Log.Warn("result not found for event", zap.String("resultId", ev.ResultID))
		}
		return err
	}

	out := w.Engine.SettleSlot(ctx, result)
	for _, serr := range out.Errors {
		w.Log.Warn("settlement error", zap.String("resultId", result.ID), zap.Error(serr))
	}
	// apostas que falharam continuam pendentes; o sweeper as repesca
	return nil
}
