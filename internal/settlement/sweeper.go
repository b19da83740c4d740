package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/lottery-bet-ledger/internal/ledger/repo"
)

// SweepStore lista apostas pendentes cujo slot já tem resultado publicado
type SweepStore interface {
	PendingBetsWithResult(ctx context.Context, limit int) ([]repo.SlotMatch, error)
}

// Sweeper é o job de reconciliação: periodicamente repesca apostas que
// ficaram pendentes mesmo com resultado publicado (falha parcial de lote,
// worker fora do ar) e as reencaminha pro engine. Seguro rodar quantas
// vezes for: ResolveBet é idempotente.
type Sweeper struct {
	Log      *zap.Logger
	Store    SweepStore
	Engine   *Engine
	Interval time.Duration
	Batch    int

	OnSwept func(n int) // métricas
}

// Run executa o loop do sweeper até o contexto ser cancelado
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	matches, err := s.Store.PendingBetsWithResult(ctx, s.Batch)
	if err != nil {
		s.Log.Warn("sweep query failed", zap.Error(err))
		return
	}
	if len(matches) == 0 {
		return
	}

	s.Log.Info("sweeping unsettled bets", zap.Int("count", len(matches)))

	settled := 0
	for i := range matches {
		m := &matches[i]
		if _, err := s.Engine.SettleOne(ctx, &m.Result, &m.Bet); err != nil {
			continue // fica pro próximo ciclo
		}
		settled++
	}

	if s.OnSwept != nil {
		s.OnSwept(settled)
	}
}
