package settlement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/lottery-bet-ledger/internal/ledger/repo"
	"github.com/radieske/lottery-bet-ledger/pkg/contracts/events"
)

// WinMultiplier é o multiplicador fixo de pagamento: acerto paga stake * 9
const WinMultiplier = 9

// Store define as operações do ledger usadas pelo engine de liquidação
type Store interface {
	PendingBetsForSlot(ctx context.Context, date, timeSlot string) ([]repo.Bet, error)
	ResolveBet(ctx context.Context, betID, resultID string, isWin bool, winAmount int64) (*repo.Bet, error)
}

// Publisher emite eventos bet_settled após cada liquidação
type Publisher interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Engine liquida apostas contra um resultado publicado. Cada aposta é uma
// unidade independente: a falha de uma não aborta as demais, e chamar de
// novo para a mesma aposta é seguro (ResolveBet é idempotente).
type Engine struct {
	Log   *zap.Logger
	Store Store
	Publ  Publisher // opcional

	OnSettled func(win bool) // métricas
	OnError   func()         // métricas
}

// Outcome resume uma rodada de liquidação de um slot
type Outcome struct {
	Total   int
	Settled int
	Won     int
	Failed  int
	Errors  []error
}

// Decide determina ganho/perda de uma aposta contra o resultado.
// Categoria sem resultado publicado nunca casa: resolve como perda.
func Decide(result *repo.Result, bet *repo.Bet) (isWin bool, winAmount int64) {
	n, ok := result.Outcome(bet.Category)
	if !ok || n != bet.BetNumber {
		return false, 0
	}
	return true, bet.Stake * WinMultiplier
}

// SettleSlot busca as apostas pendentes do slot do resultado e liquida
// uma a uma, coletando falhas sem interromper o lote
func (e *Engine) SettleSlot(ctx context.Context, result *repo.Result) Outcome {
	out := Outcome{}

	bets, err := e.Store.PendingBetsForSlot(ctx, result.Date, result.TimeSlot)
	if err != nil {
		out.Errors = append(out.Errors, fmt.Errorf("pending bets for slot: %w", err))
		if e.OnError != nil {
			e.OnError()
		}
		return out
	}
	out.Total = len(bets)

	for i := range bets {
		win, err := e.SettleOne(ctx, result, &bets[i])
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Errorf("bet %s: %w", bets[i].ID, err))
			continue
		}
		out.Settled++
		if win {
			out.Won++
		}
	}

	e.Log.Info("slot settled",
		zap.String("resultId", result.ID),
		zap.String("date", result.Date),
		zap.String("timeSlot", result.TimeSlot),
		zap.Int("total", out.Total),
		zap.Int("settled", out.Settled),
		zap.Int("won", out.Won),
		zap.Int("failed", out.Failed),
	)
	return out
}

// SettleOne liquida uma única aposta contra o resultado. Usado pelo
// SettleSlot e pelo sweeper de reconciliação.
func (e *Engine) SettleOne(ctx context.Context, result *repo.Result, bet *repo.Bet) (bool, error) {
	isWin, winAmount := Decide(result, bet)

	resolved, err := e.Store.ResolveBet(ctx, bet.ID, result.ID, isWin, winAmount)
	if err != nil {
		if e.OnError != nil {
			e.OnError()
		}
		e.Log.Warn("resolve bet failed",
			zap.String("betId", bet.ID),
			zap.String("resultId", result.ID),
			zap.Error(err),
		)
		return false, err
	}

	if e.OnSettled != nil {
		e.OnSettled(isWin)
	}

	if e.Publ != nil {
		ev := events.BetSettled{
			BetID:     resolved.ID,
			UserID:    resolved.UserID,
			ResultID:  result.ID,
			Category:  string(resolved.Category),
			IsWin:     isWin,
			WinAmount: winAmount,
			Ts:        time.Now(),
		}
		if perr := e.Publ.PublishBetSettled(ctx, ev); perr != nil {
			// liquidação já committou; evento é best effort
			e.Log.Warn("publish bet_settled", zap.String("betId", resolved.ID), zap.Error(perr))
		}
	}

	return isWin, nil
}
