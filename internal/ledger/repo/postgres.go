package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres implementa as operações transacionais do ledger em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrInactiveUser      = errors.New("user is not active")
	ErrDuplicateResult   = errors.New("result already published for slot")
	ErrInvalidInput      = errors.New("invalid input")
)

const pqUniqueViolation = "23505"

// PlaceBet valida e reserva a aposta do usuário em uma única transação:
// lock pessimista na linha do usuário, checagem de saldo, insert da aposta,
// débito e entrada no log de transações. Ou tudo committa, ou nada.
func (p *Postgres) PlaceBet(ctx context.Context, userID, date, timeSlot string, category Category, betNumber, stake int64) (*Bet, error) {
	if stake <= 0 || betNumber < 0 || betNumber > 9 {
		return nil, ErrInvalidInput
	}
	if _, ok := ParseCategory(string(category)); !ok {
		return nil, ErrInvalidInput
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock na linha do usuário serializa apostas concorrentes do mesmo usuário
	var balance int64
	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT token_balance, is_active FROM users WHERE id=$1 FOR UPDATE`,
		userID).Scan(&balance, &active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	if !active {
		return nil, ErrInactiveUser
	}
	if balance < stake {
		return nil, ErrInsufficientFunds
	}

	bet := &Bet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		TimeSlot:  timeSlot,
		Category:  category,
		BetNumber: betNumber,
		Stake:     stake,
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, date, time_slot, category, bet_number, stake)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		bet.ID, bet.UserID, bet.Date, bet.TimeSlot, bet.Category, bet.BetNumber, bet.Stake); err != nil {
		return nil, err
	}

	newBalance := balance - stake
	if err = p.writeBalance(ctx, tx, userID, newBalance, TxTypeBet, stake,
		fmt.Sprintf("Bet on %s - %d", category, betNumber)); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return bet, nil
}

// ResolveBet liquida uma aposta. Idempotente: a segunda chamada (com
// quaisquer argumentos) devolve a aposta como está, sem novo crédito e sem
// nova transação no log. O claim é um update condicional em result_id IS NULL
// sob lock da linha da aposta, então duas liquidações concorrentes nunca
// observam as duas "não resolvida".
func (p *Postgres) ResolveBet(ctx context.Context, betID, resultID string, isWin bool, winAmount int64) (*Bet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	bet, err := scanBet(tx.QueryRowContext(ctx, selectBet+` WHERE id=$1 FOR UPDATE`, betID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	if bet.Resolved() {
		return bet, nil
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE bets SET is_win=$1, win_amount=$2, result_id=$3
		WHERE id=$4 AND result_id IS NULL`,
		isWin, winAmount, resultID, betID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		// outra transação resolveu entre o select e o update; não deve
		// acontecer sob o FOR UPDATE acima, mas o claim fica condicional
		return scanBet(tx.QueryRowContext(ctx, selectBet+` WHERE id=$1`, betID))
	}

	if isWin && winAmount > 0 {
		var balance int64
		err = tx.QueryRowContext(ctx,
			`SELECT token_balance FROM users WHERE id=$1 FOR UPDATE`,
			bet.UserID).Scan(&balance)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		} else if err != nil {
			return nil, err
		}

		if err = p.writeBalance(ctx, tx, bet.UserID, balance+winAmount, TxTypeWin, winAmount,
			fmt.Sprintf("Win from %s bet", bet.Category)); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	bet.IsWin = &isWin
	bet.WinAmount = &winAmount
	bet.ResultID = &resultID
	return bet, nil
}

// AddMoney credita tokens na conta do usuário (top-up)
func (p *Postgres) AddMoney(ctx context.Context, userID string, amount int64) (*User, error) {
	if amount <= 0 {
		return nil, ErrInvalidInput
	}
	return p.credit(ctx, userID, amount, TxTypeAddMoney, "QR Code Payment")
}

// AdjustBalance aplica um crédito ou débito administrativo. Débito que
// deixaria o saldo negativo é rejeitado com ErrInsufficientFunds.
func (p *Postgres) AdjustBalance(ctx context.Context, userID string, amount int64, reason string) (*User, error) {
	if amount == 0 {
		return nil, ErrInvalidInput
	}
	txType := TxTypeAdminAdd
	if amount < 0 {
		txType = TxTypeAdminDeduct
	}
	return p.credit(ctx, userID, amount, txType, reason)
}

// credit aplica um delta assinado ao saldo do usuário em uma transação:
// lock na linha, novo saldo, entrada no log
func (p *Postgres) credit(ctx context.Context, userID string, delta int64, txType, description string) (*User, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u := &User{ID: userID}
	err = tx.QueryRowContext(ctx, `
		SELECT email, role, token_balance, is_active, created_at, updated_at
		FROM users WHERE id=$1 FOR UPDATE`, userID).
		Scan(&u.Email, &u.Role, &u.TokenBalance, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	newBalance := u.TokenBalance + delta
	if newBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}
	if err = p.writeBalance(ctx, tx, userID, newBalance, txType, amount, description); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	u.TokenBalance = newBalance
	return u, nil
}

// writeBalance grava o novo saldo e a entrada correspondente no log de
// transações. Único caminho que escreve token_balance: saldo e log nunca
// andam separados.
func (p *Postgres) writeBalance(ctx context.Context, tx *sql.Tx, userID string, newBalance int64, txType string, amount int64, description string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET token_balance=$1, updated_at=NOW() WHERE id=$2`,
		newBalance, userID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, description, balance_after)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), userID, txType, amount, description, newBalance)
	return err
}

// InsertResult publica o resultado de um slot. A unique constraint em
// (date, time_slot) garante no máximo um resultado por slot; violação vira
// ErrDuplicateResult.
func (p *Postgres) InsertResult(ctx context.Context, r *Result) (*Result, error) {
	r.ID = uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO results (id, date, time_slot, xa, xb, xc, xd, xe, xf, xg, xh, xi, xj)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.Date, r.TimeSlot,
		r.XA, r.XB, r.XC, r.XD, r.XE, r.XF, r.XG, r.XH, r.XI, r.XJ)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return nil, ErrDuplicateResult
		}
		return nil, err
	}
	return r, nil
}
