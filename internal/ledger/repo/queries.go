package repo

import (
	"context"
	"database/sql"
)

const selectBet = `
	SELECT id, user_id, to_char(date, 'YYYY-MM-DD'), time_slot, category, bet_number, stake,
	       is_win, win_amount, result_id, created_at
	FROM bets`

const selectResult = `
	SELECT id, to_char(date, 'YYYY-MM-DD'), time_slot,
	       xa, xb, xc, xd, xe, xf, xg, xh, xi, xj, created_at
	FROM results`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (*Bet, error) {
	var b Bet
	err := row.Scan(&b.ID, &b.UserID, &b.Date, &b.TimeSlot, &b.Category,
		&b.BetNumber, &b.Stake, &b.IsWin, &b.WinAmount, &b.ResultID, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanResult(row rowScanner) (*Result, error) {
	var r Result
	err := row.Scan(&r.ID, &r.Date, &r.TimeSlot,
		&r.XA, &r.XB, &r.XC, &r.XD, &r.XE, &r.XF, &r.XG, &r.XH, &r.XI, &r.XJ,
		&r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetUser retorna um usuário pelo id
func (p *Postgres) GetUser(ctx context.Context, userID string) (*User, error) {
	u := &User{ID: userID}
	err := p.db.QueryRowContext(ctx, `
		SELECT email, role, token_balance, is_active, created_at, updated_at
		FROM users WHERE id=$1`, userID).
		Scan(&u.Email, &u.Role, &u.TokenBalance, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return u, nil
}

// UpsertUser cria ou atualiza o cadastro (o saldo nunca passa por aqui)
func (p *Postgres) UpsertUser(ctx context.Context, u *User) (*User, error) {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, role, token_balance, is_active)
		VALUES ($1,$2,$3,0,TRUE)
		ON CONFLICT (id) DO UPDATE SET
		  email = EXCLUDED.email,
		  role = EXCLUDED.role,
		  updated_at = NOW()
		RETURNING token_balance, is_active, created_at, updated_at`,
		u.ID, u.Email, u.Role).
		Scan(&u.TokenBalance, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetAllUsers lista usuários, mais recentes primeiro
func (p *Postgres) GetAllUsers(ctx context.Context) ([]User, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, email, role, token_balance, is_active, created_at, updated_at
		FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Role, &u.TokenBalance,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetUserActive ativa/desativa um usuário
func (p *Postgres) SetUserActive(ctx context.Context, userID string, active bool) (*User, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET is_active=$1, updated_at=NOW() WHERE id=$2`,
		active, userID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return p.GetUser(ctx, userID)
}

// GetBet retorna uma aposta pelo id
func (p *Postgres) GetBet(ctx context.Context, betID string) (*Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx, selectBet+` WHERE id=$1`, betID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

// GetUserBets retorna o histórico de apostas do usuário, mais recentes primeiro
func (p *Postgres) GetUserBets(ctx context.Context, userID string) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		selectBet+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBets(rows)
}

// PendingBetsForSlot retorna as apostas ainda não liquidadas de um slot
func (p *Postgres) PendingBetsForSlot(ctx context.Context, date, timeSlot string) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		selectBet+` WHERE result_id IS NULL AND date=$1 AND time_slot=$2 ORDER BY created_at`,
		date, timeSlot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBets(rows)
}

func collectBets(rows *sql.Rows) ([]Bet, error) {
	var out []Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// SlotMatch é uma aposta pendente cujo slot já tem resultado publicado,
// alvo do sweeper de reconciliação
type SlotMatch struct {
	Bet    Bet
	Result Result
}

// PendingBetsWithResult encontra apostas pendentes cujo slot já tem
// resultado (liquidação perdida ou interrompida), limitado a um lote
func (p *Postgres) PendingBetsWithResult(ctx context.Context, limit int) ([]SlotMatch, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, to_char(b.date, 'YYYY-MM-DD'), b.time_slot, b.category, b.bet_number, b.stake,
		       b.is_win, b.win_amount, b.result_id, b.created_at,
		       r.id, to_char(r.date, 'YYYY-MM-DD'), r.time_slot,
		       r.xa, r.xb, r.xc, r.xd, r.xe, r.xf, r.xg, r.xh, r.xi, r.xj, r.created_at
		FROM bets b
		JOIN results r ON r.date = b.date AND r.time_slot = b.time_slot
		WHERE b.result_id IS NULL
		ORDER BY b.created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SlotMatch
	for rows.Next() {
		var m SlotMatch
		b := &m.Bet
		r := &m.Result
		if err := rows.Scan(&b.ID, &b.UserID, &b.Date, &b.TimeSlot, &b.Category,
			&b.BetNumber, &b.Stake, &b.IsWin, &b.WinAmount, &b.ResultID, &b.CreatedAt,
			&r.ID, &r.Date, &r.TimeSlot,
			&r.XA, &r.XB, &r.XC, &r.XD, &r.XE, &r.XF, &r.XG, &r.XH, &r.XI, &r.XJ,
			&r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetResults lista resultados, com filtro opcional por intervalo de datas
// ("YYYY-MM-DD"), mais recentes primeiro
func (p *Postgres) GetResults(ctx context.Context, startDate, endDate string) ([]Result, error) {
	q := selectResult
	var args []any
	switch {
	case startDate != "" && endDate != "":
		q += ` WHERE date >= $1 AND date <= $2`
		args = append(args, startDate, endDate)
	case startDate != "":
		q += ` WHERE date >= $1`
		args = append(args, startDate)
	case endDate != "":
		q += ` WHERE date <= $1`
		args = append(args, endDate)
	}
	q += ` ORDER BY date DESC, time_slot ASC`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetResult retorna um resultado pelo id
func (p *Postgres) GetResult(ctx context.Context, resultID string) (*Result, error) {
	r, err := scanResult(p.db.QueryRowContext(ctx, selectResult+` WHERE id=$1`, resultID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// GetResultBySlot retorna o resultado de um slot (date, time), se publicado
func (p *Postgres) GetResultBySlot(ctx context.Context, date, timeSlot string) (*Result, error) {
	r, err := scanResult(p.db.QueryRowContext(ctx,
		selectResult+` WHERE date=$1 AND time_slot=$2`, date, timeSlot))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// GetUserTransactions retorna o log de transações do usuário, mais recentes
// primeiro (ordem de criação via seq)
func (p *Postgres) GetUserTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, seq, user_id, type, amount, description, balance_after, created_at
		FROM transactions WHERE user_id=$1 ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Seq, &t.UserID, &t.Type, &t.Amount,
			&t.Description, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Stats agrega totais de usuários, apostas e tokens em circulação
func (p *Postgres) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	err := p.db.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM users),
		  (SELECT COUNT(*) FROM users WHERE is_active),
		  (SELECT COUNT(*) FROM bets),
		  (SELECT COALESCE(SUM(token_balance), 0) FROM users)`).
		Scan(&s.TotalUsers, &s.ActiveUsers, &s.TotalBets, &s.TotalTokens)
	if err != nil {
		return nil, err
	}
	return s, nil
}
