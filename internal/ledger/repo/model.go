package repo

import "time"

// Category é um dos dez canais de resultado de um slot (XA..XJ).
// Tipo fechado: o acessor Outcome cobre todas as categorias em compile time,
// sem fallback silencioso por string.
type Category string

const (
	CategoryXA Category = "XA"
	CategoryXB Category = "XB"
	CategoryXC Category = "XC"
	CategoryXD Category = "XD"
	CategoryXE Category = "XE"
	CategoryXF Category = "XF"
	CategoryXG Category = "XG"
	CategoryXH Category = "XH"
	CategoryXI Category = "XI"
	CategoryXJ Category = "XJ"
)

// Categories lista todas as categorias válidas, na ordem das colunas
var Categories = [...]Category{
	CategoryXA, CategoryXB, CategoryXC, CategoryXD, CategoryXE,
	CategoryXF, CategoryXG, CategoryXH, CategoryXI, CategoryXJ,
}

// ParseCategory valida uma categoria vinda de fora (payload HTTP, evento)
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Tipos de transação do ledger
const (
	TxTypeAddMoney    = "add_money"
	TxTypeBet         = "bet"
	TxTypeWin         = "win"
	TxTypeAdminAdd    = "admin_add"
	TxTypeAdminDeduct = "admin_deduct"
)

// User é a conta de um usuário. TokenBalance é uma projeção do log de
// transações: toda mutação passa pelos caminhos transacionais do repo,
// nunca por update direto.
type User struct {
	ID           string
	Email        string
	Role         string // "admin" | "user"
	TokenBalance int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Result é o resultado imutável de um slot (date, time).
// Cada categoria pode estar ausente (coluna NULL): ausente nunca casa
// com nenhum palpite.
type Result struct {
	ID        string
	Date      string // "YYYY-MM-DD"
	TimeSlot  string // ex: "09:00 A.M"
	XA        *int64
	XB        *int64
	XC        *int64
	XD        *int64
	XE        *int64
	XF        *int64
	XG        *int64
	XH        *int64
	XI        *int64
	XJ        *int64
	CreatedAt time.Time
}

// Outcome retorna o número sorteado da categoria, se publicado.
// ok=false quando a categoria não teve resultado publicado (fail closed).
func (r *Result) Outcome(c Category) (int64, bool) {
	var v *int64
	switch c {
	case CategoryXA:
		v = r.XA
	case CategoryXB:
		v = r.XB
	case CategoryXC:
		v = r.XC
	case CategoryXD:
		v = r.XD
	case CategoryXE:
		v = r.XE
	case CategoryXF:
		v = r.XF
	case CategoryXG:
		v = r.XG
	case CategoryXH:
		v = r.XH
	case CategoryXI:
		v = r.XI
	case CategoryXJ:
		v = r.XJ
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// SetOutcome preenche a categoria no insert do resultado
func (r *Result) SetOutcome(c Category, n int64) {
	v := new(int64)
	*v = n
	switch c {
	case CategoryXA:
		r.XA = v
	case CategoryXB:
		r.XB = v
	case CategoryXC:
		r.XC = v
	case CategoryXD:
		r.XD = v
	case CategoryXE:
		r.XE = v
	case CategoryXF:
		r.XF = v
	case CategoryXG:
		r.XG = v
	case CategoryXH:
		r.XH = v
	case CategoryXI:
		r.XI = v
	case CategoryXJ:
		r.XJ = v
	}
}

// Bet é uma aposta. Pendente: ResultID nil. Resolvida: ResultID, IsWin e
// WinAmount preenchidos de uma vez só, uma única vez.
type Bet struct {
	ID        string
	UserID    string
	Date      string
	TimeSlot  string
	Category  Category
	BetNumber int64
	Stake     int64
	IsWin     *bool
	WinAmount *int64
	ResultID  *string
	CreatedAt time.Time
}

// Resolved indica se a aposta já foi liquidada
func (b *Bet) Resolved() bool { return b.ResultID != nil }

// Transaction é uma entrada imutável do log de auditoria do ledger.
// Reaplicar o log em ordem de criação reproduz o saldo corrente.
type Transaction struct {
	ID           string
	Seq          int64 // ordem global de criação (bigserial)
	UserID       string
	Type         string
	Amount       int64 // magnitude; o sinal vem do Type
	Description  string
	BalanceAfter int64
	CreatedAt    time.Time
}

// SignedAmount retorna o delta aplicado ao saldo por esta transação
func (t *Transaction) SignedAmount() int64 {
	switch t.Type {
	case TxTypeBet, TxTypeAdminDeduct:
		return -t.Amount
	default: // add_money, win, admin_add
		return t.Amount
	}
}

// Stats agrega números globais para o painel admin
type Stats struct {
	TotalUsers  int64
	ActiveUsers int64
	TotalBets   int64
	TotalTokens int64
}
