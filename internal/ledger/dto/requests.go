package dto

// PlaceBetRequest é o payload de POST /v1/bets. A identidade do usuário
// chega validada da camada de request (auth fora do escopo deste serviço).
type PlaceBetRequest struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"` // "YYYY-MM-DD"
	TimeSlot  string `json:"timeSlot"`
	Category  string `json:"category"` // "XA".."XJ"
	BetNumber int64  `json:"betNumber"`
	Stake     int64  `json:"stake"`
}

// PublishResultRequest é o payload de POST /v1/results. Categorias ausentes
// ficam sem resultado (nunca pagam).
type PublishResultRequest struct {
	Date     string           `json:"date"`
	TimeSlot string           `json:"timeSlot"`
	Outcomes map[string]int64 `json:"outcomes"` // categoria -> dígito 0..9
}

type AddMoneyRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
}

// AdjustBalanceRequest é o crédito/débito administrativo; Amount é assinado
type AdjustBalanceRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type SetUserStatusRequest struct {
	IsActive bool `json:"isActive"`
}
