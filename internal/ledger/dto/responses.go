package dto

import "time"

type BetResponse struct {
	BetID     string `json:"betId"`
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	TimeSlot  string `json:"timeSlot"`
	Category  string `json:"category"`
	BetNumber int64  `json:"betNumber"`
	Stake     int64  `json:"stake"`
	Status    string `json:"status"` // "PENDING" | "RESOLVED"
	IsWin     *bool  `json:"isWin,omitempty"`
	WinAmount *int64 `json:"winAmount,omitempty"`
	ResultID  string `json:"resultId,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type ResultResponse struct {
	ResultID  string           `json:"resultId"`
	Date      string           `json:"date"`
	TimeSlot  string           `json:"timeSlot"`
	Outcomes  map[string]int64 `json:"outcomes"`
	CreatedAt string           `json:"createdAt"`
}

// PublishResultResponse inclui o resumo da liquidação síncrona do slot
type PublishResultResponse struct {
	Result         ResultResponse `json:"result"`
	BetsTotal      int            `json:"betsTotal"`
	BetsSettled    int            `json:"betsSettled"`
	BetsWon        int            `json:"betsWon"`
	BetsFailed     int            `json:"betsFailed"`
	SettlementNote string         `json:"settlementNote,omitempty"`
}

type UserResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role"`
	TokenBalance int64  `json:"tokenBalance"`
	IsActive     bool   `json:"isActive"`
}

type TransactionResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	Description  string    `json:"description,omitempty"`
	BalanceAfter int64     `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}

type StatsResponse struct {
	TotalUsers  int64 `json:"totalUsers"`
	ActiveUsers int64 `json:"activeUsers"`
	TotalBets   int64 `json:"totalBets"`
	TotalTokens int64 `json:"totalTokens"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
