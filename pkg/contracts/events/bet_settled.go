package events

import "time"

// Evento emitido após a liquidação de uma aposta.
type BetSettled struct {
	BetID     string    `json:"betId"`
	UserID    string    `json:"userId"`
	ResultID  string    `json:"resultId"`
	Category  string    `json:"category"`
	IsWin     bool      `json:"isWin"`
	WinAmount int64     `json:"winAmount"`
	Ts        time.Time `json:"ts"`
}
