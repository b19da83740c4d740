package events

import "time"

// Evento publicado no tópico "result_published" quando um resultado
// de um slot (date, time) entra no sistema. O settlement-worker consome
// este evento para liquidar as apostas pendentes do slot.
type ResultPublished struct {
	ResultID    string    `json:"result_id"`
	Date        string    `json:"date"` // "YYYY-MM-DD"
	TimeSlot    string    `json:"time_slot"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"` // ex: "ledger-service"
}
