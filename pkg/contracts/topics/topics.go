package topics

const (
	// Resultados
	ResultPublished = "result_published"

	// Liquidação de apostas
	BetSettled = "bet_settled"

	// DLQ
	ResultPublishedDLQ = "result_published_dlq"
)
