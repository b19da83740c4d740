package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/lottery-bet-ledger/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do ledger nos tópicos de resultado
// e de liquidação
type KafkaPublisher struct {
	ResultWriter  *kafka.Writer
	SettledWriter *kafka.Writer
}

func NewKafkaPublisher(resultW, settledW *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{ResultWriter: resultW, SettledWriter: settledW}
}

func (p *KafkaPublisher) PublishResultPublished(ctx context.Context, e events.ResultPublished) error {
	if e.PublishedAt.IsZero() {
		e.PublishedAt = time.Now()
	}
	b, _ := json.Marshal(e)
	return p.ResultWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.ResultID), Value: b})
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now()
	}
	b, _ := json.Marshal(e)
	return p.SettledWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.BetID), Value: b})
}
