package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/lottery-bet-ledger/internal/ledger/producer"
	"github.com/radieske/lottery-bet-ledger/internal/ledger/repo"
	"github.com/radieske/lottery-bet-ledger/internal/settlement"
	"github.com/radieske/lottery-bet-ledger/internal/shared/config"
	"github.com/radieske/lottery-bet-ledger/internal/shared/db"
	"github.com/radieske/lottery-bet-ledger/internal/shared/kafka"
	"github.com/radieske/lottery-bet-ledger/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: result_published (consumer group settlement-worker)
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicResultPublished, "settlement-worker")
	defer reader.Close()

	// Kafka producers: bet_settled e DLQ de result_published
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultPublishedDLQ)
	defer dlqWriter.Close()

	// Métricas Prometheus
	consumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_events_consumed_total", Help: "eventos result_published consumidos"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_bets_settled_total", Help: "apostas liquidadas pelo worker"}, []string{"outcome"})
	swept := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_bets_swept_total", Help: "apostas repescadas pelo sweeper"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, settled, swept, errorsBy)

	repository := repo.NewPostgres(pg)
	publ := producer.NewKafkaPublisher(nil, settledWriter)

	engine := &settlement.Engine{
		Log:   log,
		Store: repository,
		Publ:  publ,
		OnSettled: func(win bool) {
			outcome := "loss"
			if win {
				outcome = "win"
			}
			settled.WithLabelValues(outcome).Inc()
		},
		OnError: func() { errorsBy.WithLabelValues("resolve").Inc() },
	}

	worker := &settlement.Worker{
		Log:        log,
		Reader:     reader,
		Results:    repository,
		Engine:     engine,
		DLQ:        dlqWriter,
		OnConsumed: func() { consumed.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	sweeper := &settlement.Sweeper{
		Log:      log,
		Store:    repository,
		Engine:   engine,
		Interval: cfg.SweepInterval,
		Batch:    cfg.SweepBatchSize,
		OnSwept:  func(n int) { swept.Add(float64(n)) },
	}

	// Servidor HTTP para métricas Prometheus e healthcheck
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			hctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := pg.PingContext(hctx); err != nil {
				http.Error(w, "pg", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	// Sweeper de reconciliação em goroutine separada
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("sweeper stopped", zap.Error(err))
		}
	}()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicResultPublished),
		zap.String("publish", cfg.TopicBetSettled),
		zap.Duration("sweepInterval", cfg.SweepInterval),
	)

	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("worker", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
