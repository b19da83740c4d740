package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	lcache "github.com/radieske/lottery-bet-ledger/internal/ledger/cache"
	lhttp "github.com/radieske/lottery-bet-ledger/internal/ledger/http"
	"github.com/radieske/lottery-bet-ledger/internal/ledger/producer"
	"github.com/radieske/lottery-bet-ledger/internal/ledger/repo"
	"github.com/radieske/lottery-bet-ledger/internal/settlement"
	sharedcache "github.com/radieske/lottery-bet-ledger/internal/shared/cache"
	"github.com/radieske/lottery-bet-ledger/internal/shared/config"
	"github.com/radieske/lottery-bet-ledger/internal/shared/db"
	"github.com/radieske/lottery-bet-ledger/internal/shared/kafka"
	"github.com/radieske/lottery-bet-ledger/internal/shared/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("ledger-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env))

	// Postgres: tabelas do ledger (users, bets, results, transactions)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache de listagem de resultados
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka writers: result_published e bet_settled
	resultWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultPublished)
	defer resultWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	// Métricas Prometheus
	betsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_bets_placed_total", Help: "apostas aceitas"})
	resultsPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_results_published_total", Help: "resultados publicados"})
	betsSettled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_bets_settled_total", Help: "apostas liquidadas"}, []string{"outcome"})
	settleErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settlement_errors_total", Help: "erros de liquidação"})
	prometheus.MustRegister(betsPlaced, resultsPublished, betsSettled, settleErrors)

	// deps
	repository := repo.NewPostgres(pg)
	resultsCache := lcache.NewCache(redisClient, cfg.ResultsCacheTTL)
	publ := producer.NewKafkaPublisher(resultWriter, settledWriter)

	engine := &settlement.Engine{
		Log:   log,
		Store: repository,
		Publ:  publ,
		OnSettled: func(win bool) {
			outcome := "loss"
			if win {
				outcome = "win"
			}
			betsSettled.WithLabelValues(outcome).Inc()
		},
		OnError: func() { settleErrors.Inc() },
	}

	api := lhttp.NewServer(log, repository, resultsCache, engine, publ)
	api.OnBetPlaced = func() { betsPlaced.Inc() }
	api.OnResultPublished = func() { resultsPublished.Inc() }

	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// Servidor de métricas e health check
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.PingContext(r.Context()); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health listening", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, metricsMux)
	}()

	log.Info("ledger-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
