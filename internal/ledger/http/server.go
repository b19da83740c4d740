package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	rescache "github.com/radieske/lottery-bet-ledger/internal/ledger/cache"
	"github.com/radieske/lottery-bet-ledger/internal/ledger/dto"
	"github.com/radieske/lottery-bet-ledger/internal/ledger/repo"
	"github.com/radieske/lottery-bet-ledger/internal/settlement"
	"github.com/radieske/lottery-bet-ledger/pkg/contracts/events"
)

// Store define as operações do ledger usadas pelos handlers HTTP
type Store interface {
	GetUser(ctx context.Context, userID string) (*repo.User, error)
	GetAllUsers(ctx context.Context) ([]repo.User, error)
	SetUserActive(ctx context.Context, userID string, active bool) (*repo.User, error)

	PlaceBet(ctx context.Context, userID, date, timeSlot string, category repo.Category, betNumber, stake int64) (*repo.Bet, error)
	GetUserBets(ctx context.Context, userID string) ([]repo.Bet, error)

	InsertResult(ctx context.Context, r *repo.Result) (*repo.Result, error)
	GetResults(ctx context.Context, startDate, endDate string) ([]repo.Result, error)

	AddMoney(ctx context.Context, userID string, amount int64) (*repo.User, error)
	AdjustBalance(ctx context.Context, userID string, amount int64, reason string) (*repo.User, error)
	GetUserTransactions(ctx context.Context, userID string) ([]repo.Transaction, error)

	Stats(ctx context.Context) (*repo.Stats, error)
}

// ResultPublisher emite o evento result_published para o settlement-worker
type ResultPublisher interface {
	PublishResultPublished(ctx context.Context, e events.ResultPublished) error
}

// Server expõe a API HTTP do ledger: apostas, resultados, carteira e admin
type Server struct {
	log    *zap.Logger
	store  Store
	cache  *rescache.Cache // opcional
	engine *settlement.Engine
	publ   ResultPublisher // opcional

	OnBetPlaced       func() // métricas
	OnResultPublished func() // métricas
}

// NewServer instancia o servidor HTTP do ledger
func NewServer(log *zap.Logger, store Store, c *rescache.Cache, engine *settlement.Engine, publ ResultPublisher) *Server {
	return &Server{log: log, store: store, cache: c, engine: engine, publ: publ}
}

// Router retorna o router chi com as rotas da API
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/v1/bets", s.placeBet)
	r.Get("/v1/bets", s.getUserBets)

	r.Get("/v1/results", s.getResults)
	r.Post("/v1/results", s.publishResult)

	r.Get("/v1/wallet", s.getWallet)
	r.Post("/v1/wallet/add-money", s.addMoney)
	r.Post("/v1/wallet/adjust", s.adjustBalance)
	r.Get("/v1/transactions", s.getTransactions)

	r.Get("/v1/admin/users", s.listUsers)
	r.Post("/v1/admin/users/{id}/status", s.setUserStatus)
	r.Get("/v1/admin/stats", s.getStats)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr mapeia os sentinelas do repo para status HTTP
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrInactiveUser):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrInsufficientFunds), errors.Is(err, repo.ErrDuplicateResult):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// placeBet valida o payload e reserva a aposta no ledger
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.TimeSlot == "" || !validDate(req.Date) ||
		req.Stake <= 0 || req.BetNumber < 0 || req.BetNumber > 9 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	category, ok := repo.ParseCategory(req.Category)
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid category"})
		return
	}

	bet, err := s.store.PlaceBet(r.Context(), req.UserID, req.Date, req.TimeSlot,
		category, req.BetNumber, req.Stake)
	if err != nil {
		writeErr(w, err)
		return
	}

	if s.OnBetPlaced != nil {
		s.OnBetPlaced()
	}
	s.log.Info("bet placed",
		zap.String("betId", bet.ID),
		zap.String("userId", bet.UserID),
		zap.String("category", string(bet.Category)),
		zap.Int64("stake", bet.Stake),
	)
	writeJSON(w, http.StatusCreated, toBetResponse(bet))
}

func (s *Server) getUserBets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	bets, err := s.store.GetUserBets(r.Context(), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bets))
	for i := range bets {
		out = append(out, toBetResponse(&bets[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// publishResult insere o resultado do slot e liquida as apostas pendentes
// na sequência. Falha por aposta não derruba a publicação: o resumo volta
// na resposta e o que sobrar fica pro worker/sweeper.
func (s *Server) publishResult(w http.ResponseWriter, r *http.Request) {
	var req dto.PublishResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.TimeSlot == "" || !validDate(req.Date) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	res := &repo.Result{Date: req.Date, TimeSlot: req.TimeSlot}
	for cat, n := range req.Outcomes {
		c, ok := repo.ParseCategory(cat)
		if !ok {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid category: " + cat})
			return
		}
		if n < 0 || n > 9 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "outcome out of range: " + cat})
			return
		}
		res.SetOutcome(c, n)
	}

	created, err := s.store.InsertResult(r.Context(), res)
	if err != nil {
		writeErr(w, err)
		return
	}

	if s.OnResultPublished != nil {
		s.OnResultPublished()
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(r.Context()); err != nil {
			s.log.Warn("results cache invalidate", zap.Error(err))
		}
	}

	// Liquidação síncrona do slot
	out := s.engine.SettleSlot(r.Context(), created)

	// Evento para o settlement-worker (repescagem) e demais consumidores
	if s.publ != nil {
		ev := events.ResultPublished{
			ResultID: created.ID,
			Date:     created.Date,
			TimeSlot: created.TimeSlot,
			Source:   "ledger-service",
		}
		if perr := s.publ.PublishResultPublished(r.Context(), ev); perr != nil {
			s.log.Warn("publish result_published", zap.String("resultId", created.ID), zap.Error(perr))
		}
	}

	resp := dto.PublishResultResponse{
		Result:      toResultResponse(created),
		BetsTotal:   out.Total,
		BetsSettled: out.Settled,
		BetsWon:     out.Won,
		BetsFailed:  out.Failed,
	}
	if out.Failed > 0 {
		resp.SettlementNote = "some bets failed to settle and remain pending; reconciliation will retry"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// getResults lista resultados, servindo do cache Redis quando possível
func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	startDate := r.URL.Query().Get("startDate")
	endDate := r.URL.Query().Get("endDate")
	if (startDate != "" && !validDate(startDate)) || (endDate != "" && !validDate(endDate)) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid date filter"})
		return
	}

	if s.cache != nil {
		var cached []dto.ResultResponse
		if ok, _ := s.cache.GetResults(r.Context(), startDate, endDate, &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	results, err := s.store.GetResults(r.Context(), startDate, endDate)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.ResultResponse, 0, len(results))
	for i := range results {
		out = append(out, toResultResponse(&results[i]))
	}

	if s.cache != nil {
		_ = s.cache.SetResults(r.Context(), startDate, endDate, out)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	u, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) addMoney(w http.ResponseWriter, r *http.Request) {
	var req dto.AddMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	u, err := s.store.AddMoney(r.Context(), req.UserID, req.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) adjustBalance(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.Amount == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	u, err := s.store.AdjustBalance(r.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) getTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	txs, err := s.store.GetUserTransactions(r.Context(), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, dto.TransactionResponse{
			ID:           t.ID,
			Type:         t.Type,
			Amount:       t.Amount,
			Description:  t.Description,
			BalanceAfter: t.BalanceAfter,
			CreatedAt:    t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.GetAllUsers(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) setUserStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req dto.SetUserStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	u, err := s.store.SetUserActive(r.Context(), userID, req.IsActive)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StatsResponse{
		TotalUsers:  stats.TotalUsers,
		ActiveUsers: stats.ActiveUsers,
		TotalBets:   stats.TotalBets,
		TotalTokens: stats.TotalTokens,
	})
}

func toBetResponse(b *repo.Bet) dto.BetResponse {
	out := dto.BetResponse{
		BetID:     b.ID,
		UserID:    b.UserID,
		Date:      b.Date,
		TimeSlot:  b.TimeSlot,
		Category:  string(b.Category),
		BetNumber: b.BetNumber,
		Stake:     b.Stake,
		Status:    "PENDING",
		IsWin:     b.IsWin,
		WinAmount: b.WinAmount,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
	if b.Resolved() {
		out.Status = "RESOLVED"
		out.ResultID = *b.ResultID
	}
	return out
}

func toResultResponse(r *repo.Result) dto.ResultResponse {
	outcomes := make(map[string]int64)
	for _, c := range repo.Categories {
		if n, ok := r.Outcome(c); ok {
			outcomes[string(c)] = n
		}
	}
	return dto.ResultResponse{
		ResultID:  r.ID,
		Date:      r.Date,
		TimeSlot:  r.TimeSlot,
		Outcomes:  outcomes,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

func toUserResponse(u *repo.User) dto.UserResponse {
	return dto.UserResponse{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		TokenBalance: u.TokenBalance,
		IsActive:     u.IsActive,
	}
}
