package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/lottery-bet-ledger/internal/ledger/dto"
	"github.com/radieske/lottery-bet-ledger/internal/ledger/repo"
	"github.com/radieske/lottery-bet-ledger/internal/settlement"
)

// fakeStore implementa Store em memória com a mesma semântica transacional
// observável do repo real
type fakeStore struct {
	users   map[string]*repo.User
	bets    map[string]*repo.Bet
	results map[string]*repo.Result // key: date|slot
	txs     map[string][]repo.Transaction
	nextID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*repo.User),
		bets:    make(map[string]*repo.Bet),
		results: make(map[string]*repo.Result),
		txs:     make(map[string][]repo.Transaction),
	}
}

func (f *fakeStore) id() string {
	f.nextID++
	return string(rune('a' + f.nextID - 1))
}

func (f *fakeStore) addUser(balance int64, active bool) *repo.User {
	u := &repo.User{ID: f.id(), Role: "user", TokenBalance: balance, IsActive: active}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) appendTx(userID, txType string, amount, balanceAfter int64) {
	f.txs[userID] = append(f.txs[userID], repo.Transaction{
		UserID: userID, Type: txType, Amount: amount, BalanceAfter: balanceAfter,
	})
}

func (f *fakeStore) GetUser(_ context.Context, userID string) (*repo.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetAllUsers(context.Context) ([]repo.User, error) {
	var out []repo.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) SetUserActive(_ context.Context, userID string, active bool) (*repo.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	u.IsActive = active
	cp := *u
	return &cp, nil
}

func (f *fakeStore) PlaceBet(_ context.Context, userID, date, timeSlot string, category repo.Category, betNumber, stake int64) (*repo.Bet, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if !u.IsActive {
		return nil, repo.ErrInactiveUser
	}
	if u.TokenBalance < stake {
		return nil, repo.ErrInsufficientFunds
	}
	u.TokenBalance -= stake
	b := &repo.Bet{
		ID: f.id(), UserID: userID, Date: date, TimeSlot: timeSlot,
		Category: category, BetNumber: betNumber, Stake: stake,
	}
	f.bets[b.ID] = b
	f.appendTx(userID, repo.TxTypeBet, stake, u.TokenBalance)
	cp := *b
	return &cp, nil
}

func (f *fakeStore) GetUserBets(_ context.Context, userID string) ([]repo.Bet, error) {
	var out []repo.Bet
	for _, b := range f.bets {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertResult(_ context.Context, r *repo.Result) (*repo.Result, error) {
	key := r.Date + "|" + r.TimeSlot
	if _, exists := f.results[key]; exists {
		return nil, repo.ErrDuplicateResult
	}
	r.ID = f.id()
	f.results[key] = r
	cp := *r
	return &cp, nil
}

func (f *fakeStore) GetResults(context.Context, string, string) ([]repo.Result, error) {
	var out []repo.Result
	for _, r := range f.results {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) AddMoney(_ context.Context, userID string, amount int64) (*repo.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	u.TokenBalance += amount
	f.appendTx(userID, repo.TxTypeAddMoney, amount, u.TokenBalance)
	cp := *u
	return &cp, nil
}

func (f *fakeStore) AdjustBalance(_ context.Context, userID string, amount int64, _ string) (*repo.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if u.TokenBalance+amount < 0 {
		return nil, repo.ErrInsufficientFunds
	}
	u.TokenBalance += amount
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserTransactions(_ context.Context, userID string) ([]repo.Transaction, error) {
	return f.txs[userID], nil
}

func (f *fakeStore) Stats(context.Context) (*repo.Stats, error) {
	s := &repo.Stats{TotalUsers: int64(len(f.users)), TotalBets: int64(len(f.bets))}
	for _, u := range f.users {
		if u.IsActive {
			s.ActiveUsers++
		}
		s.TotalTokens += u.TokenBalance
	}
	return s, nil
}

// PendingBetsForSlot/ResolveBet fazem do fakeStore também um settlement.Store
func (f *fakeStore) PendingBetsForSlot(_ context.Context, date, timeSlot string) ([]repo.Bet, error) {
	var out []repo.Bet
	for _, b := range f.bets {
		if !b.Resolved() && b.Date == date && b.TimeSlot == timeSlot {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) ResolveBet(_ context.Context, betID, resultID string, isWin bool, winAmount int64) (*repo.Bet, error) {
	b, ok := f.bets[betID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if b.Resolved() {
		cp := *b
		return &cp, nil
	}
	b.IsWin = &isWin
	b.WinAmount = &winAmount
	b.ResultID = &resultID
	if isWin && winAmount > 0 {
		u := f.users[b.UserID]
		u.TokenBalance += winAmount
		f.appendTx(b.UserID, repo.TxTypeWin, winAmount, u.TokenBalance)
	}
	cp := *b
	return &cp, nil
}

func newTestServer(store *fakeStore) *Server {
	engine := &settlement.Engine{Log: zap.NewNop(), Store: store}
	return NewServer(zap.NewNop(), store, nil, engine, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlaceBetEndpoint(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(100, true)
	h := newTestServer(store).Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/bets", dto.PlaceBetRequest{
		UserID: u.ID, Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Category: "XA", BetNumber: 5, Stake: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "PENDING", resp.Status)
	require.EqualValues(t, 10, resp.Stake)
	require.EqualValues(t, 90, store.users[u.ID].TokenBalance)
}

func TestPlaceBetEndpointValidation(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(100, true)
	h := newTestServer(store).Router()

	cases := []dto.PlaceBetRequest{
		{UserID: "", Date: "2025-10-01", TimeSlot: "09:00 A.M", Category: "XA", BetNumber: 5, Stake: 10},
		{UserID: u.ID, Date: "01/10/2025", TimeSlot: "09:00 A.M", Category: "XA", BetNumber: 5, Stake: 10},
		{UserID: u.ID, Date: "2025-10-01", TimeSlot: "", Category: "XA", BetNumber: 5, Stake: 10},
		{UserID: u.ID, Date: "2025-10-01", TimeSlot: "09:00 A.M", Category: "XK", BetNumber: 5, Stake: 10},
		{UserID: u.ID, Date: "2025-10-01", TimeSlot: "09:00 A.M", Category: "XA", BetNumber: 12, Stake: 10},
		{UserID: u.ID, Date: "2025-10-01", TimeSlot: "09:00 A.M", Category: "XA", BetNumber: 5, Stake: 0},
	}
	for i, req := range cases {
		rec := doJSON(t, h, http.MethodPost, "/v1/bets", req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "case %d", i)
	}

	// nada escrito em nenhuma rejeição
	require.Empty(t, store.bets)
	require.EqualValues(t, 100, store.users[u.ID].TokenBalance)
}

func TestPlaceBetEndpointErrorMapping(t *testing.T) {
	store := newFakeStore()
	poor := store.addUser(5, true)
	inactive := store.addUser(100, false)
	h := newTestServer(store).Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/bets", dto.PlaceBetRequest{
		UserID: poor.ID, Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Category: "XA", BetNumber: 5, Stake: 10,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/bets", dto.PlaceBetRequest{
		UserID: inactive.ID, Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Category: "XA", BetNumber: 5, Stake: 10,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/bets", dto.PlaceBetRequest{
		UserID: "missing", Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Category: "XA", BetNumber: 5, Stake: 10,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublishResultSettlesSlot(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(100, true)
	h := newTestServer(store).Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/bets", dto.PlaceBetRequest{
		UserID: u.ID, Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Category: "XA", BetNumber: 5, Stake: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/results", dto.PublishResultRequest{
		Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Outcomes: map[string]int64{"XA": 5, "XB": 7},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.PublishResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.BetsTotal)
	require.Equal(t, 1, resp.BetsSettled)
	require.Equal(t, 1, resp.BetsWon)

	// vitória: saldo 90 + 90 de prêmio
	require.EqualValues(t, 180, store.users[u.ID].TokenBalance)
}

func TestPublishResultDuplicateSlot(t *testing.T) {
	store := newFakeStore()
	h := newTestServer(store).Router()

	body := dto.PublishResultRequest{
		Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Outcomes: map[string]int64{"XA": 5},
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/results", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/results", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPublishResultValidation(t *testing.T) {
	store := newFakeStore()
	h := newTestServer(store).Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/results", dto.PublishResultRequest{
		Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Outcomes: map[string]int64{"XZ": 5},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/results", dto.PublishResultRequest{
		Date: "2025-10-01", TimeSlot: "09:00 A.M",
		Outcomes: map[string]int64{"XA": 15},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Empty(t, store.results)
}

func TestWalletEndpoints(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(0, true)
	h := newTestServer(store).Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/wallet/add-money", dto.AddMoneyRequest{
		UserID: u.ID, Amount: 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 100, resp.TokenBalance)

	rec = doJSON(t, h, http.MethodPost, "/v1/wallet/adjust", dto.AdjustBalanceRequest{
		UserID: u.ID, Amount: -150, Reason: "correction",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/wallet?userId="+u.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 100, resp.TokenBalance)
}

func TestAdminEndpoints(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(50, true)
	h := newTestServer(store).Router()

	rec := doJSON(t, h, http.MethodPost, "/v1/admin/users/"+u.ID+"/status", dto.SetUserStatusRequest{
		IsActive: false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, store.users[u.ID].IsActive)

	rec = doJSON(t, h, http.MethodGet, "/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.EqualValues(t, 1, stats.TotalUsers)
	require.EqualValues(t, 0, stats.ActiveUsers)
	require.EqualValues(t, 50, stats.TotalTokens)
}
