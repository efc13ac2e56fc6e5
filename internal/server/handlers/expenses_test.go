package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopilka-app/kopilka/internal/models"
	"github.com/kopilka-app/kopilka/internal/server/storage"
	"github.com/kopilka-app/kopilka/pkg/api"
)

// mockExpenseStorage — in-memory реализация ExpenseStorage для тестов
type mockExpenseStorage struct {
	mu       sync.Mutex
	expenses map[string]*models.Expense
}

func newMockExpenseStorage() *mockExpenseStorage {
	return &mockExpenseStorage{expenses: make(map[string]*models.Expense)}
}

func (m *mockExpenseStorage) CreateExpense(_ context.Context, expense *models.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *expense
	m.expenses[expense.ID] = &copied
	return nil
}

func (m *mockExpenseStorage) GetExpense(_ context.Context, userID, expenseID string) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expense, ok := m.expenses[expenseID]
	if !ok || expense.UserID != userID {
		return nil, storage.ErrExpenseNotFound
	}
	copied := *expense
	return &copied, nil
}

func (m *mockExpenseStorage) ListExpenses(_ context.Context, userID string, filter storage.ExpenseFilter) ([]*models.Expense, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*models.Expense
	for _, e := range m.expenses {
		if e.UserID != userID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		copied := *e
		matched = append(matched, &copied)
	}

	total := len(matched)
	if filter.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *mockExpenseStorage) UpdateExpense(_ context.Context, expense *models.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.expenses[expense.ID]
	if !ok || existing.UserID != expense.UserID {
		return storage.ErrExpenseNotFound
	}
	copied := *expense
	m.expenses[expense.ID] = &copied
	return nil
}

func (m *mockExpenseStorage) DeleteExpense(_ context.Context, userID, expenseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	expense, ok := m.expenses[expenseID]
	if !ok || expense.UserID != userID {
		return storage.ErrExpenseNotFound
	}
	delete(m.expenses, expenseID)
	return nil
}

func (m *mockExpenseStorage) Summarize(_ context.Context, userID string) (*storage.ExpenseSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &storage.ExpenseSummary{ByCategory: make(map[string]float64)}
	for _, e := range m.expenses {
		if e.UserID != userID {
			continue
		}
		if e.Type == models.ExpenseTypeIncome {
			summary.TotalIncome += e.Amount
		} else {
			summary.TotalExpenses += e.Amount
			summary.ByCategory[e.Category] += e.Amount
		}
	}
	return summary, nil
}

func setupExpenseHandler(t *testing.T) (*ExpenseHandler, *mockExpenseStorage) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMockExpenseStorage()
	return NewExpenseHandler(logger, store, false), store
}

func authedRequest(method, target, body, userID string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestExpenseHandler_Create(t *testing.T) {
	h, store := setupExpenseHandler(t)

	body := `{"title":"Groceries","amount":42.5,"category":"Food & Dining","type":"expense","description":"weekly"}`
	req := authedRequest(http.MethodPost, "/api/v1/expenses", body, "user-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data models.Expense `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, "user-1", resp.Data.UserID)
	assert.Equal(t, 42.5, resp.Data.Amount)

	stored, err := store.GetExpense(context.Background(), "user-1", resp.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", stored.Title)
}

func TestExpenseHandler_Create_Validation(t *testing.T) {
	h, _ := setupExpenseHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"amount":10,"category":"Other","type":"expense"}`},
		{"zero amount", `{"title":"x","amount":0,"category":"Other","type":"expense"}`},
		{"negative amount", `{"title":"x","amount":-5,"category":"Other","type":"expense"}`},
		{"unknown category", `{"title":"x","amount":10,"category":"Gambling","type":"expense"}`},
		{"bad type", `{"title":"x","amount":10,"category":"Other","type":"transfer"}`},
		{"bad date", `{"title":"x","amount":10,"category":"Other","type":"expense","date":"tomorrow"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/api/v1/expenses", tt.body, "user-1")
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestExpenseHandler_Create_Unauthenticated(t *testing.T) {
	h, _ := setupExpenseHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpenseHandler_Get(t *testing.T) {
	h, store := setupExpenseHandler(t)

	expense := &models.Expense{
		ID:     uuid.New().String(),
		UserID: "user-1",
		Title:  "Rent",
		Amount: 1200,
		Type:   models.ExpenseTypeExpense,
	}
	require.NoError(t, store.CreateExpense(context.Background(), expense))

	t.Run("own expense", func(t *testing.T) {
		req := authedRequest(http.MethodGet, "/api/v1/expenses/"+expense.ID, "", "user-1")
		req.SetPathValue("id", expense.ID)
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Rent")
	})

	t.Run("someone else's expense", func(t *testing.T) {
		req := authedRequest(http.MethodGet, "/api/v1/expenses/"+expense.ID, "", "user-2")
		req.SetPathValue("id", expense.ID)
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExpenseHandler_List(t *testing.T) {
	h, store := setupExpenseHandler(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateExpense(ctx, &models.Expense{
			ID:       uuid.New().String(),
			UserID:   "user-1",
			Title:    "Coffee",
			Amount:   3.5,
			Category: "Food & Dining",
			Type:     models.ExpenseTypeExpense,
		}))
	}
	// чужая запись в выдачу не попадает
	require.NoError(t, store.CreateExpense(ctx, &models.Expense{
		ID:     uuid.New().String(),
		UserID: "user-2",
		Title:  "Hidden",
		Amount: 1,
		Type:   models.ExpenseTypeExpense,
	}))

	req := authedRequest(http.MethodGet, "/api/v1/expenses", "", "user-1")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data api.ExpenseListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Page)
	assert.NotContains(t, rec.Body.String(), "Hidden")
}

func TestExpenseHandler_List_BadType(t *testing.T) {
	h, _ := setupExpenseHandler(t)

	req := authedRequest(http.MethodGet, "/api/v1/expenses?type=transfer", "", "user-1")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpenseHandler_Update(t *testing.T) {
	h, store := setupExpenseHandler(t)

	expense := &models.Expense{
		ID:       uuid.New().String(),
		UserID:   "user-1",
		Title:    "Groceries",
		Amount:   80,
		Category: "Food & Dining",
		Type:     models.ExpenseTypeExpense,
	}
	require.NoError(t, store.CreateExpense(context.Background(), expense))

	body := `{"amount":95.5}`
	req := authedRequest(http.MethodPut, "/api/v1/expenses/"+expense.ID, body, "user-1")
	req.SetPathValue("id", expense.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := store.GetExpense(context.Background(), "user-1", expense.ID)
	require.NoError(t, err)
	assert.Equal(t, 95.5, updated.Amount)
	// остальные поля не тронуты
	assert.Equal(t, "Groceries", updated.Title)
}

func TestExpenseHandler_Delete(t *testing.T) {
	h, store := setupExpenseHandler(t)

	expense := &models.Expense{
		ID:     uuid.New().String(),
		UserID: "user-1",
		Title:  "Subscription",
		Amount: 9.99,
		Type:   models.ExpenseTypeExpense,
	}
	require.NoError(t, store.CreateExpense(context.Background(), expense))

	req := authedRequest(http.MethodDelete, "/api/v1/expenses/"+expense.ID, "", "user-1")
	req.SetPathValue("id", expense.ID)
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := store.GetExpense(context.Background(), "user-1", expense.ID)
	assert.ErrorIs(t, err, storage.ErrExpenseNotFound)
}

func TestExpenseHandler_Summary(t *testing.T) {
	h, store := setupExpenseHandler(t)
	ctx := context.Background()

	items := []*models.Expense{
		{ID: uuid.New().String(), UserID: "user-1", Title: "Salary", Amount: 3000, Category: "Income", Type: models.ExpenseTypeIncome},
		{ID: uuid.New().String(), UserID: "user-1", Title: "Groceries", Amount: 150, Category: "Food & Dining", Type: models.ExpenseTypeExpense},
	}
	for _, e := range items {
		require.NoError(t, store.CreateExpense(ctx, e))
	}

	req := authedRequest(http.MethodGet, "/api/v1/expenses/summary", "", "user-1")
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data api.SummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3000.0, resp.Data.TotalIncome)
	assert.Equal(t, 150.0, resp.Data.TotalExpenses)
	assert.Equal(t, 2850.0, resp.Data.Balance)
	assert.Equal(t, 150.0, resp.Data.ByCategory["Food & Dining"])
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*http.Request)
		expected string
	}{
		{
			name:     "remote addr only",
			setup:    func(r *http.Request) { r.RemoteAddr = "203.0.113.5:443" },
			expected: "203.0.113.5:443",
		},
		{
			name:     "x-real-ip",
			setup:    func(r *http.Request) { r.Header.Set("X-Real-IP", "198.51.100.7") },
			expected: "198.51.100.7",
		},
		{
			name:     "x-forwarded-for single",
			setup:    func(r *http.Request) { r.Header.Set("X-Forwarded-For", "198.51.100.8") },
			expected: "198.51.100.8",
		},
		{
			name: "x-forwarded-for chain takes first",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1, 10.0.0.2")
			},
			expected: "198.51.100.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.expected, ClientIP(req))
		})
	}
}

func TestSendAppError_NoLeakInProduction(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	internal := assert.AnError

	rec := httptest.NewRecorder()
	SendAppError(logger, rec, internal, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), internal.Error())

	// в development детали разрешены
	rec = httptest.NewRecorder()
	SendAppError(logger, rec, internal, true)
	assert.Contains(t, rec.Body.String(), internal.Error())
}
