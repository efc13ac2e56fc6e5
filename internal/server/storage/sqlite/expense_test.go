package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopilka-app/kopilka/internal/models"
	"github.com/kopilka-app/kopilka/internal/server/storage"
)

func TestExpenseStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := testUser("owner@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	expense := testExpense(user.ID, "Groceries", 42.50, "food", models.ExpenseTypeExpense)
	expense.Description = "weekly shopping"

	require.NoError(t, s.CreateExpense(ctx, expense))

	retrieved, err := s.GetExpense(ctx, user.ID, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, expense.Title, retrieved.Title)
	assert.Equal(t, expense.Amount, retrieved.Amount)
	assert.Equal(t, expense.Category, retrieved.Category)
	assert.Equal(t, expense.Type, retrieved.Type)
	assert.Equal(t, "weekly shopping", retrieved.Description)
}

func TestExpenseStorage_GetExpense_WrongUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := testUser("owner@example.com")
	other := testUser("other@example.com")
	require.NoError(t, s.CreateUser(ctx, owner))
	require.NoError(t, s.CreateUser(ctx, other))

	expense := testExpense(owner.ID, "Rent", 1200, "housing", models.ExpenseTypeExpense)
	require.NoError(t, s.CreateExpense(ctx, expense))

	// чужая запись для другого пользователя неотличима от несуществующей
	_, err := s.GetExpense(ctx, other.ID, expense.ID)
	assert.ErrorIs(t, err, storage.ErrExpenseNotFound)
}

func TestExpenseStorage_ListExpenses(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := testUser("list@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []*models.Expense{
		testExpense(user.ID, "Salary", 3000, "other", models.ExpenseTypeIncome),
		testExpense(user.ID, "Groceries", 80, "food", models.ExpenseTypeExpense),
		testExpense(user.ID, "Bus pass", 45, "transport", models.ExpenseTypeExpense),
	}
	for i, e := range items {
		e.Date = base.AddDate(0, 0, i)
		require.NoError(t, s.CreateExpense(ctx, e))
	}

	expenses, total, err := s.ListExpenses(ctx, user.ID, storage.ExpenseFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, expenses, 3)
	// сортировка: новые сверху
	assert.Equal(t, "Bus pass", expenses[0].Title)
	assert.Equal(t, "Salary", expenses[2].Title)
}

func TestExpenseStorage_ListExpenses_Filter(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := testUser("filter@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	food := testExpense(user.ID, "Groceries", 80, "food", models.ExpenseTypeExpense)
	food.Date = base
	transport := testExpense(user.ID, "Taxi", 25, "transport", models.ExpenseTypeExpense)
	transport.Date = base.AddDate(0, 1, 0)
	income := testExpense(user.ID, "Salary", 3000, "other", models.ExpenseTypeIncome)
	income.Date = base.AddDate(0, 1, 0)

	for _, e := range []*models.Expense{food, transport, income} {
		require.NoError(t, s.CreateExpense(ctx, e))
	}

	tests := []struct {
		name     string
		filter   storage.ExpenseFilter
		expected []string
	}{
		{
			name:     "by category",
			filter:   storage.ExpenseFilter{Category: "food", Limit: 10},
			expected: []string{"Groceries"},
		},
		{
			name:     "by type",
			filter:   storage.ExpenseFilter{Type: models.ExpenseTypeIncome, Limit: 10},
			expected: []string{"Salary"},
		},
		{
			name: "by date range",
			filter: storage.ExpenseFilter{
				StartDate: timePtr(base.AddDate(0, 0, 15)),
				Limit:     10,
			},
			expected: []string{"Taxi", "Salary"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expenses, total, err := s.ListExpenses(ctx, user.ID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, len(tt.expected), total)

			titles := make([]string, 0, len(expenses))
			for _, e := range expenses {
				titles = append(titles, e.Title)
			}
			assert.ElementsMatch(t, tt.expected, titles)
		})
	}
}

func TestExpenseStorage_ListExpenses_Pagination(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := testUser("page@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := testExpense(user.ID, "Coffee", 3.5, "food", models.ExpenseTypeExpense)
		e.Date = base.AddDate(0, 0, i)
		require.NoError(t, s.CreateExpense(ctx, e))
	}

	expenses, total, err := s.ListExpenses(ctx, user.ID, storage.ExpenseFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total, "total counts all matches, not the page")
	assert.Len(t, expenses, 2)
}

func TestExpenseStorage_UpdateExpense(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := testUser("update@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	expense := testExpense(user.ID, "Groceries", 80, "food", models.ExpenseTypeExpense)
	require.NoError(t, s.CreateExpense(ctx, expense))

	expense.Title = "Groceries and snacks"
	expense.Amount = 95.20
	expense.UpdatedAt = time.Now().Add(time.Minute)
	require.NoError(t, s.UpdateExpense(ctx, expense))

	retrieved, err := s.GetExpense(ctx, user.ID, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries and snacks", retrieved.Title)
	assert.Equal(t, 95.20, retrieved.Amount)
}

func TestExpenseStorage_UpdateExpense_WrongUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := testUser("owner@example.com")
	other := testUser("other@example.com")
	require.NoError(t, s.CreateUser(ctx, owner))
	require.NoError(t, s.CreateUser(ctx, other))

	expense := testExpense(owner.ID, "Rent", 1200, "housing", models.ExpenseTypeExpense)
	require.NoError(t, s.CreateExpense(ctx, expense))

	expense.UserID = other.ID
	err := s.UpdateExpense(ctx, expense)
	assert.ErrorIs(t, err, storage.ErrExpenseNotFound)
}

func TestExpenseStorage_DeleteExpense(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := testUser("delete@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	expense := testExpense(user.ID, "Subscription", 9.99, "entertainment", models.ExpenseTypeExpense)
	require.NoError(t, s.CreateExpense(ctx, expense))

	require.NoError(t, s.DeleteExpense(ctx, user.ID, expense.ID))

	_, err := s.GetExpense(ctx, user.ID, expense.ID)
	assert.ErrorIs(t, err, storage.ErrExpenseNotFound)

	// повторное удаление
	err = s.DeleteExpense(ctx, user.ID, expense.ID)
	assert.ErrorIs(t, err, storage.ErrExpenseNotFound)
}

func TestExpenseStorage_Summarize(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := testUser("summary@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	items := []*models.Expense{
		testExpense(user.ID, "Salary", 3000, "other", models.ExpenseTypeIncome),
		testExpense(user.ID, "Groceries", 80, "food", models.ExpenseTypeExpense),
		testExpense(user.ID, "Dinner out", 45, "food", models.ExpenseTypeExpense),
		testExpense(user.ID, "Taxi", 25, "transport", models.ExpenseTypeExpense),
	}
	for _, e := range items {
		require.NoError(t, s.CreateExpense(ctx, e))
	}

	summary, err := s.Summarize(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, summary.TotalIncome)
	assert.Equal(t, 150.0, summary.TotalExpenses)
	assert.Equal(t, 125.0, summary.ByCategory["food"])
	assert.Equal(t, 25.0, summary.ByCategory["transport"])
	// доходы в разбивку по категориям не попадают
	assert.NotContains(t, summary.ByCategory, "other")
}

func TestExpenseStorage_Summarize_Empty(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := testUser("empty@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	summary, err := s.Summarize(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.TotalIncome)
	assert.Equal(t, 0.0, summary.TotalExpenses)
	assert.Empty(t, summary.ByCategory)
}

// Helper functions

func testExpense(userID, title string, amount float64, category, expenseType string) *models.Expense {
	now := time.Now()
	return &models.Expense{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Amount:    amount,
		Category:  category,
		Type:      expenseType,
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
