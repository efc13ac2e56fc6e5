package storage

import (
	"context"
	"time"

	"github.com/kopilka-app/kopilka/internal/models"
)

// ExpenseFilter ограничивает выборку операций
type ExpenseFilter struct {
	Type      string     // income, expense или пусто
	Category  string     // категория или пусто
	StartDate *time.Time // нижняя граница даты операции
	EndDate   *time.Time // верхняя граница даты операции
	Limit     int        // размер страницы
	Offset    int        // смещение
}

// ExpenseSummary — агрегаты по операциям пользователя
type ExpenseSummary struct {
	ByCategory    map[string]float64
	TotalIncome   float64
	TotalExpenses float64
}

// ExpenseStorage defines interface for expense data persistence.
// Все операции привязаны к userID: чужие записи не видны и не изменяемы
type ExpenseStorage interface {
	// CreateExpense creates a new expense record
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves expense by ID for the given user
	// Returns ErrExpenseNotFound if missing or owned by another user
	GetExpense(ctx context.Context, userID, expenseID string) (*models.Expense, error)

	// ListExpenses returns a page of the user's expenses, newest first,
	// together with the total count under the filter
	ListExpenses(ctx context.Context, userID string, filter ExpenseFilter) ([]*models.Expense, int, error)

	// UpdateExpense persists changed fields of the expense
	// Returns ErrExpenseNotFound if missing or owned by another user
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense deletes the user's expense by ID
	// Returns ErrExpenseNotFound if missing or owned by another user
	DeleteExpense(ctx context.Context, userID, expenseID string) error

	// Summarize возвращает суммы доходов/расходов и разбивку по категориям
	Summarize(ctx context.Context, userID string) (*ExpenseSummary, error)
}
