package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kopilka-app/kopilka/internal/models"
	"github.com/kopilka-app/kopilka/internal/server/storage"
)

// CreateExpense creates a new expense record
func (s *Storage) CreateExpense(ctx context.Context, expense *models.Expense) error {
	query := `
		INSERT INTO expenses (id, user_id, title, amount, category, type, description, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		expense.ID,
		expense.UserID,
		expense.Title,
		expense.Amount,
		expense.Category,
		expense.Type,
		nullString(expense.Description),
		expense.Date,
		expense.CreatedAt,
		expense.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	return nil
}

// GetExpense retrieves expense by ID for the given user
func (s *Storage) GetExpense(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	query := `
		SELECT id, user_id, title, amount, category, type, description, date, created_at, updated_at
		FROM expenses
		WHERE id = ? AND user_id = ?
	`

	return scanExpense(s.db.QueryRowContext(ctx, query, expenseID, userID))
}

// ListExpenses returns a page of the user's expenses, newest first
func (s *Storage) ListExpenses(ctx context.Context, userID string, filter storage.ExpenseFilter) ([]*models.Expense, int, error) {
	where := "WHERE user_id = ?"
	args := []interface{}{userID}

	if filter.Type != "" {
		where += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.Category != "" {
		where += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.StartDate != nil {
		where += " AND date >= ?"
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		where += " AND date <= ?"
		args = append(args, *filter.EndDate)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := `
		SELECT id, user_id, title, amount, category, type, description, date, created_at, updated_at
		FROM expenses ` + where + `
		ORDER BY date DESC, created_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpenseRow(rows)
		if err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, expense)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, total, nil
}

// UpdateExpense persists changed fields of the expense
func (s *Storage) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	query := `
		UPDATE expenses
		SET title = ?, amount = ?, category = ?, type = ?, description = ?, date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		expense.Title,
		expense.Amount,
		expense.Category,
		expense.Type,
		nullString(expense.Description),
		expense.Date,
		expense.UpdatedAt,
		expense.ID,
		expense.UserID,
	)

	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrExpenseNotFound
	}

	return nil
}

// DeleteExpense deletes the user's expense by ID
func (s *Storage) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, expenseID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrExpenseNotFound
	}

	return nil
}

// Summarize возвращает суммы доходов/расходов и разбивку расходов по категориям
func (s *Storage) Summarize(ctx context.Context, userID string) (*storage.ExpenseSummary, error) {
	summary := &storage.ExpenseSummary{
		ByCategory: make(map[string]float64),
	}

	query := `
		SELECT type, category, SUM(amount)
		FROM expenses
		WHERE user_id = ?
		GROUP BY type, category
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseType, category string
		var sum float64
		if err := rows.Scan(&expenseType, &category, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}

		if expenseType == models.ExpenseTypeIncome {
			summary.TotalIncome += sum
		} else {
			summary.TotalExpenses += sum
			summary.ByCategory[category] += sum
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary: %w", err)
	}

	return summary, nil
}

func scanExpense(row *sql.Row) (*models.Expense, error) {
	expense := &models.Expense{}
	var description sql.NullString

	err := row.Scan(
		&expense.ID,
		&expense.UserID,
		&expense.Title,
		&expense.Amount,
		&expense.Category,
		&expense.Type,
		&description,
		&expense.Date,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	expense.Description = description.String

	return expense, nil
}

func scanExpenseRow(rows *sql.Rows) (*models.Expense, error) {
	expense := &models.Expense{}
	var description sql.NullString

	err := rows.Scan(
		&expense.ID,
		&expense.UserID,
		&expense.Title,
		&expense.Amount,
		&expense.Category,
		&expense.Type,
		&description,
		&expense.Date,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	expense.Description = description.String

	return expense, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
