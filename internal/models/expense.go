package models

import "time"

// Типы операций
const (
	ExpenseTypeIncome  = "income"
	ExpenseTypeExpense = "expense"
)

// ExpenseCategories — фиксированный список категорий
var ExpenseCategories = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Bills & Utilities",
	"Entertainment",
	"Healthcare",
	"Education",
	"Travel",
	"Income",
	"Other",
}

// Expense представляет одну операцию (доход или расход) пользователя
type Expense struct {
	ID          string    `json:"id"`     // UUID операции
	UserID      string    `json:"userId"` // владелец записи
	Title       string    `json:"title"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Type        string    `json:"type"` // income или expense
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidCategory проверяет, что категория из допустимого списка
func ValidCategory(category string) bool {
	for _, c := range ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ValidExpenseType проверяет тип операции
func ValidExpenseType(t string) bool {
	return t == ExpenseTypeIncome || t == ExpenseTypeExpense
}
