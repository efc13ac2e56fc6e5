package validation

import (
	"fmt"

	"github.com/kopilka-app/kopilka/internal/models"
)

const (
	// MaxTitleLen максимальная длина названия операции
	MaxTitleLen = 100
	// MaxDescriptionLen максимальная длина описания
	MaxDescriptionLen = 500
)

// ValidateExpenseTitle проверяет название операции
func ValidateExpenseTitle(title string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLen {
		return fmt.Errorf("title cannot exceed %d characters", MaxTitleLen)
	}
	return nil
}

// ValidateExpenseAmount проверяет сумму операции
func ValidateExpenseAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}

// ValidateExpenseCategory проверяет категорию
func ValidateExpenseCategory(category string) error {
	if !models.ValidCategory(category) {
		return fmt.Errorf("invalid category")
	}
	return nil
}

// ValidateExpenseType проверяет тип операции
func ValidateExpenseType(t string) error {
	if !models.ValidExpenseType(t) {
		return fmt.Errorf("type must be either income or expense")
	}
	return nil
}

// ValidateExpenseDescription проверяет описание
func ValidateExpenseDescription(description string) error {
	if len(description) > MaxDescriptionLen {
		return fmt.Errorf("description cannot exceed %d characters", MaxDescriptionLen)
	}
	return nil
}
