package api

// CreateExpenseRequest представляет запрос на создание записи о расходе/доходе
type CreateExpenseRequest struct {
	Title       string  `json:"title"`                 // название операции
	Amount      float64 `json:"amount"`                // сумма, строго > 0
	Category    string  `json:"category"`              // категория из фиксированного списка
	Type        string  `json:"type"`                  // income или expense
	Description string  `json:"description,omitempty"` // необязательное описание
	Date        string  `json:"date,omitempty"`        // дата операции, RFC3339; по умолчанию now
}

// UpdateExpenseRequest представляет частичное обновление записи
// nil-поля не изменяются
type UpdateExpenseRequest struct {
	Title       *string  `json:"title,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Description *string  `json:"description,omitempty"`
	Date        *string  `json:"date,omitempty"`
}

// ExpenseListResponse представляет страницу списка операций
type ExpenseListResponse struct {
	Expenses interface{} `json:"expenses"` // []models.Expense
	Total    int         `json:"total"`    // всего записей под фильтром
	Page     int         `json:"page"`     // текущая страница (с 1)
	Pages    int         `json:"pages"`    // всего страниц
}

// SummaryResponse представляет сводную статистику пользователя
type SummaryResponse struct {
	TotalIncome   float64            `json:"totalIncome"`   // сумма доходов
	TotalExpenses float64            `json:"totalExpenses"` // сумма расходов
	Balance       float64            `json:"balance"`       // доходы минус расходы
	ByCategory    map[string]float64 `json:"byCategory"`    // расходы по категориям
}
