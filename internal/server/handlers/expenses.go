package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kopilka-app/kopilka/internal/models"
	"github.com/kopilka-app/kopilka/internal/server/storage"
	"github.com/kopilka-app/kopilka/internal/validation"
	"github.com/kopilka-app/kopilka/pkg/api"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ExpenseHandler обрабатывает CRUD операций пользователя
type ExpenseHandler struct {
	logger      *slog.Logger
	storage     storage.ExpenseStorage
	development bool
}

// NewExpenseHandler создает новый handler для операций
func NewExpenseHandler(logger *slog.Logger, expenseStorage storage.ExpenseStorage, development bool) *ExpenseHandler {
	return &ExpenseHandler{
		logger:      logger,
		storage:     expenseStorage,
		development: development,
	}
}

// Create обрабатывает POST /api/v1/expenses
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		SendError(h.logger, w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	var req api.CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(h.logger, w, http.StatusBadRequest, "Invalid request body", api.CodeInvalidRequest)
		return
	}

	if err := h.validateExpenseFields(req.Title, req.Amount, req.Category, req.Type, req.Description); err != nil {
		SendError(h.logger, w, http.StatusBadRequest, err.Error(), api.CodeInvalidRequest)
		return
	}

	now := time.Now().UTC()
	date := now
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			SendError(h.logger, w, http.StatusBadRequest, "Invalid date format", api.CodeInvalidRequest)
			return
		}
		date = parsed
	}

	expense := &models.Expense{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       req.Title,
		Amount:      req.Amount,
		Category:    req.Category,
		Type:        req.Type,
		Description: req.Description,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.storage.CreateExpense(ctx, expense); err != nil {
		h.logger.ErrorContext(ctx, "failed to create expense", slog.Any("error", err))
		SendError(h.logger, w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	SendJSON(h.logger, w, http.StatusCreated, api.Response{
		Success: true,
		Message: "Expense created successfully",
		Data:    expense,
	})
}

// Get обрабатывает GET /api/v1/expenses/{id}
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		SendError(h.logger, w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	expenseID := r.PathValue("id")
	expense, err := h.storage.GetExpense(ctx, userID, expenseID)
	if err != nil {
		h.sendStorageError(ctx, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, api.Response{
		Success: true,
		Message: "OK",
		Data:    expense,
	})
}

// List обрабатывает GET /api/v1/expenses
// Поддерживает фильтры type, category, startDate, endDate и пагинацию
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		SendError(h.logger, w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	query := r.URL.Query()
	filter := storage.ExpenseFilter{
		Type:     query.Get("type"),
		Category: query.Get("category"),
	}

	if filter.Type != "" && !models.ValidExpenseType(filter.Type) {
		SendError(h.logger, w, http.StatusBadRequest, "type must be either income or expense", api.CodeInvalidRequest)
		return
	}

	if raw := query.Get("startDate"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			SendError(h.logger, w, http.StatusBadRequest, "Invalid startDate format", api.CodeInvalidRequest)
			return
		}
		filter.StartDate = &parsed
	}
	if raw := query.Get("endDate"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			SendError(h.logger, w, http.StatusBadRequest, "Invalid endDate format", api.CodeInvalidRequest)
			return
		}
		filter.EndDate = &parsed
	}

	page := 1
	if raw := query.Get("page"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil && p > 0 {
			page = p
		}
	}

	limit := defaultPageSize
	if raw := query.Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	expenses, total, err := h.storage.ListExpenses(ctx, userID, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list expenses", slog.Any("error", err))
		SendError(h.logger, w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	if expenses == nil {
		expenses = []*models.Expense{}
	}

	pages := (total + limit - 1) / limit
	SendJSON(h.logger, w, http.StatusOK, api.Response{
		Success: true,
		Message: "OK",
		Data: api.ExpenseListResponse{
			Expenses: expenses,
			Total:    total,
			Page:     page,
			Pages:    pages,
		},
	})
}

// Update обрабатывает PUT /api/v1/expenses/{id}
// nil-поля запроса не изменяются
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		SendError(h.logger, w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	expenseID := r.PathValue("id")
	expense, err := h.storage.GetExpense(ctx, userID, expenseID)
	if err != nil {
		h.sendStorageError(ctx, w, err)
		return
	}

	var req api.UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(h.logger, w, http.StatusBadRequest, "Invalid request body", api.CodeInvalidRequest)
		return
	}

	if req.Title != nil {
		expense.Title = *req.Title
	}
	if req.Amount != nil {
		expense.Amount = *req.Amount
	}
	if req.Category != nil {
		expense.Category = *req.Category
	}
	if req.Type != nil {
		expense.Type = *req.Type
	}
	if req.Description != nil {
		expense.Description = *req.Description
	}
	if req.Date != nil {
		parsed, err := parseDate(*req.Date)
		if err != nil {
			SendError(h.logger, w, http.StatusBadRequest, "Invalid date format", api.CodeInvalidRequest)
			return
		}
		expense.Date = parsed
	}

	if err := h.validateExpenseFields(expense.Title, expense.Amount, expense.Category, expense.Type, expense.Description); err != nil {
		SendError(h.logger, w, http.StatusBadRequest, err.Error(), api.CodeInvalidRequest)
		return
	}

	expense.UpdatedAt = time.Now().UTC()

	if err := h.storage.UpdateExpense(ctx, expense); err != nil {
		h.sendStorageError(ctx, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, api.Response{
		Success: true,
		Message: "Expense updated successfully",
		Data:    expense,
	})
}

// Delete обрабатывает DELETE /api/v1/expenses/{id}
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		SendError(h.logger, w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	expenseID := r.PathValue("id")
	if err := h.storage.DeleteExpense(ctx, userID, expenseID); err != nil {
		h.sendStorageError(ctx, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, api.Response{
		Success: true,
		Message: "Expense deleted successfully",
	})
}

// Summary обрабатывает GET /api/v1/expenses/summary
func (h *ExpenseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		SendError(h.logger, w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	summary, err := h.storage.Summarize(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to summarize expenses", slog.Any("error", err))
		SendError(h.logger, w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	SendJSON(h.logger, w, http.StatusOK, api.Response{
		Success: true,
		Message: "OK",
		Data: api.SummaryResponse{
			TotalIncome:   summary.TotalIncome,
			TotalExpenses: summary.TotalExpenses,
			Balance:       summary.TotalIncome - summary.TotalExpenses,
			ByCategory:    summary.ByCategory,
		},
	})
}

func (h *ExpenseHandler) validateExpenseFields(title string, amount float64, category, expenseType, description string) error {
	if err := validation.ValidateExpenseTitle(title); err != nil {
		return err
	}
	if err := validation.ValidateExpenseAmount(amount); err != nil {
		return err
	}
	if err := validation.ValidateExpenseCategory(category); err != nil {
		return err
	}
	if err := validation.ValidateExpenseType(expenseType); err != nil {
		return err
	}
	return validation.ValidateExpenseDescription(description)
}

func (h *ExpenseHandler) sendStorageError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrExpenseNotFound) {
		SendError(h.logger, w, http.StatusNotFound, "Expense not found", "")
		return
	}
	h.logger.ErrorContext(ctx, "expense storage error", slog.Any("error", err))
	SendError(h.logger, w, http.StatusInternalServerError, "Internal server error", "")
}

// parseDate принимает RFC3339 или дату без времени
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}
