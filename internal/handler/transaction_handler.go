package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/middleware"
	"github.com/fintrack/fintrack/shared/models"
	"github.com/fintrack/fintrack/shared/utils"
	"github.com/gin-gonic/gin"
)

const msgInvalidDate = "Invalid date format. Please send an ISO formatted date string."

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	CreateTransaction(context.Context, cqrs.CreateTransactionCommand) (*models.Transaction, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.TransactionView, error)
	GetSummary(context.Context, cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

// CreateTransactionRequest uses pointers so absent fields can be told apart
// from zero values. Amount may legitimately be 0.
type CreateTransactionRequest struct {
	Amount          *float64 `json:"amount" validate:"required"`
	Description     *string  `json:"description" validate:"omitempty,max=200"`
	Date            *string  `json:"date"`
	TransactionType string   `json:"transaction_type" validate:"omitempty,oneof=income expense"`
}

type ListTransactionsResponse struct {
	Transactions []models.TransactionView `json:"transactions"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	email, ok := middleware.GetEmail(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Missing claim: sub")
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	var date *time.Time
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		parsed, err := utils.ParseISOTime(*req.Date)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, msgInvalidDate)
			return
		}
		date = &parsed
	}

	if _, err := h.commands.CreateTransaction(c.Request.Context(), cqrs.CreateTransactionCommand{
		OwnerEmail:      email,
		Amount:          *req.Amount,
		Description:     req.Description,
		Date:            date,
		TransactionType: req.TransactionType,
	}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Transaction added successfully"})
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	email, ok := middleware.GetEmail(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Missing claim: sub")
		return
	}

	views, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{OwnerEmail: email})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if views == nil {
		views = []models.TransactionView{}
	}

	c.JSON(http.StatusOK, ListTransactionsResponse{Transactions: views})
}

func (h *TransactionHandler) GetSummary(c *gin.Context) {
	email, ok := middleware.GetEmail(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Missing claim: sub")
		return
	}

	summary, err := h.queries.GetSummary(c.Request.Context(), cqrs.TransactionSummaryQuery{OwnerEmail: email})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
