package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fintrack/fintrack/shared/apperr"
	"github.com/fintrack/fintrack/shared/cqrs"
	"github.com/fintrack/fintrack/shared/middleware"
	"github.com/fintrack/fintrack/shared/models"
	"github.com/fintrack/fintrack/shared/token"
	"github.com/gin-gonic/gin"
)

// ---- mock implementations ----

type mockUserCommander struct {
	registerFn func(cqrs.RegisterUserCommand) (*models.User, error)
}

func (m *mockUserCommander) RegisterUser(_ context.Context, cmd cqrs.RegisterUserCommand) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

type mockAuthQuerier struct {
	loginFn func(cqrs.LoginCommand) (string, error)
}

func (m *mockAuthQuerier) Login(_ context.Context, cmd cqrs.LoginCommand) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(cmd)
	}
	return "", fmt.Errorf("not configured")
}

type mockAuthCommander struct {
	logoutFn func(cqrs.LogoutCommand) error
}

func (m *mockAuthCommander) Logout(_ context.Context, cmd cqrs.LogoutCommand) error {
	if m.logoutFn != nil {
		return m.logoutFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockTransactionCommander struct {
	createFn func(cqrs.CreateTransactionCommand) (*models.Transaction, error)
}

func (m *mockTransactionCommander) CreateTransaction(_ context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

type mockTransactionQuerier struct {
	listFn    func(cqrs.ListTransactionsQuery) ([]models.TransactionView, error)
	summaryFn func(cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error)
}

func (m *mockTransactionQuerier) ListTransactions(_ context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockTransactionQuerier) GetSummary(_ context.Context, q cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

const testEmail = "alice@example.com"

var testTokens = func() *token.Manager {
	m, err := token.NewManager("handler-test-secret", time.Hour)
	if err != nil {
		panic(err)
	}
	return m
}()

func newTestRouter(users UserCommander, authCmds AuthCommander, authQrys AuthQuerier, txCmds TransactionCommander, txQrys TransactionQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := middleware.AuthMiddleware(testTokens, token.NewMemoryBlocklist())

	uh := NewUserHandler(users)
	ah := NewAuthHandler(authCmds, authQrys)
	th := NewTransactionHandler(txCmds, txQrys)

	api := r.Group("/api")
	api.POST("/register", uh.Register)
	api.POST("/login", ah.Login)
	api.POST("/logout", auth, ah.Logout)
	api.POST("/transactions", auth, th.CreateTransaction)
	api.GET("/transactions", auth, th.ListTransactions)
	api.GET("/transactions/summary", auth, th.GetSummary)
	return r
}

func doRequest(router *gin.Engine, method, url string, body interface{}, bearer string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		var raw string
		if s, ok := body.(string); ok {
			raw = s
		} else {
			b, _ := json.Marshal(body)
			raw = string(b)
		}
		req, _ = http.NewRequest(method, url, strings.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustToken(t *testing.T) string {
	t.Helper()
	tok, err := testTokens.Issue(testEmail)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func bodyMessage(w *httptest.ResponseRecorder) string {
	var resp struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Message
}

// ---- tests ----

func TestRegister(t *testing.T) {
	tests := []struct {
		name            string
		body            interface{}
		registerFn      func(cqrs.RegisterUserCommand) (*models.User, error)
		expectedStatus  int
		expectedMessage string
	}{
		{
			name: "success - user created",
			body: map[string]string{"username": "alice", "email": "alice@example.com", "password": "pw"},
			registerFn: func(cmd cqrs.RegisterUserCommand) (*models.User, error) {
				return &models.User{ID: 1, Username: cmd.Username, Email: cmd.Email, PasswordHash: "hash"}, nil
			},
			expectedStatus:  http.StatusCreated,
			expectedMessage: "User created successfully",
		},
		{
			name: "bad request - duplicate user",
			body: map[string]string{"username": "alice", "email": "alice@example.com", "password": "pw"},
			registerFn: func(cmd cqrs.RegisterUserCommand) (*models.User, error) {
				return nil, apperr.NewConflict("User with that username or email already exists")
			},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "User with that username or email already exists",
		},
		{
			name:            "bad request - missing username",
			body:            map[string]string{"email": "alice@example.com", "password": "pw"},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request data",
		},
		{
			name:            "bad request - empty password",
			body:            map[string]string{"username": "alice", "email": "alice@example.com", "password": ""},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request data",
		},
		{
			name:            "bad request - password longer than 72 bytes",
			body:            map[string]string{"username": "alice", "email": "alice@example.com", "password": strings.Repeat("p", 73)},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request data",
		},
		{
			name:            "bad request - invalid email format",
			body:            map[string]string{"username": "alice", "email": "not-an-email", "password": "pw"},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request data",
		},
		{
			name:            "bad request - malformed JSON",
			body:            `{"username":`,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request body",
		},
		{
			name: "internal error - store failure",
			body: map[string]string{"username": "alice", "email": "alice@example.com", "password": "pw"},
			registerFn: func(cmd cqrs.RegisterUserCommand) (*models.User, error) {
				return nil, fmt.Errorf("disk full")
			},
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockUserCommander{registerFn: tt.registerFn}, nil, nil, nil, nil)
			w := doRequest(router, http.MethodPost, "/api/register", tt.body, "")
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if got := bodyMessage(w); got != tt.expectedMessage {
				t.Errorf("[%s] expected message %q got %q", tt.name, tt.expectedMessage, got)
			}
			if strings.Contains(w.Body.String(), "hash") {
				t.Errorf("[%s] response leaks password hash: %s", tt.name, w.Body.String())
			}
		})
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		loginFn        func(cqrs.LoginCommand) (string, error)
		expectedStatus int
	}{
		{
			name:           "success - valid credentials return JWT",
			body:           map[string]string{"email": "alice@example.com", "password": "pw"},
			loginFn:        func(cmd cqrs.LoginCommand) (string, error) { return "mock.jwt.token", nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "unauthorised - invalid credentials",
			body: map[string]string{"email": "alice@example.com", "password": "wrong"},
			loginFn: func(cmd cqrs.LoginCommand) (string, error) {
				return "", apperr.NewAuthentication("Invalid credentials")
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad request - missing password",
			body:           map[string]string{"email": "alice@example.com"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - missing email",
			body:           map[string]string{"password": "pw"},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(nil, nil, &mockAuthQuerier{loginFn: tt.loginFn}, nil, nil)
			w := doRequest(router, http.MethodPost, "/api/login", tt.body, "")
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				var resp AuthResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.AccessToken != "mock.jwt.token" {
					t.Errorf("[%s] unexpected body: %s", tt.name, w.Body.String())
				}
			}
		})
	}
}

func TestLogout(t *testing.T) {
	var got cqrs.LogoutCommand
	router := newTestRouter(nil, &mockAuthCommander{logoutFn: func(cmd cqrs.LogoutCommand) error {
		got = cmd
		return nil
	}}, nil, nil, nil)

	tok := mustToken(t)
	w := doRequest(router, http.MethodPost, "/api/logout", nil, tok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d; body: %s", w.Code, w.Body.String())
	}
	claims, _ := testTokens.Parse(tok)
	if got.TokenID != claims.ID {
		t.Errorf("expected token id %q got %q", claims.ID, got.TokenID)
	}
	if !got.ExpiresAt.Equal(claims.ExpiresAt.Time) {
		t.Errorf("expected expiry %v got %v", claims.ExpiresAt.Time, got.ExpiresAt)
	}

	w = doRequest(router, http.MethodPost, "/api/logout", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	tok := mustToken(t)
	ok := func(cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
		return &models.Transaction{ID: 1}, nil
	}

	tests := []struct {
		name            string
		body            interface{}
		bearer          string
		createFn        func(cqrs.CreateTransactionCommand) (*models.Transaction, error)
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:   "success - all fields",
			body:   map[string]interface{}{"amount": 42.5, "description": "coffee", "date": "2024-01-01T10:00:00", "transaction_type": "expense"},
			bearer: tok,
			createFn: func(cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
				if cmd.OwnerEmail != testEmail || cmd.Amount != 42.5 || cmd.Description == nil || *cmd.Description != "coffee" {
					return nil, fmt.Errorf("unexpected command %+v", cmd)
				}
				want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
				if cmd.Date == nil || !cmd.Date.Equal(want) {
					return nil, fmt.Errorf("unexpected date %v", cmd.Date)
				}
				return &models.Transaction{ID: 1}, nil
			},
			expectedStatus:  http.StatusCreated,
			expectedMessage: "Transaction added successfully",
		},
		{
			name:   "success - amount only leaves defaults to the service",
			body:   map[string]interface{}{"amount": 0},
			bearer: tok,
			createFn: func(cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
				if cmd.Date != nil || cmd.Description != nil || cmd.TransactionType != "" {
					return nil, fmt.Errorf("unexpected command %+v", cmd)
				}
				return &models.Transaction{ID: 2}, nil
			},
			expectedStatus:  http.StatusCreated,
			expectedMessage: "Transaction added successfully",
		},
		{
			name:            "bad request - unparseable date",
			body:            map[string]interface{}{"amount": 10, "date": "not-a-date"},
			bearer:          tok,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid date format. Please send an ISO formatted date string.",
		},
		{
			name:            "bad request - missing amount",
			body:            map[string]interface{}{"description": "coffee"},
			bearer:          tok,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request data",
		},
		{
			name:            "bad request - amount is not a number",
			body:            map[string]interface{}{"amount": "lots"},
			bearer:          tok,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request body",
		},
		{
			name:            "bad request - unknown transaction type",
			body:            map[string]interface{}{"amount": 5, "transaction_type": "transfer"},
			bearer:          tok,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request data",
		},
		{
			name:            "unauthorised - missing token",
			body:            map[string]interface{}{"amount": 5},
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Missing Authorization Header",
		},
		{
			name:            "unprocessable - garbage token",
			body:            map[string]interface{}{"amount": 5},
			bearer:          "garbage",
			expectedStatus:  http.StatusUnprocessableEntity,
			expectedMessage: "Token is malformed",
		},
		{
			name:   "internal error - token subject has no user",
			body:   map[string]interface{}{"amount": 5},
			bearer: tok,
			createFn: func(cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
				return nil, fmt.Errorf("token subject has no user")
			},
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createFn := tt.createFn
			if createFn == nil {
				createFn = func(cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
					t.Errorf("[%s] command must not be called", tt.name)
					return ok(cmd)
				}
			}
			router := newTestRouter(nil, nil, nil, &mockTransactionCommander{createFn: createFn}, nil)
			w := doRequest(router, http.MethodPost, "/api/transactions", tt.body, tt.bearer)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if got := bodyMessage(w); got != tt.expectedMessage {
				t.Errorf("[%s] expected message %q got %q", tt.name, tt.expectedMessage, got)
			}
		})
	}
}

func TestListTransactions(t *testing.T) {
	tok := mustToken(t)
	desc := "coffee"

	tests := []struct {
		name           string
		listFn         func(cqrs.ListTransactionsQuery) ([]models.TransactionView, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success - views serialised without owner",
			listFn: func(q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
				if q.OwnerEmail != testEmail {
					return nil, fmt.Errorf("wrong owner %s", q.OwnerEmail)
				}
				return []models.TransactionView{{
					ID: 1, UserID: 9, Amount: 42.5, Description: &desc,
					Date: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), TransactionType: "expense",
				}}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"transactions":[{"id":1,"amount":42.5,"description":"coffee","date":"2024-01-01T10:00:00Z","transaction_type":"expense"}]}`,
		},
		{
			name: "success - empty list is an array",
			listFn: func(q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
				return nil, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"transactions":[]}`,
		},
		{
			name: "internal error",
			listFn: func(q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
				return nil, fmt.Errorf("db down")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"message":"Internal server error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(nil, nil, nil, nil, &mockTransactionQuerier{listFn: tt.listFn})
			w := doRequest(router, http.MethodGet, "/api/transactions", nil, tok)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Body.String() != tt.expectedBody {
				t.Errorf("[%s] expected body %s got %s", tt.name, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestGetSummary(t *testing.T) {
	router := newTestRouter(nil, nil, nil, nil, &mockTransactionQuerier{
		summaryFn: func(q cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error) {
			return &models.TransactionSummary{Income: 100, Expense: 40, Balance: 60, Count: 2}, nil
		},
	})

	w := doRequest(router, http.MethodGet, "/api/transactions/summary", nil, mustToken(t))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d; body: %s", w.Code, w.Body.String())
	}
	want := `{"income":100,"expense":40,"balance":60,"count":2}`
	if w.Body.String() != want {
		t.Errorf("expected body %s got %s", want, w.Body.String())
	}
}
