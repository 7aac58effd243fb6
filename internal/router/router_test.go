package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"receipts-api/internal/config"
	"receipts-api/internal/db"
	"receipts-api/internal/middleware"
	"receipts-api/internal/models"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RouterTestSuite struct {
	suite.Suite
	db     *db.Database
	router *mux.Router
}

func testConfig() config.Config {
	cfg := config.FromEnv()
	cfg.JWTSecret = "router-test-secret"
	cfg.TokenTTL = 30 * time.Minute
	cfg.BcryptCost = 4
	cfg.RequestTimeout = 10 * time.Second
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	cfg.Receipt = config.ReceiptConfig{
		Timezone:      "UTC",
		SellerPrefix:  "ФОП",
		UnknownSeller: "Невідомий користувач",
		TotalLabel:    "СУМА",
		ChangeLabel:   "Решта",
		ThankYou:      "Дякуємо за покупку!",
	}
	return cfg
}

func (suite *RouterTestSuite) SetupTest() {
	ctx := context.Background()
	database, err := db.InitDB(ctx, "sqlite", ":memory:")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), db.RunMigrations(ctx, database))

	suite.db = database
	suite.router = SetupRouter(database, testConfig(), zerolog.Nop())
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *RouterTestSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (suite *RouterTestSuite) register(username string) string {
	rec := suite.do(http.MethodPost, "/auth/register", map[string]string{
		"name":     "Test Seller",
		"username": username,
		"password": "Test1234!",
	}, "")
	require.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())

	token := decode[models.TokenResponse](suite.T(), rec)
	assert.Equal(suite.T(), "bearer", token.TokenType)
	require.NotEmpty(suite.T(), token.AccessToken)
	return token.AccessToken
}

const createBody = `{
	"products": [{"name": "Product1", "price": 100.00, "quantity": 2}],
	"payment": {"type": "cash", "amount": 500.00}
}`

func (suite *RouterTestSuite) createReceipt(token, body string) models.CreateReceiptResponse {
	rec := suite.do(http.MethodPost, "/receipts/create_receipt", body, token)
	require.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.CreateReceiptResponse](suite.T(), rec)
}

func (suite *RouterTestSuite) TestHealth() {
	rec := suite.do(http.MethodGet, "/health", nil, "")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.JSONEq(suite.T(), `{"status":"ok"}`, rec.Body.String())
	assert.Equal(suite.T(), "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func (suite *RouterTestSuite) TestRegisterAndLogin() {
	suite.register("cashier")

	rec := suite.do(http.MethodPost, "/auth/login", map[string]string{
		"username": "cashier",
		"password": "Test1234!",
	}, "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	token := decode[models.TokenResponse](suite.T(), rec)

	me := suite.do(http.MethodGet, "/auth/me", nil, token.AccessToken)
	require.Equal(suite.T(), http.StatusOK, me.Code)
	user := decode[map[string]any](suite.T(), me)
	assert.Equal(suite.T(), "cashier", user["username"])
	assert.Equal(suite.T(), "Test Seller", user["name"])
	assert.NotContains(suite.T(), user, "password_hash")
	assert.NotContains(suite.T(), user, "PasswordHash")
}

func (suite *RouterTestSuite) TestRegisterDuplicate() {
	suite.register("cashier")

	rec := suite.do(http.MethodPost, "/auth/register", map[string]string{
		"name":     "Another",
		"username": "cashier",
		"password": "Test1234!",
	}, "")
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	body := decode[middleware.ErrorResponse](suite.T(), rec)
	assert.Equal(suite.T(), "Username already registered", body.Detail)
}

func (suite *RouterTestSuite) TestRegisterValidation() {
	rec := suite.do(http.MethodPost, "/auth/register", map[string]string{
		"name":     "Bob",
		"username": "bad user",
		"password": "Test1234!",
	}, "")
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = suite.do(http.MethodPost, "/auth/register", `{"name": `, "")
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, rec.Code)
}

func (suite *RouterTestSuite) TestRegisterRequiresJSONContentType() {
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)

	assert.Equal(suite.T(), http.StatusUnsupportedMediaType, rec.Code)
}

func (suite *RouterTestSuite) TestLoginFailures() {
	suite.register("cashier")

	wrong := suite.do(http.MethodPost, "/auth/login", map[string]string{"username": "cashier", "password": "Wrong1234!"}, "")
	unknown := suite.do(http.MethodPost, "/auth/login", map[string]string{"username": "nobody", "password": "Test1234!"}, "")

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
		assert.Equal(suite.T(), "Bearer", rec.Header().Get("WWW-Authenticate"))
	}
	assert.Equal(suite.T(), wrong.Body.String(), unknown.Body.String())
	assert.Equal(suite.T(), "Incorrect username or password", decode[middleware.ErrorResponse](suite.T(), wrong).Detail)
}

func (suite *RouterTestSuite) TestCreateReceipt() {
	token := suite.register("cashier")

	resp := suite.createReceipt(token, createBody)

	assert.Positive(suite.T(), resp.ID)
	assert.True(suite.T(), resp.Total.Equal(decimal.RequireFromString("200")))
	assert.True(suite.T(), resp.Rest.Equal(decimal.RequireFromString("300")))
	assert.Equal(suite.T(), models.PaymentTypeCash, resp.Payment.Type)
	require.Len(suite.T(), resp.Products, 1)
	assert.True(suite.T(), resp.Products[0].Total.Equal(decimal.RequireFromString("200")))
}

func (suite *RouterTestSuite) TestCreateReceiptAcceptsStringAmounts() {
	token := suite.register("cashier")

	resp := suite.createReceipt(token, `{
		"products": [{"name": "Gum", "price": "0.10", "quantity": "3"}],
		"payment": {"type": "cashless", "amount": "0.30"}
	}`)

	assert.Equal(suite.T(), "0.30", resp.Total.StringFixed(2))
	assert.True(suite.T(), resp.Rest.IsZero())
}

func (suite *RouterTestSuite) TestCreateReceiptErrors() {
	token := suite.register("cashier")

	tests := []struct {
		name   string
		body   string
		token  string
		status int
		detail string
	}{
		{
			name:   "insufficient payment",
			body:   `{"products": [{"name": "A", "price": 100, "quantity": 2}], "payment": {"type": "cash", "amount": 199.99}}`,
			token:  token,
			status: http.StatusBadRequest,
			detail: "The amount you provided is not enough to cover the total cost of the items.",
		},
		{
			name:   "negative price",
			body:   `{"products": [{"name": "A", "price": -1, "quantity": 1}], "payment": {"type": "cash", "amount": 10}}`,
			token:  token,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "price out of range",
			body:   `{"products": [{"name": "A", "price": "12345678901234567.89", "quantity": 1}], "payment": {"type": "cash", "amount": "99999999999999999999"}}`,
			token:  token,
			status: http.StatusUnprocessableEntity,
			detail: "products[0].price: must be less than 10^13",
		},
		{
			name:   "tiny exponent",
			body:   `{"products": [{"name": "A", "price": 1e-20000000, "quantity": 1}], "payment": {"type": "cash", "amount": 10}}`,
			token:  token,
			status: http.StatusUnprocessableEntity,
			detail: "products[0].price: must have at most 2 decimal places",
		},
		{
			name:   "non numeric price",
			body:   `{"products": [{"name": "A", "price": "ten", "quantity": 1}], "payment": {"type": "cash", "amount": 10}}`,
			token:  token,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown payment type",
			body:   `{"products": [], "payment": {"type": "crypto", "amount": 10}}`,
			token:  token,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "missing token",
			body:   createBody,
			status: http.StatusUnauthorized,
			detail: "Not authenticated",
		},
		{
			name:   "bad token",
			body:   createBody,
			token:  "garbage",
			status: http.StatusUnauthorized,
			detail: "Could not validate credentials",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			rec := suite.do(http.MethodPost, "/receipts/create_receipt", tt.body, tt.token)
			assert.Equal(suite.T(), tt.status, rec.Code, rec.Body.String())
			if tt.detail != "" {
				assert.Equal(suite.T(), tt.detail, decode[middleware.ErrorResponse](suite.T(), rec).Detail)
			}
		})
	}

	list := suite.do(http.MethodGet, "/receipts/view_receipts", nil, token)
	require.Equal(suite.T(), http.StatusOK, list.Code)
	assert.Equal(suite.T(), 0, decode[models.ReceiptList](suite.T(), list).TotalCount)
}

func (suite *RouterTestSuite) TestViewReceipts() {
	token := suite.register("cashier")
	for i := 0; i < 3; i++ {
		suite.createReceipt(token, createBody)
	}
	suite.createReceipt(token, `{"products": [{"name": "B", "price": 10, "quantity": 1}], "payment": {"type": "cashless", "amount": 10}}`)

	rec := suite.do(http.MethodGet, "/receipts/view_receipts?payment_type=cash&page=1&page_size=2", nil, token)
	require.Equal(suite.T(), http.StatusOK, rec.Code)

	list := decode[models.ReceiptList](suite.T(), rec)
	assert.Equal(suite.T(), 3, list.TotalCount)
	require.Len(suite.T(), list.Receipts, 2)
	assert.Greater(suite.T(), list.Receipts[0].ID, list.Receipts[1].ID)
	require.Len(suite.T(), list.Receipts[0].Items, 1)
	assert.Equal(suite.T(), "Product1", list.Receipts[0].Items[0].ProductName)

	rec = suite.do(http.MethodGet, "/receipts/view_receipts?min_amount=50&start_date=2000-01-01", nil, token)
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Equal(suite.T(), 3, decode[models.ReceiptList](suite.T(), rec).TotalCount)

	rec = suite.do(http.MethodGet, "/receipts/view_receipts?end_date=2000-01-01T00:00:00Z", nil, token)
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Equal(suite.T(), 0, decode[models.ReceiptList](suite.T(), rec).TotalCount)
}

func (suite *RouterTestSuite) TestViewReceiptsRejectsMalformedQuery() {
	token := suite.register("cashier")

	for _, query := range []string{"page=0", "page_size=abc", "offset=-1", "start_date=yesterday", "min_amount=lots", "payment_type=card",
		"page=4611686018427387904&page_size=4", "page_size=1001", "min_amount=1e-20000000", "max_amount=1e20000000",
	} {
		rec := suite.do(http.MethodGet, "/receipts/view_receipts?"+query, nil, token)
		assert.Equal(suite.T(), http.StatusUnprocessableEntity, rec.Code, query)
	}
}

func (suite *RouterTestSuite) TestViewReceiptByID() {
	owner := suite.register("cashier")
	intruder := suite.register("intruder")
	created := suite.createReceipt(owner, createBody)
	path := "/receipts/view_receipts/" + strconv.Itoa(created.ID)

	rec := suite.do(http.MethodGet, path, nil, owner)
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	receipt := decode[models.Receipt](suite.T(), rec)
	assert.Equal(suite.T(), created.ID, receipt.ID)
	assert.True(suite.T(), receipt.PaymentAmount.Equal(decimal.RequireFromString("500")))

	rec = suite.do(http.MethodGet, path, nil, intruder)
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)
	assert.Equal(suite.T(), "Receipt not found", decode[middleware.ErrorResponse](suite.T(), rec).Detail)

	rec = suite.do(http.MethodGet, "/receipts/view_receipts/99999", nil, owner)
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)

	rec = suite.do(http.MethodGet, path, nil, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func (suite *RouterTestSuite) TestCustomerReceiptIsPublic() {
	token := suite.register("cashier")
	created := suite.createReceipt(token, createBody)

	rec := suite.do(http.MethodGet, "/receipts/customer_receipts/"+strconv.Itoa(created.ID), nil, "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)

	text := decode[models.ReceiptText](suite.T(), rec).ReceiptText
	assert.True(suite.T(), strings.HasPrefix(text, "ФОП Test Seller\n"), text)
	assert.Contains(suite.T(), text, "2.00 x 100.00 200.00\nProduct1\n")
	assert.Contains(suite.T(), text, "СУМА 200.00\ncash 500.00\nРешта 300.00\n")
	assert.True(suite.T(), strings.HasSuffix(text, "Дякуємо за покупку!"))

	rec = suite.do(http.MethodGet, "/receipts/customer_receipts/424242", nil, "")
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)
}

func (suite *RouterTestSuite) TestDeletedAccountCannotList() {
	token := suite.register("ghost")
	_, err := suite.db.Exec("DELETE FROM users WHERE username = ?", "ghost")
	require.NoError(suite.T(), err)

	rec := suite.do(http.MethodGet, "/receipts/view_receipts", nil, token)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestRateLimitApplies(t *testing.T) {
	database, err := db.InitDB(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, db.RunMigrations(context.Background(), database))

	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	r := SetupRouter(database, cfg, zerolog.Nop())

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
