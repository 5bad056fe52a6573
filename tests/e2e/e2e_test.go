package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hotelwizard/internal/crm"
	"hotelwizard/internal/database"
	"hotelwizard/internal/domain"
	"hotelwizard/internal/logging"
	"hotelwizard/internal/middleware"
	"hotelwizard/internal/modules/payment"
	"hotelwizard/internal/modules/reservation"
	jwtsvc "hotelwizard/internal/pkg/jwt"
	"hotelwizard/internal/realtime"
	"hotelwizard/internal/repository"
	"hotelwizard/internal/session"
	"hotelwizard/internal/storage/cookiestore"
)

const (
	internalToken = "ops-token"
	frontendURL   = "http://frontend.test/reservation"
)

type E2ETestSuite struct {
	server   *httptest.Server
	client   *http.Client
	db       *gorm.DB
	redis    *miniredis.Miniredis
	crm      *fakeCRM
	provider *fakeProvider
}

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// fakeCRM serves the CRM REST endpoints the client calls.
type fakeCRM struct {
	mu           sync.Mutex
	reservations []crm.ReservationInput
	server       *httptest.Server
}

func newFakeCRM(t *testing.T) *fakeCRM {
	f := &fakeCRM{}
	r := gin.New()
	r.GET("/rooms/available", func(c *gin.Context) {
		if c.Query("checkIn") == "" || c.Query("checkOut") == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "dates required"})
			return
		}
		c.JSON(http.StatusOK, []gin.H{
			{"id": "a0R1", "name": "Sea Suite", "roomNumber": "201", "floor": 2, "roomType": "Suite", "pricePerNight": 100, "features": "Sea view;Mini-fridge"},
			{"id": "a0R2", "name": "Garden Room", "roomNumber": "105", "floor": "1", "roomType": "Standard", "pricePerNight": 60, "features": "Balcony"},
		})
	})
	r.GET("/reservations/room-types", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"label": "Standard", "value": "Standard"},
			{"label": "Suite", "value": "Suite"},
		})
	})
	r.POST("/reservations", func(c *gin.Context) {
		var in crm.ReservationInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		f.mu.Lock()
		f.reservations = append(f.reservations, in)
		id := fmt.Sprintf("a1RES%d", len(f.reservations))
		f.mu.Unlock()
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCRM) created() []crm.ReservationInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]crm.ReservationInput(nil), f.reservations...)
}

// fakeProvider stands in for the card processor and hosted checkout.
type fakeProvider struct {
	mu        sync.Mutex
	checkouts map[string]payment.CheckoutRequest
	last      payment.CheckoutRequest
	charges   int
}

func (p *fakeProvider) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("cs_test_%d", len(p.checkouts)+1)
	p.checkouts[id] = req
	p.last = req
	return &payment.Checkout{ID: id, URL: "https://checkout.test/" + id, Reference: req.Reference}, nil
}

func (p *fakeProvider) GetCheckout(ctx context.Context, id string) (*payment.Checkout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.checkouts[id]
	if !ok {
		return nil, &payment.ProviderError{Code: "resource_missing", Message: "No such checkout session"}
	}
	return &payment.Checkout{
		ID:          id,
		Paid:        true,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Reference:   req.Reference,
		PaymentRef:  "pi_" + id,
	}, nil
}

func (p *fakeProvider) ChargeCard(ctx context.Context, req payment.CardCharge) (*payment.Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charges++
	return &payment.Charge{ID: fmt.Sprintf("pi_card_%d", p.charges), Status: "succeeded", Succeeded: true}, nil
}

func (p *fakeProvider) successURL(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.ReplaceAll(p.last.SuccessURL, "{CHECKOUT_SESSION_ID}", id)
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := database.Connect(":memory:")
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	fakeCRM := newFakeCRM(t)
	crmClient := crm.New(crm.Config{BaseURL: fakeCRM.server.URL, Token: "crm-token"}, nil, logger)
	provider := &fakeProvider{checkouts: map[string]payment.CheckoutRequest{}}

	paymentService := payment.NewService(
		repository.NewPaymentAttemptRepository(db),
		crmClient,
		provider,
		payment.Config{Currency: "php"},
		logging.Loggerf(logger),
	)
	paymentHandler := payment.NewHandler(paymentService, logging.Loggerf(logger))

	states := jwtsvc.New("test_secret_key_32_characters_min", time.Hour)
	hub := realtime.NewHub(logger)
	t.Cleanup(hub.Close)

	r := gin.New()
	r.Use(middleware.ErrorLogger(logger))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	factory := session.NewFactory(session.FactoryDeps{
		Rooms:      crmClient,
		RoomTypes:  crmClient,
		Redirect:   paymentService,
		Cards:      paymentService,
		Redis:      rdb,
		CacheTTL:   time.Hour,
		ReturnBase: srv.URL + "/api/v1/wizard/payment/return",
		Signer:     states,
		Hub:        hub,
		Logger:     logger,
	})
	sessions := session.NewManager(factory, time.Hour, logger)
	reservationHandler := reservation.NewHandler(sessions, states, hub, reservation.Config{
		FrontendURL: frontendURL,
		Cookies:     cookiestore.Options{},
	}, logger)

	v1 := r.Group("/api/v1")
	{
		wizardGroup := v1.Group("/wizard")
		wizardGroup.Use(session.Middleware(session.CookieConfig{Name: "wizard_sid", MaxAge: time.Hour, SameSite: http.SameSiteLaxMode}))
		reservationHandler.RegisterRoutes(wizardGroup, middleware.RateLimit(600, logger))

		internal := v1.Group("/internal")
		internal.Use(middleware.InternalTokenAuth(internalToken, logger))
		paymentHandler.RegisterRoutes(internal)
	}

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &E2ETestSuite{server: srv, client: client, db: db, redis: mr, crm: fakeCRM, provider: provider}
}

func (s *E2ETestSuite) makeRequest(t *testing.T, method, path string, body interface{}, token string) (*http.Response, *TestResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	target := path
	if !strings.HasPrefix(path, "http") {
		target = s.server.URL + path
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var parsed TestResponse
	if len(raw) > 0 && strings.Contains(res.Header.Get("Content-Type"), "json") {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Logf("Failed to parse response. Status: %d, Body: %s", res.StatusCode, raw)
		}
	}
	return res, &parsed
}

func logErrorResponse(t *testing.T, resp *TestResponse, context string) {
	if resp.Error != nil {
		t.Logf("%s - Error: [%s] %s", context, resp.Error.Code, resp.Error.Message)
		if resp.Error.Details != nil {
			t.Logf("  Details: %+v", resp.Error.Details)
		}
	}
}

func view(resp *TestResponse) map[string]interface{} {
	v, _ := resp.Data["view"].(map[string]interface{})
	return v
}

func notice(resp *TestResponse) string {
	n, _ := resp.Data["notice"].(map[string]interface{})
	msg, _ := n["message"].(string)
	return msg
}

func (s *E2ETestSuite) expectOK(t *testing.T, method, path string, body interface{}) *TestResponse {
	t.Helper()
	res, resp := s.makeRequest(t, method, path, body, "")
	if res.StatusCode != http.StatusOK {
		logErrorResponse(t, resp, method+" "+path)
	}
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.True(t, resp.Success)
	return resp
}

// bookToPayment drives a fresh guest up to the payment step with room a0R1
// for two nights.
func (s *E2ETestSuite) bookToPayment(t *testing.T) {
	t.Helper()
	checkIn := time.Now().AddDate(0, 0, 10)
	s.expectOK(t, http.MethodPost, "/api/v1/wizard/session", nil)
	s.expectOK(t, http.MethodPut, "/api/v1/wizard/dates", map[string]string{
		"checkIn":  checkIn.Format("2006-01-02"),
		"checkOut": checkIn.AddDate(0, 0, 2).Format("2006-01-02"),
	})

	resp := s.expectOK(t, http.MethodPost, "/api/v1/wizard/search", nil)
	require.Len(t, view(resp)["rooms"], 2)

	resp = s.expectOK(t, http.MethodPatch, "/api/v1/wizard/filters", map[string]interface{}{"roomType": "Suite"})
	require.Len(t, view(resp)["rooms"], 1)

	s.expectOK(t, http.MethodPost, "/api/v1/wizard/rooms/a0R1/select", nil)
	for _, f := range [][2]string{
		{"FirstName", "Ana"},
		{"LastName", "Cruz"},
		{"Email", "ana@example.com"},
		{"Phone", "09171234567"},
	} {
		s.expectOK(t, http.MethodPatch, "/api/v1/wizard/contact", map[string]string{"field": f[0], "value": f[1]})
	}
	resp = s.expectOK(t, http.MethodPost, "/api/v1/wizard/proceed", nil)
	require.Equal(t, true, view(resp)["isPayment"])
}

func (s *E2ETestSuite) draftKeys() []string {
	var out []string
	for _, k := range s.redis.Keys() {
		if strings.HasPrefix(k, "hotelwizard:session:") {
			out = append(out, k)
		}
	}
	return out
}

// =============================================================================
// Flow 1: card payment
// =============================================================================

func TestFlow1_CardPayment(t *testing.T) {
	suite := setupTestSuite(t)
	suite.bookToPayment(t)
	require.NotEmpty(t, suite.draftKeys(), "contact draft should be cached")

	for _, f := range [][2]string{
		{"cardName", "Ana Cruz"},
		{"cardNumber", "4111111111111111"},
		{"cardExpiry", "12/35"},
		{"cardCVV", "123"},
	} {
		suite.expectOK(t, http.MethodPatch, "/api/v1/wizard/card", map[string]string{"field": f[0], "value": f[1]})
	}

	resp := suite.expectOK(t, http.MethodPost, "/api/v1/wizard/payment", nil)
	assert.Equal(t, "Payment successful! Your Reservation ID is a1RES1", notice(resp))
	assert.Equal(t, true, view(resp)["completed"])
	assert.Equal(t, "RES-a1RES1", view(resp)["bookingNumber"])

	created := suite.crm.created()
	require.Len(t, created, 1)
	assert.Equal(t, "a0R1", created[0].RoomID)
	assert.Equal(t, "card", created[0].PaymentMethod)
	assert.Equal(t, "pi_card_1", created[0].PaymentReference)
	assert.InDelta(t, 200.0, created[0].AmountPaid, 0.001)
	assert.Empty(t, suite.draftKeys(), "drafts should be cleared after completion")

	t.Run("ledger entry", func(t *testing.T) {
		var attempt domain.PaymentAttempt
		require.NoError(t, suite.db.First(&attempt).Error)
		assert.Equal(t, domain.AttemptStatusPaid, attempt.Status)
		assert.Equal(t, "1111", attempt.CardLast4)
		assert.Equal(t, "200.00", attempt.Amount)

		res, _ := suite.makeRequest(t, http.MethodGet, "/api/v1/internal/payments/"+attempt.TempID, nil, "")
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

		res, body := suite.makeRequest(t, http.MethodGet, "/api/v1/internal/payments/"+attempt.TempID, nil, internalToken)
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "paid", body.Data["status"])
		assert.Equal(t, "a1RES1", body.Data["reservation_id"])
		assert.NotContains(t, body.Data, "guest_email")
	})

	t.Run("second submit is rejected", func(t *testing.T) {
		res, body := suite.makeRequest(t, http.MethodPost, "/api/v1/wizard/payment", nil, "")
		assert.Equal(t, http.StatusConflict, res.StatusCode)
		require.NotNil(t, body.Error)
		assert.Equal(t, "COMPLETED", body.Error.Code)
		assert.Len(t, suite.crm.created(), 1)
	})
}

// =============================================================================
// Flow 2: hosted checkout and return
// =============================================================================

func TestFlow2_RedirectPayment(t *testing.T) {
	suite := setupTestSuite(t)
	suite.bookToPayment(t)

	suite.expectOK(t, http.MethodPut, "/api/v1/wizard/payment-method", map[string]string{"method": "external_redirect"})
	resp := suite.expectOK(t, http.MethodPost, "/api/v1/wizard/payment", nil)
	assert.Equal(t, "https://checkout.test/cs_test_1", resp.Data["redirectUrl"])

	returnURL := suite.provider.successURL("cs_test_1")
	require.True(t, strings.HasPrefix(returnURL, suite.server.URL), returnURL)

	res, _ := suite.makeRequest(t, http.MethodGet, returnURL, nil, "")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, frontendURL, res.Header.Get("Location"))

	resp = suite.expectOK(t, http.MethodGet, "/api/v1/wizard", nil)
	assert.Equal(t, "Payment successful! Your reservation is confirmed.", notice(resp))
	assert.Equal(t, "a1RES1", view(resp)["reservationId"])

	created := suite.crm.created()
	require.Len(t, created, 1)
	assert.Equal(t, "external_redirect", created[0].PaymentMethod)
	assert.Equal(t, "pi_cs_test_1", created[0].PaymentReference)

	t.Run("replayed return does nothing", func(t *testing.T) {
		res, _ := suite.makeRequest(t, http.MethodGet, returnURL, nil, "")
		assert.Equal(t, http.StatusSeeOther, res.StatusCode)
		resp := suite.expectOK(t, http.MethodGet, "/api/v1/wizard", nil)
		assert.Empty(t, notice(resp))
		assert.Len(t, suite.crm.created(), 1)
	})
}

func TestFlow3_ReturnWithoutSessionCookie(t *testing.T) {
	suite := setupTestSuite(t)
	suite.bookToPayment(t)
	suite.expectOK(t, http.MethodPut, "/api/v1/wizard/payment-method", map[string]string{"method": "external_redirect"})
	suite.expectOK(t, http.MethodPost, "/api/v1/wizard/payment", nil)

	other := &http.Client{CheckRedirect: suite.client.CheckRedirect}
	res, err := other.Get(suite.provider.successURL("cs_test_1"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)

	// the signed state routes the return to the original session
	require.Len(t, suite.crm.created(), 1)
	resp := suite.expectOK(t, http.MethodGet, "/api/v1/wizard", nil)
	assert.Equal(t, true, view(resp)["completed"])
}

func TestFlow4_Validation(t *testing.T) {
	suite := setupTestSuite(t)
	suite.expectOK(t, http.MethodPost, "/api/v1/wizard/session", nil)

	t.Run("search without dates", func(t *testing.T) {
		res, body := suite.makeRequest(t, http.MethodPost, "/api/v1/wizard/search", nil, "")
		assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
		require.NotNil(t, body.Error)
		assert.Equal(t, "Please select both check-in and check-out dates", body.Error.Message)
	})

	t.Run("check-in in the past", func(t *testing.T) {
		past := time.Now().AddDate(0, 0, -3)
		suite.expectOK(t, http.MethodPut, "/api/v1/wizard/dates", map[string]string{
			"checkIn":  past.Format("2006-01-02"),
			"checkOut": past.AddDate(0, 0, 1).Format("2006-01-02"),
		})
		res, body := suite.makeRequest(t, http.MethodPost, "/api/v1/wizard/search", nil, "")
		assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
		require.NotNil(t, body.Error)
		assert.Equal(t, "Check-in date cannot be in the past", body.Error.Message)
	})

	t.Run("room types come from the CRM", func(t *testing.T) {
		resp := suite.expectOK(t, http.MethodGet, "/api/v1/wizard/room-types", nil)
		options, _ := resp.Data["options"].([]interface{})
		require.Len(t, options, 3)
		first, _ := options[0].(map[string]interface{})
		assert.Equal(t, "All Room Types", first["label"])
	})
}
