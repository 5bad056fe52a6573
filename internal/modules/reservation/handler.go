package reservation

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hotelwizard/internal/middleware"
	jwtsvc "hotelwizard/internal/pkg/jwt"
	"hotelwizard/internal/pkg/response"
	"hotelwizard/internal/pkg/validator"
	"hotelwizard/internal/realtime"
	"hotelwizard/internal/storage/cookiestore"
	"hotelwizard/internal/wizard"
)

type sessionStore interface {
	GetOrCreate(sessionID string) (*wizard.Wizard, bool)
}

type stateVerifier interface {
	ValidateToken(token string) (*jwtsvc.Claims, error)
}

type socketHub interface {
	ServeWS(conn *websocket.Conn, sessionID string, initial *realtime.Event)
}

type Config struct {
	// FrontendURL is where the guest lands after a provider return.
	FrontendURL    string
	Cookies        cookiestore.Options
	AllowedOrigins []string
}

type Handler struct {
	sessions sessionStore
	states   stateVerifier
	hub      socketHub
	cfg      Config
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// flashes hold the notice of a provider return until the guest's next
	// snapshot, since the return itself ends in a redirect.
	flashes sync.Map
}

func NewHandler(sessions sessionStore, states stateVerifier, hub socketHub, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		sessions: sessions,
		states:   states,
		hub:      hub,
		cfg:      cfg,
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// RegisterRoutes mounts the wizard under rg. The group must run the session
// middleware; paymentLimiter guards the routes that reach the provider.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, paymentLimiter gin.HandlerFunc) {
	rg.POST("/session", h.Mount)
	rg.GET("", h.GetSnapshot)
	rg.GET("/room-types", h.GetRoomTypes)
	rg.PUT("/dates", h.SetDates)
	rg.POST("/search", h.Search)
	rg.PATCH("/filters", h.SetFilters)
	rg.DELETE("/filters", h.ClearFilters)
	rg.POST("/rooms/:id/select", h.SelectRoom)
	rg.POST("/back", h.Back)
	rg.PATCH("/contact", h.MergeContact)
	rg.PATCH("/reservation", h.MergeReservation)
	rg.PATCH("/card", h.MergeCard)
	rg.POST("/proceed", h.Proceed)
	rg.PUT("/payment-method", h.SetPaymentMethod)
	rg.POST("/payment", paymentLimiter, h.Pay)
	rg.GET("/payment/return", paymentLimiter, h.PaymentReturn)
	rg.POST("/cancel", h.Cancel)
	rg.POST("/reset", h.Reset)
	rg.GET("/ws", h.Stream)
}

func sessionID(c *gin.Context) string {
	return c.GetString(middleware.SessionIDKey)
}

// requestContext binds the cookie mirror of this request to the context.
func (h *Handler) requestContext(c *gin.Context) context.Context {
	store := cookiestore.New(c.Writer, c.Request, h.cfg.Cookies)
	return wizard.WithCookieStore(c.Request.Context(), store)
}

// wizardFor returns the request session's wizard, mounting it on first use.
func (h *Handler) wizardFor(c *gin.Context, ctx context.Context) *wizard.Wizard {
	return h.wizardBySession(ctx, sessionID(c))
}

func (h *Handler) wizardBySession(ctx context.Context, sid string) *wizard.Wizard {
	w, created := h.sessions.GetOrCreate(sid)
	if created {
		if err := w.Mount(ctx); err != nil {
			h.logger.Warn("wizard mount failed", zap.String("session_id", sid), zap.Error(err))
		}
	}
	return w
}

func (h *Handler) respond(c *gin.Context, status int, w *wizard.Wizard, notice wizard.Notice) {
	resp := WizardResponse{View: w.Snapshot()}
	if !notice.IsZero() {
		resp.Notice = &notice
	}
	response.Success(c, status, resp)
}

// Mount godoc
// @Summary      Start or resume a wizard session
// @Description  Creates the session on first call, restores saved drafts and loads room type options
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Router       /wizard/session [post]
func (h *Handler) Mount(c *gin.Context) {
	ctx := h.requestContext(c)
	w := h.wizardFor(c, ctx)
	if err := w.Mount(ctx); err != nil {
		h.logger.Warn("wizard mount failed", zap.String("session_id", sessionID(c)), zap.Error(err))
	}
	h.respond(c, http.StatusOK, w, h.takeFlash(sessionID(c)))
}

// GetSnapshot godoc
// @Summary      Current wizard state
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Router       /wizard [get]
func (h *Handler) GetSnapshot(c *gin.Context) {
	w := h.wizardFor(c, h.requestContext(c))
	h.respond(c, http.StatusOK, w, h.takeFlash(sessionID(c)))
}

// GetRoomTypes godoc
// @Summary      Room type options
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} RoomTypesResponse
// @Router       /wizard/room-types [get]
func (h *Handler) GetRoomTypes(c *gin.Context) {
	w := h.wizardFor(c, h.requestContext(c))
	response.Success(c, http.StatusOK, RoomTypesResponse{Options: w.Snapshot().RoomTypeOptions})
}

// SetDates godoc
// @Summary      Set stay dates
// @Description  Empty values clear the date. A check-out not after the new check-in is cleared.
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body body DatesRequest true "Dates (YYYY-MM-DD)"
// @Success      200 {object} WizardResponse
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /wizard/dates [put]
func (h *Handler) SetDates(c *gin.Context) {
	var req DatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid dates", validator.Details(err))
		return
	}
	w := h.wizardFor(c, h.requestContext(c))
	if err := w.SetDates(req.CheckIn, req.CheckOut); err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// Search godoc
// @Summary      Search available rooms
// @Description  Validates the dates, queries availability and moves to room selection when rooms are found
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /wizard/search [post]
func (h *Handler) Search(c *gin.Context) {
	w := h.wizardFor(c, h.requestContext(c))
	notice, err := w.Search(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, w, notice)
}

// SetFilters godoc
// @Summary      Update room filters
// @Description  Only fields present in the body change
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body body FilterRequest true "Filter fields"
// @Success      200 {object} WizardResponse
// @Failure      400 {object} ErrorResponse
// @Router       /wizard/filters [patch]
func (h *Handler) SetFilters(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid filter payload")
		return
	}
	w := h.wizardFor(c, h.requestContext(c))
	if req.Floor != nil {
		w.SetFloorFilter(*req.Floor)
	}
	if req.RoomNumber != nil {
		w.SetRoomNumberFilter(*req.RoomNumber)
	}
	if req.RoomType != nil {
		w.SetRoomTypeFilter(*req.RoomType)
	}
	if req.Features != nil {
		w.SetFeatureFilter(*req.Features)
	}
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// ClearFilters godoc
// @Summary      Clear room filters
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Router       /wizard/filters [delete]
func (h *Handler) ClearFilters(c *gin.Context) {
	w := h.wizardFor(c, h.requestContext(c))
	w.ClearFilters()
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// SelectRoom godoc
// @Summary      Select a room
// @Tags         Wizard
// @Produce      json
// @Param        id path string true "Room id"
// @Success      200 {object} WizardResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /wizard/rooms/{id}/select [post]
func (h *Handler) SelectRoom(c *gin.Context) {
	w := h.wizardFor(c, h.requestContext(c))
	if err := w.SelectRoom(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// Back godoc
// @Summary      Go back one step
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Failure      409 {object} ErrorResponse
// @Router       /wizard/back [post]
func (h *Handler) Back(c *gin.Context) {
	w := h.wizardFor(c, h.requestContext(c))
	if err := w.Retreat(); err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// MergeContact godoc
// @Summary      Update a contact field
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body body FieldRequest true "FirstName, LastName, Email or Phone"
// @Success      200 {object} WizardResponse
// @Failure      400 {object} ErrorResponse
// @Router       /wizard/contact [patch]
func (h *Handler) MergeContact(c *gin.Context) {
	h.mergeField(c, wizard.DraftContact)
}

// MergeReservation godoc
// @Summary      Update a reservation field
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body body FieldRequest true "Special_Requests"
// @Success      200 {object} WizardResponse
// @Failure      400 {object} ErrorResponse
// @Router       /wizard/reservation [patch]
func (h *Handler) MergeReservation(c *gin.Context) {
	h.mergeField(c, wizard.DraftReservation)
}

// MergeCard godoc
// @Summary      Update a card field
// @Description  The value is formatted as typed. Card data is never stored.
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body body FieldRequest true "cardName, cardNumber, cardExpiry or cardCVV"
// @Success      200 {object} WizardResponse
// @Failure      400 {object} ErrorResponse
// @Router       /wizard/card [patch]
func (h *Handler) MergeCard(c *gin.Context) {
	h.mergeField(c, wizard.DraftCard)
}

func (h *Handler) mergeField(c *gin.Context, kind wizard.DraftKind) {
	var req FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid field update", validator.Details(err))
		return
	}
	ctx := h.requestContext(c)
	w := h.wizardFor(c, ctx)
	if err := w.MergeField(ctx, wizard.FieldChange{Kind: kind, Field: req.Field, Value: req.Value}); err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// Proceed godoc
// @Summary      Continue to payment
// @Description  Validates the reservation form and saves the contact draft
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /wizard/proceed [post]
func (h *Handler) Proceed(c *gin.Context) {
	ctx := h.requestContext(c)
	w := h.wizardFor(c, ctx)
	if err := w.ProceedToPayment(ctx); err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// SetPaymentMethod godoc
// @Summary      Choose payment method
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body body PaymentMethodRequest true "Payment method"
// @Success      200 {object} WizardResponse
// @Failure      400 {object} ErrorResponse
// @Router       /wizard/payment-method [put]
func (h *Handler) SetPaymentMethod(c *gin.Context) {
	var req PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payment method", validator.Details(err))
		return
	}
	w := h.wizardFor(c, h.requestContext(c))
	if err := w.SetPaymentMethod(wizard.PaymentMethod(req.Method)); err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// Pay godoc
// @Summary      Pay for the reservation
// @Description  For external_redirect the response carries the provider URL; for card the charge completes in the call
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Failure      402 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /wizard/payment [post]
func (h *Handler) Pay(c *gin.Context) {
	ctx := h.requestContext(c)
	w := h.wizardFor(c, ctx)
	res, err := w.Pay(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := WizardResponse{View: w.Snapshot(), RedirectURL: res.RedirectURL}
	if !res.Notice.IsZero() {
		resp.Notice = &res.Notice
	}
	response.Success(c, http.StatusOK, resp)
}

// PaymentReturn godoc
// @Summary      Provider return URL
// @Description  Completes a redirect payment and sends the guest back to the frontend without the provider parameters
// @Tags         Wizard
// @Param        status query string true "success or cancel"
// @Param        tempId query string true "Payment temp id"
// @Param        state query string true "Signed return state"
// @Param        token query string false "Provider checkout token"
// @Success      303
// @Router       /wizard/payment/return [get]
func (h *Handler) PaymentReturn(c *gin.Context) {
	params := wizard.ReturnParams{
		Status: c.Query("status"),
		Token:  c.Query("token"),
		TempID: c.Query("tempId"),
	}
	sid := sessionID(c)
	if state := c.Query("state"); state != "" {
		claims, err := h.states.ValidateToken(state)
		if err != nil || claims.TempID != params.TempID {
			h.logger.Warn("payment return with invalid state", zap.String("temp_id", params.TempID))
			h.setFlash(sid, wizard.Notice{Kind: wizard.NoticeInfo, Message: "This payment link is no longer active."})
			c.Redirect(http.StatusSeeOther, h.cfg.FrontendURL)
			return
		}
		sid = claims.SessionID
	}

	if !params.Empty() {
		ctx := h.requestContext(c)
		w := h.wizardBySession(ctx, sid)
		notice, err := w.CompleteFromReturn(ctx, params)
		if err != nil && !errors.Is(err, wizard.ErrSuperseded) {
			h.logger.Warn("payment return failed", zap.String("session_id", sid), zap.String("temp_id", params.TempID), zap.Error(err))
			notice = noticeOf(err)
		}
		if !notice.IsZero() {
			h.setFlash(sid, notice)
		}
	}
	c.Redirect(http.StatusSeeOther, h.cfg.FrontendURL)
}

// Cancel godoc
// @Summary      Cancel the reservation process
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Router       /wizard/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	ctx := h.requestContext(c)
	w := h.wizardFor(c, ctx)
	h.respond(c, http.StatusOK, w, w.Cancel(ctx))
}

// Reset godoc
// @Summary      Start over
// @Tags         Wizard
// @Produce      json
// @Success      200 {object} WizardResponse
// @Router       /wizard/reset [post]
func (h *Handler) Reset(c *gin.Context) {
	ctx := h.requestContext(c)
	w := h.wizardFor(c, ctx)
	w.Reset(ctx)
	h.respond(c, http.StatusOK, w, wizard.Notice{})
}

// Stream godoc
// @Summary      Wizard state stream
// @Description  WebSocket pushing a snapshot event after every state change
// @Tags         Wizard
// @Router       /wizard/ws [get]
func (h *Handler) Stream(c *gin.Context) {
	w := h.wizardFor(c, h.requestContext(c))
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Info("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.ServeWS(conn, sessionID(c), &realtime.Event{Type: realtime.EventSnapshot, Payload: w.Snapshot()})
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(h.cfg.FrontendURL); err == nil && u.Scheme+"://"+u.Host == origin {
		return true
	}
	for _, o := range h.cfg.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func (h *Handler) setFlash(sid string, n wizard.Notice) {
	if sid == "" {
		return
	}
	h.flashes.Store(sid, n)
}

func (h *Handler) takeFlash(sid string) wizard.Notice {
	v, ok := h.flashes.LoadAndDelete(sid)
	if !ok {
		return wizard.Notice{}
	}
	return v.(wizard.Notice)
}
