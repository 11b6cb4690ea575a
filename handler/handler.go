package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	models "storefront/model"
	"storefront/obs"
	"storefront/service"
	"storefront/store"
	"storefront/wallet"
)

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc service.ServiceInterface
	ws  http.Handler
}

// NewHandler returns a Handler instance. ws serves /ws and may be nil.
func NewHandler(s service.ServiceInterface, ws http.Handler) *Handler {
	return &Handler{svc: s, ws: ws}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Products
	r.HandleFunc("/products", h.CreateProduct).Methods("POST")
	r.HandleFunc("/products/list", h.ListProducts).Methods("GET")
	r.HandleFunc("/products/categories", h.Categories).Methods("GET")
	r.HandleFunc("/products/{id:[0-9]+}", h.UpdateProduct).Methods("PATCH")
	r.HandleFunc("/products/{id:[0-9]+}", h.DeleteProduct).Methods("DELETE")

	// Cart
	r.HandleFunc("/cart/add", h.AddToCart).Methods("POST")
	r.HandleFunc("/cart/quantity", h.SetCartQuantity).Methods("POST")
	r.HandleFunc("/cart/list", h.ListCart).Methods("GET")

	// Checkout and ledger
	r.HandleFunc("/checkout/order", h.Checkout).Methods("POST")
	r.HandleFunc("/orders/list", h.ListOrders).Methods("GET")

	// Wallet and session
	r.HandleFunc("/wallet", h.WalletStatus).Methods("GET")
	r.HandleFunc("/wallet/connect", h.ConnectWallet).Methods("POST")
	r.HandleFunc("/wallet/disconnect", h.DisconnectWallet).Methods("POST")
	r.HandleFunc("/session/logout", h.Logout).Methods("POST")

	// Profiles and dashboards
	r.HandleFunc("/profiles/{role}", h.GetProfile).Methods("GET")
	r.HandleFunc("/profiles/{role}", h.UpdateProfile).Methods("PATCH")
	r.HandleFunc("/dashboard/{role}", h.Dashboard).Methods("GET")

	r.HandleFunc("/healthz", h.Health).Methods("GET")
	if h.ws != nil {
		r.Handle("/ws", h.ws).Methods("GET")
	}
}

// NewRouter builds the mux router with request id and logging middleware.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	r.Use(WithRequestID, WithLogging)
	return r
}

// --- request / response shapes ---
type createProductReq struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

type cartReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity,omitempty"` // only for /cart/quantity
}

type connectReq struct {
	Role string `json:"role"`
}

type shortfall struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type jsonError struct {
	Error     string     `json:"error"`
	Details   string     `json:"details,omitempty"`
	Shortfall *shortfall `json:"shortfall,omitempty"`
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, jsonError{Error: kind, Details: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, service.KindValidation.String(), msg)
}

// statusOf maps err to an HTTP status and an error code.
func statusOf(err error) (int, string) {
	kind := service.KindOf(err)
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest, kind.String()
	case service.KindPrecondition:
		return http.StatusPreconditionFailed, kind.String()
	case service.KindStock, service.KindConflict:
		return http.StatusConflict, kind.String()
	case service.KindNotFound:
		return http.StatusNotFound, kind.String()
	case service.KindExternal:
		switch {
		case errors.Is(err, wallet.ErrExtensionNotFound):
			return http.StatusServiceUnavailable, "extension_not_found"
		case errors.Is(err, wallet.ErrUserRejected):
			return http.StatusUnprocessableEntity, "user_rejected"
		default:
			return http.StatusBadGateway, "submission_failed"
		}
	default:
		return http.StatusInternalServerError, service.KindInternal.String()
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := statusOf(err)
	body := jsonError{Error: kind, Details: err.Error()}
	var se *store.InsufficientStockError
	if errors.As(err, &se) {
		body.Shortfall = &shortfall{ProductID: se.ProductID, Name: se.Name, Requested: se.Requested, Available: se.Available}
	}
	if code >= http.StatusInternalServerError {
		obs.Logger.Error("request_failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFromContext(r.Context()))
	}
	writeJSON(w, code, body)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func pathRole(r *http.Request) (models.Role, bool) {
	return models.ParseRole(mux.Vars(r)["role"])
}

// --- Handler ---

// CreateProduct handles POST /products
// body: { "name": "...", "category": "...", "price": "45.00", "stock": 10 }
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), models.ProductInput{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Stock:    req.Stock,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListProducts handles GET /products/list?category=...&q=...
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ps, err := h.svc.ListProducts(r.Context(), models.ProductFilter{Category: q.Get("category"), Search: q.Get("q")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// Categories handles GET /products/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// UpdateProduct handles PATCH /products/{id}; absent fields are left as they are.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	var patch models.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid json")
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddToCart handles POST /cart/add
// body: { "product_id": 1 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.ProductID <= 0 {
		badRequest(w, "product_id is required")
		return
	}
	line, err := h.svc.AddToCart(r.Context(), req.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// SetCartQuantity handles POST /cart/quantity
// body: { "product_id": 1, "quantity": 3 }; quantity <= 0 removes the line.
func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.ProductID <= 0 {
		badRequest(w, "product_id is required")
		return
	}
	if err := h.svc.SetCartQuantity(r.Context(), req.ProductID, req.Quantity); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ListCart(w, r)
}

// ListCart handles GET /cart/list
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCart(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Checkout handles POST /checkout/order
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ord, err := h.svc.Checkout(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ord)
}

// ListOrders handles GET /orders/list, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) WalletStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Wallet())
}

// ConnectWallet handles POST /wallet/connect
// body: { "role": "customer" }; the role defaults to customer.
func (h *Handler) ConnectWallet(w http.ResponseWriter, r *http.Request) {
	req := connectReq{Role: string(models.RoleCustomer)}
	// an empty body, chunked or not, keeps the default
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid json")
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		badRequest(w, "unknown role "+strconv.Quote(req.Role))
		return
	}
	sess, err := h.svc.ConnectWallet(r.Context(), role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) DisconnectWallet(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DisconnectWallet(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Wallet())
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	role, ok := pathRole(r)
	if !ok {
		badRequest(w, "unknown role")
		return
	}
	p, err := h.svc.Profile(r.Context(), role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PATCH /profiles/{role}
// body: { "name": "...", "email": "..." }
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	role, ok := pathRole(r)
	if !ok {
		badRequest(w, "unknown role")
		return
	}
	var patch models.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid json")
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), role, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Dashboard handles GET /dashboard/{role}
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	role, ok := pathRole(r)
	if !ok {
		badRequest(w, "unknown role")
		return
	}
	var (
		v   interface{}
		err error
	)
	if role == models.RoleOwner {
		v, err = h.svc.OwnerDashboard(r.Context())
	} else {
		v, err = h.svc.CustomerDashboard(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "checkout": h.svc.CheckoutState().String()})
}
