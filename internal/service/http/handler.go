// Package httpsvc — публичный HTTP API транзакции оформления заказа.
package httpsvc

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
	"github.com/vladislavdragonenkov/placeorder/internal/service/placeorder"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	maxBodyBytes          = 1 << 20
)

// Handler обслуживает маршруты /transactions/placeOrder.
type Handler struct {
	service        *placeorder.Service
	idempotency    domain.IdempotencyRepository
	idempotencyTTL time.Duration
	logger         *log.Entry
	now            func() time.Time
}

// Option настраивает Handler.
type Option func(*Handler)

// WithIdempotency включает обработку заголовка Idempotency-Key.
func WithIdempotency(repo domain.IdempotencyRepository, ttl time.Duration) Option {
	return func(h *Handler) {
		h.idempotency = repo
		if ttl > 0 {
			h.idempotencyTTL = ttl
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler создаёт обработчик HTTP API.
func NewHandler(service *placeorder.Service, opts ...Option) *Handler {
	h := &Handler{
		service:        service,
		idempotencyTTL: defaultIdempotencyTTL,
		logger:         log.WithField("component", "http-api"),
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter собирает gin-роутер с middleware и маршрутами API.
func NewRouter(h *Handler, accessTokenSecret string) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(h.logger))

	group := router.Group("/transactions/placeOrder", AgentAuth(accessTokenSecret))
	group.POST("/start", h.withIdempotency(domain.IdempotencyOperationStart, h.start))
	group.PUT("/:transactionId/customerContact", h.setCustomerContact)
	group.POST("/:transactionId/confirm", h.withIdempotency(domain.IdempotencyOperationConfirm, h.confirm))
	group.GET("/:transactionId/timeline", h.timeline)

	return router
}

// StartRequest — тело запроса старта транзакции.
type StartRequest struct {
	Expires          time.Time `json:"expires" binding:"required"`
	SellerIdentifier string    `json:"sellerIdentifier" binding:"required"`
	PassportToken    string    `json:"passportToken,omitempty"`
}

// CustomerContactRequest — контакты покупателя.
type CustomerContactRequest struct {
	FamilyName string `json:"familyName" binding:"required"`
	GivenName  string `json:"givenName" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Telephone  string `json:"telephone" binding:"required"`
	Age        string `json:"age,omitempty"`
	Address    string `json:"address,omitempty"`
	Gender     string `json:"gender,omitempty"`
}

// ConfirmRequest — тело запроса подтверждения.
type ConfirmRequest struct {
	PaymentMethod    domain.PaymentMethodType       `json:"paymentMethod" binding:"required,oneof=Cash CreditCard Account MovieTicket EMoney Others"`
	PotentialActions *domain.PotentialActionsParams `json:"potentialActions,omitempty"`
}

func (h *Handler) start(c *gin.Context, body []byte) (reply, error) {
	var req StartRequest
	if err := bindJSON(body, &req); err != nil {
		return reply{}, err
	}

	tx, err := h.service.Start(c.Request.Context(), placeorder.StartParams{
		Expires:          req.Expires,
		Agent:            agentFrom(c),
		SellerIdentifier: req.SellerIdentifier,
		ClientUser:       clientUserFrom(c),
		PassportToken:    req.PassportToken,
	})
	if err != nil {
		return reply{}, err
	}
	return reply{status: http.StatusCreated, body: tx, transactionID: tx.ID}, nil
}

func (h *Handler) setCustomerContact(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, "Argument", "cannot read request body")
		return
	}
	h.respond(c, func(c *gin.Context, body []byte) (reply, error) {
		var req CustomerContactRequest
		if err := bindJSON(body, &req); err != nil {
			return reply{}, err
		}
		profile, err := h.service.SetCustomerContact(c.Request.Context(), agentFrom(c).ID, c.Param("transactionId"), domain.CustomerProfile{
			FamilyName: req.FamilyName,
			GivenName:  req.GivenName,
			Email:      req.Email,
			Telephone:  req.Telephone,
			Age:        req.Age,
			Address:    req.Address,
			Gender:     req.Gender,
		})
		if err != nil {
			return reply{}, err
		}
		return reply{status: http.StatusCreated, body: profile}, nil
	}, body)
}

func (h *Handler) confirm(c *gin.Context, body []byte) (reply, error) {
	var req ConfirmRequest
	if err := bindJSON(body, &req); err != nil {
		return reply{}, err
	}

	result, err := h.service.Confirm(c.Request.Context(), placeorder.ConfirmParams{
		AgentID:          agentFrom(c).ID,
		TransactionID:    c.Param("transactionId"),
		PaymentMethod:    req.PaymentMethod,
		PotentialActions: req.PotentialActions,
	})
	if err != nil {
		return reply{}, err
	}
	return reply{status: http.StatusCreated, body: result}, nil
}

func (h *Handler) timeline(c *gin.Context) {
	h.respond(c, func(c *gin.Context, _ []byte) (reply, error) {
		events, err := h.service.Timeline(c.Request.Context(), agentFrom(c).ID, c.Param("transactionId"))
		if err != nil {
			return reply{}, err
		}
		return reply{status: http.StatusOK, body: events}, nil
	}, nil)
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
