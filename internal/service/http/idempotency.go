package httpsvc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// reply — ответ операции API.
type reply struct {
	status int
	body   any
	// transactionID — транзакция, начатая запросом; для confirm берётся из пути.
	transactionID string
}

// endpoint выполняет операцию над уже прочитанным телом.
type endpoint func(c *gin.Context, body []byte) (reply, error)

// withIdempotency хранит итог операции под Idempotency-Key агента и отдаёт его на повторы.
// Ответы 5xx не сохраняются: ключ освобождается, и клиент может повторить запрос.
func (h *Handler) withIdempotency(operation domain.IdempotencyOperation, run endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c)
		if err != nil {
			abortWithStatus(c, http.StatusBadRequest, "Argument", "cannot read request body")
			return
		}

		key := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
		if key == "" || h.idempotency == nil {
			h.respond(c, run, body)
			return
		}

		scope := domain.IdempotencyScope{AgentID: agentFrom(c).ID, Operation: operation, Key: key}
		logger := h.logger.WithFields(log.Fields{
			"idempotency_scope": scope.String(),
			"request_id":        c.GetString(ctxKeyRequestID),
		})

		record, err := h.idempotency.Reserve(c.Request.Context(), domain.IdempotencyRecord{
			Scope:         scope,
			RequestHash:   requestHash(c.Request.URL.Path, body),
			TransactionID: c.Param("transactionId"),
			ExpiresAt:     h.now().Add(h.idempotencyTTL),
		})
		if err != nil {
			h.replay(c, logger, record, err)
			return
		}

		result, runErr := run(c, body)
		if runErr != nil {
			status, errBody := errorResponse(runErr)
			if status >= http.StatusInternalServerError {
				logger.WithError(runErr).Error("request failed")
				if err := h.idempotency.Release(c.Request.Context(), scope); err != nil {
					logger.WithError(err).Warn("failed to release idempotency key")
				}
				c.JSON(status, errBody)
				return
			}
			result = reply{status: status, body: errBody}
		}

		h.storeOutcome(c, logger, scope, result)
		c.JSON(result.status, result.body)
	}
}

func (h *Handler) replay(c *gin.Context, logger *log.Entry, record domain.IdempotencyRecord, reserveErr error) {
	switch {
	case errors.Is(reserveErr, domain.ErrIdempotencyHashMismatch):
		abortWithStatus(c, http.StatusConflict, "AlreadyInUse", "idempotency key is already used with different request payload")
	case errors.Is(reserveErr, domain.ErrIdempotencyKeyAlreadyExists):
		if !record.Replayable() {
			abortWithStatus(c, http.StatusConflict, "AlreadyInUse", "request with the same idempotency key is already processing")
			return
		}
		logger.WithField("transaction_id", record.TransactionID).Debug("replaying stored response")
		c.Header(headerIdempotentReplayed, "true")
		c.Data(record.HTTPStatus, "application/json; charset=utf-8", record.ResponseBody)
	case errors.Is(reserveErr, domain.ErrIdempotencyScopeInvalid):
		abortWithStatus(c, http.StatusBadRequest, "Argument", reserveErr.Error())
	default:
		logger.WithError(reserveErr).Warn("failed to reserve idempotency key")
		abortWithStatus(c, http.StatusInternalServerError, "ServiceUnavailable", "failed to initialize idempotency request")
	}
}

func (h *Handler) storeOutcome(c *gin.Context, logger *log.Entry, scope domain.IdempotencyScope, result reply) {
	data, err := json.Marshal(result.body)
	if err != nil {
		logger.WithError(err).Warn("failed to encode idempotent response")
		if err := h.idempotency.Release(c.Request.Context(), scope); err != nil {
			logger.WithError(err).Warn("failed to release idempotency key")
		}
		return
	}

	outcome := domain.IdempotencyOutcome{
		TransactionID: result.transactionID,
		HTTPStatus:    result.status,
		ResponseBody:  data,
	}
	if err := h.idempotency.Complete(c.Request.Context(), scope, outcome); err != nil {
		logger.WithError(err).Warn("failed to store idempotent response")
	}
}

func (h *Handler) respond(c *gin.Context, run endpoint, body []byte) {
	result, err := run(c, body)
	if err != nil {
		status, errBody := errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).WithField("request_id", c.GetString(ctxKeyRequestID)).Error("request failed")
		}
		c.JSON(status, errBody)
		return
	}
	c.JSON(result.status, result.body)
}

// requestHash связывает ключ с путём и телом; агент и операция уже входят в IdempotencyScope.
func requestHash(path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
