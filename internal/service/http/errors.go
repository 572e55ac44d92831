package httpsvc

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// ErrorBody — тело ответа с ошибкой.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail описывает вид ошибки и поля, которые её вызвали.
type ErrorDetail struct {
	Kind    string   `json:"kind"`
	Entity  string   `json:"entity,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	Message string   `json:"message"`
}

// errorResponse переводит ошибку ядра в HTTP-статус и тело.
func errorResponse(err error) (int, ErrorBody) {
	detail := ErrorDetail{Message: err.Error()}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		detail.Entity = domainErr.Entity
		detail.Fields = domainErr.Fields
		detail.Message = domainErr.Message
	}

	switch {
	case errors.Is(err, domain.ErrArgument):
		detail.Kind = "Argument"
		return http.StatusBadRequest, ErrorBody{Error: detail}
	case errors.Is(err, domain.ErrForbidden):
		detail.Kind = "Forbidden"
		return http.StatusForbidden, ErrorBody{Error: detail}
	case errors.Is(err, domain.ErrNotFound):
		detail.Kind = "NotFound"
		return http.StatusNotFound, ErrorBody{Error: detail}
	case errors.Is(err, domain.ErrAlreadyInUse):
		detail.Kind = "AlreadyInUse"
		return http.StatusConflict, ErrorBody{Error: detail}
	default:
		// Внутренние ошибки не раскрываются клиенту.
		return http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
			Kind:    "ServiceUnavailable",
			Message: "internal error",
		}}
	}
}

func abortWithStatus(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}})
}
