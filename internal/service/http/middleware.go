package httpsvc

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const (
	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"

	headerIdempotentReplayed = "Idempotent-Replayed"

	ctxKeyRequestID = "request_id"
	ctxKeyAgent     = "agent"
	ctxKeyClient    = "client_user"
)

// AccessClaims — содержимое access-токена агента.
type AccessClaims struct {
	ClientID string `json:"client_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// RequestID пробрасывает или генерирует идентификатор запроса.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, requestID)
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Next()
	}
}

// AccessLog пишет строку лога на каждый запрос.
func AccessLog(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		logger.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(started).String(),
			"request_id": c.GetString(ctxKeyRequestID),
		}).Info("http request")
	}
}

// AgentAuth проверяет bearer-токен и кладёт агента и клиента в контекст запроса.
func AgentAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" || len(key) == 0 {
			abortWithStatus(c, http.StatusUnauthorized, "Unauthorized", "unauthorized")
			return
		}

		claims := &AccessClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !parsed.Valid || claims.Subject == "" {
			abortWithStatus(c, http.StatusUnauthorized, "Unauthorized", "unauthorized")
			return
		}

		agent := domain.Agent{TypeOf: "Person", ID: claims.Subject}
		if claims.Issuer != "" {
			agent.Identifier = []domain.PropertyValue{{Name: "tokenIssuer", Value: claims.Issuer}}
		}
		if claims.Username != "" {
			agent.MemberOf = &domain.Membership{
				TypeOf:           "ProgramMembership",
				MembershipNumber: claims.Username,
			}
		}

		c.Set(ctxKeyAgent, agent)
		c.Set(ctxKeyClient, domain.ClientUser{
			ClientID: claims.ClientID,
			Sub:      claims.Subject,
			Username: claims.Username,
		})
		c.Next()
	}
}

// IssueAccessToken подписывает access-токен агента.
func IssueAccessToken(secret string, claims AccessClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func agentFrom(c *gin.Context) domain.Agent {
	agent, _ := c.MustGet(ctxKeyAgent).(domain.Agent)
	return agent
}

func clientUserFrom(c *gin.Context) domain.ClientUser {
	client, _ := c.MustGet(ctxKeyClient).(domain.ClientUser)
	return client
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
