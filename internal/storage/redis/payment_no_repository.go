package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const paymentNoKeyPrefix = "placeorder:paymentNo:"

// Счётчик живёт до конца дня мероприятия плюс запас; после мероприятия номера больше не выдаются.
const paymentNoRetention = 7 * 24 * time.Hour

// incrWithExpire атомарно увеличивает счётчик и при первом обращении задаёт срок жизни ключа.
var incrWithExpire = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('EXPIREAT', KEYS[1], ARGV[1])
end
return n
`)

// PaymentNoRepository выдаёт номера оплаты атомарным INCR по ключу дня.
type PaymentNoRepository struct {
	client goredis.Scripter
}

var _ domain.PaymentNoRepository = (*PaymentNoRepository)(nil)

// NewPaymentNoRepository создаёт счётчик номеров оплаты.
func NewPaymentNoRepository(client goredis.Scripter) *PaymentNoRepository {
	return &PaymentNoRepository{client: client}
}

// Publish выдаёт следующий номер для scope (YYYYMMDD).
func (r *PaymentNoRepository) Publish(ctx context.Context, scope string) (string, error) {
	day, err := time.ParseInLocation("20060102", scope, domain.Tokyo)
	if err != nil {
		return "", fmt.Errorf("parse payment no scope %q: %w", scope, err)
	}
	expireAt := day.Add(24 * time.Hour).Add(paymentNoRetention)

	seq, err := incrWithExpire.Run(ctx, r.client, []string{paymentNoKeyPrefix + scope}, expireAt.Unix()).Int64()
	if err != nil {
		return "", fmt.Errorf("incr payment no: %w", err)
	}
	return domain.FormatPaymentNo(seq), nil
}
