package domain

import (
	"fmt"
	"time"
)

// Tokyo — часовой пояс, в котором считаются даты мероприятий. В Японии нет перехода на летнее время.
var Tokyo = time.FixedZone("Asia/Tokyo", 9*60*60)

// OrderStatus — статус заказа.
type OrderStatus string

const (
	OrderStatusDelivered OrderStatus = "OrderDelivered"
	OrderStatusReturned  OrderStatus = "OrderReturned"
)

// PriceCurrencyJPY — единственная валюта заказов.
const PriceCurrencyJPY = "JPY"

// OrderNumberPrefix — префикс номера заказа.
const OrderNumberPrefix = "TT"

// PaymentNoScope возвращает дневной ключ нумерации (YYYYMMDD по Токио).
func PaymentNoScope(eventStart time.Time) string {
	return eventStart.In(Tokyo).Format("20060102")
}

// OrderNumber формирует номер заказа: TT-<YYMMDD>-<paymentNo>.
func OrderNumber(eventStart time.Time, paymentNo string) string {
	return fmt.Sprintf("%s-%s-%s", OrderNumberPrefix, eventStart.In(Tokyo).Format("060102"), paymentNo)
}

// ConfirmationNumber формирует номер подтверждения: <YYYYMMDD><paymentNo>.
func ConfirmationNumber(eventStart time.Time, paymentNo string) string {
	return PaymentNoScope(eventStart) + paymentNo
}

// FormatPaymentNo переводит значение счётчика в номер оплаты.
func FormatPaymentNo(seq int64) string {
	return fmt.Sprintf("%06d", seq)
}

// Customer — снимок покупателя в заказе.
type Customer struct {
	TypeOf     string          `json:"typeOf"`
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	Identifier []PropertyValue `json:"identifier"`
	MemberOf   *Membership     `json:"memberOf,omitempty"`
	CustomerProfile
}

// OrderSeller — продавец в заказе.
type OrderSeller struct {
	TypeOf string `json:"typeOf"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

// OfferSeller — продавец в предложении.
type OfferSeller struct {
	TypeOf string `json:"typeOf"`
	Name   string `json:"name"`
}

// AcceptedOffer — принятое предложение, оборачивает одно подтверждённое резервирование.
type AcceptedOffer struct {
	TypeOf        string      `json:"typeOf"`
	ItemOffered   Reservation `json:"itemOffered"`
	Price         int64       `json:"price"`
	PriceCurrency string      `json:"priceCurrency"`
	Seller        OfferSeller `json:"seller"`
}

// OrderPaymentMethod — способ оплаты, использованный в заказе.
type OrderPaymentMethod struct {
	TypeOf             PaymentMethodType `json:"typeOf"`
	AccountID          string            `json:"accountId"`
	Name               string            `json:"name"`
	PaymentMethodID    string            `json:"paymentMethodId"`
	TotalPaymentDue    *MonetaryAmount   `json:"totalPaymentDue,omitempty"`
	AdditionalProperty []PropertyValue   `json:"additionalProperty"`
}

// Discount — скидка (не используется, список всегда пустой).
type Discount struct {
	Name             string `json:"name"`
	Discount         int64  `json:"discount"`
	DiscountCode     string `json:"discountCode"`
	DiscountCurrency string `json:"discountCurrency"`
}

// Order — неизменяемый результат подтверждения транзакции.
type Order struct {
	Project            Project              `json:"project"`
	TypeOf             string               `json:"typeOf"`
	Seller             OrderSeller          `json:"seller"`
	Customer           Customer             `json:"customer"`
	AcceptedOffers     []AcceptedOffer      `json:"acceptedOffers"`
	ConfirmationNumber string               `json:"confirmationNumber"`
	OrderNumber        string               `json:"orderNumber"`
	Price              int64                `json:"price"`
	PriceCurrency      string               `json:"priceCurrency"`
	PaymentMethods     []OrderPaymentMethod `json:"paymentMethods"`
	Discounts          []Discount           `json:"discounts"`
	URL                string               `json:"url"`
	OrderStatus        OrderStatus          `json:"orderStatus"`
	OrderDate          time.Time            `json:"orderDate"`
	IsGift             bool                 `json:"isGift"`
}

// ReservationIDs возвращает идентификаторы резервирований заказа.
func (o Order) ReservationIDs() []string {
	ids := make([]string, 0, len(o.AcceptedOffers))
	for _, offer := range o.AcceptedOffers {
		ids = append(ids, offer.ItemOffered.ID)
	}
	return ids
}
