package domain

import "time"

// OrderReference — краткая ссылка на заказ для отложенных действий.
type OrderReference struct {
	TypeOf             string      `json:"typeOf"`
	Seller             OrderSeller `json:"seller"`
	Customer           Customer    `json:"customer"`
	ConfirmationNumber string      `json:"confirmationNumber"`
	OrderNumber        string      `json:"orderNumber"`
	Price              int64       `json:"price"`
	PriceCurrency      string      `json:"priceCurrency"`
	OrderDate          time.Time   `json:"orderDate"`
}

// Reference строит ссылку на заказ.
func (o Order) Reference() OrderReference {
	return OrderReference{
		TypeOf:             o.TypeOf,
		Seller:             o.Seller,
		Customer:           o.Customer,
		ConfirmationNumber: o.ConfirmationNumber,
		OrderNumber:        o.OrderNumber,
		Price:              o.Price,
		PriceCurrency:      o.PriceCurrency,
		OrderDate:          o.OrderDate,
	}
}

// PaymentMethodObject — объект действия оплаты картой.
type PaymentMethodObject struct {
	TypeOf        string             `json:"typeOf"`
	PaymentMethod OrderPaymentMethod `json:"paymentMethod"`
	Price         int64              `json:"price"`
	PriceCurrency string             `json:"priceCurrency"`
	EntryTranArgs EntryTranArgs      `json:"entryTranArgs"`
	ExecTranArgs  ExecTranArgs       `json:"execTranArgs"`
}

// PayActionAttributes — списание по авторизованной карте.
type PayActionAttributes struct {
	Project Project               `json:"project"`
	TypeOf  string                `json:"typeOf"`
	Object  []PaymentMethodObject `json:"object"`
	Agent   Participant           `json:"agent"`
	Purpose OrderReference        `json:"purpose"`
}

// ReservationTicketConfirmation — минимальные поля билета для подтверждения во внешнем сервисе.
type ReservationTicketConfirmation struct {
	IssuedBy    *Organization `json:"issuedBy,omitempty"`
	TicketToken string        `json:"ticketToken"`
	UnderName   *UnderName    `json:"underName,omitempty"`
}

// ReservationConfirmation — минимальные поля резервирования для подтверждения.
type ReservationConfirmation struct {
	ID                   string                        `json:"id"`
	AdditionalTicketText string                        `json:"additionalTicketText,omitempty"`
	ReservedTicket       ReservationTicketConfirmation `json:"reservedTicket"`
	UnderName            *UnderName                    `json:"underName,omitempty"`
	AdditionalProperty   []PropertyValue               `json:"additionalProperty,omitempty"`
}

// ConfirmReservationObject — транзакция резервирования, которую нужно подтвердить.
type ConfirmReservationObject struct {
	TypeOf string                        `json:"typeOf"`
	ID     string                        `json:"id"`
	Object ConfirmReservationObjectItems `json:"object"`
}

// ConfirmReservationObjectItems — резервирования подтверждаемой транзакции.
type ConfirmReservationObjectItems struct {
	Reservations []ReservationConfirmation `json:"reservations"`
}

// ConfirmReservationActionAttributes — подтверждение резервирования во внешнем сервисе.
type ConfirmReservationActionAttributes struct {
	Project    Project                  `json:"project"`
	TypeOf     string                   `json:"typeOf"`
	Object     ConfirmReservationObject `json:"object"`
	Agent      Participant              `json:"agent"`
	Purpose    OrderReference           `json:"purpose"`
	Instrument Instrument               `json:"instrument"`
}

// InformActionAttributes — уведомление третьей стороны о заказе.
type InformActionAttributes struct {
	Project   Project     `json:"project"`
	TypeOf    string      `json:"typeOf"`
	Agent     Participant `json:"agent"`
	Recipient Participant `json:"recipient"`
	Object    Order       `json:"object"`
}

// SendOrderActionAttributes — доставка заказа покупателю.
type SendOrderActionAttributes struct {
	Project   Project     `json:"project"`
	TypeOf    string      `json:"typeOf"`
	Object    Order       `json:"object"`
	Agent     Participant `json:"agent"`
	Recipient Participant `json:"recipient"`
}

// OrderPotentialActions — отложенные действия заказа.
type OrderPotentialActions struct {
	ConfirmReservation []ConfirmReservationActionAttributes `json:"confirmReservation"`
	InformOrder        []InformActionAttributes             `json:"informOrder"`
	PayCreditCard      []PayActionAttributes                `json:"payCreditCard"`
	SendOrder          SendOrderActionAttributes            `json:"sendOrder"`
}

// OrderActionAttributes — действие оформления заказа.
type OrderActionAttributes struct {
	Project          Project               `json:"project"`
	TypeOf           string                `json:"typeOf"`
	Object           Order                 `json:"object"`
	Agent            Participant           `json:"agent"`
	PotentialActions OrderPotentialActions `json:"potentialActions"`
	Purpose          Purpose               `json:"purpose"`
}

// PotentialActions — набор отложенных действий, выполняемых внешним исполнителем задач.
type PotentialActions struct {
	Order OrderActionAttributes `json:"order"`
}

// Типы действий schema.org.
const (
	ActionTypeOrder   = "OrderAction"
	ActionTypePay     = "PayAction"
	ActionTypeConfirm = "ConfirmAction"
	ActionTypeInform  = "InformAction"
	ActionTypeSend    = "SendAction"
)

// InformOrderRecipient — адрес веб-хука для уведомления.
type InformOrderRecipient struct {
	URL string `json:"url"`
}

// InformOrderParams — пожелание вызывающей стороны об уведомлении.
type InformOrderParams struct {
	Recipient *InformOrderRecipient `json:"recipient,omitempty"`
}

// OrderPotentialActionsParams — пожелания по отложенным действиям заказа.
type OrderPotentialActionsParams struct {
	InformOrder []InformOrderParams `json:"informOrder"`
}

// OrderActionParams — пожелания по действию оформления заказа.
type OrderActionParams struct {
	PotentialActions *OrderPotentialActionsParams `json:"potentialActions,omitempty"`
}

// PotentialActionsParams — необязательные подсказки вызывающей стороны к confirm.
type PotentialActionsParams struct {
	Order *OrderActionParams `json:"order,omitempty"`
}

// InformOrder возвращает переданные цели уведомления и признак того, что список задан.
func (p *PotentialActionsParams) InformOrder() ([]InformOrderParams, bool) {
	if p == nil || p.Order == nil || p.Order.PotentialActions == nil || p.Order.PotentialActions.InformOrder == nil {
		return nil, false
	}
	return p.Order.PotentialActions.InformOrder, true
}
