package domain

import "time"

// ActionStatus — статус действия.
type ActionStatus string

const (
	ActionStatusActive    ActionStatus = "ActiveActionStatus"
	ActionStatusCompleted ActionStatus = "CompletedActionStatus"
	ActionStatusFailed    ActionStatus = "FailedActionStatus"
	ActionStatusCanceled  ActionStatus = "CanceledActionStatus"
)

// AuthorizeObjectType — дискриминант авторизации.
type AuthorizeObjectType string

const (
	AuthorizeObjectSeatReservation AuthorizeObjectType = "SeatReservation"
	AuthorizeObjectCreditCard      AuthorizeObjectType = "CreditCard"
	AuthorizeObjectPaymentMethod   AuthorizeObjectType = "PaymentMethod"
)

// PaymentMethodType — способ оплаты.
type PaymentMethodType string

const (
	PaymentMethodCash        PaymentMethodType = "Cash"
	PaymentMethodCreditCard  PaymentMethodType = "CreditCard"
	PaymentMethodAccount     PaymentMethodType = "Account"
	PaymentMethodMovieTicket PaymentMethodType = "MovieTicket"
	PaymentMethodEMoney      PaymentMethodType = "EMoney"
	PaymentMethodOthers      PaymentMethodType = "Others"
)

// PaymentMethodTypes задаёт порядок способов оплаты в заказе.
var PaymentMethodTypes = []PaymentMethodType{
	PaymentMethodCash,
	PaymentMethodCreditCard,
	PaymentMethodAccount,
	PaymentMethodMovieTicket,
	PaymentMethodEMoney,
	PaymentMethodOthers,
}

// PaymentStatus — статус платежа по авторизации.
type PaymentStatus string

const (
	PaymentStatusDue       PaymentStatus = "PaymentDue"
	PaymentStatusComplete  PaymentStatus = "PaymentComplete"
	PaymentStatusAutomatic PaymentStatus = "PaymentAutomaticallyApplied"
)

// Purpose ссылается на транзакцию-владельца.
type Purpose struct {
	TypeOf TransactionType `json:"typeOf"`
	ID     string          `json:"id"`
}

// Participant — участник действия (агент или получатель).
type Participant struct {
	TypeOf string `json:"typeOf"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Instrument указывает внешний сервис, выполнивший авторизацию.
type Instrument struct {
	TypeOf     string `json:"typeOf"`
	Identifier string `json:"identifier"`
}

const (
	InstrumentTypeWebAPI = "WebAPI"
	// WebAPIChevre — сервис резервирования по умолчанию.
	WebAPIChevre = "Chevre"
	WebAPICOA    = "COA"
)

// DefaultInstrument возвращает инструмент по умолчанию для резервирования мест.
func DefaultInstrument() Instrument {
	return Instrument{TypeOf: InstrumentTypeWebAPI, Identifier: WebAPIChevre}
}

// AuthorizeObject — что именно авторизовано. Заполнен ровно один вариант, согласно TypeOf.
type AuthorizeObject struct {
	TypeOf          AuthorizeObjectType    `json:"typeOf"`
	SeatReservation *SeatReservationObject `json:"seatReservation,omitempty"`
	Payment         *PaymentObject         `json:"payment,omitempty"`
}

// SeatReservationObject — запрос на резервирование мест.
type SeatReservationObject struct {
	Event Event `json:"event"`
}

// PaymentObject — запрос на авторизацию платежа.
type PaymentObject struct {
	PaymentMethod PaymentMethodType `json:"paymentMethod"`
	Amount        int64             `json:"amount"`
}

// MonetaryAmount — денежная сумма.
type MonetaryAmount struct {
	TypeOf   string `json:"typeOf"`
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

// PaymentMethodResult — результат авторизации любого способа оплаты.
type PaymentMethodResult struct {
	PaymentMethod      PaymentMethodType `json:"paymentMethod"`
	AccountID          string            `json:"accountId"`
	Name               string            `json:"name"`
	PaymentMethodID    string            `json:"paymentMethodId"`
	TotalPaymentDue    *MonetaryAmount   `json:"totalPaymentDue,omitempty"`
	AdditionalProperty []PropertyValue   `json:"additionalProperty"`
	Amount             int64             `json:"amount"`
	PaymentStatus      PaymentStatus     `json:"paymentStatus"`
}

// EntryTranArgs — параметры регистрации сделки в платёжном шлюзе.
type EntryTranArgs struct {
	ShopID  string `json:"shopId"`
	OrderID string `json:"orderId"`
	JobCd   string `json:"jobCd"`
	Amount  int64  `json:"amount"`
}

// ExecTranArgs — параметры исполнения сделки в платёжном шлюзе.
type ExecTranArgs struct {
	AccessID string `json:"accessId"`
	OrderID  string `json:"orderId"`
	Method   string `json:"method"`
}

// CreditCardResult — результат авторизации кредитной карты.
type CreditCardResult struct {
	PaymentMethodResult
	EntryTranArgs EntryTranArgs `json:"entryTranArgs"`
	ExecTranArgs  ExecTranArgs  `json:"execTranArgs"`
}

// SeatReservationResult — результат авторизации мест.
type SeatReservationResult struct {
	Price           int64                  `json:"price"`
	TmpReservations []TemporaryReservation `json:"tmpReservations"`
	ResponseBody    *ReserveTransaction    `json:"responseBody,omitempty"`
}

// AuthorizeResult — результат авторизации. Заполнен вариант, соответствующий AuthorizeObject.TypeOf.
type AuthorizeResult struct {
	SeatReservation *SeatReservationResult `json:"seatReservation,omitempty"`
	CreditCard      *CreditCardResult      `json:"creditCard,omitempty"`
	PaymentMethod   *PaymentMethodResult   `json:"paymentMethod,omitempty"`
}

// AuthorizeAction — авторизация ресурса или платежа в рамках транзакции.
type AuthorizeAction struct {
	ID           string           `json:"id"`
	TypeOf       string           `json:"typeOf"`
	ActionStatus ActionStatus     `json:"actionStatus"`
	Purpose      Purpose          `json:"purpose"`
	Agent        Participant      `json:"agent"`
	Recipient    Participant      `json:"recipient"`
	Object       AuthorizeObject  `json:"object"`
	Result       *AuthorizeResult `json:"result,omitempty"`
	Instrument   *Instrument      `json:"instrument,omitempty"`
	StartDate    time.Time        `json:"startDate"`
	EndDate      *time.Time       `json:"endDate,omitempty"`
}

// ActionTypeAuthorize — typeOf авторизационных действий.
const ActionTypeAuthorize = "AuthorizeAction"

// Completed сообщает, что действие завершено успешно.
func (a AuthorizeAction) Completed() bool {
	return a.ActionStatus == ActionStatusCompleted
}

// EndedBefore сообщает, что действие завершилось строго раньше t.
func (a AuthorizeAction) EndedBefore(t time.Time) bool {
	return a.EndDate != nil && a.EndDate.Before(t)
}

// SeatReservationResult возвращает результат резервирования мест, если действие такого вида.
func (a AuthorizeAction) SeatReservationResult() (*SeatReservationResult, bool) {
	if a.Object.TypeOf != AuthorizeObjectSeatReservation || a.Result == nil || a.Result.SeatReservation == nil {
		return nil, false
	}
	return a.Result.SeatReservation, true
}

// CreditCardResult возвращает результат авторизации карты, если действие такого вида.
func (a AuthorizeAction) CreditCardResult() (*CreditCardResult, bool) {
	if a.Object.TypeOf != AuthorizeObjectCreditCard || a.Result == nil || a.Result.CreditCard == nil {
		return nil, false
	}
	return a.Result.CreditCard, true
}

// PaymentResult возвращает платёжную часть результата для карты и прочих способов оплаты.
func (a AuthorizeAction) PaymentResult() (*PaymentMethodResult, bool) {
	if a.Result == nil {
		return nil, false
	}
	switch a.Object.TypeOf {
	case AuthorizeObjectCreditCard:
		if a.Result.CreditCard != nil {
			return &a.Result.CreditCard.PaymentMethodResult, true
		}
	case AuthorizeObjectPaymentMethod:
		if a.Result.PaymentMethod != nil {
			return a.Result.PaymentMethod, true
		}
	}
	return nil, false
}
