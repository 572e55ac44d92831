package domain

import "time"

// ReservationStatus — статус резервирования во внешнем сервисе.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "ReservationPending"
	ReservationStatusHold      ReservationStatus = "ReservationHold"
	ReservationStatusConfirmed ReservationStatus = "ReservationConfirmed"
	ReservationStatusCancelled ReservationStatus = "ReservationCancelled"
)

// Place — площадка мероприятия.
type Place struct {
	TypeOf     string             `json:"typeOf"`
	BranchCode string             `json:"branchCode"`
	Name       MultilingualString `json:"name"`
}

// Event — мероприятие (сеанс тура).
type Event struct {
	TypeOf    string             `json:"typeOf"`
	ID        string             `json:"id"`
	Name      MultilingualString `json:"name"`
	DoorTime  time.Time          `json:"doorTime"`
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate"`
	Location  Place              `json:"location"`
}

// TicketCancelCharge — ступень графика штрафов за отмену.
type TicketCancelCharge struct {
	Days   int   `json:"days"`
	Charge int64 `json:"charge"`
}

// TemporaryReservation — временное удержание места, полученное авторизацией мест.
type TemporaryReservation struct {
	ID                        string               `json:"id"`
	Stock                     string               `json:"stock"`
	SeatCode                  string               `json:"seatCode"`
	SeatGradeName             MultilingualString   `json:"seatGradeName"`
	SeatGradeAdditionalCharge int64                `json:"seatGradeAdditionalCharge"`
	TicketType                string               `json:"ticketType"`
	TicketTypeName            MultilingualString   `json:"ticketTypeName"`
	TicketTypeCharge          int64                `json:"ticketTypeCharge"`
	Charge                    int64                `json:"charge"`
	TicketCancelCharge        []TicketCancelCharge `json:"ticketCancelCharge"`
	WatcherName               string               `json:"watcherName"`
	PaymentNo                 string               `json:"paymentNo,omitempty"`
	PurchaserGroup            string               `json:"purchaserGroup"`
	AdditionalProperty        []PropertyValue      `json:"additionalProperty,omitempty"`
	AdditionalTicketText      string               `json:"additionalTicketText,omitempty"`
}

// PriceSpecification — цена билета.
type PriceSpecification struct {
	TypeOf        string `json:"typeOf"`
	Price         int64  `json:"price"`
	PriceCurrency string `json:"priceCurrency"`
}

// TicketType — тип билета.
type TicketType struct {
	TypeOf             string              `json:"typeOf"`
	ID                 string              `json:"id"`
	Identifier         string              `json:"identifier"`
	Name               MultilingualString  `json:"name"`
	PriceSpecification *PriceSpecification `json:"priceSpecification,omitempty"`
	AdditionalProperty []PropertyValue     `json:"additionalProperty,omitempty"`
}

// Seat — место.
type Seat struct {
	TypeOf      string `json:"typeOf"`
	SeatNumber  string `json:"seatNumber"`
	SeatSection string `json:"seatSection"`
}

// Organization — организация (выпускающая билет).
type Organization struct {
	TypeOf string `json:"typeOf"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
}

// UnderName — на чьё имя оформлено резервирование.
type UnderName struct {
	TypeOf     string          `json:"typeOf"`
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	FamilyName string          `json:"familyName"`
	GivenName  string          `json:"givenName"`
	Email      string          `json:"email"`
	Telephone  string          `json:"telephone"`
	Gender     string          `json:"gender"`
	Address    string          `json:"address"`
	Identifier []PropertyValue `json:"identifier"`
}

// ReservedTicket — зарезервированный билет.
type ReservedTicket struct {
	TypeOf       string        `json:"typeOf"`
	TicketToken  string        `json:"ticketToken"`
	TicketedSeat *Seat         `json:"ticketedSeat,omitempty"`
	TicketType   TicketType    `json:"ticketType"`
	IssuedBy     *Organization `json:"issuedBy,omitempty"`
	UnderName    *UnderName    `json:"underName,omitempty"`
}

// Reservation — резервирование во внешнем сервисе.
type Reservation struct {
	TypeOf               string            `json:"typeOf"`
	ID                   string            `json:"id"`
	ReservationNumber    string            `json:"reservationNumber"`
	ReservationFor       Event             `json:"reservationFor"`
	ReservedTicket       ReservedTicket    `json:"reservedTicket"`
	ReservationStatus    ReservationStatus `json:"reservationStatus"`
	UnderName            *UnderName        `json:"underName,omitempty"`
	BookingTime          *time.Time        `json:"bookingTime,omitempty"`
	AdditionalProperty   []PropertyValue   `json:"additionalProperty,omitempty"`
	AdditionalTicketText string            `json:"additionalTicketText,omitempty"`
}

// ReserveTransaction — ответ внешнего сервиса на старт транзакции резервирования.
type ReserveTransaction struct {
	ID     string                   `json:"id"`
	Object ReserveTransactionObject `json:"object"`
}

// ReserveTransactionObject содержит резервирования внешней транзакции.
type ReserveTransactionObject struct {
	Reservations []Reservation `json:"reservations"`
}

// FindReservation ищет резервирование по идентификатору.
func (r ReserveTransaction) FindReservation(id string) (Reservation, bool) {
	for _, reservation := range r.Object.Reservations {
		if reservation.ID == id {
			return reservation, true
		}
	}
	return Reservation{}, false
}
