package domain

import "time"

// TransactionType — тип транзакции.
type TransactionType string

// TransactionTypePlaceOrder — транзакция оформления заказа.
const TransactionTypePlaceOrder TransactionType = "PlaceOrder"

// TransactionStatus описывает состояние транзакции.
type TransactionStatus string

const (
	TransactionStatusInProgress TransactionStatus = "InProgress"
	TransactionStatusConfirmed  TransactionStatus = "Confirmed"
	TransactionStatusExpired    TransactionStatus = "Expired"
	TransactionStatusCanceled   TransactionStatus = "Canceled"
)

// Terminal сообщает, что из статуса больше нет переходов.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusConfirmed, TransactionStatusExpired, TransactionStatusCanceled:
		return true
	default:
		return false
	}
}

// TasksExportationStatus отражает выгрузку отложенных задач транзакции.
type TasksExportationStatus string

const (
	TasksExportationStatusUnexported TasksExportationStatus = "Unexported"
	TasksExportationStatusExporting  TasksExportationStatus = "Exporting"
	TasksExportationStatusExported   TasksExportationStatus = "Exported"
	TasksExportationStatusFailed     TasksExportationStatus = "Failed"
)

// Project — проект, к которому относится транзакция.
type Project struct {
	TypeOf string `json:"typeOf"`
	ID     string `json:"id"`
}

// PropertyValue — пара имя/значение, используется для идентификаторов и доп. свойств.
type PropertyValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MultilingualString хранит строку на японском и английском.
type MultilingualString struct {
	Ja string `json:"ja,omitempty"`
	En string `json:"en,omitempty"`
}

// Membership — членство агента (логин в пуле пользователей).
type Membership struct {
	TypeOf           string `json:"typeOf,omitempty"`
	MembershipNumber string `json:"membershipNumber,omitempty"`
}

// CustomerProfile — контактные данные покупателя.
type CustomerProfile struct {
	FamilyName string `json:"familyName,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	Email      string `json:"email,omitempty"`
	Telephone  string `json:"telephone,omitempty"`
	Age        string `json:"age,omitempty"`
	Address    string `json:"address,omitempty"`
	Gender     string `json:"gender,omitempty"`
}

// Agent — инициатор транзакции.
type Agent struct {
	TypeOf     string          `json:"typeOf"`
	ID         string          `json:"id"`
	Identifier []PropertyValue `json:"identifier,omitempty"`
	MemberOf   *Membership     `json:"memberOf,omitempty"`
	CustomerProfile
}

// Seller — продавец (организация, проводящая мероприятие).
type Seller struct {
	TypeOf     string             `json:"typeOf"`
	ID         string             `json:"id"`
	Identifier string             `json:"identifier"`
	Name       MultilingualString `json:"name"`
	URL        string             `json:"url,omitempty"`
}

// ClientUser — данные клиента приложения, от имени которого работает агент.
type ClientUser struct {
	ClientID string `json:"client_id,omitempty"`
	Sub      string `json:"sub,omitempty"`
	Username string `json:"username,omitempty"`
}

// Passport — расшифрованный паспорт внешней очереди.
type Passport struct {
	Issuer string `json:"iss"`
	Scope  string `json:"scope"`
}

// TransactionObject хранит то, что накоплено транзакцией до подтверждения.
type TransactionObject struct {
	PassportToken    string            `json:"passportToken,omitempty"`
	Passport         *Passport         `json:"passport,omitempty"`
	ClientUser       ClientUser        `json:"clientUser"`
	AuthorizeActions []AuthorizeAction `json:"authorizeActions"`
}

// TransactionResult заполняется только при подтверждении.
type TransactionResult struct {
	Order Order `json:"order"`
}

// Transaction — агрегат транзакции оформления заказа.
type Transaction struct {
	ID                     string                 `json:"id"`
	Project                Project                `json:"project"`
	TypeOf                 TransactionType        `json:"typeOf"`
	Status                 TransactionStatus      `json:"status"`
	Agent                  Agent                  `json:"agent"`
	Seller                 Seller                 `json:"seller"`
	Object                 TransactionObject      `json:"object"`
	Expires                time.Time              `json:"expires"`
	StartDate              time.Time              `json:"startDate"`
	EndDate                *time.Time             `json:"endDate,omitempty"`
	Result                 *TransactionResult     `json:"result,omitempty"`
	PotentialActions       *PotentialActions      `json:"potentialActions,omitempty"`
	TasksExportationStatus TasksExportationStatus `json:"tasksExportationStatus"`
	TasksExportedAt        *time.Time             `json:"tasksExportedAt,omitempty"`
}

// Purpose возвращает ссылку, по которой к транзакции привязаны авторизации.
func (t Transaction) Purpose() Purpose {
	return Purpose{TypeOf: t.TypeOf, ID: t.ID}
}

// ConfirmTransactionParams — атомарный перевод транзакции в Confirmed.
type ConfirmTransactionParams struct {
	TypeOf           TransactionType
	ID               string
	AuthorizeActions []AuthorizeAction
	Result           TransactionResult
	PotentialActions PotentialActions
	EndDate          time.Time
}
