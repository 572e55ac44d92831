package placeorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
	"github.com/vladislavdragonenkov/placeorder/internal/metrics"
)

const typeOfWebApplicationAgent = "Person"

// Dependencies — хранилища и внешние сервисы ядра.
type Dependencies struct {
	Transactions domain.TransactionRepository
	Actions      domain.ActionRepository
	Sellers      domain.SellerRepository
	PaymentNos   domain.PaymentNoRepository
	Tokens       domain.TokenRepository
	Passports    domain.PassportVerifier
	Timeline     domain.TimelineRepository
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.PlaceOrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service реализует транзакцию оформления заказа: старт, контакты покупателя и подтверждение.
type Service struct {
	cfg          Config
	transactions domain.TransactionRepository
	actions      domain.ActionRepository
	sellers      domain.SellerRepository
	paymentNos   domain.PaymentNoRepository
	tokens       domain.TokenRepository
	passports    domain.PassportVerifier
	timeline     domain.TimelineRepository
	metrics      *metrics.PlaceOrderMetrics
	logger       *log.Entry
	now          func() time.Time
}

// NewService создаёт сервис.
func NewService(cfg Config, deps Dependencies, opts ...Option) *Service {
	s := &Service{
		cfg:          cfg,
		transactions: deps.Transactions,
		actions:      deps.Actions,
		sellers:      deps.Sellers,
		paymentNos:   deps.PaymentNos,
		tokens:       deps.Tokens,
		passports:    deps.Passports,
		timeline:     deps.Timeline,
		logger:       log.WithField("component", "placeorder"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartParams — параметры старта транзакции.
type StartParams struct {
	Expires          time.Time
	Agent            domain.Agent
	SellerIdentifier string
	ClientUser       domain.ClientUser
	PassportToken    string
}

// Start создаёт транзакцию InProgress.
func (s *Service) Start(ctx context.Context, params StartParams) (domain.Transaction, error) {
	seller, err := s.sellers.FindByIdentifier(ctx, params.SellerIdentifier)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Transaction{}, domain.NewNotFoundError("Seller", "seller not found")
		}
		return domain.Transaction{}, fmt.Errorf("find seller: %w", err)
	}

	var passport *domain.Passport
	if params.PassportToken != "" {
		p, err := s.verifyPassport(ctx, params.PassportToken, seller.Identifier)
		if err != nil {
			return domain.Transaction{}, err
		}
		passport = &p
	}

	agent := params.Agent
	if agent.TypeOf == "" {
		agent.TypeOf = typeOfWebApplicationAgent
	}

	tx := domain.Transaction{
		ID:      uuid.NewString(),
		Project: s.cfg.Project,
		TypeOf:  domain.TransactionTypePlaceOrder,
		Status:  domain.TransactionStatusInProgress,
		Agent:   agent,
		Seller:  seller,
		Object: domain.TransactionObject{
			PassportToken:    params.PassportToken,
			Passport:         passport,
			ClientUser:       params.ClientUser,
			AuthorizeActions: []domain.AuthorizeAction{},
		},
		Expires:                params.Expires,
		StartDate:              s.now(),
		TasksExportationStatus: domain.TasksExportationStatusUnexported,
	}

	created, err := s.transactions.Start(ctx, tx)
	if err != nil {
		if domain.IsDuplicateKey(err) {
			return domain.Transaction{}, domain.NewAlreadyInUseError("transaction", []string{"passportToken"}, "passport already used")
		}
		return domain.Transaction{}, fmt.Errorf("start transaction: %w", err)
	}

	s.metrics.RecordTransactionStarted()
	s.appendTimeline(ctx, created.ID, domain.TimelineTransactionStarted, "")
	s.logger.WithFields(log.Fields{
		"transaction_id": created.ID,
		"seller_id":      seller.ID,
		"agent_id":       agent.ID,
	}).Info("transaction started")

	return created, nil
}

func (s *Service) verifyPassport(ctx context.Context, token, sellerIdentifier string) (domain.Passport, error) {
	if s.passports == nil {
		return domain.Passport{}, domain.NewArgumentError("passportToken", "passport verification is not configured")
	}
	passport, err := s.passports.Verify(ctx, token)
	if err != nil {
		s.logger.WithError(err).Debug("passport verification failed")
		return domain.Passport{}, domain.NewArgumentError("passportToken", "invalid token")
	}
	if !ValidatePassport(passport, sellerIdentifier, s.cfg.PassportIssuers) {
		return domain.Passport{}, domain.NewArgumentError("passportToken", "invalid passport")
	}
	return passport, nil
}

// SetCustomerContact обновляет контакты покупателя транзакции.
func (s *Service) SetCustomerContact(ctx context.Context, agentID, transactionID string, contact domain.CustomerProfile) (domain.CustomerProfile, error) {
	telephone, err := FormatTelephone(contact.Telephone, contact.Address)
	if err != nil {
		return domain.CustomerProfile{}, err
	}

	tx, err := s.transactions.FindInProgressByID(ctx, domain.TransactionTypePlaceOrder, transactionID)
	if err != nil {
		return domain.CustomerProfile{}, err
	}
	if tx.Agent.ID != agentID {
		return domain.CustomerProfile{}, domain.NewForbiddenError("transaction not yours")
	}

	profile := domain.CustomerProfile{
		FamilyName: contact.FamilyName,
		GivenName:  contact.GivenName,
		Email:      contact.Email,
		Telephone:  telephone,
		Age:        contact.Age,
		Address:    contact.Address,
		Gender:     contact.Gender,
	}
	if err := s.transactions.UpdateCustomerProfile(ctx, domain.TransactionTypePlaceOrder, transactionID, profile); err != nil {
		return domain.CustomerProfile{}, err
	}

	s.metrics.RecordContactUpdated()
	s.appendTimeline(ctx, transactionID, domain.TimelineCustomerContactSet, "")
	s.logger.WithField("transaction_id", transactionID).Info("customer contact updated")

	return profile, nil
}

// ConfirmParams — параметры подтверждения.
type ConfirmParams struct {
	AgentID          string
	TransactionID    string
	PaymentMethod    domain.PaymentMethodType
	PotentialActions *domain.PotentialActionsParams
}

// ConfirmResult — результат подтверждения.
type ConfirmResult struct {
	Order      domain.Order `json:"order"`
	PrintToken string       `json:"printToken"`
}

// Confirm подтверждает транзакцию: сверяет цены, выдаёт номер оплаты, строит заказ и
// отложенные действия и атомарно сохраняет результат.
func (s *Service) Confirm(ctx context.Context, params ConfirmParams) (ConfirmResult, error) {
	started := time.Now()
	s.metrics.RecordConfirmStarted()
	defer func() {
		s.metrics.RecordConfirmFinished(time.Since(started))
	}()

	result, err := s.confirm(ctx, params)
	if err != nil {
		kind := errorKind(err)
		s.metrics.RecordConfirmRejected(kind)
		entry := s.logger.WithFields(log.Fields{
			"transaction_id": params.TransactionID,
			"kind":           kind,
			"fields":         domain.FieldsOf(err),
		})
		if kind == "internal" {
			entry.WithError(err).Error("confirm failed")
		} else {
			entry.WithError(err).Warn("confirm rejected")
		}
		return ConfirmResult{}, err
	}

	s.metrics.RecordTransactionConfirmed()
	s.logger.WithFields(log.Fields{
		"transaction_id": params.TransactionID,
		"order_number":   result.Order.OrderNumber,
		"price":          result.Order.Price,
	}).Info("transaction confirmed")

	return result, nil
}

func (s *Service) confirm(ctx context.Context, params ConfirmParams) (ConfirmResult, error) {
	now := s.now()

	tx, err := s.transactions.FindInProgressByID(ctx, domain.TransactionTypePlaceOrder, params.TransactionID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if tx.Agent.ID != params.AgentID {
		return ConfirmResult{}, domain.NewForbiddenError("transaction not yours")
	}

	// Авторизации, завершившиеся во время подтверждения, не учитываются.
	actions, err := s.actions.SearchByPurpose(ctx, tx.Purpose())
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("search authorize actions: %w", err)
	}
	eligible := make([]domain.AuthorizeAction, 0, len(actions))
	for _, action := range actions {
		if action.EndedBefore(now) {
			eligible = append(eligible, action)
		}
	}
	tx.Object.AuthorizeActions = eligible

	if _, err := CanConfirm(tx, params.PaymentMethod); err != nil {
		return ConfirmResult{}, err
	}

	seatAction, _, ok := findSeatReservation(eligible)
	if !ok {
		return ConfirmResult{}, domain.NewArgumentError("transactionId", "seat reservation authorization not found")
	}

	stepStarted := time.Now()
	paymentNo, err := s.paymentNos.Publish(ctx, domain.PaymentNoScope(seatAction.Object.SeatReservation.Event.StartDate))
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("publish payment no: %w", err)
	}
	s.metrics.RecordStepDuration("publish_payment_no", time.Since(stepStarted))
	s.metrics.RecordPaymentNoIssued()
	s.logger.WithFields(log.Fields{
		"transaction_id": tx.ID,
		"payment_no":     paymentNo,
	}).Debug("payment no issued")

	// Номер выдан: дальше операция доводится до конца независимо от отмены запроса.
	ctx = context.WithoutCancel(ctx)

	result, err := CreateResult(paymentNo, tx, now)
	if err != nil {
		return ConfirmResult{}, err
	}

	hints := MergePotentialActionsParams(params.PotentialActions, s.cfg.defaultInformOrder())
	potentialActions := CreatePotentialActions(tx, result.Order, hints)

	printToken, err := s.tokens.CreatePrintToken(ctx, result.Order.ReservationIDs())
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("create print token: %w", err)
	}

	stepStarted = time.Now()
	_, err = s.transactions.Confirm(ctx, domain.ConfirmTransactionParams{
		TypeOf:           domain.TransactionTypePlaceOrder,
		ID:               tx.ID,
		AuthorizeActions: eligible,
		Result:           result,
		PotentialActions: potentialActions,
		EndDate:          now,
	})
	if err != nil {
		if domain.IsDuplicateKey(err) {
			return ConfirmResult{}, domain.NewAlreadyInUseError("transaction", []string{"result.order.orderNumber"}, "order number already in use")
		}
		if domain.IsNotFound(err) {
			return ConfirmResult{}, err
		}
		return ConfirmResult{}, fmt.Errorf("confirm transaction: %w", err)
	}
	s.metrics.RecordStepDuration("persist", time.Since(stepStarted))
	s.appendTimeline(ctx, tx.ID, domain.TimelineTransactionConfirmed, result.Order.OrderNumber)

	return ConfirmResult{Order: result.Order, PrintToken: printToken}, nil
}

// Timeline возвращает события транзакции агента.
func (s *Service) Timeline(ctx context.Context, agentID, transactionID string) ([]domain.TimelineEvent, error) {
	tx, err := s.transactions.FindByID(ctx, domain.TransactionTypePlaceOrder, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Agent.ID != agentID {
		return nil, domain.NewForbiddenError("transaction not yours")
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(ctx, transactionID)
}

func (s *Service) appendTimeline(ctx context.Context, transactionID, eventType, reason string) {
	if s.timeline == nil {
		return
	}
	err := s.timeline.Append(ctx, domain.TimelineEvent{
		TransactionID: transactionID,
		Type:          eventType,
		Reason:        reason,
		Occurred:      s.now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("transaction_id", transactionID).Warn("failed to append timeline event")
		return
	}
	s.metrics.RecordTimelineEvent()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrArgument):
		return "argument"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadyInUse):
		return "already_in_use"
	default:
		return "internal"
	}
}
