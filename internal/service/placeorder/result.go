package placeorder

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// Имена идентификаторов, которые проставляются в underName резервирований.
const (
	identifierOrderNumber    = "orderNumber"
	identifierPaymentNo      = "paymentNo"
	identifierTransaction    = "transaction"
	identifierGMOOrderID     = "gmoOrderId"
	identifierAge            = "age"
	identifierUsername       = "username"
	identifierPaymentMethod  = "paymentMethod"
	propertyPaymentSeatIndex = "paymentSeatIndex"
	typeOfPerson             = "Person"
	typeOfOrder              = "Order"
	typeOfOffer              = "Offer"
)

// CreateResult строит заказ из завершённых авторизаций транзакции.
// Чистая функция: одинаковые входные данные дают одинаковый заказ.
func CreateResult(paymentNo string, tx domain.Transaction, orderDate time.Time) (domain.TransactionResult, error) {
	seatAction, seatResult, ok := findSeatReservation(tx.Object.AuthorizeActions)
	if !ok {
		return domain.TransactionResult{}, domain.NewArgumentError("transaction", "seat reservation authorization not found")
	}
	if seatResult.ResponseBody == nil {
		return domain.TransactionResult{}, domain.NewArgumentError("transaction", "reserve transaction undefined")
	}
	if len(seatResult.TmpReservations) == 0 {
		return domain.TransactionResult{}, domain.NewArgumentError("transaction", "temporary reservations undefined")
	}

	event := seatAction.Object.SeatReservation.Event
	orderNumber := domain.OrderNumber(event.StartDate, paymentNo)

	var gmoOrderID string
	if card, ok := findCreditCard(tx.Object.AuthorizeActions); ok {
		gmoOrderID = card.PaymentMethodID
	}

	paymentMethods := collectPaymentMethods(tx.Object.AuthorizeActions)
	var paymentMethodName string
	if len(paymentMethods) > 0 {
		paymentMethodName = paymentMethods[0].Name
	}

	profile := tx.Agent.CustomerProfile
	customerName := fmt.Sprintf("%s %s", profile.GivenName, profile.FamilyName)

	underNameIdentifier := []domain.PropertyValue{
		{Name: identifierOrderNumber, Value: orderNumber},
		{Name: identifierPaymentNo, Value: paymentNo},
		{Name: identifierTransaction, Value: tx.ID},
		{Name: identifierGMOOrderID, Value: gmoOrderID},
	}
	if profile.Age != "" {
		underNameIdentifier = append(underNameIdentifier, domain.PropertyValue{Name: identifierAge, Value: profile.Age})
	}
	underNameIdentifier = append(underNameIdentifier, tx.Agent.Identifier...)
	if tx.Agent.MemberOf != nil && tx.Agent.MemberOf.MembershipNumber != "" {
		underNameIdentifier = append(underNameIdentifier, domain.PropertyValue{Name: identifierUsername, Value: tx.Agent.MemberOf.MembershipNumber})
	}
	if paymentMethodName != "" {
		underNameIdentifier = append(underNameIdentifier, domain.PropertyValue{Name: identifierPaymentMethod, Value: paymentMethodName})
	}

	acceptedOffers := make([]domain.AcceptedOffer, 0, len(seatResult.TmpReservations))
	var price int64
	for i, tmp := range seatResult.TmpReservations {
		external, ok := seatResult.ResponseBody.FindReservation(tmp.ID)
		if !ok {
			return domain.TransactionResult{}, domain.NewArgumentError("transaction", "unexpected temporary reservation: "+tmp.ID)
		}

		reservation := confirmReservation(external, tmp, i, orderDate, &domain.UnderName{
			TypeOf:     typeOfPerson,
			ID:         tx.Agent.ID,
			Name:       customerName,
			FamilyName: profile.FamilyName,
			GivenName:  profile.GivenName,
			Email:      profile.Email,
			Telephone:  profile.Telephone,
			Gender:     profile.Gender,
			Address:    profile.Address,
			Identifier: underNameIdentifier,
		})

		var unitPrice int64
		if spec := reservation.ReservedTicket.TicketType.PriceSpecification; spec != nil {
			unitPrice = spec.Price
		}
		price += unitPrice

		acceptedOffers = append(acceptedOffers, domain.AcceptedOffer{
			TypeOf:        typeOfOffer,
			ItemOffered:   reservation,
			Price:         unitPrice,
			PriceCurrency: domain.PriceCurrencyJPY,
			Seller: domain.OfferSeller{
				TypeOf: tx.Seller.TypeOf,
				Name:   tx.Seller.Name.Ja,
			},
		})
	}

	customer := domain.Customer{
		TypeOf:          tx.Agent.TypeOf,
		ID:              tx.Agent.ID,
		Name:            customerName,
		URL:             "",
		Identifier:      append([]domain.PropertyValue{}, tx.Agent.Identifier...),
		MemberOf:        tx.Agent.MemberOf,
		CustomerProfile: profile,
	}

	order := domain.Order{
		Project: tx.Project,
		TypeOf:  typeOfOrder,
		Seller: domain.OrderSeller{
			TypeOf: tx.Seller.TypeOf,
			ID:     tx.Seller.ID,
			Name:   tx.Seller.Name.Ja,
			URL:    tx.Seller.URL,
		},
		Customer:           customer,
		AcceptedOffers:     acceptedOffers,
		ConfirmationNumber: domain.ConfirmationNumber(event.StartDate, paymentNo),
		OrderNumber:        orderNumber,
		Price:              price,
		PriceCurrency:      domain.PriceCurrencyJPY,
		PaymentMethods:     paymentMethods,
		Discounts:          []domain.Discount{},
		URL:                "",
		OrderStatus:        domain.OrderStatusDelivered,
		OrderDate:          orderDate,
		IsGift:             false,
	}

	return domain.TransactionResult{Order: order}, nil
}

// confirmReservation переводит внешнее резервирование в подтверждённое.
func confirmReservation(
	external domain.Reservation,
	tmp domain.TemporaryReservation,
	seatIndex int,
	bookingTime time.Time,
	underName *domain.UnderName,
) domain.Reservation {
	reservation := external
	reservation.ReservationStatus = domain.ReservationStatusConfirmed
	reservation.BookingTime = &bookingTime
	reservation.UnderName = underName
	reservation.ReservedTicket.UnderName = underName

	additional := make([]domain.PropertyValue, 0, len(tmp.AdditionalProperty)+1)
	additional = append(additional, tmp.AdditionalProperty...)
	additional = append(additional, domain.PropertyValue{Name: propertyPaymentSeatIndex, Value: strconv.Itoa(seatIndex)})
	reservation.AdditionalProperty = additional
	reservation.AdditionalTicketText = tmp.AdditionalTicketText

	return reservation
}

// collectPaymentMethods собирает способы оплаты в порядке domain.PaymentMethodTypes.
func collectPaymentMethods(actions []domain.AuthorizeAction) []domain.OrderPaymentMethod {
	methods := make([]domain.OrderPaymentMethod, 0)
	for _, methodType := range domain.PaymentMethodTypes {
		for _, action := range actions {
			if !action.Completed() {
				continue
			}
			payment, ok := action.PaymentResult()
			if !ok || payment.PaymentMethod != methodType {
				continue
			}
			methods = append(methods, domain.OrderPaymentMethod{
				TypeOf:             payment.PaymentMethod,
				AccountID:          payment.AccountID,
				Name:               payment.Name,
				PaymentMethodID:    payment.PaymentMethodID,
				TotalPaymentDue:    payment.TotalPaymentDue,
				AdditionalProperty: append([]domain.PropertyValue{}, payment.AdditionalProperty...),
			})
		}
	}
	return methods
}

func findSeatReservation(actions []domain.AuthorizeAction) (domain.AuthorizeAction, *domain.SeatReservationResult, bool) {
	for _, action := range actions {
		if !action.Completed() || action.Object.SeatReservation == nil {
			continue
		}
		if result, ok := action.SeatReservationResult(); ok {
			return action, result, true
		}
	}
	return domain.AuthorizeAction{}, nil, false
}

func findCreditCard(actions []domain.AuthorizeAction) (*domain.CreditCardResult, bool) {
	for _, action := range actions {
		if !action.Completed() {
			continue
		}
		if result, ok := action.CreditCardResult(); ok {
			return result, true
		}
	}
	return nil, false
}
