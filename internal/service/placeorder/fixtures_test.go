package placeorder

import (
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

var (
	fixtureEventStart = time.Date(2026, 3, 2, 10, 0, 0, 0, domain.Tokyo)
	fixtureNow        = time.Date(2026, 3, 1, 12, 0, 0, 0, domain.Tokyo)
	fixtureProject    = domain.Project{TypeOf: "Project", ID: "ttts"}
	fixtureSeller     = domain.Seller{
		TypeOf:     "Corporation",
		ID:         "seller-1",
		Identifier: "TokyoTower",
		Name:       domain.MultilingualString{Ja: "東京タワー", En: "Tokyo Tower"},
		URL:        "https://www.tokyotower.co.jp/",
	}
)

func fixtureAgent() domain.Agent {
	return domain.Agent{
		TypeOf:     "Person",
		ID:         "agent-1",
		Identifier: []domain.PropertyValue{{Name: "clientId", Value: "client-1"}},
		MemberOf:   &domain.Membership{TypeOf: "ProgramMembership", MembershipNumber: "user-1"},
		CustomerProfile: domain.CustomerProfile{
			FamilyName: "Yamada",
			GivenName:  "Taro",
			Email:      "taro@example.com",
			Telephone:  "+819012345678",
			Age:        "30",
			Address:    "JP",
			Gender:     "male",
		},
	}
}

func fixtureTransaction() domain.Transaction {
	return domain.Transaction{
		ID:      "tx-1",
		Project: fixtureProject,
		TypeOf:  domain.TransactionTypePlaceOrder,
		Status:  domain.TransactionStatusInProgress,
		Agent:   fixtureAgent(),
		Seller:  fixtureSeller,
		Object: domain.TransactionObject{
			ClientUser:       domain.ClientUser{ClientID: "client-1", Sub: "agent-1"},
			AuthorizeActions: []domain.AuthorizeAction{},
		},
		Expires:                fixtureNow.Add(15 * time.Minute),
		StartDate:              fixtureNow.Add(-10 * time.Minute),
		TasksExportationStatus: domain.TasksExportationStatusUnexported,
	}
}

func externalReservation(id, seat string, price int64) domain.Reservation {
	return domain.Reservation{
		TypeOf:            "EventReservation",
		ID:                id,
		ReservationNumber: "reserve-no-1",
		ReservationFor: domain.Event{
			TypeOf:    "Event",
			ID:        "event-1",
			StartDate: fixtureEventStart,
			EndDate:   fixtureEventStart.Add(time.Hour),
		},
		ReservedTicket: domain.ReservedTicket{
			TypeOf:       "Ticket",
			TicketToken:  "token-" + id,
			TicketedSeat: &domain.Seat{TypeOf: "Seat", SeatNumber: seat, SeatSection: "A"},
			TicketType: domain.TicketType{
				TypeOf:     "Offer",
				ID:         "ticket-adult",
				Identifier: "001",
				PriceSpecification: &domain.PriceSpecification{
					TypeOf:        "UnitPriceSpecification",
					Price:         price,
					PriceCurrency: domain.PriceCurrencyJPY,
				},
			},
			IssuedBy: &domain.Organization{TypeOf: "Corporation", Name: "東京タワー"},
		},
		ReservationStatus: domain.ReservationStatusPending,
	}
}

func seatAction(endDate time.Time) domain.AuthorizeAction {
	return domain.AuthorizeAction{
		ID:           "action-seat",
		TypeOf:       domain.ActionTypeAuthorize,
		ActionStatus: domain.ActionStatusCompleted,
		Purpose:      domain.Purpose{TypeOf: domain.TransactionTypePlaceOrder, ID: "tx-1"},
		Agent:        domain.Participant{TypeOf: "Corporation", ID: fixtureSeller.ID},
		Object: domain.AuthorizeObject{
			TypeOf: domain.AuthorizeObjectSeatReservation,
			SeatReservation: &domain.SeatReservationObject{Event: domain.Event{
				TypeOf:    "Event",
				ID:        "event-1",
				StartDate: fixtureEventStart,
			}},
		},
		Result: &domain.AuthorizeResult{SeatReservation: &domain.SeatReservationResult{
			Price: 2000,
			TmpReservations: []domain.TemporaryReservation{
				{
					ID:                   "reservation-1",
					SeatCode:             "A-1",
					TicketType:           "001",
					Charge:               1000,
					WatcherName:          "taro",
					PurchaserGroup:       "01",
					AdditionalProperty:   []domain.PropertyValue{{Name: "extra", Value: "1"}},
					AdditionalTicketText: "wheelchair",
				},
				{
					ID:             "reservation-2",
					SeatCode:       "A-2",
					TicketType:     "001",
					Charge:         1000,
					PurchaserGroup: "01",
				},
			},
			ResponseBody: &domain.ReserveTransaction{
				ID: "reserve-transaction-1",
				Object: domain.ReserveTransactionObject{Reservations: []domain.Reservation{
					externalReservation("reservation-2", "A-2", 1000),
					externalReservation("reservation-1", "A-1", 1000),
				}},
			},
		}},
		StartDate: endDate.Add(-time.Minute),
		EndDate:   &endDate,
	}
}

func creditCardAction(amount int64, endDate time.Time) domain.AuthorizeAction {
	return domain.AuthorizeAction{
		ID:           "action-card",
		TypeOf:       domain.ActionTypeAuthorize,
		ActionStatus: domain.ActionStatusCompleted,
		Purpose:      domain.Purpose{TypeOf: domain.TransactionTypePlaceOrder, ID: "tx-1"},
		Agent:        domain.Participant{TypeOf: "Person", ID: "agent-1"},
		Object: domain.AuthorizeObject{
			TypeOf:  domain.AuthorizeObjectCreditCard,
			Payment: &domain.PaymentObject{PaymentMethod: domain.PaymentMethodCreditCard, Amount: amount},
		},
		Result: &domain.AuthorizeResult{CreditCard: &domain.CreditCardResult{
			PaymentMethodResult: domain.PaymentMethodResult{
				PaymentMethod:      domain.PaymentMethodCreditCard,
				AccountID:          "4111********1111",
				Name:               "クレジットカード",
				PaymentMethodID:    "gmo-order-1",
				TotalPaymentDue:    &domain.MonetaryAmount{TypeOf: "MonetaryAmount", Currency: domain.PriceCurrencyJPY, Value: amount},
				AdditionalProperty: []domain.PropertyValue{},
				Amount:             amount,
				PaymentStatus:      domain.PaymentStatusDue,
			},
			EntryTranArgs: domain.EntryTranArgs{ShopID: "shop", OrderID: "gmo-order-1", JobCd: "AUTH", Amount: amount},
			ExecTranArgs:  domain.ExecTranArgs{AccessID: "access-1", OrderID: "gmo-order-1", Method: "1"},
		}},
		StartDate: endDate.Add(-time.Minute),
		EndDate:   &endDate,
	}
}

// fixtureConfirmable — транзакция с местами на 2000 и картой на amount.
func fixtureConfirmable(amount int64) domain.Transaction {
	end := fixtureNow.Add(-time.Minute)
	tx := fixtureTransaction()
	tx.Object.AuthorizeActions = []domain.AuthorizeAction{seatAction(end), creditCardAction(amount, end)}
	return tx
}
