package placeorder

import "github.com/vladislavdragonenkov/placeorder/internal/domain"

const (
	typeOfPaymentMethod = "PaymentMethod"
	typeOfReserve       = "Reserve"
)

// MergePotentialActionsParams объединяет подсказки вызывающей стороны с умолчаниями.
// Список уведомлений вызывающей стороны используется, если он передан (в том числе пустой),
// иначе берутся defaults.
func MergePotentialActionsParams(caller *domain.PotentialActionsParams, defaults []domain.InformOrderParams) *domain.PotentialActionsParams {
	informOrder, ok := caller.InformOrder()
	if !ok {
		informOrder = defaults
	}
	return &domain.PotentialActionsParams{
		Order: &domain.OrderActionParams{
			PotentialActions: &domain.OrderPotentialActionsParams{
				InformOrder: append([]domain.InformOrderParams{}, informOrder...),
			},
		},
	}
}

// CreatePotentialActions собирает отложенные действия заказа. Действия только описываются,
// выполняет их внешний исполнитель задач.
func CreatePotentialActions(tx domain.Transaction, order domain.Order, params *domain.PotentialActionsParams) domain.PotentialActions {
	reference := order.Reference()
	agent := domain.Participant{
		TypeOf: tx.Agent.TypeOf,
		ID:     tx.Agent.ID,
		Name:   order.Customer.Name,
	}
	seller := domain.Participant{
		TypeOf: tx.Seller.TypeOf,
		ID:     tx.Seller.ID,
		Name:   tx.Seller.Name.Ja,
		URL:    tx.Seller.URL,
	}

	payCreditCard := make([]domain.PayActionAttributes, 0)
	confirmReservation := make([]domain.ConfirmReservationActionAttributes, 0)

	for _, action := range tx.Object.AuthorizeActions {
		if !action.Completed() {
			continue
		}

		if card, ok := action.CreditCardResult(); ok && card.PaymentStatus == domain.PaymentStatusDue {
			payCreditCard = append(payCreditCard, domain.PayActionAttributes{
				Project: tx.Project,
				TypeOf:  domain.ActionTypePay,
				Object: []domain.PaymentMethodObject{{
					TypeOf: typeOfPaymentMethod,
					PaymentMethod: domain.OrderPaymentMethod{
						TypeOf:             card.PaymentMethod,
						AccountID:          card.AccountID,
						Name:               card.Name,
						PaymentMethodID:    card.PaymentMethodID,
						TotalPaymentDue:    card.TotalPaymentDue,
						AdditionalProperty: append([]domain.PropertyValue{}, card.AdditionalProperty...),
					},
					Price:         card.Amount,
					PriceCurrency: domain.PriceCurrencyJPY,
					EntryTranArgs: card.EntryTranArgs,
					ExecTranArgs:  card.ExecTranArgs,
				}},
				Agent:   agent,
				Purpose: reference,
			})
		}

		if seat, ok := action.SeatReservationResult(); ok && seat.ResponseBody != nil {
			confirmReservation = append(confirmReservation, confirmReservationAction(tx, order, action, seat, agent, reference))
		}
	}

	informOrder := make([]domain.InformActionAttributes, 0)
	if targets, ok := params.InformOrder(); ok {
		for _, target := range targets {
			if target.Recipient == nil || target.Recipient.URL == "" {
				continue
			}
			informOrder = append(informOrder, domain.InformActionAttributes{
				Project: tx.Project,
				TypeOf:  domain.ActionTypeInform,
				Agent:   seller,
				Recipient: domain.Participant{
					TypeOf: tx.Agent.TypeOf,
					ID:     tx.Agent.ID,
					Name:   order.Customer.Name,
					URL:    target.Recipient.URL,
				},
				Object: order,
			})
		}
	}

	return domain.PotentialActions{
		Order: domain.OrderActionAttributes{
			Project: tx.Project,
			TypeOf:  domain.ActionTypeOrder,
			Object:  order,
			Agent:   agent,
			PotentialActions: domain.OrderPotentialActions{
				ConfirmReservation: confirmReservation,
				InformOrder:        informOrder,
				PayCreditCard:      payCreditCard,
				SendOrder: domain.SendOrderActionAttributes{
					Project:   tx.Project,
					TypeOf:    domain.ActionTypeSend,
					Object:    order,
					Agent:     seller,
					Recipient: agent,
				},
			},
			Purpose: tx.Purpose(),
		},
	}
}

func confirmReservationAction(
	tx domain.Transaction,
	order domain.Order,
	action domain.AuthorizeAction,
	seat *domain.SeatReservationResult,
	agent domain.Participant,
	reference domain.OrderReference,
) domain.ConfirmReservationActionAttributes {
	instrument := domain.DefaultInstrument()
	if action.Instrument != nil && action.Instrument.Identifier != "" {
		instrument = *action.Instrument
	}

	reservations := make([]domain.ReservationConfirmation, 0, len(order.AcceptedOffers))
	for _, offer := range order.AcceptedOffers {
		r := offer.ItemOffered
		if _, ok := seat.ResponseBody.FindReservation(r.ID); !ok {
			continue
		}
		reservations = append(reservations, domain.ReservationConfirmation{
			ID:                   r.ID,
			AdditionalTicketText: r.AdditionalTicketText,
			ReservedTicket: domain.ReservationTicketConfirmation{
				IssuedBy:    r.ReservedTicket.IssuedBy,
				TicketToken: r.ReservedTicket.TicketToken,
				UnderName:   r.ReservedTicket.UnderName,
			},
			UnderName:          r.UnderName,
			AdditionalProperty: r.AdditionalProperty,
		})
	}

	return domain.ConfirmReservationActionAttributes{
		Project: tx.Project,
		TypeOf:  domain.ActionTypeConfirm,
		Object: domain.ConfirmReservationObject{
			TypeOf: typeOfReserve,
			ID:     seat.ResponseBody.ID,
			Object: domain.ConfirmReservationObjectItems{Reservations: reservations},
		},
		Agent:      agent,
		Purpose:    reference,
		Instrument: instrument,
	}
}
