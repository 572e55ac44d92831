package placeorder

import "github.com/vladislavdragonenkov/placeorder/internal/domain"

// CanConfirm сверяет сумму, авторизованную покупателем, с ценой резервирования продавца.
//
// Сумма покупателя складывается из Amount платёжных авторизаций агента транзакции (карта и прочие способы).
// Сумма продавца складывается из Price авторизаций мест, выполненных от имени продавца.
func CanConfirm(tx domain.Transaction, paymentMethod domain.PaymentMethodType) (bool, error) {
	var (
		creditCards   int
		priceByAgent  int64
		priceBySeller int64
	)

	for _, action := range tx.Object.AuthorizeActions {
		if !action.Completed() {
			continue
		}
		if action.Object.TypeOf == domain.AuthorizeObjectCreditCard {
			creditCards++
		}
		if action.Agent.ID == tx.Agent.ID {
			if payment, ok := action.PaymentResult(); ok {
				priceByAgent += payment.Amount
			}
		}
		if action.Agent.ID == tx.Seller.ID {
			if seat, ok := action.SeatReservationResult(); ok {
				priceBySeller += seat.Price
			}
		}
	}

	if paymentMethod == domain.PaymentMethodCreditCard && creditCards == 0 {
		return false, domain.NewArgumentError("paymentMethod", "credit card authorization required")
	}
	if priceByAgent != priceBySeller {
		return false, domain.NewArgumentError("transactionId", "prices not matched between an agent and a seller")
	}

	return true, nil
}
