package placeorder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

func TestCreateResult_TwoSeats(t *testing.T) {
	tx := fixtureConfirmable(2000)

	result, err := CreateResult("000001", tx, fixtureNow)
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, "TT-260302-000001", order.OrderNumber)
	assert.Equal(t, "20260302000001", order.ConfirmationNumber)
	assert.Equal(t, int64(2000), order.Price)
	assert.Equal(t, domain.PriceCurrencyJPY, order.PriceCurrency)
	assert.Equal(t, domain.OrderStatusDelivered, order.OrderStatus)
	assert.False(t, order.IsGift)
	assert.NotNil(t, order.Discounts)
	assert.Empty(t, order.Discounts)
	assert.Equal(t, fixtureNow, order.OrderDate)
	assert.Equal(t, fixtureProject, order.Project)
	assert.Equal(t, "東京タワー", order.Seller.Name)

	assert.Equal(t, "Taro Yamada", order.Customer.Name)
	assert.Equal(t, "agent-1", order.Customer.ID)
	assert.Equal(t, "", order.Customer.URL)
	assert.Equal(t, "taro@example.com", order.Customer.Email)

	require.Len(t, order.PaymentMethods, 1)
	assert.Equal(t, domain.PaymentMethodCreditCard, order.PaymentMethods[0].TypeOf)
	assert.Equal(t, "gmo-order-1", order.PaymentMethods[0].PaymentMethodID)

	require.Len(t, order.AcceptedOffers, 2)
	for i, offer := range order.AcceptedOffers {
		assert.Equal(t, int64(1000), offer.Price)
		assert.Equal(t, "東京タワー", offer.Seller.Name)

		reservation := offer.ItemOffered
		assert.Equal(t, domain.ReservationStatusConfirmed, reservation.ReservationStatus)
		require.NotNil(t, reservation.BookingTime)
		assert.Equal(t, fixtureNow, *reservation.BookingTime)
		require.NotNil(t, reservation.UnderName)

		last := reservation.AdditionalProperty[len(reservation.AdditionalProperty)-1]
		assert.Equal(t, domain.PropertyValue{Name: "paymentSeatIndex", Value: []string{"0", "1"}[i]}, last)
	}

	first := order.AcceptedOffers[0].ItemOffered
	assert.Equal(t, "reservation-1", first.ID)
	assert.Equal(t, "wheelchair", first.AdditionalTicketText)
	assert.Equal(t, []domain.PropertyValue{
		{Name: "extra", Value: "1"},
		{Name: "paymentSeatIndex", Value: "0"},
	}, first.AdditionalProperty)

	assert.Equal(t, []domain.PropertyValue{
		{Name: "orderNumber", Value: "TT-260302-000001"},
		{Name: "paymentNo", Value: "000001"},
		{Name: "transaction", Value: "tx-1"},
		{Name: "gmoOrderId", Value: "gmo-order-1"},
		{Name: "age", Value: "30"},
		{Name: "clientId", Value: "client-1"},
		{Name: "username", Value: "user-1"},
		{Name: "paymentMethod", Value: "クレジットカード"},
	}, first.UnderName.Identifier)
	assert.Equal(t, "Taro Yamada", first.UnderName.Name)
	assert.Equal(t, "Person", first.UnderName.TypeOf)
}

func TestCreateResult_IsDeterministic(t *testing.T) {
	tx := fixtureConfirmable(2000)

	first, err := CreateResult("000042", tx, fixtureNow)
	require.NoError(t, err)
	second, err := CreateResult("000042", tx, fixtureNow)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCreateResult_DoesNotMutateInput(t *testing.T) {
	tx := fixtureConfirmable(2000)

	_, err := CreateResult("000001", tx, fixtureNow)
	require.NoError(t, err)

	seat, ok := tx.Object.AuthorizeActions[0].SeatReservationResult()
	require.True(t, ok)
	for _, r := range seat.ResponseBody.Object.Reservations {
		assert.Equal(t, domain.ReservationStatusPending, r.ReservationStatus)
		assert.Nil(t, r.UnderName)
	}
	assert.Len(t, seat.TmpReservations[0].AdditionalProperty, 1)
}

func TestCreateResult_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tx *domain.Transaction)
	}{
		{
			name: "no seat reservation",
			mutate: func(tx *domain.Transaction) {
				tx.Object.AuthorizeActions = tx.Object.AuthorizeActions[1:]
			},
		},
		{
			name: "missing response body",
			mutate: func(tx *domain.Transaction) {
				seat := tx.Object.AuthorizeActions[0]
				res := *seat.Result.SeatReservation
				res.ResponseBody = nil
				seat.Result = &domain.AuthorizeResult{SeatReservation: &res}
				tx.Object.AuthorizeActions[0] = seat
			},
		},
		{
			name: "unexpected temporary reservation",
			mutate: func(tx *domain.Transaction) {
				seat := tx.Object.AuthorizeActions[0]
				res := *seat.Result.SeatReservation
				res.TmpReservations = append(append([]domain.TemporaryReservation{}, res.TmpReservations...),
					domain.TemporaryReservation{ID: "reservation-unknown"})
				seat.Result = &domain.AuthorizeResult{SeatReservation: &res}
				tx.Object.AuthorizeActions[0] = seat
			},
		},
		{
			name: "empty temporary reservations",
			mutate: func(tx *domain.Transaction) {
				seat := tx.Object.AuthorizeActions[0]
				res := *seat.Result.SeatReservation
				res.TmpReservations = nil
				seat.Result = &domain.AuthorizeResult{SeatReservation: &res}
				tx.Object.AuthorizeActions[0] = seat
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := fixtureConfirmable(2000)
			tt.mutate(&tx)

			_, err := CreateResult("000001", tx, fixtureNow)
			require.Error(t, err)
			assert.True(t, domain.IsArgument(err), "expected argument error, got %v", err)
		})
	}
}

func TestCreateResult_WithoutCreditCard(t *testing.T) {
	tx := fixtureConfirmable(2000)
	tx.Object.AuthorizeActions = tx.Object.AuthorizeActions[:1]
	tx.Agent.MemberOf = nil
	tx.Agent.Age = ""

	result, err := CreateResult("000007", tx, fixtureNow)
	require.NoError(t, err)

	assert.Empty(t, result.Order.PaymentMethods)
	underName := result.Order.AcceptedOffers[0].ItemOffered.UnderName
	assert.Equal(t, []domain.PropertyValue{
		{Name: "orderNumber", Value: "TT-260302-000007"},
		{Name: "paymentNo", Value: "000007"},
		{Name: "transaction", Value: "tx-1"},
		{Name: "gmoOrderId", Value: ""},
		{Name: "clientId", Value: "client-1"},
	}, underName.Identifier)
}
