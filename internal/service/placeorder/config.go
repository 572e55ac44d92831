package placeorder

import "github.com/vladislavdragonenkov/placeorder/internal/domain"

// Config — параметры ядра. Создаётся один раз при старте процесса и передаётся в NewService.
type Config struct {
	// Project проставляется во все транзакции, заказы и отложенные действия.
	Project domain.Project
	// PassportIssuers — допустимые издатели паспортов.
	PassportIssuers []string
	// DefaultInformOrderURLs — веб-хуки, которые уведомляются, если вызывающая сторона не передала свои.
	DefaultInformOrderURLs []string
}

func (c Config) defaultInformOrder() []domain.InformOrderParams {
	params := make([]domain.InformOrderParams, 0, len(c.DefaultInformOrderURLs))
	for _, url := range c.DefaultInformOrderURLs {
		params = append(params, domain.InformOrderParams{Recipient: &domain.InformOrderRecipient{URL: url}})
	}
	return params
}
