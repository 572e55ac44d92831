package placeorder

import (
	"slices"
	"strings"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

const passportScopePrefix = "placeOrderTransaction"

// PassportScope возвращает scope паспорта, выданного для продавца.
func PassportScope(sellerIdentifier string) string {
	return passportScopePrefix + "." + sellerIdentifier
}

// ValidatePassport проверяет издателя по списку и scope вида placeOrderTransaction.<seller>.
// Сегменты после идентификатора продавца не проверяются.
func ValidatePassport(passport domain.Passport, sellerIdentifier string, issuers []string) bool {
	if !slices.Contains(issuers, passport.Issuer) {
		return false
	}
	segments := strings.Split(passport.Scope, ".")
	return len(segments) >= 2 &&
		segments[0] == passportScopePrefix &&
		segments[1] == sellerIdentifier
}
