package placeorder

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// FormatTelephone приводит номер к E164. Регион берётся из адреса покупателя (код страны);
// без адреса принимаются только номера в международном формате.
func FormatTelephone(telephone, address string) (string, error) {
	region := strings.ToUpper(strings.TrimSpace(address))

	number, err := phonenumbers.Parse(telephone, region)
	if err != nil {
		return "", domain.NewArgumentError("contact.telephone", "invalid phone number format")
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", domain.NewArgumentError("contact.telephone", "invalid phone number")
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}
