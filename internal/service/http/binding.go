package httpsvc

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

var jsonFieldNamesOnce sync.Once

// useJSONFieldNames заставляет валидатор gin называть поля так же, как они названы в JSON.
func useJSONFieldNames() {
	jsonFieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
}

// bindJSON декодирует уже прочитанное тело и проверяет binding-теги.
// Ошибки валидации превращаются в Argument с путями невалидных полей.
func bindJSON(body []byte, obj any) error {
	err := binding.JSON.BindBody(body, obj)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return domain.NewArgumentError("body", "invalid json")
	}

	fields := make([]string, 0, len(validationErrs))
	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		path := fieldPath(fe)
		fields = append(fields, path)
		messages = append(messages, path+" failed on "+fe.Tag())
	}
	return &domain.Error{
		Kind:    domain.ErrArgument,
		Entity:  fields[0],
		Fields:  fields,
		Message: strings.Join(messages, "; "),
	}
}

// fieldPath отрезает имя корневой структуры: ConfirmRequest.paymentMethod -> paymentMethod.
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}
