// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"strings"

	"spendwise/internal/models"
	"spendwise/internal/uuid"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("date_only", validateDateOnly)
		_ = v.RegisterValidation("uuid_list", validateUUIDList)
		_ = v.RegisterValidation("money", validateMoney)
	}
}

// decimalValue lets numeric tags such as gt=0 compare decimal amounts.
func decimalValue(field reflect.Value) interface{} {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	return d.InexactFloat64()
}

func validateDateOnly(fl validator.FieldLevel) bool {
	_, err := models.ParseDate(fl.Field().String())
	return err == nil
}

func validateUUIDList(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		return true
	}
	_, err := uuid.ParseList(raw)
	return err == nil
}

// validateMoney rejects amounts with more than two fractional digits or
// beyond the numeric(12,2) column range.
func validateMoney(fl validator.FieldLevel) bool {
	var d decimal.Decimal
	switch v := fl.Field().Interface().(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		return false
	}
	if !d.Equal(d.Round(2)) {
		return false
	}
	return d.Abs().LessThan(decimal.New(1, 10))
}
