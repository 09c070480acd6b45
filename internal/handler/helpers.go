package handler

import (
	"net/http"
	"reflect"
	"strconv"

	"afipws/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = validate.RegisterValidation("cuit", validCUIT)
}

// cuitWeights is AFIP's mod-11 weight sequence for the first ten digits.
var cuitWeights = [10]int64{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// validCUIT checks the CUIT's length and mod-11 verification digit.
func validCUIT(fl validator.FieldLevel) bool {
	var cuit int64
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int64:
		cuit = fl.Field().Int()
	case reflect.String:
		var err error
		cuit, err = strconv.ParseInt(fl.Field().String(), 10, 64)
		if err != nil {
			return false
		}
	default:
		return false
	}
	if cuit < 20000000000 || cuit > 39999999999 {
		return false
	}

	check := cuit % 10
	body := cuit / 10
	var sum int64
	for i := 9; i >= 0; i-- {
		sum += (body % 10) * cuitWeights[i]
		body /= 10
	}
	mod := 11 - sum%11
	switch mod {
	case 11:
		mod = 0
	case 10:
		mod = 9
	}
	return mod == check
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}
