package validator

import (
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	"patient-management/internal/domain/entity"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)

// Accepted age range of a date of birth, in years.
const (
	MinAge = 0
	MaxAge = 120
)

type CustomValidator struct {
	validator *validator.Validate
	now       func() time.Time
}

func NewValidator() *CustomValidator {
	cv := &CustomValidator{
		validator: validator.New(),
		now:       time.Now,
	}

	cv.validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = cv.validator.RegisterValidation("phone", validatePhone)
	_ = cv.validator.RegisterValidation("bloodgroup", validateBloodGroup)
	_ = cv.validator.RegisterValidation("agerange", cv.validateAgeRange)
	_ = cv.validator.RegisterValidation("slottime", validateClock)

	return cv
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func validateBloodGroup(fl validator.FieldLevel) bool {
	return slices.Contains(entity.BloodGroups, fl.Field().String())
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

// validateAgeRange accepts a YYYY-MM-DD date of birth whose age is within MinAge..MaxAge.
func (cv *CustomValidator) validateAgeRange(fl validator.FieldLevel) bool {
	dob, err := time.Parse(entity.DateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	p := entity.Patient{DateOfBirth: dob.Format(entity.DateLayout)}
	age := p.Age(cv.now(), true)
	return age >= MinAge && age <= MaxAge && !dob.After(cv.now())
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = field + " is required"
			case "email":
				errors[field] = field + " must be a valid email address"
			case "min":
				errors[field] = field + " must be at least " + e.Param() + " characters"
			case "max":
				errors[field] = field + " must be at most " + e.Param() + " characters"
			case "gte":
				errors[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errors[field] = field + " must be less than or equal to " + e.Param()
			case "oneof":
				errors[field] = field + " must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
			case "phone":
				errors[field] = field + " must be a valid phone number"
			case "bloodgroup":
				errors[field] = field + " must be a valid blood group"
			case "agerange":
				errors[field] = field + " must give an age between 0 and 120 years"
			case "datetime":
				errors[field] = field + " must be a date in YYYY-MM-DD format"
			case "slottime":
				errors[field] = field + " must be a time in HH:MM format"
			default:
				errors[field] = field + " is invalid"
			}
		}
	}

	return errors
}
