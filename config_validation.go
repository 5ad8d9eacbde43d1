package usbrelay

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var configValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// validatePortName is the single source for port-name rules.
	_ = v.RegisterValidation("serialport", func(fl validator.FieldLevel) bool {
		return validatePortName(fl.Field().String()) == nil
	})
	return v
})

// ValidateConfig validates driver configuration parameters
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := configValidator().Struct(cfg); err != nil {
		return configError(err)
	}
	return nil
}

// ValidateScannerConfig validates scanner configuration parameters
func ValidateScannerConfig(cfg *ScannerConfig) error {
	if cfg == nil {
		return errors.New("scanner config is nil")
	}
	if err := configValidator().Struct(cfg); err != nil {
		return configError(err)
	}
	return nil
}

// configError turns the first validator failure into a readable error.
func configError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]

	switch fe.Tag() {
	case "required":
		err = fmt.Errorf("%s cannot be empty", fe.Field())
	case "serialport":
		err = validatePortName(fmt.Sprint(fe.Value()))
	case "oneof":
		err = fmt.Errorf("invalid %s %v, must be one of: %s", fe.Field(), fe.Value(), fe.Param())
	case "gtefield":
		err = fmt.Errorf("%s %v must not be below %s", fe.Field(), fe.Value(), strings.ToLower(fe.Param()))
	default:
		err = fmt.Errorf("%s %v fails %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
	}

	if fe.StructField() == "PortName" && !errors.Is(err, ErrInvalidPortName) {
		err = fmt.Errorf("%w: %w", ErrInvalidPortName, err)
	}
	return err
}
