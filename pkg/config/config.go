package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Validatable is a configuration section that can check itself.
type Validatable interface {
	Validate() error
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateConfig checks the struct tags of cfg and flattens the validator's
// report into one readable error keyed by mapstructure names.
func validateConfig(cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fieldKey(fe), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

type Config struct {
	LogLevel  string          `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Login     LoginConfig     `mapstructure:"login"`
	Service   ServiceConfig   `mapstructure:"service"`
	Web       WebConfig       `mapstructure:"web"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

func (c Config) Validate() error {
	if err := validateMode(c.Login.Mode); err != nil {
		return err
	}
	return validateConfig(c)
}

// Load decodes the global viper state into T and validates it.
func Load[T Validatable]() (T, error) {
	return LoadFrom[T](viper.GetViper())
}

// LoadFrom decodes v into T and validates it.
func LoadFrom[T Validatable](v *viper.Viper) (T, error) {
	var out T
	if err := v.Unmarshal(&out); err != nil {
		return out, fmt.Errorf("unable to decode config, %w", err)
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("invalid config, %w", err)
	}
	return out, nil
}
