package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var configValidate = validator.New()

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ActionPath string `validate:"required"` // action file or directory
	OutputDir  string // base directory for extracts and images

	LogFormat       string `validate:"oneof=text json auto"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`
	Workers         int    `validate:"min=1"`

	Steps     int  `validate:"min=1"`
	MeshDims  int  `validate:"min=2"`
	Watch     bool // reload the action file between passes
	Strict    bool // a pass with errors fails the run
	CacheSize int  `validate:"gte=0"` // 0 disables incremental execution
}

// DefaultConfig returns the defaults the CLI starts from.
func DefaultConfig() Config {
	return Config{
		LogFormat: "auto",
		LogLevel:  "info",
		Workers:   1,
		Steps:     1,
		MeshDims:  10,
	}
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if err := configValidate.Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return &cfg, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", fe.Field(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
