package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvEndpoint = "AI_SERVICE_ENDPOINT"
	EnvKey      = "AI_SERVICE_KEY"
)

// Config holds the credentials for the remote face detection service.
type Config struct {
	Endpoint string `validate:"required,url"`
	Key      string `validate:"required"`
}

// Error reports a missing or invalid configuration value.
type Error struct {
	Variable string
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Variable, e.Reason)
}

var validate = validator.New()

// LoadDotenv loads a .env file from the working directory into the process
// environment. A missing file is not an error; already-set variables win.
func LoadDotenv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

// Load reads the service endpoint and key from the environment and validates
// them. It performs no network I/O.
func Load() (*Config, error) {
	cfg := &Config{
		Endpoint: os.Getenv(EnvEndpoint),
		Key:      os.Getenv(EnvKey),
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, configError(verrs[0])
		}
		return nil, err
	}

	return cfg, nil
}

func configError(fe validator.FieldError) *Error {
	variable := EnvEndpoint
	if fe.Field() == "Key" {
		variable = EnvKey
	}

	reason := "is missing or empty"
	if fe.Tag() == "url" {
		reason = "is not a valid URL"
	}
	return &Error{Variable: variable, Reason: reason}
}
