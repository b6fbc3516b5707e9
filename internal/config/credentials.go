package config

import (
	"errors"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// ErrMissingCredentials is returned when STRAVA_EMAIL or STRAVA_PASSWORD is unset
var ErrMissingCredentials = errors.New("must set environment variables STRAVA_EMAIL and STRAVA_PASSWORD, e.g. export STRAVA_EMAIL=YOUR_EMAIL")

// Credentials are the account login details. They are only ever read from the environment.
type Credentials struct {
	Email    string `env:"STRAVA_EMAIL" env-required:"true" env-description:"account email address"`
	Password string `env:"STRAVA_PASSWORD" env-required:"true" env-description:"account password"`
}

// LoadCredentials reads Credentials from the process environment
func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := cleanenv.ReadEnv(&creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}
	return creds, nil
}

// CredentialsUsage describes the environment variables for -help output
func CredentialsUsage() string {
	var creds Credentials
	usage, err := cleanenv.GetDescription(&creds, nil)
	if err != nil {
		return ""
	}
	return usage
}
