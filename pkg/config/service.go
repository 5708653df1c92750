package config

import "time"

// ServiceConfig points the client at the UC login and drive services.
type ServiceConfig struct {
	APIURL         string        `mapstructure:"api_url" validate:"required,url"`
	DriveURL       string        `mapstructure:"drive_url" validate:"required,url"`
	DriveAPIURL    string        `mapstructure:"drive_api_url" validate:"required,url"`
	QRCodeURL      string        `mapstructure:"qrcode_url" validate:"required,url"`
	ClientID       int           `mapstructure:"client_id" validate:"gt=0"`
	UserAgent      string        `mapstructure:"user_agent" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout" validate:"gt=0"`
}

func (s ServiceConfig) Validate() error {
	return validateConfig(s)
}
