package config

import (
	"github.com/spf13/viper"

	"github.com/glue-go/uccookie/pkg/qrlogin"
	"github.com/glue-go/uccookie/pkg/ucclient"
)

const (
	DefaultWebHost = "0.0.0.0"
	DefaultWebPort = 34256
)

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("login.mode", "")
	v.SetDefault("login.cookie_file", DefaultCookieFile())
	v.SetDefault("login.qrcode_file", DefaultQRCodeFile())
	v.SetDefault("login.poll_interval", qrlogin.DefaultInterval)
	v.SetDefault("login.max_errors", qrlogin.DefaultMaxErrors)
	v.SetDefault("login.max_wait", 0)

	v.SetDefault("service.api_url", ucclient.DefaultEndpoints.API)
	v.SetDefault("service.drive_url", ucclient.DefaultEndpoints.Drive)
	v.SetDefault("service.drive_api_url", ucclient.DefaultEndpoints.DriveAPI)
	v.SetDefault("service.qrcode_url", ucclient.DefaultEndpoints.QRCode)
	v.SetDefault("service.client_id", 381)
	v.SetDefault("service.user_agent", ucclient.DefaultUserAgent)
	v.SetDefault("service.request_timeout", ucclient.DefaultTimeouts.Request)
	v.SetDefault("service.poll_timeout", ucclient.DefaultTimeouts.Poll)

	v.SetDefault("web.host", DefaultWebHost)
	v.SetDefault("web.port", DefaultWebPort)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.insecure", false)
}
