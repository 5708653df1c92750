package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/glue-go/uccookie/internal/output"
)

// settings lists the keys shown by the config command, in display order.
var settings = []string{
	"login.mode",
	"login.cookie_file",
	"login.qrcode_file",
	"login.poll_interval",
	"login.max_errors",
	"login.max_wait",
	"web.host",
	"web.port",
	"service.api_url",
	"service.drive_url",
	"service.drive_api_url",
	"service.qrcode_url",
	"service.client_id",
	"service.request_timeout",
	"service.poll_timeout",
	"telemetry.enabled",
	"telemetry.endpoint",
	"log_level",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved configuration",
	Long:  "Display the fully resolved configuration showing all settings and their sources.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := [][]string{{"SETTING", "VALUE", "SOURCE", "ENV"}}
		for _, key := range settings {
			env := envVar(key)
			rows = append(rows, []string{key, fmt.Sprint(viper.Get(key)), configSource(key, env), env})
		}
		if f := viper.ConfigFileUsed(); f != "" {
			cmd.Printf("Config file: %s\n\n", f)
		}
		output.Table(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func envVar(key string) string {
	return "UCCOOKIE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// configSource determines where a viper key's value came from.
// Priority: env > config file > default (flags not detectable from config cmd).
func configSource(key, envVar string) string {
	if os.Getenv(envVar) != "" {
		return "env"
	}
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		// Read the config file independently to check if this key is set there.
		fileCfg := viper.New()
		fileCfg.SetConfigFile(cfgFile)
		if err := fileCfg.ReadInConfig(); err == nil && fileCfg.IsSet(key) {
			return "config file"
		}
	}
	return "default"
}
