package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/glue-go/uccookie/internal/cmdutil"
	"github.com/glue-go/uccookie/internal/telemetry"
	"github.com/glue-go/uccookie/pkg/config"
	"github.com/glue-go/uccookie/pkg/qrlogin"
)

var (
	log    = logging.Logger("uccookie/cmd")
	tracer = otel.Tracer("uccookie/cmd")
)

// ErrInterrupted is the cancellation cause used when the process receives
// SIGINT or SIGTERM.
var ErrInterrupted = errors.New("interrupted")

var (
	shutdownTelemetry = func(context.Context) error { return nil }
	cliSpan           trace.Span
)

var rootCmd = &cobra.Command{
	Use:   "uccookie",
	Short: "Log in to UC Drive with a QR code and save the session cookies",
	Long: wordwrap.WrapString(
		"Requests a QR login code from UC, shows it either on a local web page "+
			"or in the terminal, and waits until the code is scanned and confirmed "+
			"in the UC app. The session cookies are then written to a file for "+
			"other tools to use."+
			"\n\n"+
			"In web mode the page stays up until it is closed through its shutdown "+
			"endpoint. In shell mode the command exits as soon as the login "+
			"succeeds or fails.",
		80),
	Example: "  uccookie --qrcode-mode web\n" +
		"  uccookie --qrcode-mode shell --cookie-file ./uc_cookie.txt\n" +
		"  UCCOOKIE_LOGIN_MODE=shell uccookie",
	Args:              cobra.NoArgs,
	PersistentPreRunE: setup,
	RunE:              runLogin,
	// We handle errors ourselves when they're returned from ExecuteContext.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	cobra.EnableTraverseRunHooks = true
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	// accept --qrcode_mode as well as --qrcode-mode
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	config.SetDefaults(viper.GetViper())
	initRootFlags()
	cobra.OnInitialize(initConfig)
}

var cfgFilePath string

func initRootFlags() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFilePath,
		"config",
		"",
		"Path to the config file",
	)

	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))

	rootCmd.Flags().StringP("qrcode-mode", "m", "", "How to present the QR code: web or shell (required)")
	cobra.CheckErr(viper.BindPFlag("login.mode", rootCmd.Flags().Lookup("qrcode-mode")))

	rootCmd.Flags().String("cookie-file", config.DefaultCookieFile(), "File the cookies are written to")
	cobra.CheckErr(viper.BindPFlag("login.cookie_file", rootCmd.Flags().Lookup("cookie-file")))

	rootCmd.Flags().String("qrcode-file", config.DefaultQRCodeFile(), "Where the QR image is kept while waiting")
	cobra.CheckErr(viper.BindPFlag("login.qrcode_file", rootCmd.Flags().Lookup("qrcode-file")))

	rootCmd.Flags().Duration("poll-interval", qrlogin.DefaultInterval, "Wait between status polls")
	cobra.CheckErr(viper.BindPFlag("login.poll_interval", rootCmd.Flags().Lookup("poll-interval")))

	rootCmd.Flags().Int("max-errors", qrlogin.DefaultMaxErrors, "Failed status polls tolerated before giving up")
	cobra.CheckErr(viper.BindPFlag("login.max_errors", rootCmd.Flags().Lookup("max-errors")))

	rootCmd.Flags().Duration("max-wait", 0, "Give up after this long without a confirmed scan (0 waits for the code to expire)")
	cobra.CheckErr(viper.BindPFlag("login.max_wait", rootCmd.Flags().Lookup("max-wait")))

	rootCmd.Flags().String("host", config.DefaultWebHost, "Address the web page listens on")
	cobra.CheckErr(viper.BindPFlag("web.host", rootCmd.Flags().Lookup("host")))

	rootCmd.Flags().IntP("port", "p", config.DefaultWebPort, "Port the web page listens on")
	cobra.CheckErr(viper.BindPFlag("web.port", rootCmd.Flags().Lookup("port")))
}

func initConfig() {
	// check if environment variables match any of the existing keys
	// as an example a key is 'login.cookie_file'
	viper.AutomaticEnv()
	// when checking for env vars, rename keys searched for from 'login.cookie_file' to 'login_cookie_file'
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// when checking for env vars, search for keys prefixed with UCCOOKIE
	viper.SetEnvPrefix("UCCOOKIE")

	// when searching for a config file look for files names "uccookie-config.yaml"
	viper.SetConfigName("uccookie-config")
	viper.SetConfigType("yaml")

	// if no config file was provided, first look in the current directory _then_ look in
	// $XDG_CONFIG_HOME/uccookie/
	if cfgFilePath == "" {
		viper.AddConfigPath(".")
		if configDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(configDir, "uccookie"))
		}
	} else {
		// else a config was provided over the cli via a flag, read it in directly
		viper.SetConfigFile(cfgFilePath)
	}
}

// setup reads the config file and prepares logging and telemetry for every
// command.
func setup(cmd *cobra.Command, args []string) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFilePath != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		log.Debugw("loaded config file", "path", viper.ConfigFileUsed())
	}

	if err := cmdutil.SetLogLevel(viper.GetString("log_level")); err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		Enabled:  viper.GetBool("telemetry.enabled"),
		Endpoint: viper.GetString("telemetry.endpoint"),
		Insecure: viper.GetBool("telemetry.insecure"),
	})
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	shutdownTelemetry = shutdown

	ctx, span := tracer.Start(cmd.Context(), "cli")
	cliSpan = span
	setSpanAttributes(cmd, span)
	cmd.SetContext(ctx)
	return nil
}

// ExecuteContext adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cliSpan != nil {
		if err != nil {
			cliSpan.RecordError(err)
			cliSpan.SetStatus(codes.Error, err.Error())
		}
		cliSpan.End()
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := shutdownTelemetry(flushCtx); serr != nil {
		log.Warnw("flushing telemetry", "error", serr)
	}
	return err
}

// commandPath returns the command path for a `cobra.Command`. Where
// `cmd.CommandPath()` returns a concatenated string, this returns a slice of
// the individual commands in the path.
func commandPath(c *cobra.Command) []string {
	var path []string
	if c.HasParent() {
		path = commandPath(c.Parent())
	}
	path = append(path, c.Name())
	return path
}

// setSpanAttributes sets attributes on the provided span based on the command
// and its flags. It will set:
//   - command.path: the full path of the command as a string slice
//   - command.flag.<flag-name>: the value of each flag, as the appropriate type
func setSpanAttributes(cmd *cobra.Command, span trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.StringSlice("command.path", commandPath(cmd)),
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		var err error
		k := "command.flag." + f.Name

		var attr attribute.KeyValue
		switch f.Value.Type() {
		case "bool":
			var v bool
			v, err = cmd.Flags().GetBool(f.Name)
			attr = attribute.Bool(k, v)
		case "boolSlice":
			var v []bool
			v, err = cmd.Flags().GetBoolSlice(f.Name)
			attr = attribute.BoolSlice(k, v)
		case "int":
			var v int
			v, err = cmd.Flags().GetInt(f.Name)
			attr = attribute.Int(k, v)
		case "intSlice":
			var v []int
			v, err = cmd.Flags().GetIntSlice(f.Name)
			attr = attribute.IntSlice(k, v)
		case "int64":
			var v int64
			v, err = cmd.Flags().GetInt64(f.Name)
			attr = attribute.Int64(k, v)
		case "int64Slice":
			var v []int64
			v, err = cmd.Flags().GetInt64Slice(f.Name)
			attr = attribute.Int64Slice(k, v)
		case "float64":
			var v float64
			v, err = cmd.Flags().GetFloat64(f.Name)
			attr = attribute.Float64(k, v)
		case "float64Slice":
			var v []float64
			v, err = cmd.Flags().GetFloat64Slice(f.Name)
			attr = attribute.Float64Slice(k, v)
		case "string":
			var v string
			v, err = cmd.Flags().GetString(f.Name)
			attr = attribute.String(k, v)
		case "stringSlice":
			var v []string
			v, err = cmd.Flags().GetStringSlice(f.Name)
			attr = attribute.StringSlice(k, v)
		default:
			attr = attribute.String(k, f.Value.String())
		}
		if err != nil {
			log.Warnf("getting flag %q value %v for telemetry: %v", f.Name, f.Value, err)
			return
		}

		attrs = append(attrs, attr)
	})

	span.SetAttributes(attrs...)
}
