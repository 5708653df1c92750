package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/glue-go/uccookie/cmd/internal/shell"
	"github.com/glue-go/uccookie/cmd/internal/web"
	"github.com/glue-go/uccookie/internal/cmdutil"
	"github.com/glue-go/uccookie/internal/ctxutil"
	"github.com/glue-go/uccookie/pkg/bus"
	"github.com/glue-go/uccookie/pkg/config"
	"github.com/glue-go/uccookie/pkg/cookiestore"
	"github.com/glue-go/uccookie/pkg/qrcode"
	"github.com/glue-go/uccookie/pkg/qrlogin"
	"github.com/glue-go/uccookie/pkg/ucclient"
)

var errSurfaceClosed = errors.New("presentation surface closed")

func runLogin(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()

	// A QR image left behind by an earlier run must never be served.
	if path := viper.GetString("login.qrcode_file"); path != "" {
		if err := qrcode.Discard(fs, path); err != nil {
			log.Warnw("removing stale qr code", "path", path, "error", err)
		}
	}

	cfg, err := config.Load[config.Config]()
	if err != nil {
		if errors.Is(err, config.ErrUnknownMode) {
			cmd.SilenceUsage = false
		}
		return err
	}

	r := loginRunner{
		fs:          fs,
		out:         cmd.OutOrStdout(),
		interactive: shell.IsTerminal(os.Stdout),
	}
	return r.login(cmd.Context(), cfg)
}

type loginRunner struct {
	fs          afero.Fs
	out         io.Writer
	interactive bool
	clientOpts  []ucclient.Option
}

// login runs one QR login: it issues a token, publishes the QR code, and runs
// the polling machine next to the presentation surface until both are done.
// An interrupted login is not an error.
func (r loginRunner) login(ctx context.Context, cfg config.Config) error {
	ctx, span := tracer.Start(ctx, "login", trace.WithAttributes(
		attribute.String("login.mode", cfg.Login.Mode),
	))
	defer span.End()

	client, err := cmdutil.NewClient(cfg.Service, r.clientOpts...)
	if err != nil {
		return err
	}

	token, err := client.RequestToken(ctx)
	if err != nil {
		return fmt.Errorf("requesting login token: %w", err)
	}

	code, err := qrcode.New(client.LoginURL(token))
	if err != nil {
		return err
	}
	artifact, err := qrcode.WriteArtifact(r.fs, cfg.Login.QRCodeFile, code)
	if err != nil {
		return err
	}
	defer func() {
		if err := artifact.Remove(); err != nil {
			log.Warnw("removing qr code", "path", artifact.Path(), "error", err)
		}
	}()

	publisher := qrlogin.NewPublisher()
	eb := bus.New()
	machine := qrlogin.New(client, cookiestore.NewFileFs(r.fs, cfg.Login.CookieFile), publisher,
		qrlogin.WithInterval(cfg.Login.PollInterval),
		qrlogin.WithMaxErrors(cfg.Login.MaxErrors),
		qrlogin.WithMaxWait(cfg.Login.MaxWait),
		qrlogin.WithBus(eb),
		qrlogin.WithVerbose(cfg.LogLevel == "debug"),
	)
	log.Infow("waiting for the qr code to be scanned", "attempt", machine.ID(), "mode", cfg.Login.Mode, "qrcode", artifact.Path())

	// Whichever way the surface ends, the machine must stop too.
	surfaceCtx, stopSurface := context.WithCancelCause(ctx)
	defer stopSurface(nil)

	g, gctx := errgroup.WithContext(surfaceCtx)
	var result qrlogin.Result
	g.Go(func() error {
		result = machine.Run(gctx, token)
		return nil
	})
	g.Go(func() error {
		defer stopSurface(errSurfaceClosed)
		return r.present(gctx, cfg, code, artifact, publisher, eb, machine.ID())
	})
	err = g.Wait()
	eb.WaitAsync()

	switch {
	case ctx.Err() != nil && (err == nil || ctxutil.IsCancellation(err)):
		log.Infow("login interrupted", "attempt", machine.ID(), "cause", context.Cause(ctx))
		return nil
	case errors.Is(err, shell.ErrLoginFailed):
		return fmt.Errorf("%w: %w", shell.ErrLoginFailed, result.Err)
	case err != nil:
		return err
	}

	if result.Status == qrlogin.Success {
		log.Infow("cookies saved", "path", cfg.Login.CookieFile, "cookies", len(result.Cookies))
	}
	return nil
}

func (r loginRunner) present(
	ctx context.Context,
	cfg config.Config,
	code *qrcode.Code,
	artifact *qrcode.Artifact,
	publisher *qrlogin.Publisher,
	eb bus.Subscriber,
	attempt uuid.UUID,
) error {
	switch cfg.Login.Mode {
	case config.ModeShell:
		return shell.Run(ctx, shell.Params{
			Code:        code,
			Publisher:   publisher,
			Bus:         eb,
			AttemptID:   attempt,
			CookieFile:  cfg.Login.CookieFile,
			Out:         r.out,
			Interactive: r.interactive,
		})
	case config.ModeWeb:
		addr := net.JoinHostPort(cfg.Web.Host, strconv.Itoa(cfg.Web.Port))
		return web.New(publisher, artifact).Serve(ctx, addr, r.out)
	default:
		return fmt.Errorf("%w %q", config.ErrUnknownMode, cfg.Login.Mode)
	}
}
