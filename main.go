package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/ipfs/go-log/v2"

	"github.com/glue-go/uccookie/cmd"
	"github.com/glue-go/uccookie/internal/cmdutil"
	"github.com/glue-go/uccookie/internal/output"
)

var log = logging.Logger("uccookie/main")

func main() {
	// set up a context that is canceled when the command is interrupted
	ctx, cancel := context.WithCancelCause(context.Background())

	// set up a signal handler to cancel the context
	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			log.Info("received interrupt signal")
			cancel(cmd.ErrInterrupted)
		case <-ctx.Done():
		}

		// Allow any further SIGTERM or SIGINT to kill process
		signal.Stop(interrupt)
	}()

	err := cmd.ExecuteContext(ctx)
	cancel(nil)
	if err != nil {
		output.Error(os.Stderr, cmdutil.TranslateError(err))
		os.Exit(1)
	}
}
