// gpriv is the restricted privacy node: it distributes private transactions
// to the enclave and keeps the extended privacy records of private contracts.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/tos-network/gpriv/internal/debug"
	"github.com/tos-network/gpriv/internal/flags"
	"github.com/tos-network/gpriv/metrics"
	"github.com/urfave/cli/v2"
)

const clientIdentifier = "gpriv"

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app *cli.App

var serveCommand = &cli.Command{
	Action:    serve,
	Name:      "serve",
	Usage:     "Run the privacy JSON-RPC server",
	ArgsUsage: " ",
	Flags:     serveFlags,
	Description: `
Serves the priv_* JSON-RPC methods (and eth_getStorageAt when --state.rpc is
set) over HTTP and WebSocket until interrupted.`,
}

func init() {
	app = flags.NewApp(gitCommit, gitDate, "the restricted privacy node")
	app.Commands = []*cli.Command{
		serveCommand,
		commandAddress,
		commandPrivateSet,
		dumpConfigCommand,
		versionCommand,
	}
	app.Flags = debug.Flags
	app.Before = func(ctx *cli.Context) error {
		flags.MigrateGlobalFlags(ctx)
		flags.CheckEnvVars(ctx, serveFlags, "GPRIV_")
		return debug.Setup(ctx)
	}
	app.After = func(ctx *cli.Context) error {
		debug.Exit()
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serve is the serve command.
func serve(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if err := metrics.Setup(&cfg.Metrics); err != nil {
		return err
	}
	node, err := newPrivacyNode(ctx.Context, cfg)
	if err != nil {
		return err
	}
	if err := node.Start(); err != nil {
		node.Close()
		return err
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	sig := <-sigc
	log.Info("Got interrupt, shutting down...", "signal", sig)
	return node.Close()
}
