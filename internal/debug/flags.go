// Package debug sets up logging for the gpriv commands.
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/tos-network/gpriv/internal/flags"
	"github.com/urfave/cli/v2"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: flags.LoggingCategory,
	}
	vmoduleFlag = &cli.StringFlag{
		Name:     "vmodule",
		Usage:    "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. privacy/*=5)",
		Value:    "",
		Category: flags.LoggingCategory,
	}
	logjsonFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: flags.LoggingCategory,
	}
	logFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file instead of stderr",
		Category: flags.LoggingCategory,
	}
)

// Flags holds all command-line flags required for debugging.
var Flags = []cli.Flag{
	verbosityFlag,
	vmoduleFlag,
	logjsonFlag,
	logFileFlag,
}

var (
	glogger *log.GlogHandler
	logFile *os.File
)

func init() {
	glogger = log.NewGlogHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(false)))
	glogger.Verbosity(log.LvlInfo)
	log.Root().SetHandler(glogger)
}

// Setup initializes logging based on the CLI flags. It should be called as
// early as possible in the program.
func Setup(ctx *cli.Context) error {
	var (
		output   io.Writer = colorable.NewColorableStderr()
		usecolor           = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if path := ctx.String(logFileFlag.Name); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("can't open log file: %v", err)
		}
		logFile, output, usecolor = f, f, false
	}
	format := log.TerminalFormat(usecolor)
	if ctx.Bool(logjsonFlag.Name) {
		format = log.JSONFormat()
	}
	glogger = log.NewGlogHandler(log.StreamHandler(output, format))

	verbosity := ctx.Int(verbosityFlag.Name)
	glogger.Verbosity(log.Lvl(verbosity))
	if err := glogger.Vmodule(ctx.String(vmoduleFlag.Name)); err != nil {
		return fmt.Errorf("invalid --%s: %v", vmoduleFlag.Name, err)
	}
	log.Root().SetHandler(glogger)
	return nil
}

// Exit flushes and closes the log file, if any.
func Exit() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
