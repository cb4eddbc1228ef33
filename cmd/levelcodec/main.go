// Command levelcodec inspects and converts level assets: texture
// containers, material definitions and BSP entity lumps.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ernie/levelcodec/internal/config"
)

const usage = `usage: levelcodec [--config file] [--log-level level] <command> [args]

commands:
  vtf <file.vtf>                      print the texture header
  vtf-export <file.vtf> <out.tga>     write one mip level as TGA
  vmt <file.vmt>                      print the resolved material
  bsp2map <in.bsp> <out.map|->        write BSP entities as a map document
  pack <out.zip> <material...>        bundle materials and their textures
  scan [dir|archive...]               populate the asset catalog
`

type command func(cfg *config.Config, args []string) error

var commands = map[string]command{
	"vtf":        runVTF,
	"vtf-export": runVTFExport,
	"vmt":        runVMT,
	"bsp2map":    runBSP2Map,
	"pack":       runPack,
	"scan":       runScan,
}

func main() {
	global := flag.NewFlagSet("levelcodec", flag.ContinueOnError)
	global.SetInterspersed(false)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := global.String("config", "", "YAML configuration file")
	logLevel := global.String("log-level", "", "log level (debug, info, warn, error)")

	if err := global.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return
		}
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := setupLogger(cfg.Log.Level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		global.Usage()
		os.Exit(2)
	}
	if err := run(cfg, args[1:]); err != nil {
		log.Error().Err(err).Str("command", args[0]).Msg("failed")
		os.Exit(1)
	}
}

// setupLogger writes human-readable logs to a terminal and JSON otherwise.
func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}
