package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/oraexporter/internal/config"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"oraexporter.yaml" env:"ORAEXPORTER_CONFIG" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve ServeCmd `cmd:"" default:"1" help:"Collect metrics periodically and serve them over HTTP (default)"`
	Check CheckCmd `cmd:"" help:"Run one collection cycle, print every value and exit"`
	Init  InitCmd  `cmd:"" help:"Initialize a new configuration file"`

	levelVar *slog.LevelVar `kong:"-"`
	logOut   io.Writer      `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once. The configuration is not
// loaded yet, so this installs a text handler that ConfigureLogging may replace.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.levelVar = new(slog.LevelVar)
	if c.Verbose {
		c.levelVar.Set(slog.LevelDebug)
	}
	if c.logOut == nil {
		c.logOut = os.Stderr
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(c.logOut, &slog.HandlerOptions{Level: c.levelVar})))
	return nil
}

// ConfigureLogging applies the logging section of cfg. --verbose keeps debug output.
func (c *CLI) ConfigureLogging(cfg config.LoggingConfig) *slog.Logger {
	if c.levelVar == nil {
		_ = c.AfterApply()
	}
	if !c.Verbose {
		c.levelVar.Set(cfg.Level.SlogLevel())
	}
	opts := &slog.HandlerOptions{Level: c.levelVar}
	var handler slog.Handler = slog.NewTextHandler(c.logOut, opts)
	if cfg.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(c.logOut, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// LevelVar is the shared level adjusted by configuration reloads.
func (c *CLI) LevelVar() *slog.LevelVar { return c.levelVar }
