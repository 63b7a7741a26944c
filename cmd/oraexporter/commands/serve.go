package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/oraexporter/internal/config"
	"git.home.luguber.info/inful/oraexporter/internal/daemon"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	StopTimeout time.Duration `help:"Maximum time to wait for a graceful shutdown" default:"30s"`
	NoWatch     bool          `help:"Do not reload the configuration file when it changes"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	g.Logger = root.ConfigureLogging(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []daemon.Option{
		daemon.WithLogger(g.Logger),
		daemon.WithLevelVar(root.LevelVar()),
		daemon.WithPinnedLogLevel(root.Verbose),
	}
	if !s.NoWatch {
		opts = append(opts, daemon.WithConfigFile(root.Config))
	}

	d, err := daemon.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	return d.Run(ctx, s.StopTimeout)
}
