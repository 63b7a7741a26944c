package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/oraexporter/cmd/oraexporter/commands"
	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
	"git.home.luguber.info/inful/oraexporter/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("oraexporter"),
		kong.Description("Prometheus exporter for Oracle database metrics."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := parser.Run(&commands.Global{}, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
