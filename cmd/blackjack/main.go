package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every command
type Globals struct {
	Config string `short:"c" default:"blackjack.hcl" help:"HCL configuration file (missing file means defaults)"`
	Debug  bool   `help:"Enable debug logging"`
}

type CLI struct {
	Globals

	ShowVersion kong.VersionFlag `name:"version" short:"v" help:"Show version"`
	Play        PlayCmd          `cmd:"" default:"1" help:"Play at the table in the terminal"`
	Simulate    SimulateCmd      `cmd:"" help:"Run headless sessions and report results"`
	ServeFeed   ServeFeedCmd     `cmd:"serve-feed" help:"Run a self-playing table with a WebSocket spectator feed"`
	Version     VersionCmd       `cmd:"" help:"Print the version"`
}

// VersionCmd prints the build version
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("blackjack", version)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Multi-seat blackjack table with computer players"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
