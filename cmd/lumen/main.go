package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

var version = "dev"

// CLI represents the main CLI structure
type CLI struct {
	ConfigFile string `name:"config" short:"c" type:"path" env:"LUMEN_CONFIG" help:"Config file (toml or json)"`
	APIKey     string `name:"api-key" help:"Gemini API key, overrides config and environment"`
	LogLevel   string `enum:"debug,info,warn,error," default:"" help:"Log level (debug, info, warn, error)"`

	Version kong.VersionFlag `help:"Print version and exit"`

	// Chat is the default command
	Chat ChatCmd `cmd:"" default:"withargs" help:"Start the interactive chat (default)"`

	Prompt        PromptCmd        `cmd:"" help:"Send a single message and print the reply"`
	Image         ImageCmd         `cmd:"" help:"Generate or edit images"`
	Preview       PreviewCmd       `cmd:"" help:"Serve code in the browser preview"`
	Conversations ConversationsCmd `cmd:"" aliases:"conv" help:"Manage saved conversations"`
	Memory        MemoryCmd        `cmd:"" help:"Show or change remembered facts"`
	Settings      SettingsCmd      `cmd:"" help:"Show or change tone and reply length"`
	Config        ConfigCmd        `cmd:"" help:"Inspect or create configuration"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("lumen"),
		kong.Description("Chat with Gemini from the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{"version": version},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run(&cli)
	stop()
	if err != nil {
		NewErrorHandler(createCLILogger(cli.LogLevel)).HandleError(err)
	}
}
