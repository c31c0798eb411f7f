package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/elee1766/lumen/src/preview"
)

// PreviewCmd serves a file or piped code in the browser preview
type PreviewCmd struct {
	File     string `arg:"" optional:"" type:"existingfile" help:"File to preview. Reads stdin when omitted"`
	Language string `short:"l" help:"Language of the code. Guessed from the file extension when omitted"`
	Markdown bool   `short:"m" help:"Treat the input as markdown and preview its last fenced code block"`
	Addr     string `help:"Listen address, overrides config"`
}

// Run executes the preview command
func (c *PreviewCmd) Run(ctx context.Context, cli *CLI) error {
	mgr, err := loadConfig(cli)
	if err != nil {
		return err
	}
	cfg := mgr.GetConfig()
	logger := createCLILogger(cfg.Logging.Level)

	src, err := c.read(os.Stdin)
	if err != nil {
		return err
	}
	block, err := c.block(src)
	if err != nil {
		return err
	}

	addr := cfg.Preview.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	server := preview.NewServer(preview.ServerConfig{Addr: addr, Logger: logger})
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Close(shutdown)
	}()

	fmt.Println(server.PublishCode(block))
	fmt.Fprintln(os.Stderr, "serving preview, press ctrl+c to stop")
	<-ctx.Done()
	return nil
}

func (c *PreviewCmd) read(stdin io.Reader) (string, error) {
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// block picks the code to publish
func (c *PreviewCmd) block(src string) (preview.CodeBlock, error) {
	if c.Markdown || strings.EqualFold(filepath.Ext(c.File), ".md") {
		block, ok := preview.LastCodeBlock(src)
		if !ok {
			return preview.CodeBlock{}, fmt.Errorf("invalid input: no fenced code block found")
		}
		if c.Language != "" {
			block.Language = c.Language
		}
		return block, nil
	}
	lang := c.Language
	if lang == "" {
		lang = strings.TrimPrefix(strings.ToLower(filepath.Ext(c.File)), ".")
	}
	if lang == "htm" {
		lang = "html"
	}
	return preview.CodeBlock{Language: lang, Code: src}, nil
}
