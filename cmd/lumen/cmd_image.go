package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/config"
	"github.com/elee1766/lumen/src/gateway"
)

// ImageCmd generates and edits images without a conversation
type ImageCmd struct {
	Generate ImageGenerateCmd `cmd:"" help:"Generate an image from a prompt"`
	Edit     ImageEditCmd     `cmd:"" help:"Edit an image with an instruction"`
	Options  ImageOptionsCmd  `cmd:"" help:"List supported image models and aspect ratios"`
}

// ImageGenerateCmd generates an image
type ImageGenerateCmd struct {
	Prompt      []string `arg:"" help:"What to draw"`
	AspectRatio string   `short:"r" help:"Aspect ratio, see 'image options'"`
	Model       string   `short:"m" help:"Image model, see 'image options'"`
	Out         string   `short:"o" type:"path" help:"Output file. Defaults to the pictures directory"`
}

// Run executes the image generate command
func (c *ImageGenerateCmd) Run(ctx context.Context, cli *CLI) error {
	mgr, err := loadConfig(cli)
	if err != nil {
		return err
	}
	cfg := mgr.GetConfig()
	a, err := openApp(ctx, cfg, openOptions{noAutoTitle: true})
	if err != nil {
		return err
	}
	defer closeApp(a)

	opts := a.DefaultImageOptions()
	if c.AspectRatio != "" {
		opts.AspectRatio = c.AspectRatio
	}
	if c.Model != "" {
		opts.Model = c.Model
	}
	img, err := a.Gateway.GenerateImage(ctx, strings.Join(c.Prompt, " "), &opts)
	if err != nil {
		return err
	}
	return writeResult(c.Out, img)
}

// ImageEditCmd edits an image
type ImageEditCmd struct {
	Source      string   `arg:"" type:"existingfile" help:"Image to edit"`
	Instruction []string `arg:"" help:"How to change it"`
	Out         string   `short:"o" type:"path" help:"Output file. Defaults to the pictures directory"`
}

// Run executes the image edit command
func (c *ImageEditCmd) Run(ctx context.Context, cli *CLI) error {
	data, err := os.ReadFile(c.Source)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return fmt.Errorf("%s is %s, not an image", c.Source, mt.String())
	}

	mgr, err := loadConfig(cli)
	if err != nil {
		return err
	}
	a, err := openApp(ctx, mgr.GetConfig(), openOptions{noAutoTitle: true})
	if err != nil {
		return err
	}
	defer closeApp(a)

	img, err := a.Gateway.EditImage(ctx, data, mt.String(), strings.Join(c.Instruction, " "))
	if err != nil {
		return err
	}
	return writeResult(c.Out, img)
}

func writeResult(out string, img *gateway.Image) error {
	if out == "" {
		out = filepath.Join(config.DefaultImageDir(), chat.NewID()+imageExtension(img.MIMEType))
	}
	path, err := writeImage(out, img.Data)
	if err != nil {
		return err
	}
	if img.Text != "" {
		fmt.Println(img.Text)
	}
	fmt.Println(path)
	return nil
}

// ImageOptionsCmd lists image options
type ImageOptionsCmd struct{}

// Run executes the image options command
func (c *ImageOptionsCmd) Run() error {
	def := gateway.DefaultImageOptions()
	fmt.Println("models:")
	for _, m := range gateway.ImageModels {
		fmt.Println("  " + marker(m == def.Model) + m)
	}
	fmt.Println("aspect ratios:")
	for _, r := range gateway.AspectRatios {
		fmt.Println("  " + marker(r == def.AspectRatio) + r)
	}
	return nil
}

func marker(selected bool) string {
	if selected {
		return "* "
	}
	return "  "
}
