package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/elee1766/lumen/src/chat"
)

// MemoryCmd manages remembered facts
type MemoryCmd struct {
	Show  MemoryShowCmd  `cmd:"" default:"1" help:"Print remembered facts"`
	Add   MemoryAddCmd   `cmd:"" help:"Remember a fact"`
	Clear MemoryClearCmd `cmd:"" help:"Forget everything"`
}

// MemoryShowCmd prints memory
type MemoryShowCmd struct{}

// Run executes the memory show command
func (c *MemoryShowCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	memory := a.Store.Snapshot().Settings.Memory
	if memory == "" {
		fmt.Println("Nothing remembered yet.")
		return nil
	}
	fmt.Println(memory)
	return nil
}

// MemoryAddCmd appends a fact
type MemoryAddCmd struct {
	Fact []string `arg:"" help:"Fact to remember"`
}

// Run executes the memory add command
func (c *MemoryAddCmd) Run(ctx context.Context, cli *CLI) error {
	fact := strings.TrimSpace(strings.Join(c.Fact, " "))
	if fact == "" {
		return fmt.Errorf("invalid fact: empty")
	}
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	a.Store.UpdateSettings(func(s chat.Settings) chat.Settings { return s.WithMemoryFact(fact) })
	return nil
}

// MemoryClearCmd clears memory
type MemoryClearCmd struct{}

// Run executes the memory clear command
func (c *MemoryClearCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	a.Store.UpdateSettings(func(s chat.Settings) chat.Settings {
		s.Memory = ""
		return s
	})
	return nil
}
