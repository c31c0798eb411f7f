package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/elee1766/lumen/src/chat"
)

// SettingsCmd manages tone and output length
type SettingsCmd struct {
	Show    SettingsShowCmd    `cmd:"" default:"1" help:"Print settings"`
	Tone    SettingsToneCmd    `cmd:"" help:"Select a tone by id"`
	AddTone SettingsAddToneCmd `cmd:"" help:"Create a custom tone and select it"`
	RmTone  SettingsRmToneCmd  `cmd:"" help:"Delete a custom tone"`
	Length  SettingsLengthCmd  `cmd:"" help:"Set the preferred reply length"`
}

// SettingsShowCmd prints settings
type SettingsShowCmd struct{}

// Run executes the settings show command
func (c *SettingsShowCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	s := a.Store.Snapshot().Settings
	selected := s.ResolveTone().ID
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tTONE\tNAME\tINSTRUCTION")
	for _, t := range s.Tones() {
		mark := ""
		if t.ID == selected {
			mark = "*"
		}
		name := t.Name
		if t.IsCustom {
			name += " (custom)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, t.ID, name, t.Instruction)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\noutput length: %s\n", s.OutputLength)
	return nil
}

// SettingsToneCmd selects a tone
type SettingsToneCmd struct {
	ID string `arg:"" help:"Tone id"`
}

// Run executes the settings tone command
func (c *SettingsToneCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, ok := a.Store.Snapshot().Settings.FindTone(c.ID); !ok {
		return fmt.Errorf("invalid tone %q", c.ID)
	}
	a.Store.UpdateSettings(func(s chat.Settings) chat.Settings { return s.WithSelectedTone(c.ID) })
	return nil
}

// SettingsAddToneCmd creates a custom tone
type SettingsAddToneCmd struct {
	Name        string   `arg:"" help:"Tone name"`
	Instruction []string `arg:"" help:"Instruction for the assistant"`
}

// Run executes the settings add-tone command
func (c *SettingsAddToneCmd) Run(ctx context.Context, cli *CLI) error {
	instruction := strings.TrimSpace(strings.Join(c.Instruction, " "))
	if strings.TrimSpace(c.Name) == "" || instruction == "" {
		return fmt.Errorf("invalid tone: a name and an instruction are required")
	}
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	tone := chat.Tone{ID: chat.NewID(), Name: strings.TrimSpace(c.Name), Instruction: instruction}
	a.Store.UpdateSettings(func(s chat.Settings) chat.Settings {
		return s.WithCustomTone(tone).WithSelectedTone(tone.ID)
	})
	fmt.Println(tone.ID)
	return nil
}

// SettingsRmToneCmd deletes a custom tone
type SettingsRmToneCmd struct {
	ID string `arg:"" help:"Custom tone id"`
}

// Run executes the settings rm-tone command
func (c *SettingsRmToneCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	t, ok := a.Store.Snapshot().Settings.FindTone(c.ID)
	if !ok || !t.IsCustom {
		return fmt.Errorf("invalid tone %q: only custom tones can be deleted", c.ID)
	}
	a.Store.UpdateSettings(func(s chat.Settings) chat.Settings { return s.WithoutTone(c.ID) })
	return nil
}

// SettingsLengthCmd sets the output length
type SettingsLengthCmd struct {
	Length string `arg:"" enum:"auto,short,medium,long" help:"auto, short, medium or long"`
}

// Run executes the settings length command
func (c *SettingsLengthCmd) Run(ctx context.Context, cli *CLI) error {
	length := chat.OutputLength(c.Length)
	if !slices.Contains(chat.OutputLengths(), length) {
		return fmt.Errorf("invalid length %q", c.Length)
	}
	a, err := openOffline(ctx, cli)
	if err != nil {
		return err
	}
	defer closeApp(a)

	a.Store.UpdateSettings(func(s chat.Settings) chat.Settings {
		s.OutputLength = length
		return s
	})
	return nil
}
