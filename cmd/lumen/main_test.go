package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/composer"
	"github.com/elee1766/lumen/src/config"
	"github.com/elee1766/lumen/src/executor"
	"github.com/elee1766/lumen/src/gateway"
	"github.com/elee1766/lumen/src/storage"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf(`[storage]
backend = "sqlite"
path = %q
autosave_delay = "10ms"
`, filepath.Join(dir, "lumen.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("lumen"),
		kong.Vars{"version": "test"},
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	kctx.BindTo(context.Background(), (*context.Context)(nil))
	return kctx.Run(&cli)
}

func openState(t *testing.T, cfgPath string) *chat.Snapshot {
	t.Helper()
	a, err := openOffline(context.Background(), &CLI{ConfigFile: cfgPath})
	require.NoError(t, err)
	defer closeApp(a)
	return a.Store.Snapshot()
}

func TestOfflineCommandsPersist(t *testing.T) {
	cfg := writeTestConfig(t)

	require.NoError(t, runCLI(t, "--config", cfg, "memory", "add", "likes", "green", "tea"))
	require.NoError(t, runCLI(t, "--config", cfg, "settings", "length", "long"))
	require.NoError(t, runCLI(t, "--config", cfg, "settings", "add-tone", "Pirate", "Talk", "like", "a", "pirate"))

	snap := openState(t, cfg)
	assert.Equal(t, "- likes green tea", snap.Settings.Memory)
	assert.Equal(t, chat.OutputLong, snap.Settings.OutputLength)
	require.Len(t, snap.Settings.CustomTones, 1)
	assert.Equal(t, "Talk like a pirate", snap.Settings.ResolveTone().Instruction)

	toneID := snap.Settings.CustomTones[0].ID
	require.NoError(t, runCLI(t, "--config", cfg, "settings", "rm-tone", toneID))
	require.NoError(t, runCLI(t, "--config", cfg, "memory", "clear"))

	snap = openState(t, cfg)
	assert.Empty(t, snap.Settings.Memory)
	assert.Empty(t, snap.Settings.CustomTones)
	assert.Equal(t, chat.DefaultToneID, snap.Settings.SelectedToneID)

	err := runCLI(t, "--config", cfg, "settings", "rm-tone", chat.DefaultToneID)
	assert.Error(t, err)
}

func TestConversationCommands(t *testing.T) {
	cfg := writeTestConfig(t)

	a, err := openOffline(context.Background(), &CLI{ConfigFile: cfg})
	require.NoError(t, err)
	id := a.Store.CreateConversation()
	a.Store.AppendUserMessage(id, chat.Message{Content: "hello"})
	closeApp(a)

	require.NoError(t, runCLI(t, "--config", cfg, "conversations", "list"))
	require.NoError(t, runCLI(t, "--config", cfg, "conv", "list", "--format", "json"))
	require.NoError(t, runCLI(t, "--config", cfg, "conversations", "show", id, "--raw"))
	require.NoError(t, runCLI(t, "--config", cfg, "conversations", "rename", id, "Greetings"))

	snap := openState(t, cfg)
	c, ok := snap.Conversation(id)
	require.True(t, ok)
	assert.Equal(t, "Greetings", c.Title)

	err = runCLI(t, "--config", cfg, "conversations", "show", "missing")
	assert.ErrorIs(t, err, executor.ErrConversationNotFound)

	require.NoError(t, runCLI(t, "--config", cfg, "conversations", "rm", id))
	assert.Empty(t, openState(t, cfg).Order)

	err = runCLI(t, "--config", cfg, "conversations", "delete", id)
	assert.ErrorIs(t, err, executor.ErrConversationNotFound)
	assert.Equal(t, ExitUsage, exitCode(err))
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.toml")

	require.NoError(t, runCLI(t, "config", "init", path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = runCLI(t, "config", "init", path)
	assert.Error(t, err, "existing files are kept")
	require.NoError(t, runCLI(t, "config", "init", path, "--force"))

	require.NoError(t, runCLI(t, "--config", path, "config", "show"))
	require.NoError(t, runCLI(t, "--config", path, "config", "path"))
}

func TestPromptRequiresAPIKey(t *testing.T) {
	for _, env := range []string{"LUMEN_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(env, "")
	}
	cfg := writeTestConfig(t)
	err := runCLI(t, "--config", cfg, "prompt", "hi")
	require.Error(t, err)
	assert.Equal(t, ExitAuth, exitCode(err))
}

func TestPromptRejectsBadFlags(t *testing.T) {
	cfg := writeTestConfig(t)

	err := runCLI(t, "--config", cfg, "prompt", "--mode", "telepathy", "hi")
	assert.ErrorIs(t, err, composer.ErrUnknownMode)

	img := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(img, []byte("x"), 0o600))
	err = runCLI(t, "--config", cfg, "prompt", "--mode", "coding", "--attach", img, "hi")
	assert.Error(t, err)
}

func TestPromptText(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(file, []byte("from file\n"), 0o600))

	cases := []struct {
		name string
		cmd  PromptCmd
		want string
	}{
		{"args", PromptCmd{Text: []string{"what", "is", "go"}}, "what is go"},
		{"file", PromptCmd{File: file}, "from file"},
		{"file and args", PromptCmd{File: file, Text: []string{"and more"}}, "from file\n\n\nand more"},
		{"nothing", PromptCmd{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cmd.promptText(nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPreviewBlock(t *testing.T) {
	cases := []struct {
		name     string
		cmd      PreviewCmd
		src      string
		wantLang string
		wantCode string
		wantErr  bool
	}{
		{"extension", PreviewCmd{File: "page.HTM"}, "<p>x</p>", "html", "<p>x</p>", false},
		{"explicit language", PreviewCmd{Language: "svg"}, "<svg/>", "svg", "<svg/>", false},
		{"markdown flag", PreviewCmd{Markdown: true}, "a\n```js\nalert(1)\n```\n", "js", "alert(1)\n", false},
		{"markdown file", PreviewCmd{File: "notes.md"}, "```css\np{}\n```", "css", "p{}\n", false},
		{"markdown without block", PreviewCmd{Markdown: true}, "just text", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block, err := tc.cmd.block(tc.src)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantLang, block.Language)
			assert.Equal(t, tc.wantCode, block.Code)
		})
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"cancelled", fmt.Errorf("turn: %w", context.Canceled), ExitInterrupted},
		{"deadline", context.DeadlineExceeded, ExitTimeout},
		{"no key", fmt.Errorf("open: %w", gateway.ErrNoAPIKey), ExitAuth},
		{"forbidden", &gateway.Error{Op: "chat", Code: 403}, ExitAuth},
		{"server error", &gateway.Error{Op: "chat", Code: 500}, ExitError},
		{"validation", fmt.Errorf("load: %w", &config.ValidationError{Field: "x"}), ExitConfig},
		{"storage", &storage.StorageError{Op: "get", Key: "k", Err: errors.New("io")}, ExitStorage},
		{"precondition", &gateway.PreconditionError{Op: "image", Err: gateway.ErrMissingImageOptions}, ExitUsage},
		{"empty", composer.ErrEmptyMessage, ExitUsage},
		{"image options", composer.ErrMissingImageOptions, ExitUsage},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestSaveImage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	path, err := saveImage(dir, "m1", []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "m1.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 4)

	assert.Equal(t, ".jpg", imageExtension("image/jpeg"))
	assert.True(t, strings.HasPrefix(imageExtension("image/x-unknown"), "."))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("abcd"))
	assert.Equal(t, "AIza****wxyz", maskAPIKey("AIza1234wxyz"))
}
