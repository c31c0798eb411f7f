package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ContextualFs creates an afero.Fs that resolves paths relative to a working
// directory and expands a leading ~ to the home directory
type ContextualFs struct {
	afero.Fs
	workingDir string
	homeDir    string
}

// NewContextualFs creates a new ContextualFs with the given directories.
// Either may be empty.
func NewContextualFs(baseFs afero.Fs, workingDir, homeDir string) *ContextualFs {
	return &ContextualFs{
		Fs:         baseFs,
		workingDir: workingDir,
		homeDir:    homeDir,
	}
}

// NewAttachmentFs returns a read-only view of the OS filesystem rooted at the
// process working directory, used to read files users attach
func NewAttachmentFs() afero.Fs {
	wd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	return afero.NewReadOnlyFs(NewContextualFs(afero.NewOsFs(), wd, home))
}

// resolvePath resolves a path relative to the working directory if it's not absolute
func (c *ContextualFs) resolvePath(path string) string {
	if path == "" {
		if c.workingDir == "" {
			return "."
		}
		return c.workingDir
	}

	if c.homeDir != "" && (path == "~" || strings.HasPrefix(path, "~/")) {
		return filepath.Join(c.homeDir, strings.TrimPrefix(path, "~"))
	}
	if filepath.IsAbs(path) || c.workingDir == "" {
		return path
	}
	return filepath.Join(c.workingDir, path)
}

func (c *ContextualFs) Open(name string) (afero.File, error) {
	return c.Fs.Open(c.resolvePath(name))
}

func (c *ContextualFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	return c.Fs.OpenFile(c.resolvePath(name), flag, perm)
}

func (c *ContextualFs) Stat(name string) (os.FileInfo, error) {
	return c.Fs.Stat(c.resolvePath(name))
}

func (c *ContextualFs) Remove(name string) error {
	return c.Fs.Remove(c.resolvePath(name))
}

func (c *ContextualFs) RemoveAll(path string) error {
	return c.Fs.RemoveAll(c.resolvePath(path))
}

func (c *ContextualFs) Rename(oldname, newname string) error {
	return c.Fs.Rename(c.resolvePath(oldname), c.resolvePath(newname))
}

func (c *ContextualFs) Create(name string) (afero.File, error) {
	return c.Fs.Create(c.resolvePath(name))
}

func (c *ContextualFs) Mkdir(name string, perm os.FileMode) error {
	return c.Fs.Mkdir(c.resolvePath(name), perm)
}

func (c *ContextualFs) MkdirAll(path string, perm os.FileMode) error {
	return c.Fs.MkdirAll(c.resolvePath(path), perm)
}
