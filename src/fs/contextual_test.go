package fs

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	c := NewContextualFs(afero.NewMemMapFs(), "/work", "/home/me")
	cases := []struct {
		in, want string
	}{
		{"", "/work"},
		{"cat.png", "/work/cat.png"},
		{"../up.png", "/up.png"},
		{"/abs/x.png", "/abs/x.png"},
		{"~", "/home/me"},
		{"~/pics/x.png", "/home/me/pics/x.png"},
		{"~other/x.png", "/work/~other/x.png"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tc.want), c.resolvePath(tc.in))
		})
	}

	bare := NewContextualFs(afero.NewMemMapFs(), "", "")
	assert.Equal(t, ".", bare.resolvePath(""))
	assert.Equal(t, "rel.png", bare.resolvePath("rel.png"))
	assert.Equal(t, "~/x.png", bare.resolvePath("~/x.png"))
}

func TestContextualFsReads(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/home/me/pics/a.png", []byte("png"), 0o644))
	require.NoError(t, afero.WriteFile(base, "/work/b.png", []byte("b"), 0o644))

	ro := afero.NewReadOnlyFs(NewContextualFs(base, "/work", "/home/me"))

	data, err := afero.ReadFile(ro, "~/pics/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	info, err := ro.Stat("b.png")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Size())

	assert.Error(t, afero.WriteFile(ro, "c.png", []byte("c"), 0o644), "attachments are never written")
}
