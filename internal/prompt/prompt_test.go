package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_Plain(t *testing.T) {
	r := New(false)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", "/nonexistent-home")

	p := r.Render(0)
	assert.True(t, strings.HasSuffix(p, "$ "), "prompt %q", p)
	assert.Contains(t, p, dir)
	assert.Contains(t, p, "@")
}

func TestRender_HomeAbbreviation(t *testing.T) {
	r := New(false)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	p := r.Render(0)
	assert.Contains(t, p, ":~$")
	assert.NotContains(t, p, dir)
}
