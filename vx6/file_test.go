package vx6

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/zprime137/iz/errdefs"
)

func sievedBlock(t *testing.T, y string) *Block {
	t.Helper()
	b, err := NewBlock(y)
	assert.NilError(t, err)
	assert.NilError(t, b.Sieve(0, ""))
	return b
}

func TestFileRoundTrip(t *testing.T) {
	b := sievedBlock(t, "2")
	path := filepath.Join(t.TempDir(), "block-2")

	assert.NilError(t, b.WriteFile(path))
	got, err := ReadFile(path)
	assert.NilError(t, err)

	assert.Equal(t, got.Y, b.Y)
	assert.Equal(t, got.Vx, b.Vx)
	assert.DeepEqual(t, got.Gaps(), b.Gaps())
	assert.Equal(t, got.Anchor().Cmp(b.Anchor()), 0)
}

func TestSieveWritesWhenPathGiven(t *testing.T) {
	b, err := NewBlock("3")
	assert.NilError(t, err)

	path := filepath.Join(t.TempDir(), "out", "block-3")
	assert.NilError(t, b.Sieve(0, path))

	// The directory is created on demand and the extension appended.
	_, err = os.Stat(path + Ext)
	assert.NilError(t, err)

	got, err := ReadFile(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, got.Gaps(), b.Gaps())
}

func TestReadFileRejectsCorruptedGaps(t *testing.T) {
	b := sievedBlock(t, "1")
	path := filepath.Join(t.TempDir(), "block-1")
	assert.NilError(t, b.WriteFile(path))

	data, err := os.ReadFile(path + Ext)
	assert.NilError(t, err)
	data[len(data)-40] ^= 0x01 // inside the gap payload
	assert.NilError(t, os.WriteFile(path+Ext, data, 0o644))

	_, err = ReadFile(path)
	assert.Check(t, errdefs.IsDataLoss(err))
}

func TestReadFileRejectsTruncation(t *testing.T) {
	b := sievedBlock(t, "1")
	path := filepath.Join(t.TempDir(), "block-1")
	assert.NilError(t, b.WriteFile(path))

	data, err := os.ReadFile(path + Ext)
	assert.NilError(t, err)
	assert.NilError(t, os.WriteFile(path+Ext, data[:20], 0o644))

	_, err = ReadFile(path)
	assert.Check(t, errdefs.IsDataLoss(err))
}

func TestReadFileRejectsMalformedOffset(t *testing.T) {
	b := sievedBlock(t, "1")
	path := filepath.Join(t.TempDir(), "block-1")
	assert.NilError(t, b.WriteFile(path))

	data, err := os.ReadFile(path + Ext)
	assert.NilError(t, err)
	data[8] = 'x' // first byte of the offset string
	assert.NilError(t, os.WriteFile(path+Ext, data, 0o644))

	_, err = ReadFile(path)
	assert.Check(t, errdefs.IsDataLoss(err))
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope"))
	assert.Check(t, errdefs.IsSystem(err))
}
