package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"rmimodels/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSortsAndKeepsDuplicates(t *testing.T) {
	b := NewBuilder(4)
	b.AddAll([]common.KeyType{30, 10, 20, 10, 5})

	v := b.Build()
	require.Equal(t, 5, v.Len())

	want := []common.Point{{Key: 5, Pos: 0}, {Key: 10, Pos: 1}, {Key: 10, Pos: 2}, {Key: 20, Pos: 3}, {Key: 30, Pos: 4}}
	assert.Equal(t, want, v.Points())
}

func TestBuilderDistinct(t *testing.T) {
	b := NewBuilder(0)
	b.AddAll([]common.KeyType{7, 7, 3, 9, 3})

	v := b.Distinct()
	want := []common.Point{{Key: 3, Pos: 0}, {Key: 7, Pos: 1}, {Key: 9, Pos: 2}}
	assert.Equal(t, want, v.Points())
}

func TestSliceSubSharesStorage(t *testing.T) {
	v := FromKeys([]common.KeyType{1, 2, 3, 4, 5})
	sub := v.Sub(1, 4)

	require.Equal(t, 3, sub.Len())
	assert.Equal(t, common.Point{Key: 2, Pos: 1}, sub.Get(0))
	assert.Equal(t, common.KeyType(4), sub.GetKey(2))
	assert.Equal(t, 4, MaxPos(v))
	assert.Equal(t, 0, MaxPos(FromPoints(nil)))
}

func TestSOSDRoundTrip(t *testing.T) {
	dir := t.TempDir()
	keys := []common.KeyType{1, 5, 5, 1 << 40, 1<<64 - 1}

	path64 := filepath.Join(dir, "keys_200M_uint64")
	require.NoError(t, WriteSOSD(path64, keys))
	got, err := LoadSOSD(path64)
	require.NoError(t, err)
	assert.Equal(t, keys, got)

	small := []common.KeyType{0, 3, 70000}
	path32 := filepath.Join(dir, "books_uint32")
	require.NoError(t, WriteSOSD(path32, small))
	st, err := os.Stat(path32)
	require.NoError(t, err)
	assert.Equal(t, int64(8+3*4), st.Size())

	got, err = LoadSOSD(path32)
	require.NoError(t, err)
	assert.Equal(t, small, got)
}

func TestSOSDRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSOSD(filepath.Join(dir, "keys.bin"))
	assert.ErrorIs(t, err, ErrUnknownKeyWidth)

	assert.Error(t, WriteSOSD(filepath.Join(dir, "wide_uint32"), []common.KeyType{1 << 33}))

	truncated := filepath.Join(dir, "short_uint64")
	require.NoError(t, os.WriteFile(truncated, []byte{10, 0, 0, 0, 0, 0, 0, 0, 1, 2}, 0644))
	_, err = LoadSOSD(truncated)
	assert.Error(t, err)
}
