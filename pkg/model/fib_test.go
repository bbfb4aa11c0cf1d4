package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"rmimodels/pkg/common"
	"rmimodels/pkg/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteForceMaxError recomputes the error bound independently of the model.
func bruteForceMaxError(m Model, v dataset.View) uint64 {
	var worst float64
	for i := 0; i < v.Len(); i++ {
		p := v.Get(i)
		pred := math.Max(0, math.Floor(m.PredictFloat(p.Key)))
		if e := math.Abs(pred - float64(p.Pos)); e > worst {
			worst = e
		}
	}
	return uint64(worst)
}

func TestPrefixBucketedErrorBoundMatchesBruteForce(t *testing.T) {
	v := randomView(t, 5000, 42)

	for _, mode := range []BucketMode{BucketTopBits, BucketLegacyMask} {
		t.Run(mode.String(), func(t *testing.T) {
			pb, err := NewPrefixBucketed(v, Options{Threshold: 2, PrefixBits: 6, BucketMode: mode, Workers: 4})
			require.NoError(t, err)

			bound, ok := pb.ErrorBound()
			require.True(t, ok)
			assert.Equal(t, bruteForceMaxError(pb, v), bound)

			stats := MeasureErrors(pb, v)
			assert.Equal(t, v.Len(), stats.Count)
			assert.Equal(t, float64(bound), stats.Max)
			assert.LessOrEqual(t, stats.Mean, stats.Max)
		})
	}
}

func TestPrefixBucketedTopBitsSpreadsBuckets(t *testing.T) {
	v := randomView(t, 4000, 3)
	pb, err := NewPrefixBucketed(v, Options{Threshold: 1, PrefixBits: 4})
	require.NoError(t, err)
	require.Equal(t, 16, pb.NumBuckets())

	used := map[int]bool{}
	for i := 0; i < v.Len(); i++ {
		k := v.GetKey(i)
		b := pb.Bucket(k)
		assert.Equal(t, int(k.AsUint()>>60), b)
		used[b] = true
	}
	assert.Greater(t, len(used), 8)

	for b := 0; b < pb.NumBuckets(); b++ {
		assert.NotNil(t, pb.Corrector(b), "bucket %d", b)
	}
}

// The legacy expression masks the low prefix bits and then shifts them out,
// so every key goes to bucket 0. This pins that behavior.
func TestPrefixBucketedLegacyMaskRoutesToBucketZero(t *testing.T) {
	for _, k := range []common.KeyType{0, 1, 15, 16, 0xABCDEF, 1 << 63, math.MaxUint64} {
		assert.Equal(t, 0, bucketOf(k, 4, BucketLegacyMask), "key %d", k)
	}

	v := randomView(t, 500, 5)
	pb, err := NewPrefixBucketed(v, Options{Threshold: 1, PrefixBits: 4, BucketMode: BucketLegacyMask})
	require.NoError(t, err)
	require.Equal(t, 16, pb.NumBuckets())

	assert.Greater(t, pb.Corrector(0).Units(), 0)
	for b := 1; b < pb.NumBuckets(); b++ {
		c := pb.Corrector(b)
		assert.Equal(t, 0, c.Units())
		assert.Equal(t, float64(v.Len()), c.Bias2)
	}
}

func TestPrefixBucketedEmptyBucketsPointAtNextData(t *testing.T) {
	// keys sit in buckets 1 and 3, spaced so they stay exact as doubles
	var keys []common.KeyType
	for i := 0; i < 10; i++ {
		keys = append(keys, common.KeyType(1)<<62 + common.KeyType(i)<<20)
	}
	for i := 0; i < 10; i++ {
		keys = append(keys, common.KeyType(3)<<62 + common.KeyType(i)<<20)
	}
	v := dataset.FromKeys(keys)

	pb, err := NewPrefixBucketed(v, Options{Threshold: 0.5, PrefixBits: 2})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), pb.PredictInt(5))
	assert.Equal(t, uint64(10), pb.PredictInt(2<<62+77))

	for i := 0; i < v.Len(); i++ {
		p := v.Get(i)
		assert.Equal(t, uint64(p.Pos), pb.PredictInt(p.Key))
	}
	bound, _ := pb.ErrorBound()
	assert.Equal(t, uint64(0), bound)
}

func TestPrefixBucketedWorkersDoNotChangeResult(t *testing.T) {
	v := randomView(t, 3000, 9)

	seq, err := NewPrefixBucketed(v, Options{Threshold: 1, PrefixBits: 5, Workers: 1})
	require.NoError(t, err)
	par, err := NewPrefixBucketed(v, Options{Threshold: 1, PrefixBits: 5})
	require.NoError(t, err)

	assert.Equal(t, seq.Params(), par.Params())
}

func TestPrefixBucketedRejectsBadInput(t *testing.T) {
	v := dataset.FromKeys([]common.KeyType{1, 2, 3})

	_, err := NewPrefixBucketed(v, Options{PrefixBits: MaxPrefixBits + 1})
	assert.ErrorIs(t, err, ErrInvalidPrefix)

	_, err = NewPrefixBucketed(dataset.FromKeys(nil), Options{PrefixBits: 2})
	assert.ErrorIs(t, err, ErrEmptyData)

	_, err = NewPrefixBucketed(v, Options{Threshold: -1})
	assert.Error(t, err)
}

func TestPrefixBucketedSingleBucket(t *testing.T) {
	keys := make([]common.KeyType, 1000)
	for i := range keys {
		keys[i] = common.KeyType(i * 4)
	}
	v := dataset.FromKeys(keys)

	pb, err := NewPrefixBucketed(v, Options{Threshold: 0.5})
	require.NoError(t, err)
	require.Equal(t, 1, pb.NumBuckets())
	assert.Equal(t, 1, pb.Corrector(0).Units())

	bound, _ := pb.ErrorBound()
	assert.Equal(t, uint64(0), bound)
}

func TestPrefixBucketedContract(t *testing.T) {
	v := randomView(t, 200, 1)
	pb, err := NewPrefixBucketed(v, Options{Threshold: 1, PrefixBits: 3})
	require.NoError(t, err)

	var m Model = pb
	assert.Equal(t, KindPrefixBucketed, m.Kind())
	assert.Equal(t, MustBeBottom, m.Restriction())
	assert.True(t, m.NeedsBoundsCheck())
	assert.Equal(t, "learned_fib", m.FunctionName())
	assert.Contains(t, m.Code(), "inp >> 61")

	params := m.Params()
	require.Len(t, params, 4)
	assert.Equal(t, IntParam(3), params[0])
	assert.Equal(t, IntParam(uint64(BucketTopBits)), params[1])
	offsets := params[2].Ints
	require.Len(t, offsets, 9)
	assert.Equal(t, uint32(params[3].Len()), offsets[8])

	for b := 0; b < pb.NumBuckets(); b++ {
		c := pb.Corrector(b)
		assert.Equal(t, c.Records(), params[3].Floats[offsets[b]:offsets[b+1]])
	}

	k := v.GetKey(17)
	assert.Equal(t, floorToInt(m.PredictFloat(k)), m.PredictInt(k))
}

func TestPrefixBucketedSaveDirRoundTrip(t *testing.T) {
	v := randomView(t, 1500, 21)
	pb, err := NewPrefixBucketed(v, Options{Threshold: 1, PrefixBits: 3})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "fib")
	paths, err := pb.SaveDir(dir)
	require.NoError(t, err)
	require.Len(t, paths, pb.NumBuckets()+1)
	assert.Equal(t, filepath.Join(dir, "nn_0"), paths[0])
	assert.Equal(t, filepath.Join(dir, ManifestName), paths[len(paths)-1])
	for _, p := range paths {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}

	loaded, err := LoadPrefixBucketed(dir)
	require.NoError(t, err)
	assert.Equal(t, pb.Params(), loaded.Params())

	want, _ := pb.ErrorBound()
	got, _ := loaded.ErrorBound()
	assert.Equal(t, want, got)
	for i := 0; i < v.Len(); i += 7 {
		k := v.GetKey(i)
		assert.Equal(t, pb.PredictInt(k), loaded.PredictInt(k))
	}
}

func TestSaveDirRequiresDirectory(t *testing.T) {
	pb, err := NewPrefixBucketed(dataset.FromKeys([]common.KeyType{1, 2}), Options{})
	require.NoError(t, err)
	_, err = pb.SaveDir("")
	assert.Error(t, err)
}

func TestLoadPrefixBucketedDetectsCorruption(t *testing.T) {
	v := randomView(t, 300, 2)
	pb, err := NewPrefixBucketed(v, Options{Threshold: 1, PrefixBits: 2})
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = pb.SaveDir(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, CorrectorFileName(1)), make([]byte, 16), 0644))
	_, err = LoadPrefixBucketed(dir)
	assert.ErrorIs(t, err, ErrCorruptParams)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("prefix_bits: 2\nfiles: [nn_0]\n"), 0644))
	_, err = LoadPrefixBucketed(dir)
	assert.ErrorIs(t, err, ErrCorruptParams)

	_, err = LoadPrefixBucketed(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseBucketMode(t *testing.T) {
	m, err := ParseBucketMode("legacy-mask")
	require.NoError(t, err)
	assert.Equal(t, BucketLegacyMask, m)

	m, err = ParseBucketMode("")
	require.NoError(t, err)
	assert.Equal(t, BucketTopBits, m)

	_, err = ParseBucketMode("middle-bits")
	assert.Error(t, err)
}
