package model

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"rmimodels/pkg/common"
	"rmimodels/pkg/dataset"

	"golang.org/x/sync/errgroup"
)

// BucketMode selects how a key is mapped to its bucket.
type BucketMode uint8

const (
	// BucketTopBits uses the top PrefixBits bits of the key.
	BucketTopBits BucketMode = iota

	// BucketLegacyMask reproduces the historical (key & mask) >> prefix
	// expression. It masks the low bits and then shifts them all out, so
	// every key lands in bucket 0. Kept so models trained that way can be
	// reproduced and loaded.
	BucketLegacyMask
)

func (m BucketMode) String() string {
	if m == BucketLegacyMask {
		return "legacy-mask"
	}
	return "top-bits"
}

// ParseBucketMode accepts the names produced by String.
func ParseBucketMode(s string) (BucketMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "top-bits", "topbits":
		return BucketTopBits, nil
	case "legacy-mask", "legacy":
		return BucketLegacyMask, nil
	default:
		return BucketTopBits, fmt.Errorf("model: unknown bucket mode %q", s)
	}
}

const MaxPrefixBits = 24

// Options configures NewPrefixBucketed.
type Options struct {
	// Threshold is the segmentation error threshold, in positions.
	Threshold  float64
	PrefixBits uint8
	BucketMode BucketMode
	// Workers bounds concurrent bucket training; <= 0 means one per bucket run.
	Workers int
}

// PrefixBucketed partitions keys by prefix and trains one Corrector per
// bucket. It is meant for the last layer: its error bound drives the final
// bounded search.
type PrefixBucketed struct {
	prefixBits uint8
	mode       BucketMode
	correctors []*Corrector
	maxError   uint64
}

// bucketOf maps key to a bucket index in [0, 2^prefix).
func bucketOf(key common.KeyType, prefix uint8, mode BucketMode) int {
	k := key.AsUint()
	if mode == BucketLegacyMask {
		mask := uint64(1)<<prefix - 1
		return int((k & mask) >> prefix)
	}
	// k >> 64 is 0, so prefix 0 is a single bucket
	return int(k >> (64 - uint(prefix)))
}

type run struct {
	bucket   int
	from, to int
}

// runs returns the contiguous ranges of v that share a bucket index.
func runs(v dataset.View, prefix uint8, mode BucketMode) []run {
	var out []run
	for i := 0; i < v.Len(); i++ {
		b := bucketOf(v.GetKey(i), prefix, mode)
		if n := len(out); n > 0 && out[n-1].bucket == b {
			out[n-1].to = i + 1
			continue
		}
		out = append(out, run{bucket: b, from: i, to: i + 1})
	}
	return out
}

// NewPrefixBucketed trains one corrector per bucket of v and measures the
// resulting error bound over all of v.
func NewPrefixBucketed(v dataset.View, opts Options) (*PrefixBucketed, error) {
	if opts.PrefixBits > MaxPrefixBits {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidPrefix, opts.PrefixBits, MaxPrefixBits)
	}
	if v.Len() == 0 {
		return nil, ErrEmptyData
	}
	if opts.Threshold < 0 || math.IsNaN(opts.Threshold) {
		return nil, fmt.Errorf("model: threshold must be non-negative, got %v", opts.Threshold)
	}

	pb := &PrefixBucketed{
		prefixBits: opts.PrefixBits,
		mode:       opts.BucketMode,
		correctors: make([]*Corrector, 1<<opts.PrefixBits),
	}

	parts := runs(v, opts.PrefixBits, opts.BucketMode)

	// Each run owns its own corrector slot; the view is read-only.
	var g errgroup.Group
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for _, part := range parts {
		g.Go(func() error {
			breakpoints, err := Segment(v, part.from, part.to, opts.Threshold)
			if err != nil {
				return fmt.Errorf("bucket %d: %w", part.bucket, err)
			}
			c, err := NewCorrector(dataset.FromPoints(breakpoints))
			if err != nil {
				return fmt.Errorf("bucket %d: %w", part.bucket, err)
			}
			pb.correctors[part.bucket] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pb.fillEmptyBuckets(v, parts)
	pb.maxError = pb.measureMaxError(v)

	slog.Debug("prefix-bucketed model trained",
		"prefix_bits", opts.PrefixBits,
		"bucket_mode", opts.BucketMode.String(),
		"buckets_trained", len(parts),
		"max_error", pb.maxError,
	)
	return pb, nil
}

// fillEmptyBuckets gives every bucket without data a constant corrector
// pointing at the first position of the next trained bucket, or past the
// end of v when none follows.
func (pb *PrefixBucketed) fillEmptyBuckets(v dataset.View, parts []run) {
	next := float64(v.Len())
	j := len(parts) - 1
	for b := len(pb.correctors) - 1; b >= 0; b-- {
		if j >= 0 && parts[j].bucket == b {
			next = float64(v.Get(parts[j].from).Pos)
			j--
			continue
		}
		if pb.correctors[b] == nil {
			pb.correctors[b] = ConstantCorrector(next)
		}
	}
}

func (pb *PrefixBucketed) measureMaxError(v dataset.View) uint64 {
	var maxErr uint64
	for i := 0; i < v.Len(); i++ {
		p := v.Get(i)
		if e := absDiff(pb.PredictInt(p.Key), p.Pos); e > maxErr {
			maxErr = e
		}
	}
	return maxErr
}

func absDiff(pred uint64, pos int) uint64 {
	actual := uint64(pos)
	if pred > actual {
		return pred - actual
	}
	return actual - pred
}

func (pb *PrefixBucketed) Bucket(key common.KeyType) int {
	return bucketOf(key, pb.prefixBits, pb.mode)
}

func (pb *PrefixBucketed) Corrector(bucket int) *Corrector {
	return pb.correctors[bucket]
}

func (pb *PrefixBucketed) NumBuckets() int        { return len(pb.correctors) }
func (pb *PrefixBucketed) PrefixBits() uint8      { return pb.prefixBits }
func (pb *PrefixBucketed) BucketMode() BucketMode { return pb.mode }

func (pb *PrefixBucketed) PredictFloat(key common.KeyType) float64 {
	return pb.correctors[pb.Bucket(key)].Predict(key.AsFloat())
}

func (pb *PrefixBucketed) PredictInt(key common.KeyType) uint64 {
	return floorToInt(pb.PredictFloat(key))
}

func (pb *PrefixBucketed) InputType() DataType  { return TypeInt }
func (pb *PrefixBucketed) OutputType() DataType { return TypeInt }

// Params lays the correctors out as prefix bits, bucket mode, per-bucket
// record offsets (len = buckets+1) and the concatenated records.
func (pb *PrefixBucketed) Params() []Param {
	offsets := make([]uint32, 0, len(pb.correctors)+1)
	var records []float64
	for _, c := range pb.correctors {
		offsets = append(offsets, uint32(len(records)))
		records = append(records, c.Records()...)
	}
	offsets = append(offsets, uint32(len(records)))

	return []Param{
		IntParam(uint64(pb.prefixBits)),
		IntParam(uint64(pb.mode)),
		Int32ArrayParam(offsets),
		FloatArrayParam(records),
	}
}

func (pb *PrefixBucketed) Code() string {
	bucket := "0"
	if pb.mode == BucketTopBits && pb.prefixBits > 0 {
		bucket = fmt.Sprintf("inp >> %d", 64-int(pb.prefixBits))
	}
	return fmt.Sprintf(`
inline double learned_fib(const uint32_t* offsets, const double* records, uint64_t inp) {
    const uint64_t bucket = %s;
    const double* nn = records + offsets[bucket];
    const uint64_t units = (offsets[bucket + 1] - offsets[bucket] - 1) / 3;
    const double x = (double)inp;
    double res = nn[3 * units];
    for (uint64_t i = 0; i < units; i++) {
        const double h = std::fma(x, nn[i], nn[2 * units + i]);
        if (h > 0) res += nn[units + i] * h;
    }
    return res;
}`, bucket)
}

func (pb *PrefixBucketed) FunctionName() string     { return "learned_fib" }
func (pb *PrefixBucketed) NeedsBoundsCheck() bool   { return true }
func (pb *PrefixBucketed) Restriction() Restriction { return MustBeBottom }
func (pb *PrefixBucketed) ErrorBound() (uint64, bool) {
	return pb.maxError, true
}
func (pb *PrefixBucketed) Kind() Kind { return KindPrefixBucketed }
func (pb *PrefixBucketed) sealed()    {}
