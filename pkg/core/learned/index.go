package learned

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"rmimodels/pkg/common"
	"rmimodels/pkg/dataset"
	"rmimodels/pkg/model"
	"rmimodels/pkg/monitor"
)

var (
	// ErrPlacement is returned for a model that may only sit in the top
	// layer; its output is not a position.
	ErrPlacement = errors.New("learned: model cannot be the last layer")

	// ErrBoundExceeded means a record lies outside the model's declared
	// error bound, i.e. the model was not trained on these records.
	ErrBoundExceeded = errors.New("learned: record outside declared error bound")
)

type DiagnosticPoint struct {
	Key          uint64
	RealPos      int
	PredictedPos int
	Error        int
}

// LearnedIndex answers point and range lookups over sorted records with a
// single model followed by a search bounded by the model's error window.
type LearnedIndex struct {
	Records []common.Record // 按 key 排序
	Model   model.Model
	MinErr  int
	MaxErr  int
	Stats   *monitor.LookupStats
}

// SortRecords orders data by key in place, keeping the input order of
// duplicate keys.
func SortRecords(data []common.Record) {
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Key < data[j].Key
	})
}

// ViewOf returns the (key, rank) view of sorted records, the training input
// a model for Build is expected to see.
func ViewOf(data []common.Record) *dataset.Slice {
	keys := make([]common.KeyType, len(data))
	for i, r := range data {
		keys[i] = r.Key
	}
	return dataset.FromKeys(keys)
}

// Build indexes data with m. data is sorted in place. A model that reports
// an error bound gets the symmetric window [-bound, +bound], and every record
// is checked against it; otherwise the window is the measured min/max error.
func Build(data []common.Record, m model.Model) (*LearnedIndex, error) {
	if m.Restriction() == model.MustBeTop {
		return nil, fmt.Errorf("%w: %s", ErrPlacement, m.Kind())
	}
	SortRecords(data)

	minErr, maxErr := 0, 0
	for i, rec := range data {
		err := i - predictPos(m, rec.Key)
		if err < minErr {
			minErr = err
		}
		if err > maxErr {
			maxErr = err
		}
	}

	if bound, ok := m.ErrorBound(); ok {
		b := clampInt(bound)
		if -minErr > b || maxErr > b {
			return nil, fmt.Errorf("%w: measured [%d, %d], bound %d", ErrBoundExceeded, minErr, maxErr, bound)
		}
		minErr, maxErr = -b, b
	}

	return &LearnedIndex{
		Records: data,
		Model:   m,
		MinErr:  minErr,
		MaxErr:  maxErr,
		Stats:   monitor.NewLookupStats(),
	}, nil
}

func clampInt(v uint64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}

func predictPos(m model.Model, key common.KeyType) int {
	return clampInt(m.PredictInt(key))
}

// window returns the clamped search range [low, high] around key's prediction.
func (li *LearnedIndex) window(key common.KeyType) (int, int) {
	pos := predictPos(li.Model, key)
	low, high := pos+li.MinErr, pos+li.MaxErr
	if low < 0 {
		low = 0
	}
	// high < pos 说明加法溢出
	if high < pos || high >= len(li.Records) {
		high = len(li.Records) - 1
	}
	return low, high
}

func (li *LearnedIndex) Size() int {
	return len(li.Records)
}

func (li *LearnedIndex) Get(key common.KeyType) (common.ValueType, bool) {
	if len(li.Records) == 0 {
		return nil, false
	}

	low, high := li.window(key)
	if low > high {
		li.Stats.RecordLookup(0)
		return nil, false
	}

	if high-low < 16 {
		for i := low; i <= high; i++ {
			if li.Records[i].Key == key {
				li.Stats.RecordLookup(i - low + 1)
				li.Stats.RecordHit()
				return li.Records[i].Value, true
			}
			if li.Records[i].Key > key {
				li.Stats.RecordLookup(i - low + 1)
				return nil, false
			}
		}
		li.Stats.RecordLookup(high - low + 1)
		return nil, false
	}

	slice := li.Records[low : high+1]
	probes := 0
	idx := sort.Search(len(slice), func(i int) bool {
		probes++
		return slice[i].Key >= key
	})
	li.Stats.RecordLookup(probes)

	if idx < len(slice) && slice[idx].Key == key {
		li.Stats.RecordHit()
		return slice[idx].Value, true
	}
	return nil, false
}

// Scan returns the records with lowKey <= key <= highKey.
func (li *LearnedIndex) Scan(lowKey, highKey common.KeyType) []common.Record {
	var res []common.Record
	if len(li.Records) == 0 || lowKey > highKey {
		return res
	}

	startIdx, _ := li.window(lowKey)
	if startIdx >= len(li.Records) {
		startIdx = len(li.Records) - 1
	}

	// 误差窗口只是起点，向两侧修正到第一个 >= lowKey 的位置
	for startIdx > 0 && li.Records[startIdx-1].Key >= lowKey {
		startIdx--
	}
	for startIdx < len(li.Records) && li.Records[startIdx].Key < lowKey {
		startIdx++
	}

	for i := startIdx; i < len(li.Records); i++ {
		rec := li.Records[i]
		if rec.Key > highKey {
			break
		}
		res = append(res, rec)
	}
	return res
}

func (li *LearnedIndex) ExportDiagnostics() []DiagnosticPoint {
	// 采样导出，避免数据量过大
	step := 1
	if len(li.Records) > 5000 {
		step = len(li.Records) / 5000
	}

	results := make([]DiagnosticPoint, 0, len(li.Records)/step)

	for i := 0; i < len(li.Records); i += step {
		record := li.Records[i]
		pred := predictPos(li.Model, record.Key)

		results = append(results, DiagnosticPoint{
			Key:          record.Key.AsUint(),
			RealPos:      i,
			PredictedPos: pred,
			Error:        i - pred,
		})
	}
	return results
}

// Benchmark times iterations lookups of existing keys with plain binary
// search and with the learned index, returning average ns per lookup.
func (li *LearnedIndex) Benchmark(iterations int, rng *rand.Rand) (avgBinary, avgLearned float64) {
	if len(li.Records) == 0 || iterations <= 0 {
		return 0, 0
	}

	keys := make([]common.KeyType, iterations)
	for i := range keys {
		keys[i] = li.Records[rng.Intn(len(li.Records))].Key
	}

	startBin := time.Now()
	for _, key := range keys {
		sort.Search(len(li.Records), func(i int) bool {
			return li.Records[i].Key >= key
		})
	}
	avgBinary = float64(time.Since(startBin).Nanoseconds()) / float64(iterations)

	startRMI := time.Now()
	for _, key := range keys {
		li.Get(key)
	}
	avgLearned = float64(time.Since(startRMI).Nanoseconds()) / float64(iterations)

	return avgBinary, avgLearned
}
