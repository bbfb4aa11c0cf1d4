package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"rmimodels/pkg/common"
)

// SOSD key files: [count uint64][key]*count, little endian.
// The key width comes from the file name suffix (_uint32 or _uint64).

var ErrUnknownKeyWidth = errors.New("dataset: file name must end in _uint32 or _uint64")

// KeyWidth returns 4 or 8 for a SOSD file name.
func KeyWidth(path string) (int, error) {
	base := filepath.Base(path)
	idx := strings.LastIndex(base, "_")
	if idx < 0 || idx == len(base)-1 {
		return 0, ErrUnknownKeyWidth
	}
	switch base[idx+1:] {
	case "uint32":
		return 4, nil
	case "uint64":
		return 8, nil
	default:
		return 0, ErrUnknownKeyWidth
	}
}

// LoadSOSD reads the keys of a SOSD file. Keys are returned as stored;
// callers sort them (see Builder) if the file is not already sorted.
func LoadSOSD(path string) ([]common.KeyType, error) {
	width, err := KeyWidth(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("dataset: read header of %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if want := 8 + int64(count)*int64(width); count > uint64(st.Size()) || st.Size() < want {
		return nil, fmt.Errorf("dataset: %s declares %d keys but holds %d bytes", path, count, st.Size())
	}

	keys := make([]common.KeyType, count)
	buf := make([]byte, width)
	for i := range keys {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("dataset: read key %d of %s: %w", i, path, err)
		}
		if width == 4 {
			keys[i] = common.KeyType(binary.LittleEndian.Uint32(buf))
		} else {
			keys[i] = common.KeyType(binary.LittleEndian.Uint64(buf))
		}
	}
	return keys, nil
}

// WriteSOSD writes keys in SOSD format; the width follows the file name.
func WriteSOSD(path string, keys []common.KeyType) error {
	width, err := KeyWidth(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, uint64(len(keys))); err != nil {
		f.Close()
		return err
	}
	buf := make([]byte, width)
	for _, k := range keys {
		if width == 4 {
			if k > 0xFFFFFFFF {
				f.Close()
				return fmt.Errorf("dataset: key %d does not fit in uint32", k)
			}
			binary.LittleEndian.PutUint32(buf, uint32(k))
		} else {
			binary.LittleEndian.PutUint64(buf, uint64(k))
		}
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
