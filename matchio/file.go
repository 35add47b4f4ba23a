package matchio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/patrikhermansson/pairmatch/core"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog/log"
)

// Compression is chosen from the file extension.
const (
	ZstdExt = ".zst"
	LZ4Ext  = ".lz4"
)

type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (w *writeCloser) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }

// Create opens path for writing, compressing by extension.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ZstdExt:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &writeCloser{Writer: enc, closers: []io.Closer{enc, f}}, nil
	case LZ4Ext:
		zw := lz4.NewWriter(f)
		return &writeCloser{Writer: zw, closers: []io.Closer{zw, f}}, nil
	}
	return f, nil
}

// Open opens path for reading, decompressing by extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ZstdExt:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readCloser{Reader: dec, close: func() error {
			dec.Close()
			return f.Close()
		}}, nil
	case LZ4Ext:
		return &readCloser{Reader: lz4.NewReader(f), close: f.Close}, nil
	}
	return f, nil
}

// SaveMatches writes table to path.
func SaveMatches(path string, table core.PairwiseMatches) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	return writeMatchesAndClose(w, path, table)
}

// writeMatchesAndClose logs success only after w is closed without error.
func writeMatchesAndClose(w io.WriteCloser, path string, table core.PairwiseMatches) error {
	if err := WriteMatches(w, table); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	log.Info().Msgf("Saved %d pairs, %d correspondences to %s", len(table), table.Count(), path)
	return nil
}

// LoadMatches reads a matches file.
func LoadMatches(path string) (core.PairwiseMatches, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	table, err := ReadMatches(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

// LoadPairs reads a pair list file.
func LoadPairs(path string) (core.PairSet, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	pairs, err := ReadPairs(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return pairs, nil
}

// SavePairs writes pairs to path.
func SavePairs(path string, pairs core.PairSet) (err error) {
	w, err := Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return WritePairs(w, pairs)
}
