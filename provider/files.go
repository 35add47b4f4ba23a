package provider

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/patrikhermansson/pairmatch/core"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// FeatExt holds one feature per line: "x y [scale orientation]".
	FeatExt = ".feat"
	// DescExt holds one comma separated descriptor per line.
	DescExt = ".desc"
)

// Files reads <base>.feat and <base>.desc next to each other in a directory,
// where <base> is the image name without its extension.
type Files struct {
	Scalar  core.ScalarType
	Kind    core.DescriptorKind
	Workers int
}

// Load reads every image concurrently. Any failing image fails the whole load.
func (f Files) Load(ctx context.Context, names []string, dir string) (map[core.ImageIndex]core.DescriptorSet, error) {
	log.Info().Msgf("Loading %s %s descriptors of %d images from: %s", f.Kind, f.Scalar, len(names), dir)

	sets := make([]core.DescriptorSet, len(names))
	g, gctx := errgroup.WithContext(ctx)
	if f.Workers > 0 {
		g.SetLimit(f.Workers)
	}
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set, err := f.loadImage(filepath.Join(dir, basename(name)))
			if err != nil {
				return fmt.Errorf("%w: image %d (%s): %w", core.ErrLoad, i, name, err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[core.ImageIndex]core.DescriptorSet, len(sets))
	for i, set := range sets {
		out[core.ImageIndex(i)] = set
	}
	log.Info().Msgf("Loaded %d descriptor sets", len(out))
	return out, nil
}

func basename(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (f Files) loadImage(base string) (core.DescriptorSet, error) {
	switch f.Scalar {
	case core.ScalarUint8:
		return loadTyped[uint8](base, f.Kind)
	case core.ScalarFloat32:
		return loadTyped[float32](base, f.Kind)
	case core.ScalarFloat64:
		return loadTyped[float64](base, f.Kind)
	}
	return nil, fmt.Errorf("unsupported scalar type %s", f.Scalar)
}

func loadTyped[T core.Scalar](base string, kind core.DescriptorKind) (*core.Descriptors[T], error) {
	positions, err := readFeatures(base + FeatExt)
	if err != nil {
		return nil, err
	}
	rows, err := readCSV[T](base + DescExt)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(positions) {
		return nil, fmt.Errorf("%d features but %d descriptors", len(positions), len(rows))
	}
	if len(rows) == 0 {
		// An image without features still takes part; it just never matches.
		return core.NewDescriptors[T](kind, 1, nil, nil)
	}

	dimension := len(rows[0])
	data := make([]T, 0, len(rows)*dimension)
	for i, row := range rows {
		if len(row) != dimension {
			return nil, fmt.Errorf("%w: descriptor %d has %d values, want %d", core.ErrDimensionMismatch, i, len(row), dimension)
		}
		data = append(data, row...)
	}
	return core.NewDescriptors(kind, dimension, data, positions)
}

// readFeatures parses the positions of a .feat file. Scale and orientation are ignored.
func readFeatures(path string) ([]core.Point, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var points []core.Point
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s:%d: want at least x and y", path, line)
		}
		x, errX := strconv.ParseFloat(fields[0], 32)
		y, errY := strconv.ParseFloat(fields[1], 32)
		if err := errors.Join(errX, errY); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		points = append(points, core.Point{X: float32(x), Y: float32(y)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error in %s: %w", path, err)
	}
	return points, nil
}

// readCSV is a generic CSV reader for the descriptor scalar types.
func readCSV[T core.Scalar](path string) ([][]T, error) {
	log.Debug().Msgf("Opening CSV file: %s", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	var result [][]T

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read error in %s: %w", path, err)
		}
		row := make([]T, len(record))
		for i, val := range record {
			parsed, err := parseValue[T](val)
			if err != nil {
				return nil, fmt.Errorf("parse error at col %d in %s: %w", i, path, err)
			}
			row[i] = parsed
		}
		result = append(result, row)
	}

	log.Debug().Msgf("Parsed %d rows from %s", len(result), path)
	return result, nil
}

// parseValue converts a string to T (uint8, float32, or float64).
func parseValue[T core.Scalar](s string) (T, error) {
	s = strings.TrimSpace(s)
	var zero T
	switch any(zero).(type) {
	case uint8:
		v, err := strconv.ParseUint(s, 10, 8)
		return any(uint8(v)).(T), err
	case float32:
		v, err := strconv.ParseFloat(s, 32)
		return any(float32(v)).(T), err
	case float64:
		v, err := strconv.ParseFloat(s, 64)
		return any(v).(T), err
	default:
		return zero, fmt.Errorf("unsupported type %T", zero)
	}
}
