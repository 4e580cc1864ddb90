// Package manifest reads and writes the CSV manifest format: a literal
// File,Size header followed by one name,size row per object.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/snowpull/snowpull/pkg/inventory"
)

var header = []string{"File", "Size"}

// ReadNames parses a manifest and returns the set of names from the first
// column. The header row and the size column are ignored; filtering uses
// names only.
func ReadNames(r io.Reader) (map[string]struct{}, error) {
	reader := csv.NewReader(r)

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("read manifest header: %w", err)
	}

	names := map[string]struct{}{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest row: %w", err)
		}
		if len(record) == 0 || record[0] == "" {
			continue
		}
		names[record[0]] = struct{}{}
	}

	return names, nil
}

// ReadNamesFile reads a manifest from disk.
func ReadNamesFile(path string) (map[string]struct{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	return ReadNames(file)
}

// Write serializes a full inventory snapshot: the header row, then one
// name,size row per entry in ascending name order.
func Write(w io.Writer, files inventory.Set) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writer.Write([]string{name, strconv.FormatInt(files[name], 10)}); err != nil {
			return fmt.Errorf("write manifest row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes an inventory snapshot to disk, creating or truncating the
// target file.
func WriteFile(path string, files inventory.Set) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}

	err = Write(file, files)
	if closeErr := file.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close manifest: %w", closeErr)
	}
	return err
}
