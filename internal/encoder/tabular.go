package encoder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"elarocks/internal/model"
	"elarocks/internal/schema"

	"github.com/rs/zerolog/log"
)

// Delimiter separates fields in every tabular file this package writes or reads.
const Delimiter = '\t'

var ErrIO = errors.New("tabular output failed")

// Encode writes a header row of the schema's field names followed by one row
// per record. Absent values are written as empty cells.
func Encode(w io.Writer, batch model.Batch, s *schema.Schema) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	header := s.FieldNames()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIO, err)
	}
	for i, rec := range batch {
		if rec.Len() != len(header) {
			return fmt.Errorf("%w: record %d has %d fields, schema %s has %d", ErrIO, i, rec.Len(), s.Kind(), len(header))
		}
		if err := cw.Write(rec.Values()); err != nil {
			return fmt.Errorf("%w: writing record %d: %v", ErrIO, i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: flushing: %v", ErrIO, err)
	}
	return nil
}

// WriteFile encodes batch into path, replacing any existing file. The data is
// written to a temporary file in the same directory, synced and renamed into
// place, so path either holds the complete output or is left untouched.
func WriteFile(path string, batch model.Batch, s *schema.Schema) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temporary file in %s: %v", ErrIO, dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn().Err(rmErr).Str("file", tmpPath).Msg("Failed to remove temporary output file")
			}
		}
	}()

	if err = Encode(tmp, batch, s); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %v", ErrIO, tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrIO, tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: renaming %s to %s: %v", ErrIO, tmpPath, path, err)
	}

	log.Debug().Str("file", path).Int("records", len(batch)).Msg("Wrote tabular file")
	return nil
}
