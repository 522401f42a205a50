package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

var manifestHeader = []string{"object_id", "stamp_type", "alert_date", "s3_path"}

// WriteManifest writes rows as CSV with a header line.
func WriteManifest(w io.Writer, rows []StampRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(manifestHeader); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.ObjectID, r.StampType, r.AlertDate, r.Path}); err != nil {
			return fmt.Errorf("write manifest row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadManifest parses a manifest written by WriteManifest.
func ReadManifest(r io.Reader) ([]StampRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(manifestHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("manifest is empty")
	}
	for i, name := range manifestHeader {
		if records[0][i] != name {
			return nil, fmt.Errorf("manifest header column %d is %q, want %q", i, records[0][i], name)
		}
	}
	rows := make([]StampRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, StampRow{ObjectID: rec[0], StampType: rec[1], AlertDate: rec[2], Path: rec[3]})
	}
	return rows, nil
}

// EncodeManifest renders the manifest, zstd-compressed when compress is set.
func EncodeManifest(rows []StampRow, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	if !compress {
		if err := WriteManifest(&buf, rows); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	if err := WriteManifest(enc, rows); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeManifest reverses EncodeManifest.
func DecodeManifest(data []byte, compressed bool) ([]StampRow, error) {
	if !compressed {
		return ReadManifest(bytes.NewReader(data))
	}
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()
	return ReadManifest(dec)
}
