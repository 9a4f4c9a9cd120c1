package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"delay-risk-api/features"
)

// Export writes the three splits as train.csv, val.csv and test.csv under
// dir. Columns: station key, bucket start, the canonical feature order,
// label. The split itself is carried by the file name, not a column.
func Export(d *Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	for name, rows := range map[string][]Row{
		"train": d.Train,
		"val":   d.Val,
		"test":  d.Test,
	} {
		if err := writeSplit(filepath.Join(dir, name+".csv"), rows); err != nil {
			return fmt.Errorf("write %s split: %w", name, err)
		}
	}
	return nil
}

func writeSplit(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"line_id", "stop_id", "bucket_start"}, features.Order...)
	header = append(header, "label")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, strOrEmpty(row.LineID), strOrEmpty(row.StopID),
			row.BucketStart.UTC().Format(time.RFC3339))
		for _, v := range features.Ordered(row.Features) {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		record = append(record, strconv.Itoa(row.Label))
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
