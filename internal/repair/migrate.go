package repair

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// legacyImageName matches <oid>_<YYYY-MM-DDTHH-MM-SS.mmm>_<kind>.<ext>.
var legacyImageName = regexp.MustCompile(`^([A-Za-z0-9]+)_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.\d{3}_(science|template|difference)\.(png|fits|jpg|tiff)$`)

// MigrationReport summarizes a rename pass.
type MigrationReport struct {
	Renamed    int
	Duplicates int
	Deleted    int
	Existing   int
}

// MigrateImageNames renames timestamped image files in every date directory under
// dir to <oid>_<kind>.<ext>. The first file in name order wins; later duplicates
// are removed only when deleteDuplicates is set. Existing targets are kept.
func MigrateImageNames(dir string, deleteDuplicates bool) (MigrationReport, error) {
	var report MigrationReport
	dates, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return report, nil
		}
		return report, fmt.Errorf("read image dir: %w", err)
	}

	for _, date := range dates {
		if !date.IsDir() {
			continue
		}
		if err := migrateDateDir(filepath.Join(dir, date.Name()), deleteDuplicates, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func migrateDateDir(dateDir string, deleteDuplicates bool, report *MigrationReport) error {
	entries, err := os.ReadDir(dateDir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dateDir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := legacyImageName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		oid, kind, ext := m[1], m[2], m[3]
		key := oid + "_" + kind + "." + ext
		src := filepath.Join(dateDir, e.Name())

		if seen[key] {
			report.Duplicates++
			if deleteDuplicates {
				if err := os.Remove(src); err != nil {
					return fmt.Errorf("remove duplicate %s: %w", src, err)
				}
				report.Deleted++
			}
			continue
		}

		dst := filepath.Join(dateDir, key)
		if _, err := os.Stat(dst); err == nil {
			report.Existing++
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("rename %s: %w", src, err)
		}
		seen[key] = true
		report.Renamed++
	}
	return nil
}
