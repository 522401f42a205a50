package catalog

import (
	"regexp"
	"sort"
)

// stampKeyPattern matches image keys such as images/by_date/2020-05-31/ZTF21abc_science.png.
var stampKeyPattern = regexp.MustCompile(`by_date/(\d{4}-\d{2}-\d{2})/([A-Za-z0-9]+)_(science|template|difference)\.png$`)

// StampRow is one catalog entry. (ObjectID, StampType, AlertDate) is the key.
type StampRow struct {
	ObjectID  string
	StampType string
	AlertDate string
	Path      string
}

// RowKey identifies a catalog row.
type RowKey struct {
	ObjectID  string
	StampType string
	AlertDate string
}

func (r StampRow) Key() RowKey {
	return RowKey{ObjectID: r.ObjectID, StampType: r.StampType, AlertDate: r.AlertDate}
}

// ParseStampKey extracts a row from an object key. ok is false for keys that are not stamp images.
func ParseStampKey(key string) (row StampRow, ok bool) {
	m := stampKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return StampRow{}, false
	}
	return StampRow{AlertDate: m[1], ObjectID: m[2], StampType: m[3]}, true
}

// Dedupe keeps the last row per key and returns rows sorted by key.
func Dedupe(rows []StampRow) []StampRow {
	byKey := make(map[RowKey]StampRow, len(rows))
	for _, r := range rows {
		byKey[r.Key()] = r
	}
	out := make([]StampRow, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AlertDate != b.AlertDate {
			return a.AlertDate < b.AlertDate
		}
		if a.ObjectID != b.ObjectID {
			return a.ObjectID < b.ObjectID
		}
		return a.StampType < b.StampType
	})
	return out
}
