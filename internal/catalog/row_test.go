package catalog

import (
	"testing"

	"ztfalerts/internal/testutil"
)

func TestParseStampKey(t *testing.T) {
	tests := []struct {
		key  string
		ok   bool
		want StampRow
	}{
		{
			key:  "images/by_date/2020-05-31/ZTF21abc_science.png",
			ok:   true,
			want: StampRow{ObjectID: "ZTF21abc", StampType: "science", AlertDate: "2020-05-31"},
		},
		{
			key:  "images/by_date/2021-01-02/ZTF18AAAAAA_difference.png",
			ok:   true,
			want: StampRow{ObjectID: "ZTF18AAAAAA", StampType: "difference", AlertDate: "2021-01-02"},
		},
		{key: "images/by_date/2020-05-31/ZTF21abc_science.fits"},
		{key: "images/by_date/2020-05-31/ZTF21abc_2020-05-31T10-00-00.000_science.png"},
		{key: "images/by_date/2020-05-31/ZTF21abc_cutout.png"},
		{key: "alerts_partitioned/date=2020-05-31/alerts.jsonl"},
		{key: "images/by_date/2020-5-31/ZTF21abc_science.png"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := ParseStampKey(tt.key)
			testutil.AssertEqual(t, ok, tt.ok)
			testutil.AssertEqual(t, got, tt.want)
		})
	}
}

func TestDedupeKeepsLastAndSorts(t *testing.T) {
	rows := []StampRow{
		{ObjectID: "B", StampType: "science", AlertDate: "2020-06-01", Path: "p1"},
		{ObjectID: "A", StampType: "template", AlertDate: "2020-06-01", Path: "p2"},
		{ObjectID: "B", StampType: "science", AlertDate: "2020-06-01", Path: "p3"},
		{ObjectID: "A", StampType: "science", AlertDate: "2020-05-31", Path: "p4"},
	}
	out := Dedupe(rows)
	testutil.AssertEqual(t, len(out), 3)
	testutil.AssertEqual(t, out[0].Path, "p4")
	testutil.AssertEqual(t, out[1].Path, "p2")
	testutil.AssertEqual(t, out[2].Path, "p3")
}
