package repair

import (
	"os"
	"path/filepath"
	"testing"

	"ztfalerts/internal/testutil"
)

func TestMigrateImageNames(t *testing.T) {
	tests := []struct {
		name             string
		files            []string
		deleteDuplicates bool
		wantExist        []string
		wantGone         []string
		want             MigrationReport
	}{
		{
			name:      "renames legacy names",
			files:     []string{"ZTF20abc_2020-05-31T01-02-03.456_science.png", "ZTF20abc_2020-05-31T01-02-03.456_difference.fits"},
			wantExist: []string{"ZTF20abc_science.png", "ZTF20abc_difference.fits"},
			want:      MigrationReport{Renamed: 2},
		},
		{
			name: "first file wins and duplicates stay",
			files: []string{
				"ZTF20abc_2020-05-31T01-02-03.456_science.png",
				"ZTF20abc_2020-05-31T05-00-00.000_science.png",
			},
			wantExist: []string{"ZTF20abc_science.png", "ZTF20abc_2020-05-31T05-00-00.000_science.png"},
			wantGone:  []string{"ZTF20abc_2020-05-31T01-02-03.456_science.png"},
			want:      MigrationReport{Renamed: 1, Duplicates: 1},
		},
		{
			name: "duplicates deleted on request",
			files: []string{
				"ZTF20abc_2020-05-31T01-02-03.456_template.png",
				"ZTF20abc_2020-05-31T05-00-00.000_template.png",
			},
			deleteDuplicates: true,
			wantExist:        []string{"ZTF20abc_template.png"},
			wantGone:         []string{"ZTF20abc_2020-05-31T05-00-00.000_template.png"},
			want:             MigrationReport{Renamed: 1, Duplicates: 1, Deleted: 1},
		},
		{
			name:      "existing target kept",
			files:     []string{"ZTF20abc_science.png", "ZTF20abc_2020-05-31T01-02-03.456_science.png"},
			wantExist: []string{"ZTF20abc_science.png", "ZTF20abc_2020-05-31T01-02-03.456_science.png"},
			want:      MigrationReport{Existing: 1},
		},
		{
			name:      "unrelated files untouched",
			files:     []string{"notes.txt", "ZTF20abc_2020-05-31_science.png", "ZTF20abc_2020-05-31T01-02-03.456_cutout.png"},
			wantExist: []string{"notes.txt", "ZTF20abc_2020-05-31_science.png", "ZTF20abc_2020-05-31T01-02-03.456_cutout.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, name := range tt.files {
				testutil.WriteFile(t, root, "2020-05-31/"+name, []byte(name))
			}

			report, err := MigrateImageNames(root, tt.deleteDuplicates)
			testutil.AssertNil(t, err)
			testutil.AssertEqual(t, report, tt.want)

			dateDir := filepath.Join(root, "2020-05-31")
			for _, name := range tt.wantExist {
				testutil.AssertTrue(t, testutil.FileExists(t, filepath.Join(dateDir, name)), name+" should exist")
			}
			for _, name := range tt.wantGone {
				testutil.AssertFalse(t, testutil.FileExists(t, filepath.Join(dateDir, name)), name+" should be gone")
			}
		})
	}
}

func TestMigrateImageNames_KeepsFirstContent(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "2020-05-31/ZTF20abc_2020-05-31T01-00-00.000_science.png", []byte("first"))
	testutil.WriteFile(t, root, "2020-05-31/ZTF20abc_2020-05-31T02-00-00.000_science.png", []byte("second"))

	_, err := MigrateImageNames(root, true)
	testutil.AssertNil(t, err)

	data, err := os.ReadFile(filepath.Join(root, "2020-05-31", "ZTF20abc_science.png"))
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, string(data), "first")
}

func TestMigrateImageNames_MissingRoot(t *testing.T) {
	report, err := MigrateImageNames(filepath.Join(t.TempDir(), "absent"), false)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, report, MigrationReport{})
}
