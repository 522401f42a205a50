package catalog

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"ztfalerts/internal/common/storage"
	"ztfalerts/internal/testutil"
	appErr "ztfalerts/pkg/errors"
)

type fakeStore struct {
	keys    []string
	listErr error
	puts    map[string][]byte
	putErr  error
}

func (s *fakeStore) StatObject(ctx context.Context, bucket, key string) (storage.ObjectStat, error) {
	return storage.ObjectStat{}, storage.ErrObjectNotFound
}

func (s *fakeStore) FPutObject(ctx context.Context, bucket, key, filePath string, opts storage.PutOptions) error {
	return errors.New("not implemented")
}

func (s *fakeStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts storage.PutOptions) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.puts == nil {
		s.puts = map[string][]byte{}
	}
	s.puts[key] = data
	return nil
}

func (s *fakeStore) ListObjects(ctx context.Context, bucket, prefix string) <-chan storage.ObjectInfo {
	out := make(chan storage.ObjectInfo, len(s.keys)+1)
	for _, k := range s.keys {
		if strings.HasPrefix(k, prefix) {
			out <- storage.ObjectInfo{Key: k}
		}
	}
	if s.listErr != nil {
		out <- storage.ObjectInfo{Err: s.listErr}
	}
	close(out)
	return out
}

// memWarehouse keeps rows in a map keyed like the real primary key.
type memWarehouse struct {
	rows      map[RowKey]StampRow
	merges    int
	upserts   int
	mergeErr  error
	schemaErr error
}

func newMemWarehouse() *memWarehouse {
	return &memWarehouse{rows: map[RowKey]StampRow{}}
}

func (w *memWarehouse) EnsureSchema(ctx context.Context) error { return w.schemaErr }

func (w *memWarehouse) Upsert(ctx context.Context, rows []StampRow) (int, error) {
	w.upserts++
	for _, r := range rows {
		w.rows[r.Key()] = r
	}
	return len(rows), nil
}

func (w *memWarehouse) MergeStaged(ctx context.Context, rows []StampRow) (int, error) {
	if w.mergeErr != nil {
		return 0, w.mergeErr
	}
	w.merges++
	for _, r := range rows {
		w.rows[r.Key()] = r
	}
	return len(rows), nil
}

func (w *memWarehouse) snapshot() []string {
	out := make([]string, 0, len(w.rows))
	for _, r := range w.rows {
		out = append(out, r.ObjectID+"|"+r.StampType+"|"+r.AlertDate+"|"+r.Path)
	}
	sort.Strings(out)
	return out
}

var remoteKeys = []string{
	"images/by_date/2020-05-31/ZTF21abc_science.png",
	"images/by_date/2020-05-31/ZTF21abc_template.png",
	"images/by_date/2020-05-31/ZTF21abc_difference.png",
	"images/by_date/2020-05-31/ZTF21abc_science.png",
	"images/by_date/2020-05-31/notes.txt",
}

func TestRunRemoteModeIsIdempotent(t *testing.T) {
	store := &fakeStore{keys: remoteKeys}
	wh := newMemWarehouse()
	job, err := NewJob(store, wh, Options{Mode: ModeRemote, Bucket: "ztf"})
	testutil.AssertNil(t, err)

	report, err := job.Run(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, report.Scanned, 5)
	testutil.AssertEqual(t, report.Ignored, 1)
	testutil.AssertEqual(t, report.Rows, 3)
	first := wh.snapshot()
	testutil.AssertEqual(t, len(first), 3)
	testutil.AssertTrue(t, strings.HasSuffix(first[0], "|s3://ztf/images/by_date/2020-05-31/ZTF21abc_difference.png"), first[0])

	_, err = job.Run(context.Background())
	testutil.AssertNil(t, err)
	second := wh.snapshot()
	testutil.AssertEqual(t, strings.Join(second, "\n"), strings.Join(first, "\n"))
	testutil.AssertEqual(t, wh.upserts, 2)
}

func TestRunRemoteListError(t *testing.T) {
	store := &fakeStore{keys: remoteKeys, listErr: errors.New("access denied")}
	wh := newMemWarehouse()
	job, _ := NewJob(store, wh, Options{Bucket: "ztf"})

	_, err := job.Run(context.Background())
	testutil.AssertTrue(t, appErr.Is(err, appErr.CatalogExtractFailed), "expected CatalogExtractFailed")
	testutil.AssertEqual(t, wh.upserts, 0)
}

func TestRunManifestMode(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "2020-05-31/ZTF21abc_science.png", []byte("a"))
	testutil.WriteFile(t, dir, "2020-05-31/ZTF21abc_template.png", []byte("b"))
	testutil.WriteFile(t, dir, "2020-06-01/ztf21xyz_difference.png", []byte("c"))
	testutil.WriteFile(t, dir, "2020-06-01/.ztf21xyz_science.png.1.tmp", []byte("d"))

	store := &fakeStore{}
	wh := newMemWarehouse()
	job, err := NewJob(store, wh, Options{Mode: ModeManifest, Bucket: "ztf", LocalImagesDir: dir, CompressManifest: true})
	testutil.AssertNil(t, err)

	report, err := job.Run(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, report.Rows, 3)
	testutil.AssertEqual(t, wh.merges, 1)
	testutil.AssertEqual(t, report.ManifestKey, "manifests/stamps/stamps-"+report.RunID+".csv.zst")

	rows, err := DecodeManifest(store.puts[report.ManifestKey], true)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, len(rows), 3)
	testutil.AssertEqual(t, rows[2].ObjectID, "ztf21xyz")
	testutil.AssertEqual(t, rows[2].Path, "s3://ztf/images/by_date/2020-06-01/ztf21xyz_difference.png")
}

func TestRunManifestMergeFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "2020-05-31/ZTF21abc_science.png", []byte("a"))
	wh := newMemWarehouse()
	wh.mergeErr = appErr.New(appErr.WarehouseMergeFailed)

	job, _ := NewJob(&fakeStore{}, wh, Options{Mode: ModeManifest, Bucket: "ztf", LocalImagesDir: dir})
	_, err := job.Run(context.Background())
	testutil.AssertTrue(t, appErr.Is(err, appErr.WarehouseMergeFailed), "merge failure should reach the caller")
}

func TestRunManifestUploadFailure(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "2020-05-31/ZTF21abc_science.png", []byte("a"))
	wh := newMemWarehouse()

	job, _ := NewJob(&fakeStore{putErr: errors.New("disk quota")}, wh, Options{Mode: ModeManifest, Bucket: "ztf", LocalImagesDir: dir})
	_, err := job.Run(context.Background())
	testutil.AssertTrue(t, appErr.Is(err, appErr.ManifestUploadFailed), "expected ManifestUploadFailed")
	testutil.AssertEqual(t, wh.merges, 0)
}

func TestRunManifestMissingDir(t *testing.T) {
	wh := newMemWarehouse()
	job, _ := NewJob(&fakeStore{}, wh, Options{Mode: ModeManifest, Bucket: "ztf", LocalImagesDir: filepath.Join(t.TempDir(), "nope")})
	report, err := job.Run(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, report.Rows, 0)
}

func TestNewJobValidates(t *testing.T) {
	_, err := NewJob(&fakeStore{}, newMemWarehouse(), Options{Mode: "bogus", Bucket: "b"})
	testutil.AssertNotNil(t, err)
	_, err = NewJob(&fakeStore{}, newMemWarehouse(), Options{Mode: ModeManifest, Bucket: "b"})
	testutil.AssertNotNil(t, err)
	_, err = NewJob(&fakeStore{}, newMemWarehouse(), Options{})
	testutil.AssertNotNil(t, err)
}
