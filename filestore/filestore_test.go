package filestore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/uploadhub/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"), nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.EnsureDirectories())
	return s
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		want        Category
		ok          bool
	}{
		{"image/jpeg", Image, true},
		{"image/png", Image, true},
		{"image/gif", Image, true},
		{"image/webp", Image, true},
		{"application/pdf", Document, true},
		{"application/msword", Document, true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", Document, true},
		{"text/csv", CSV, true},
		{"text/csv; charset=utf-8", CSV, true},
		{"IMAGE/PNG", Image, true},
		{"application/zip", "", false},
		{"image/svg+xml", "", false},
		{"text/plain", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, ok := DefaultTable.Classify(tt.contentType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTableRejectsMisconfiguration(t *testing.T) {
	_, err := NewTable(
		Spec{Category: Image, Accepted: []string{"image/png"}, MaxBytes: 1, Dir: "a"},
		Spec{Category: Document, Accepted: []string{"image/png"}, MaxBytes: 1, Dir: "b"},
	)
	assert.Error(t, err, "media type in two categories")

	_, err = NewTable(
		Spec{Category: Image, Accepted: []string{"image/png"}, MaxBytes: 1, Dir: "a"},
		Spec{Category: Image, Accepted: []string{"image/gif"}, MaxBytes: 1, Dir: "b"},
	)
	assert.Error(t, err, "category declared twice")

	_, err = NewTable(Spec{Category: Image, MaxBytes: 1})
	assert.Error(t, err, "missing directory")
}

func TestSpecsReturnsCopy(t *testing.T) {
	specs := DefaultTable.Specs()
	require.Len(t, specs, 3)
	specs[0].Accepted[0] = "mutated/type"

	_, ok := DefaultTable.Classify("image/jpeg")
	assert.True(t, ok)
}

func TestGenerateStoredName(t *testing.T) {
	tests := []struct {
		original string
		ext      string
		prefix   string
	}{
		{"photo.JPG", ".jpg", "photo-"},
		{"my holiday (1).png", ".png", "my-holiday--1--"},
		{"a-very-long-file-name-that-goes-on.pdf", ".pdf", "a-very-long-file-nam-"},
		{"../../etc/passwd", "", "passwd-"},
		{`C:\Users\me\report.docx`, ".docx", "report-"},
		{".bashrc", "", "-bashrc-"},
		{"", "", "file-"},
		{"archive.tar.GZ", ".gz", "archive-tar-"},
		{"weird.p h", "", "weird-"},
		{"résumé.csv", ".csv", "r-sum--"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			got := GenerateStoredName(tt.original)
			pattern := `^[A-Za-z0-9-]{1,20}-\d+-[0-9a-f]{16}` + regexp.QuoteMeta(tt.ext) + `$`
			assert.Regexp(t, pattern, got)
			assert.True(t, strings.HasPrefix(got, tt.prefix), "got %q, want prefix %q", got, tt.prefix)
			assert.NotContains(t, got, "/")
			assert.NotContains(t, got, `\`)
			assert.NotContains(t, got, "..")
		})
	}
}

func TestGenerateStoredNameDeterministic(t *testing.T) {
	origNow, origRand := now, randSource
	t.Cleanup(func() { now, randSource = origNow, origRand })

	now = func() time.Time { return time.UnixMilli(1700000000123) }
	randSource = bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04})

	assert.Equal(t, "data-1700000000123-deadbeef01020304.csv", GenerateStoredName("data.CSV"))
}

func TestGenerateStoredNameUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		name := GenerateStoredName("same.png")
		require.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}

func TestNewRequiresUploadsRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "files"), nil, nil)
	assert.Error(t, err)
}

func TestEnsureDirectoriesIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureDirectories())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.EnsureDirectories()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assert.ElementsMatch(t, []string{"csv", "documents", "images", "temp"}, dirEntries(t, s.Root()))
}

func TestDestination(t *testing.T) {
	s := newTestStore(t)

	dir, err := s.Destination(Image)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "images"), dir)

	_, err = s.Destination(Category("video"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	s := newTestStore(t)

	c, err := s.Validate(models.IncomingFile{ContentType: "image/png", DeclaredSize: 5 * mib})
	require.NoError(t, err)
	assert.Equal(t, Image, c)

	_, err = s.Validate(models.IncomingFile{ContentType: "image/png", DeclaredSize: 5*mib + 1})
	assert.True(t, IsRejected(err, TooLarge))
	assert.Equal(t, "File too large. Maximum size for image is 5MB", err.Error())

	c, err = s.Validate(models.IncomingFile{ContentType: "text/csv", DeclaredSize: -1})
	require.NoError(t, err)
	assert.Equal(t, CSV, c)

	_, err = s.Validate(models.IncomingFile{ContentType: "application/zip", DeclaredSize: 10})
	assert.True(t, IsRejected(err, UnsupportedType))
	assert.Equal(t, "Unsupported file type: application/zip", err.Error())

	var r *Rejection
	require.True(t, errors.As(err, &r))
	assert.Equal(t, 400, r.StatusCode())
}

func TestSave(t *testing.T) {
	s := newTestStore(t)
	content := []byte("id,name\n1,alice\n2,bob\n")

	stored, err := s.Save(context.Background(), CSV, models.IncomingFile{
		OriginalName: "People List.csv",
		ContentType:  "text/csv",
		DeclaredSize: -1,
		Content:      bytes.NewReader(content),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(len(content)), stored.Size)
	assert.Equal(t, "text/csv", stored.ContentType)
	assert.Equal(t, "csv", stored.Category)
	assert.Equal(t, filepath.Join(s.Root(), "csv", stored.Filename), stored.Path)
	assert.Regexp(t, `^People-List-\d+-[0-9a-f]{16}\.csv$`, stored.Filename)

	got, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Empty(t, dirEntries(t, filepath.Join(s.Root(), TempDir)))
}

func TestSaveSizeBoundary(t *testing.T) {
	s := newTestStore(t)
	limit := 2 * mib

	stored, err := s.Save(context.Background(), CSV, models.IncomingFile{
		OriginalName: "exact.csv",
		ContentType:  "text/csv",
		DeclaredSize: -1,
		Content:      bytes.NewReader(bytes.Repeat([]byte("a"), limit)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(limit), stored.Size)

	_, err = s.Save(context.Background(), CSV, models.IncomingFile{
		OriginalName: "over.csv",
		ContentType:  "text/csv",
		DeclaredSize: -1,
		Content:      bytes.NewReader(bytes.Repeat([]byte("a"), limit+1)),
	})
	assert.True(t, IsRejected(err, TooLarge))

	assert.Len(t, dirEntries(t, filepath.Join(s.Root(), "csv")), 1, "only the accepted file remains")
	assert.Empty(t, dirEntries(t, filepath.Join(s.Root(), TempDir)))
}

func TestSaveRejectsBeforeWriting(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save(context.Background(), Document, models.IncomingFile{
		OriginalName: "cat.png",
		ContentType:  "image/png",
		DeclaredSize: 10,
		Content:      strings.NewReader("png"),
	})
	assert.True(t, IsRejected(err, UnsupportedType), "category of another endpoint")

	_, err = s.Save(context.Background(), Image, models.IncomingFile{
		OriginalName: "big.png",
		ContentType:  "image/png",
		DeclaredSize: 6 * mib,
		Content:      strings.NewReader("png"),
	})
	assert.True(t, IsRejected(err, TooLarge))

	for _, dir := range []string{"images", "documents", TempDir} {
		assert.Empty(t, dirEntries(t, filepath.Join(s.Root(), dir)))
	}
}

func TestSaveCleansUpOnReadError(t *testing.T) {
	s := newTestStore(t)

	broken := iotest.TimeoutReader(iotest.OneByteReader(strings.NewReader(strings.Repeat("x", 4096))))
	_, err := s.Save(context.Background(), CSV, models.IncomingFile{
		OriginalName: "broken.csv",
		ContentType:  "text/csv",
		DeclaredSize: -1,
		Content:      broken,
	})
	require.Error(t, err)
	assert.False(t, IsRejected(err, TooLarge))

	assert.Empty(t, dirEntries(t, filepath.Join(s.Root(), "csv")))
	assert.Empty(t, dirEntries(t, filepath.Join(s.Root(), TempDir)))
}

func TestSaveCancelled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, CSV, models.IncomingFile{
		OriginalName: "gone.csv",
		ContentType:  "text/csv",
		DeclaredSize: -1,
		Content:      strings.NewReader("a,b\n"),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dirEntries(t, filepath.Join(s.Root(), "csv")))
	assert.Empty(t, dirEntries(t, filepath.Join(s.Root(), TempDir)))
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	stored, err := s.Save(context.Background(), Image, models.IncomingFile{
		OriginalName: "dot.gif",
		ContentType:  "image/gif",
		DeclaredSize: -1,
		Content:      strings.NewReader("GIF89a"),
	})
	require.NoError(t, err)

	removed, err := s.Remove(stored.Path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(stored.Path)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.Remove(filepath.Join(s.Root(), "..", "outside.txt"))
	assert.Error(t, err)
}

func TestSweepTemp(t *testing.T) {
	s := newTestStore(t)
	tmp := filepath.Join(s.Root(), TempDir)

	stale := filepath.Join(tmp, "stale-upload")
	fresh := filepath.Join(tmp, "fresh-upload")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	n, err := s.SweepTemp(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"fresh-upload"}, dirEntries(t, tmp))
}

func TestFileURL(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"unix path", "/srv/app/uploads/csv/data-1-abcdef0123456789.csv", "http://example.com/uploads/csv/data-1-abcdef0123456789.csv"},
		{"windows path", `C:\app\uploads\images\a.png`, "http://example.com/uploads/images/a.png"},
		{"nested uploads dirs", "/home/uploads/site/uploads/documents/b.pdf", "http://example.com/uploads/documents/b.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FileURL("http", "example.com", tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FileURL("http", "example.com", "/srv/app/files/a.png")
	assert.ErrorIs(t, err, ErrOutsideUploads)

	_, err = FileURL("http", "example.com", "/srv/app/myuploads/a.png")
	assert.ErrorIs(t, err, ErrOutsideUploads, "segment must match exactly")
}
