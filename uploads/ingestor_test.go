package uploads

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/session"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func pngPayload(size int) []byte {
	data := make([]byte, size)
	copy(data, pngHeader)
	return data
}

func testLimits() Limits {
	return Limits{MaxFileBytes: 1 << 20, MaxTotalBytes: 4 << 20, MaxFiles: 10}
}

func newTestIngestor(t *testing.T) (*Ingestor, *session.Store, string) {
	t.Helper()
	store, err := session.NewStore(t.TempDir(), time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	doc, err := store.Create(session.DefaultTTL)
	require.NoError(t, err)
	return NewIngestor(store, zaptest.NewLogger(t)), store, doc.ID
}

func TestSaveUploadsSuccess(t *testing.T) {
	ing, store, sid := newTestIngestor(t)

	saved, err := ing.SaveUploads(sid, []IncomingFile{
		{Name: "a.png", MimeType: "image/png", Data: pngPayload(500)},
		{Name: "b.png", MimeType: "image/png", Data: pngPayload(600)},
	}, testLimits())
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, "a.png", saved[0].OriginalName)
	assert.Equal(t, int64(500), saved[0].Size)
	// The stored path is confined to the uploads area and carries the
	// index prefix.
	assert.True(t, strings.HasPrefix(saved[0].StoredPath, store.UploadsDir(sid)))
	assert.Contains(t, saved[0].StoredPath, "1_a.png")
	assert.FileExists(t, saved[0].StoredPath)

	meta, err := store.ReadMetadata(sid)
	require.NoError(t, err)
	assert.Len(t, meta.UploadedFiles, 2)
}

func taggedPNG(tag string) []byte {
	return append(append([]byte{}, pngHeader...), []byte(tag)...)
}

func TestSaveUploadsSecondBatchKeepsEarlierFiles(t *testing.T) {
	ing, store, sid := newTestIngestor(t)

	first, err := ing.SaveUploads(sid, []IncomingFile{
		{Name: "a.png", MimeType: "image/png", Data: taggedPNG("first-batch")},
	}, testLimits())
	require.NoError(t, err)

	second, err := ing.SaveUploads(sid, []IncomingFile{
		{Name: "a.png", MimeType: "image/png", Data: taggedPNG("second-batch")},
	}, testLimits())
	require.NoError(t, err)

	// Same original name across batches must never share a stored path.
	assert.NotEqual(t, first[0].StoredPath, second[0].StoredPath)
	assert.Contains(t, first[0].StoredPath, "1_a.png")
	assert.Contains(t, second[0].StoredPath, "2_a.png")

	data, err := os.ReadFile(first[0].StoredPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first-batch", "earlier upload bytes stay intact")

	meta, err := store.ReadMetadata(sid)
	require.NoError(t, err)
	require.Len(t, meta.UploadedFiles, 2)
	assert.NotEqual(t, meta.UploadedFiles[0].StoredPath, meta.UploadedFiles[1].StoredPath)
}

func TestSaveUploadsAtomicBatch(t *testing.T) {
	ing, store, sid := newTestIngestor(t)

	_, err := ing.SaveUploads(sid, []IncomingFile{
		{Name: "good.png", MimeType: "image/png", Data: pngPayload(100)},
		{Name: "../../etc/passwd", MimeType: "image/png", Data: pngPayload(100)},
	}, testLimits())

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	// Nothing from the failed batch reaches disk or metadata.
	entries, readErr := os.ReadDir(store.UploadsDir(sid))
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	meta, readErr := store.ReadMetadata(sid)
	require.NoError(t, readErr)
	assert.Empty(t, meta.UploadedFiles)
}

func TestSaveUploadsReportsEveryProblem(t *testing.T) {
	ing, _, sid := newTestIngestor(t)

	_, err := ing.SaveUploads(sid, []IncomingFile{
		{Name: "../evil.png", MimeType: "image/png", Data: pngPayload(100)},
		{Name: "b.txt", MimeType: "text/plain", Data: []byte("hello")},
		{Name: "c.png", MimeType: "image/png", Data: nil},
	}, testLimits())

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	// traversal + unsupported type + non-image payload + empty payload
	assert.GreaterOrEqual(t, len(ve.Problems), 3)
}

func TestSaveUploadsSizeCeilings(t *testing.T) {
	ing, _, sid := newTestIngestor(t)
	limits := Limits{MaxFileBytes: 256, MaxTotalBytes: 400, MaxFiles: 10}

	_, err := ing.SaveUploads(sid, []IncomingFile{
		{Name: "big.png", MimeType: "image/png", Data: pngPayload(512)},
	}, limits)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = ing.SaveUploads(sid, []IncomingFile{
		{Name: "a.png", MimeType: "image/png", Data: pngPayload(250)},
		{Name: "b.png", MimeType: "image/png", Data: pngPayload(250)},
	}, limits)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, strings.Join(ve.Problems, " "), "total limit")
}

func TestSaveUploadsBatchCap(t *testing.T) {
	ing, _, sid := newTestIngestor(t)
	limits := Limits{MaxFileBytes: 1 << 20, MaxTotalBytes: 4 << 20, MaxFiles: 1}

	_, err := ing.SaveUploads(sid, []IncomingFile{
		{Name: "a.png", MimeType: "image/png", Data: pngPayload(10)},
		{Name: "b.png", MimeType: "image/png", Data: pngPayload(10)},
	}, limits)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSaveUploadsEmptyBatch(t *testing.T) {
	ing, _, sid := newTestIngestor(t)
	_, err := ing.SaveUploads(sid, nil, testLimits())
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSaveUploadsUnknownSession(t *testing.T) {
	ing, _, _ := newTestIngestor(t)
	_, err := ing.SaveUploads("7e6bfa2e-0000-0000-0000-000000000000", []IncomingFile{
		{Name: "a.png", MimeType: "image/png", Data: pngPayload(10)},
	}, testLimits())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
