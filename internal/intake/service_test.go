package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darsbot/darsbot/internal/channel"
	"github.com/darsbot/darsbot/internal/school"
)

type fakeIntakeStore struct {
	existing      map[string]school.Submission
	submissions   []school.Submission
	documents     []school.MonthlyDocument
	deleted       []school.Submission
	nextID        int64
	createErr     error
	firstCreate   error
	createAttempt int
}

func dayKey(studentID, taskID int64, day time.Time) string {
	return fmt.Sprintf("%s/%d/%d", day.UTC().Format("2006-01-02"), studentID, taskID)
}

func (f *fakeIntakeStore) SubmissionForDay(_ context.Context, studentID, taskID int64, day time.Time) (school.Submission, error) {
	if sub, ok := f.existing[dayKey(studentID, taskID, day)]; ok {
		return sub, nil
	}
	return school.Submission{}, school.ErrNotFound
}

func (f *fakeIntakeStore) CreateSubmission(_ context.Context, params school.CreateSubmissionParams) (school.Submission, error) {
	f.createAttempt++
	if f.firstCreate != nil && f.createAttempt == 1 {
		err := f.firstCreate
		f.firstCreate = nil
		return school.Submission{}, err
	}
	if f.createErr != nil {
		return school.Submission{}, f.createErr
	}
	f.nextID++
	sub := school.Submission{
		ID:          f.nextID,
		StudentID:   params.StudentID,
		TaskID:      params.TaskID,
		FilePath:    params.FilePath,
		SubmittedAt: params.SubmittedAt,
	}
	f.submissions = append(f.submissions, sub)
	return sub, nil
}

func (f *fakeIntakeStore) DeleteSubmissionsForDay(_ context.Context, studentID, taskID int64, day time.Time) ([]school.Submission, error) {
	key := dayKey(studentID, taskID, day)
	sub, ok := f.existing[key]
	if !ok {
		return nil, nil
	}
	delete(f.existing, key)
	f.deleted = append(f.deleted, sub)
	return []school.Submission{sub}, nil
}

func (f *fakeIntakeStore) CreateMonthlyDocument(_ context.Context, params school.CreateMonthlyDocumentParams) (school.MonthlyDocument, error) {
	if f.createErr != nil {
		return school.MonthlyDocument{}, f.createErr
	}
	f.nextID++
	doc := school.MonthlyDocument{
		ID:         f.nextID,
		MonthLabel: params.MonthLabel,
		FilePath:   params.FilePath,
		UploaderID: params.UploaderID,
		UploadedAt: params.UploadedAt,
	}
	f.documents = append(f.documents, doc)
	return doc, nil
}

type fakeFetcher struct {
	payload string
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.payload)), nil
}

func testLimits() Limits {
	return Limits{MaxVideoSeconds: 60, MaxVideoBytes: 20 * 1024 * 1024, MaxDocumentBytes: 20 * 1024 * 1024}
}

func newTestService(t *testing.T, store *fakeIntakeStore, fetcher *fakeFetcher) *Service {
	t.Helper()
	if store.existing == nil {
		store.existing = map[string]school.Submission{}
	}
	return NewService(nil, store, fetcher, t.TempDir(), testLimits())
}

func testVideo() channel.Media {
	return channel.Media{
		Kind:            channel.MediaVideo,
		FileID:          "file-1",
		FileName:        "clip.mp4",
		DurationSeconds: 45,
		SizeBytes:       5 * 1024 * 1024,
	}
}

var (
	testStudent = school.Person{ID: 1, Identity: "1001", Role: school.RoleStudent}
	testTask    = school.Task{ID: 2, Title: "Week 3 reading"}
	testCurator = school.Person{ID: 3, Identity: "2001", Role: school.RoleCurator}
)

func TestSubmitVideo_AcceptsAndWritesFile(t *testing.T) {
	store := &fakeIntakeStore{}
	svc := newTestService(t, store, &fakeFetcher{payload: "video-bytes"})

	result, err := svc.SubmitVideo(context.Background(), testStudent, testTask, testVideo())
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, testStudent.ID, result.Submission.StudentID)
	assert.Equal(t, testTask.ID, result.Submission.TaskID)
	assert.True(t, strings.HasPrefix(result.Submission.FilePath, "student_videos/"))
	assert.True(t, strings.HasSuffix(result.Submission.FilePath, ".mp4"))

	data, err := os.ReadFile(svc.StoredPath(result.Submission.FilePath))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestSubmitVideo_RejectsWrongKind(t *testing.T) {
	svc := newTestService(t, &fakeIntakeStore{}, &fakeFetcher{})
	media := testVideo()
	media.Kind = channel.MediaDocument

	_, err := svc.SubmitVideo(context.Background(), testStudent, testTask, media)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestSubmitVideo_RejectsOverDuration(t *testing.T) {
	svc := newTestService(t, &fakeIntakeStore{}, &fakeFetcher{})
	media := testVideo()
	media.DurationSeconds = 61

	_, err := svc.SubmitVideo(context.Background(), testStudent, testTask, media)
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestSubmitVideo_AcceptsExactCeilings(t *testing.T) {
	store := &fakeIntakeStore{}
	svc := newTestService(t, store, &fakeFetcher{payload: "x"})
	media := testVideo()
	media.DurationSeconds = 60
	media.SizeBytes = 20 * 1024 * 1024

	result, err := svc.SubmitVideo(context.Background(), testStudent, testTask, media)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
}

func TestSubmitVideo_RejectsOversize(t *testing.T) {
	svc := newTestService(t, &fakeIntakeStore{}, &fakeFetcher{})
	media := testVideo()
	media.SizeBytes = 20*1024*1024 + 1

	_, err := svc.SubmitVideo(context.Background(), testStudent, testTask, media)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSubmitVideo_RejectsForwarded(t *testing.T) {
	svc := newTestService(t, &fakeIntakeStore{}, &fakeFetcher{})
	media := testVideo()
	media.Forwarded = true

	_, err := svc.SubmitVideo(context.Background(), testStudent, testTask, media)
	assert.ErrorIs(t, err, ErrForwardRejected)
}

func TestSubmitVideo_ValidationOrderKindFirst(t *testing.T) {
	svc := newTestService(t, &fakeIntakeStore{}, &fakeFetcher{})
	media := testVideo()
	media.Kind = channel.MediaDocument
	media.DurationSeconds = 600
	media.Forwarded = true

	_, err := svc.SubmitVideo(context.Background(), testStudent, testTask, media)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestSubmitVideo_DuplicateProbeSkipsDownload(t *testing.T) {
	store := &fakeIntakeStore{existing: map[string]school.Submission{}}
	now := time.Now().UTC()
	store.existing[dayKey(testStudent.ID, testTask.ID, now)] = school.Submission{
		ID: 9, StudentID: testStudent.ID, TaskID: testTask.ID, FilePath: "student_videos/old.mp4",
	}
	fetchErr := &fakeFetcher{err: io.ErrUnexpectedEOF}
	svc := newTestService(t, store, fetchErr)

	result, err := svc.SubmitVideo(context.Background(), testStudent, testTask, testVideo())
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Empty(t, store.submissions)
}

func TestSubmitVideo_InsertRaceDiscardsFile(t *testing.T) {
	store := &fakeIntakeStore{firstCreate: school.ErrDuplicateSubmission}
	svc := newTestService(t, store, &fakeFetcher{payload: "late"})

	result, err := svc.SubmitVideo(context.Background(), testStudent, testTask, testVideo())
	require.NoError(t, err)
	assert.True(t, result.Duplicate)

	entries, err := os.ReadDir(filepath.Join(svc.root, videoDir))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmitVideo_StreamOverCeilingRejected(t *testing.T) {
	store := &fakeIntakeStore{}
	fetcher := &fakeFetcher{payload: strings.Repeat("a", 64)}
	svc := NewService(nil, store, fetcher, t.TempDir(),
		Limits{MaxVideoSeconds: 60, MaxVideoBytes: 32, MaxDocumentBytes: 32})
	store.existing = map[string]school.Submission{}
	media := testVideo()
	media.SizeBytes = 10 // descriptor lies about the size

	_, err := svc.SubmitVideo(context.Background(), testStudent, testTask, media)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, store.submissions)

	entries, err := os.ReadDir(filepath.Join(svc.root, videoDir))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplace_RemovesOldFileAndRecordsNew(t *testing.T) {
	store := &fakeIntakeStore{existing: map[string]school.Submission{}}
	svc := newTestService(t, store, &fakeFetcher{payload: "new-bytes"})

	oldRel := "student_videos/old.mp4"
	require.NoError(t, os.MkdirAll(filepath.Join(svc.root, videoDir), 0o755))
	require.NoError(t, os.WriteFile(svc.StoredPath(oldRel), []byte("old-bytes"), 0o644))
	now := time.Now().UTC()
	store.existing[dayKey(testStudent.ID, testTask.ID, now)] = school.Submission{
		ID: 9, StudentID: testStudent.ID, TaskID: testTask.ID, FilePath: oldRel,
	}

	sub, err := svc.Replace(context.Background(), testStudent, testTask, testVideo())
	require.NoError(t, err)
	assert.NotEqual(t, oldRel, sub.FilePath)

	_, statErr := os.Stat(svc.StoredPath(oldRel))
	assert.True(t, os.IsNotExist(statErr))

	data, err := os.ReadFile(svc.StoredPath(sub.FilePath))
	require.NoError(t, err)
	assert.Equal(t, "new-bytes", string(data))
	assert.Len(t, store.deleted, 1)
}

func TestReplace_ConcurrentDuplicateSurfaces(t *testing.T) {
	store := &fakeIntakeStore{existing: map[string]school.Submission{}, firstCreate: school.ErrDuplicateSubmission}
	svc := newTestService(t, store, &fakeFetcher{payload: "new"})

	_, err := svc.Replace(context.Background(), testStudent, testTask, testVideo())
	assert.ErrorIs(t, err, school.ErrDuplicateSubmission)
}

func TestReplace_RejectsInvalidBeforeDeleting(t *testing.T) {
	store := &fakeIntakeStore{existing: map[string]school.Submission{}}
	now := time.Now().UTC()
	store.existing[dayKey(testStudent.ID, testTask.ID, now)] = school.Submission{ID: 9}
	svc := newTestService(t, store, &fakeFetcher{})
	media := testVideo()
	media.Forwarded = true

	_, err := svc.Replace(context.Background(), testStudent, testTask, media)
	assert.ErrorIs(t, err, ErrForwardRejected)
	assert.Empty(t, store.deleted)
}

func TestSubmitMonthlyDocument_Accepts(t *testing.T) {
	store := &fakeIntakeStore{}
	svc := newTestService(t, store, &fakeFetcher{payload: "%PDF-1.7"})
	media := channel.Media{
		Kind:      channel.MediaDocument,
		FileID:    "doc-1",
		FileName:  "reader.pdf",
		Mime:      "application/pdf",
		SizeBytes: 1024,
	}

	doc, err := svc.SubmitMonthlyDocument(context.Background(), testCurator, "May 2026", media)
	require.NoError(t, err)
	assert.Equal(t, "May 2026", doc.MonthLabel)
	assert.True(t, strings.HasPrefix(doc.FilePath, "monthly_books/"))
	assert.Contains(t, doc.FilePath, "May-2026")
	assert.True(t, strings.HasSuffix(doc.FilePath, ".pdf"))

	data, err := os.ReadFile(svc.StoredPath(doc.FilePath))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestSubmitMonthlyDocument_RejectsVideo(t *testing.T) {
	svc := newTestService(t, &fakeIntakeStore{}, &fakeFetcher{})
	media := channel.Media{Kind: channel.MediaVideo, FileID: "v", SizeBytes: 10}

	_, err := svc.SubmitMonthlyDocument(context.Background(), testCurator, "May 2026", media)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestDocumentExtension_FallsBackToMime(t *testing.T) {
	assert.Equal(t, ".pdf", documentExtension(channel.Media{Mime: "application/pdf"}))
	assert.Equal(t, ".epub", documentExtension(channel.Media{Mime: "application/epub+zip"}))
	assert.Equal(t, ".bin", documentExtension(channel.Media{Mime: "application/octet-stream"}))
	assert.Equal(t, ".epub", documentExtension(channel.Media{FileName: "book.epub"}))
}

func TestVideoExtension_DefaultsToMP4(t *testing.T) {
	assert.Equal(t, ".mp4", videoExtension(channel.Media{}))
	assert.Equal(t, ".mov", videoExtension(channel.Media{FileName: "clip.mov"}))
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "May-2026", sanitizeLabel(" May 2026 "))
	assert.Equal(t, "2026-05", sanitizeLabel("2026/05"))
}
