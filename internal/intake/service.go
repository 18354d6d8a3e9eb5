// Package intake validates, downloads, persists, and records inbound files:
// student task videos and curators' monthly documents.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darsbot/darsbot/internal/channel"
	"github.com/darsbot/darsbot/internal/school"
)

const (
	videoDir    = "student_videos"
	documentDir = "monthly_books"
)

// Store is the persistence the pipeline depends on.
type Store interface {
	SubmissionForDay(ctx context.Context, studentID, taskID int64, day time.Time) (school.Submission, error)
	CreateSubmission(ctx context.Context, params school.CreateSubmissionParams) (school.Submission, error)
	DeleteSubmissionsForDay(ctx context.Context, studentID, taskID int64, day time.Time) ([]school.Submission, error)
	CreateMonthlyDocument(ctx context.Context, params school.CreateMonthlyDocumentParams) (school.MonthlyDocument, error)
}

// Fetcher resolves a file reference to its byte stream.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Limits are the configured media ceilings. Exactly-at-ceiling is accepted.
type Limits struct {
	MaxVideoSeconds  int
	MaxVideoBytes    int64
	MaxDocumentBytes int64
}

// Result reports the outcome of a video submission. Duplicate means a
// same-day submission already exists and nothing was written; the caller
// decides whether to Replace.
type Result struct {
	Submission school.Submission
	Duplicate  bool
}

// Service is the media intake pipeline.
type Service struct {
	store   Store
	fetcher Fetcher
	root    string
	limits  Limits
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates the pipeline writing under root.
func NewService(log *slog.Logger, store Store, fetcher Fetcher, root string, limits Limits) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		root:    root,
		limits:  limits,
		logger:  log.With(slog.String("service", "intake")),
		now:     time.Now,
	}
}

// Limits returns the configured ceilings.
func (s *Service) Limits() Limits {
	return s.limits
}

// StoredPath resolves a recorded relative path against the storage root.
func (s *Service) StoredPath(relative string) string {
	return filepath.Join(s.root, filepath.FromSlash(relative))
}

// SubmitVideo runs the intake for a student's task video. Validation short
// circuits on the first failure; a same-day submission for the (student,
// task) key yields Result{Duplicate: true} with no side effects.
func (s *Service) SubmitVideo(ctx context.Context, student school.Person, task school.Task, media channel.Media) (Result, error) {
	if err := s.validateVideo(media); err != nil {
		return Result{}, err
	}
	now := s.now().UTC()
	_, err := s.store.SubmissionForDay(ctx, student.ID, task.ID, now)
	if err == nil {
		return Result{Duplicate: true}, nil
	}
	if !errors.Is(err, school.ErrNotFound) {
		return Result{}, fmt.Errorf("check existing submission: %w", err)
	}
	return s.acceptVideo(ctx, student, task, media, now)
}

// Replace deletes today's submissions for the (student, task) key, removes
// their stored files, and accepts the new video. Only reached after the user
// explicitly confirmed resubmission.
func (s *Service) Replace(ctx context.Context, student school.Person, task school.Task, media channel.Media) (school.Submission, error) {
	if err := s.validateVideo(media); err != nil {
		return school.Submission{}, err
	}
	now := s.now().UTC()
	deleted, err := s.store.DeleteSubmissionsForDay(ctx, student.ID, task.ID, now)
	if err != nil {
		return school.Submission{}, fmt.Errorf("delete previous submissions: %w", err)
	}
	for _, old := range deleted {
		if err := os.Remove(s.StoredPath(old.FilePath)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove replaced file failed",
				slog.String("path", old.FilePath), slog.Any("error", err))
		}
	}
	result, err := s.acceptVideo(ctx, student, task, media, now)
	if err != nil {
		return school.Submission{}, err
	}
	if result.Duplicate {
		// A concurrent submission landed between the delete and the insert.
		return school.Submission{}, school.ErrDuplicateSubmission
	}
	return result.Submission, nil
}

func (s *Service) acceptVideo(ctx context.Context, student school.Person, task school.Task, media channel.Media, now time.Time) (Result, error) {
	name := fmt.Sprintf("%s_%d_%s_%s%s",
		student.Identity, task.ID, now.Format("20060102150405"), shortID(), videoExtension(media))
	relative, err := s.save(ctx, videoDir, name, media, s.limits.MaxVideoBytes)
	if err != nil {
		return Result{}, err
	}
	submission, err := s.store.CreateSubmission(ctx, school.CreateSubmissionParams{
		StudentID:   student.ID,
		TaskID:      task.ID,
		FilePath:    relative,
		SubmittedAt: now,
	})
	if errors.Is(err, school.ErrDuplicateSubmission) {
		s.discard(relative)
		return Result{Duplicate: true}, nil
	}
	if err != nil {
		s.discard(relative)
		return Result{}, fmt.Errorf("record submission: %w", err)
	}
	s.logger.Info("video accepted",
		slog.Int64("student_id", student.ID),
		slog.Int64("task_id", task.ID),
		slog.String("path", relative))
	return Result{Submission: submission}, nil
}

// SubmitMonthlyDocument runs the intake for a curator's monthly upload.
func (s *Service) SubmitMonthlyDocument(ctx context.Context, uploader school.Person, monthLabel string, media channel.Media) (school.MonthlyDocument, error) {
	if err := s.validateDocument(media); err != nil {
		return school.MonthlyDocument{}, err
	}
	now := s.now().UTC()
	name := fmt.Sprintf("%s_%s_%s_%s%s",
		uploader.Identity, sanitizeLabel(monthLabel), now.Format("20060102150405"), shortID(), documentExtension(media))
	relative, err := s.save(ctx, documentDir, name, media, s.limits.MaxDocumentBytes)
	if err != nil {
		return school.MonthlyDocument{}, err
	}
	doc, err := s.store.CreateMonthlyDocument(ctx, school.CreateMonthlyDocumentParams{
		MonthLabel: monthLabel,
		FilePath:   relative,
		UploaderID: uploader.ID,
		UploadedAt: now,
	})
	if err != nil {
		s.discard(relative)
		return school.MonthlyDocument{}, fmt.Errorf("record document: %w", err)
	}
	s.logger.Info("monthly document accepted",
		slog.String("month", monthLabel),
		slog.String("path", relative))
	return doc, nil
}

func (s *Service) validateVideo(media channel.Media) error {
	if media.Kind != channel.MediaVideo && media.Kind != channel.MediaVideoNote {
		return fmt.Errorf("%w: %s", ErrUnsupportedMedia, media.Kind)
	}
	if media.DurationSeconds > s.limits.MaxVideoSeconds {
		return fmt.Errorf("%w: max %d seconds", ErrTooLong, s.limits.MaxVideoSeconds)
	}
	if media.SizeBytes > s.limits.MaxVideoBytes {
		return fmt.Errorf("%w: max %d bytes", ErrTooLarge, s.limits.MaxVideoBytes)
	}
	if media.Forwarded {
		return ErrForwardRejected
	}
	return nil
}

func (s *Service) validateDocument(media channel.Media) error {
	if media.Kind != channel.MediaDocument {
		return fmt.Errorf("%w: %s", ErrUnsupportedMedia, media.Kind)
	}
	if media.SizeBytes > s.limits.MaxDocumentBytes {
		return fmt.Errorf("%w: max %d bytes", ErrTooLarge, s.limits.MaxDocumentBytes)
	}
	if media.Forwarded {
		return ErrForwardRejected
	}
	return nil
}

// save fetches the payload and writes it under subdir, returning the relative
// path that gets recorded. The size ceiling is enforced on the actual stream,
// not just the descriptor.
func (s *Service) save(ctx context.Context, subdir, name string, media channel.Media, maxBytes int64) (string, error) {
	reader, err := s.fetcher.Fetch(ctx, media.FileID)
	if err != nil {
		return "", fmt.Errorf("fetch payload: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()
	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create content dir: %w", err)
	}
	target := filepath.Join(dir, name)
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	limited := &io.LimitedReader{R: reader, N: maxBytes + 1}
	written, err := io.Copy(file, limited)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("write file: %w", err)
	}
	if written > maxBytes {
		_ = os.Remove(target)
		return "", fmt.Errorf("%w: max %d bytes", ErrTooLarge, maxBytes)
	}
	return path.Join(subdir, name), nil
}

func (s *Service) discard(relative string) {
	if err := os.Remove(s.StoredPath(relative)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("remove discarded file failed",
			slog.String("path", relative), slog.Any("error", err))
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	replacer := strings.NewReplacer(" ", "-", "/", "-", "\\", "-")
	return replacer.Replace(label)
}

func videoExtension(media channel.Media) string {
	if ext := path.Ext(media.FileName); ext != "" {
		return ext
	}
	return ".mp4"
}

func documentExtension(media channel.Media) string {
	if ext := path.Ext(media.FileName); ext != "" {
		return ext
	}
	switch strings.ToLower(strings.TrimSpace(media.Mime)) {
	case "application/pdf":
		return ".pdf"
	case "application/epub+zip":
		return ".epub"
	default:
		return ".bin"
	}
}
