package school

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx pool behaviour the store depends on.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides CRUD and filtered reads over the school entities.
type Store struct {
	db     DBTX
	logger *slog.Logger
}

// NewStore creates a store backed by the given connection.
func NewStore(log *slog.Logger, db DBTX) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:     db,
		logger: log.With(slog.String("service", "school")),
	}
}

const personColumns = "id, identity, full_name, role, branch_id, class_id, child_id, created_at"

// PersonByIdentity looks up a person by their unique transport identity.
func (s *Store) PersonByIdentity(ctx context.Context, identity string) (Person, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+personColumns+" FROM persons WHERE identity = $1", identity)
	return scanPerson(row)
}

// PersonByID looks up a person by primary key.
func (s *Store) PersonByID(ctx context.Context, id int64) (Person, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+personColumns+" FROM persons WHERE id = $1", id)
	return scanPerson(row)
}

// CreatePerson inserts a new person row.
func (s *Store) CreatePerson(ctx context.Context, params CreatePersonParams) (Person, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO persons (identity, full_name, role, branch_id, class_id, child_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+personColumns,
		params.Identity, params.FullName, string(params.Role),
		int8From(params.BranchID), int8From(params.ClassID), int8From(params.ChildID))
	person, err := scanPerson(row)
	if err != nil {
		return Person{}, fmt.Errorf("create person: %w", err)
	}
	s.logger.Info("person created",
		slog.Int64("id", person.ID),
		slog.String("role", string(person.Role)))
	return person, nil
}

// Branches returns all branches ordered by name.
func (s *Store) Branches(ctx context.Context) ([]Branch, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name FROM branches ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()
	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// Branch returns one branch by id.
func (s *Store) Branch(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := s.db.QueryRow(ctx, "SELECT id, name FROM branches WHERE id = $1", id).
		Scan(&b.ID, &b.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, ErrNotFound
	}
	if err != nil {
		return Branch{}, fmt.Errorf("get branch: %w", err)
	}
	return b, nil
}

// ClassesByBranch returns the classes of a branch ordered by name.
func (s *Store) ClassesByBranch(ctx context.Context, branchID int64) ([]Class, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, branch_id, name FROM classes WHERE branch_id = $1 ORDER BY name", branchID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()
	var classes []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.BranchID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// Class returns one class by id.
func (s *Store) Class(ctx context.Context, id int64) (Class, error) {
	var c Class
	err := s.db.QueryRow(ctx,
		"SELECT id, branch_id, name FROM classes WHERE id = $1", id).
		Scan(&c.ID, &c.BranchID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Class{}, ErrNotFound
	}
	if err != nil {
		return Class{}, fmt.Errorf("get class: %w", err)
	}
	return c, nil
}

// Tasks returns all tasks ordered by id.
func (s *Store) Tasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.Query(ctx, "SELECT id, title, description FROM tasks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Task returns one task by id.
func (s *Store) Task(ctx context.Context, id int64) (Task, error) {
	var t Task
	err := s.db.QueryRow(ctx,
		"SELECT id, title, description FROM tasks WHERE id = $1", id).
		Scan(&t.ID, &t.Title, &t.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// SubmissionForDay returns the submission for (student, task) on the given
// calendar day, or ErrNotFound.
func (s *Store) SubmissionForDay(ctx context.Context, studentID, taskID int64, day time.Time) (Submission, error) {
	var sub Submission
	err := s.db.QueryRow(ctx,
		`SELECT id, student_id, task_id, file_path, submitted_at
		 FROM submissions
		 WHERE student_id = $1 AND task_id = $2 AND submitted_on = $3`,
		studentID, taskID, dateOf(day)).
		Scan(&sub.ID, &sub.StudentID, &sub.TaskID, &sub.FilePath, &sub.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// CreateSubmission inserts a submission row. A same-day uniqueness violation
// is reported as ErrDuplicateSubmission so callers can fall back to the
// resubmission prompt.
func (s *Store) CreateSubmission(ctx context.Context, params CreateSubmissionParams) (Submission, error) {
	var sub Submission
	err := s.db.QueryRow(ctx,
		`INSERT INTO submissions (student_id, task_id, file_path, submitted_at, submitted_on)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, student_id, task_id, file_path, submitted_at`,
		params.StudentID, params.TaskID, params.FilePath,
		params.SubmittedAt, dateOf(params.SubmittedAt)).
		Scan(&sub.ID, &sub.StudentID, &sub.TaskID, &sub.FilePath, &sub.SubmittedAt)
	if isUniqueViolation(err) {
		return Submission{}, ErrDuplicateSubmission
	}
	if err != nil {
		return Submission{}, fmt.Errorf("create submission: %w", err)
	}
	return sub, nil
}

// DeleteSubmissionsForDay removes all submissions for (student, task) on the
// given day and returns the deleted rows so callers can clean up their files.
func (s *Store) DeleteSubmissionsForDay(ctx context.Context, studentID, taskID int64, day time.Time) ([]Submission, error) {
	rows, err := s.db.Query(ctx,
		`DELETE FROM submissions
		 WHERE student_id = $1 AND task_id = $2 AND submitted_on = $3
		 RETURNING id, student_id, task_id, file_path, submitted_at`,
		studentID, taskID, dateOf(day))
	if err != nil {
		return nil, fmt.Errorf("delete submissions: %w", err)
	}
	defer rows.Close()
	var deleted []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.StudentID, &sub.TaskID, &sub.FilePath, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan deleted submission: %w", err)
		}
		deleted = append(deleted, sub)
	}
	return deleted, rows.Err()
}

// CountSubmissionsOn counts submissions on this calendar day.
func (s *Store) CountSubmissionsOn(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		"SELECT count(*) FROM submissions WHERE submitted_on = $1", dateOf(day)).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

// CreateMonthlyDocument inserts a document row.
func (s *Store) CreateMonthlyDocument(ctx context.Context, params CreateMonthlyDocumentParams) (MonthlyDocument, error) {
	var doc MonthlyDocument
	err := s.db.QueryRow(ctx,
		`INSERT INTO monthly_documents (month_label, file_path, uploader_id, uploaded_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, month_label, file_path, uploader_id, uploaded_at`,
		params.MonthLabel, params.FilePath, params.UploaderID, params.UploadedAt).
		Scan(&doc.ID, &doc.MonthLabel, &doc.FilePath, &doc.UploaderID, &doc.UploadedAt)
	if err != nil {
		return MonthlyDocument{}, fmt.Errorf("create monthly document: %w", err)
	}
	return doc, nil
}

// MonthLabels returns the distinct month labels, oldest upload first.
func (s *Store) MonthLabels(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT month_label FROM monthly_documents
		 GROUP BY month_label ORDER BY min(uploaded_at)`)
	if err != nil {
		return nil, fmt.Errorf("list month labels: %w", err)
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan month label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// DocumentsByMonth returns the documents uploaded under a month label.
func (s *Store) DocumentsByMonth(ctx context.Context, label string) ([]MonthlyDocument, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, month_label, file_path, uploader_id, uploaded_at
		 FROM monthly_documents WHERE month_label = $1 ORDER BY uploaded_at`, label)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var docs []MonthlyDocument
	for rows.Next() {
		var doc MonthlyDocument
		if err := rows.Scan(&doc.ID, &doc.MonthLabel, &doc.FilePath, &doc.UploaderID, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Curators returns all persons with the curator role.
func (s *Store) Curators(ctx context.Context) ([]Person, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+personColumns+" FROM persons WHERE role = $1 ORDER BY id",
		string(RoleCurator))
	if err != nil {
		return nil, fmt.Errorf("list curators: %w", err)
	}
	defer rows.Close()
	var curators []Person
	for rows.Next() {
		person, err := scanPersonColumns(rows)
		if err != nil {
			return nil, err
		}
		curators = append(curators, person)
	}
	return curators, rows.Err()
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row pgx.Row) (Person, error) {
	person, err := scanPersonColumns(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Person{}, ErrNotFound
	}
	return person, err
}

func scanPersonColumns(row scanner) (Person, error) {
	var (
		person    Person
		role      string
		branchID  pgtype.Int8
		classID   pgtype.Int8
		childID   pgtype.Int8
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&person.ID, &person.Identity, &person.FullName, &role,
		&branchID, &classID, &childID, &createdAt)
	if err != nil {
		return Person{}, err
	}
	person.Role = Role(role)
	person.BranchID = int8Ptr(branchID)
	person.ClassID = int8Ptr(classID)
	person.ChildID = int8Ptr(childID)
	person.CreatedAt = createdAt.Time
	return person, nil
}

func int8From(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}

func dateOf(t time.Time) pgtype.Date {
	utc := t.UTC()
	return pgtype.Date{
		Time:  time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
