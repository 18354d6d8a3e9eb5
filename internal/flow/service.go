package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/darsbot/darsbot/internal/channel"
	"github.com/darsbot/darsbot/internal/intake"
	"github.com/darsbot/darsbot/internal/school"
)

// Store is the entity persistence the machine reads and writes.
type Store interface {
	PersonByIdentity(ctx context.Context, identity string) (school.Person, error)
	PersonByID(ctx context.Context, id int64) (school.Person, error)
	CreatePerson(ctx context.Context, params school.CreatePersonParams) (school.Person, error)
	Branches(ctx context.Context) ([]school.Branch, error)
	Branch(ctx context.Context, id int64) (school.Branch, error)
	ClassesByBranch(ctx context.Context, branchID int64) ([]school.Class, error)
	Class(ctx context.Context, id int64) (school.Class, error)
	Tasks(ctx context.Context) ([]school.Task, error)
	Task(ctx context.Context, id int64) (school.Task, error)
	MonthLabels(ctx context.Context) ([]string, error)
	DocumentsByMonth(ctx context.Context, label string) ([]school.MonthlyDocument, error)
}

// Intake is the media pipeline the machine hands qualifying attachments to.
type Intake interface {
	SubmitVideo(ctx context.Context, student school.Person, task school.Task, media channel.Media) (intake.Result, error)
	Replace(ctx context.Context, student school.Person, task school.Task, media channel.Media) (school.Submission, error)
	SubmitMonthlyDocument(ctx context.Context, uploader school.Person, monthLabel string, media channel.Media) (school.MonthlyDocument, error)
	StoredPath(relative string) string
	Limits() intake.Limits
}

// Service advances one conversation per inbound event, producing outbound
// messages and store mutations. Events for the same identity are serialized;
// the conversation only commits once every side effect of the transition
// succeeded.
type Service struct {
	store    Store
	gateway  channel.Gateway
	intake   Intake
	sessions *Sessions
	logger   *slog.Logger
}

// NewService creates the state machine with its injected collaborators.
func NewService(log *slog.Logger, store Store, gateway channel.Gateway, media Intake) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		gateway:  gateway,
		intake:   media,
		sessions: newSessions(),
		logger:   log.With(slog.String("service", "flow")),
	}
}

// Handle processes one inbound event to completion. It is the channel.Handler
// the dispatch loop invokes.
func (s *Service) Handle(ctx context.Context, event channel.Event) error {
	identity := strings.TrimSpace(event.Sender.Identity)
	if identity == "" {
		return nil
	}
	sess := s.sessions.acquire(identity)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	next := sess.conv.clone()
	err := s.dispatch(ctx, &next, event)
	switch {
	case err == nil:
		sess.conv = next
		return nil
	case errors.Is(err, ErrMalformedChoice):
		sess.conv = Conversation{Identity: identity, State: StateIdle}
		s.logger.Warn("flow aborted",
			slog.String("identity", identity), slog.Any("error", err))
		if sendErr := s.gateway.SendText(ctx, identity, msgMalformedChoice, nil); sendErr != nil {
			s.logger.Warn("send abort notice failed", slog.Any("error", sendErr))
		}
		return nil
	default:
		// The event is dropped without a state transition; resending the
		// same input is safe.
		if sendErr := s.gateway.SendText(ctx, identity, msgGenericFailure, nil); sendErr != nil {
			s.logger.Warn("send failure notice failed", slog.Any("error", sendErr))
		}
		return err
	}
}

func (s *Service) dispatch(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type == channel.EventStart {
		return s.handleStart(ctx, conv)
	}
	if event.Type == channel.EventChoice {
		if prefix, payload := splitAction(event.Action); prefix == actionResubmit {
			return s.handleResubmit(ctx, conv, payload)
		}
	}
	// A menu press abandons any flow that is not consuming free text.
	if event.Type == channel.EventText && conv.State != StateIdle &&
		!expectsText(conv.State) && isMenuLabel(event.Text) {
		conv.reset()
		return s.handleIdle(ctx, conv, event)
	}
	switch conv.State {
	case StateIdle:
		return s.handleIdle(ctx, conv, event)
	case StateAwaitingRole:
		return s.handleAwaitingRole(ctx, conv, event)
	case StateAwaitingFullName:
		return s.handleAwaitingFullName(ctx, conv, event)
	case StateAwaitingBranch:
		return s.handleAwaitingBranch(ctx, conv, event)
	case StateAwaitingClass:
		return s.handleAwaitingClass(ctx, conv, event)
	case StateAwaitingChildLogin:
		return s.handleAwaitingChildLogin(ctx, conv, event)
	case StateAwaitingTaskChoice:
		return s.handleAwaitingTaskChoice(ctx, conv, event)
	case StateAwaitingVideo:
		return s.handleAwaitingVideo(ctx, conv, event)
	case StateAwaitingMonthLabel:
		return s.handleAwaitingMonthLabel(ctx, conv, event)
	case StateAwaitingDocument:
		return s.handleAwaitingDocument(ctx, conv, event)
	default:
		return nil
	}
}

func expectsText(state State) bool {
	switch state {
	case StateAwaitingFullName, StateAwaitingChildLogin, StateAwaitingMonthLabel:
		return true
	default:
		return false
	}
}

func (s *Service) handleStart(ctx context.Context, conv *Conversation) error {
	person, err := s.store.PersonByIdentity(ctx, conv.Identity)
	if err == nil {
		conv.reset()
		return s.gateway.SendText(ctx, conv.Identity, msgAlreadyRegistered, menuKeyboard(person.Role))
	}
	if !errors.Is(err, school.ErrNotFound) {
		return fmt.Errorf("lookup person: %w", err)
	}
	conv.reset()
	kb := channel.Inline(
		[]channel.Button{{Label: "Student", Action: tag(actionRole, string(school.RoleStudent))}},
		[]channel.Button{{Label: "Curator", Action: tag(actionRole, string(school.RoleCurator))}},
		[]channel.Button{{Label: "Parent", Action: tag(actionRole, string(school.RoleParent))}},
	)
	if err := s.gateway.SendText(ctx, conv.Identity, msgChooseRole, kb); err != nil {
		return err
	}
	conv.State = StateAwaitingRole
	return nil
}

func (s *Service) handleIdle(ctx context.Context, conv *Conversation, event channel.Event) error {
	switch event.Type {
	case channel.EventText:
		return s.handleMenu(ctx, conv, event.Text)
	case channel.EventChoice:
		prefix, payload := splitAction(event.Action)
		if prefix == actionMonth {
			return s.handleMonthChoice(ctx, conv, payload)
		}
		// Stale buttons from finished flows are ignored.
		return nil
	default:
		return nil
	}
}

func (s *Service) handleMenu(ctx context.Context, conv *Conversation, text string) error {
	person, err := s.store.PersonByIdentity(ctx, conv.Identity)
	if errors.Is(err, school.ErrNotFound) {
		// Unregistered identities have no menu; their text is ignored.
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup person: %w", err)
	}
	switch text {
	case menuTasks:
		switch person.Role {
		case school.RoleStudent:
			return s.offerTasks(ctx, conv)
		case school.RoleCurator:
			return s.browseTasks(ctx, conv)
		default:
			return nil
		}
	case menuStatistics:
		return s.showStatistics(ctx, conv, person)
	case menuAddBook:
		if person.Role != school.RoleCurator {
			return nil
		}
		if err := s.gateway.SendText(ctx, conv.Identity, msgEnterMonth, nil); err != nil {
			return err
		}
		conv.State = StateAwaitingMonthLabel
		return nil
	case menuBooks:
		if person.Role == school.RoleParent {
			return nil
		}
		return s.offerMonths(ctx, conv)
	default:
		return nil
	}
}

func (s *Service) offerTasks(ctx context.Context, conv *Conversation) error {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return s.gateway.SendText(ctx, conv.Identity, msgNoTasks, nil)
	}
	rows := make([][]channel.Button, 0, len(tasks))
	for i, task := range tasks {
		rows = append(rows, []channel.Button{{
			Label:  fmt.Sprintf("%d. %s", i+1, task.Title),
			Action: idTag(actionTask, task.ID),
		}})
	}
	if err := s.gateway.SendText(ctx, conv.Identity, msgChooseTask, channel.Inline(rows...)); err != nil {
		return err
	}
	conv.State = StateAwaitingTaskChoice
	return nil
}

func (s *Service) browseTasks(ctx context.Context, conv *Conversation) error {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return s.gateway.SendText(ctx, conv.Identity, msgNoTasks, nil)
	}
	return s.gateway.SendText(ctx, conv.Identity, taskList(tasks), nil)
}

func (s *Service) showStatistics(ctx context.Context, conv *Conversation, person school.Person) error {
	switch person.Role {
	case school.RoleParent:
		if person.ChildID == nil {
			return s.gateway.SendText(ctx, conv.Identity, msgChildNotFound, nil)
		}
		child, err := s.store.PersonByID(ctx, *person.ChildID)
		if errors.Is(err, school.ErrNotFound) {
			return s.gateway.SendText(ctx, conv.Identity, msgChildNotFound, nil)
		}
		if err != nil {
			return fmt.Errorf("lookup child: %w", err)
		}
		return s.gateway.SendText(ctx, conv.Identity, s.renderChildSummary(ctx, child), nil)
	case school.RoleCurator:
		return s.gateway.SendText(ctx, conv.Identity, msgStatsUnavailable, nil)
	default:
		return s.gateway.SendText(ctx, conv.Identity, msgStatsDenied, nil)
	}
}

func (s *Service) renderChildSummary(ctx context.Context, child school.Person) string {
	branchName, className := "-", "-"
	if child.BranchID != nil {
		if branch, err := s.store.Branch(ctx, *child.BranchID); err == nil {
			branchName = branch.Name
		}
	}
	if child.ClassID != nil {
		if class, err := s.store.Class(ctx, *child.ClassID); err == nil {
			className = class.Name
		}
	}
	return childSummary(child, branchName, className)
}

func (s *Service) offerMonths(ctx context.Context, conv *Conversation) error {
	labels, err := s.store.MonthLabels(ctx)
	if err != nil {
		return fmt.Errorf("list months: %w", err)
	}
	if len(labels) == 0 {
		return s.gateway.SendText(ctx, conv.Identity, msgNoBooks, nil)
	}
	rows := make([][]channel.Button, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []channel.Button{{Label: label, Action: tag(actionMonth, label)}})
	}
	return s.gateway.SendText(ctx, conv.Identity, msgChooseMonth, channel.Inline(rows...))
}

func (s *Service) handleMonthChoice(ctx context.Context, conv *Conversation, label string) error {
	person, err := s.store.PersonByIdentity(ctx, conv.Identity)
	if errors.Is(err, school.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup person: %w", err)
	}
	if person.Role == school.RoleParent {
		return nil
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("%w: empty month label", ErrMalformedChoice)
	}
	docs, err := s.store.DocumentsByMonth(ctx, label)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return s.gateway.SendText(ctx, conv.Identity, msgMonthEmpty, nil)
	}
	for _, doc := range docs {
		if err := s.gateway.SendDocument(ctx, conv.Identity, s.intake.StoredPath(doc.FilePath), doc.MonthLabel); err != nil {
			return fmt.Errorf("send document: %w", err)
		}
	}
	return nil
}

func (s *Service) handleAwaitingRole(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventChoice {
		return nil
	}
	prefix, payload := splitAction(event.Action)
	if prefix != actionRole {
		return nil
	}
	role, err := school.ParseRole(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedChoice, err)
	}
	if role == school.RoleParent {
		if err := s.gateway.SendText(ctx, conv.Identity, msgEnterChildLogin, nil); err != nil {
			return err
		}
		conv.Reg = &RegistrationDraft{Role: string(role)}
		conv.State = StateAwaitingChildLogin
		return nil
	}
	if err := s.gateway.SendText(ctx, conv.Identity, msgEnterFullName, nil); err != nil {
		return err
	}
	conv.Reg = &RegistrationDraft{Role: string(role)}
	conv.State = StateAwaitingFullName
	return nil
}

func (s *Service) handleAwaitingFullName(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventText {
		return nil
	}
	if conv.Reg == nil {
		return fmt.Errorf("%w: missing registration draft", ErrMalformedChoice)
	}
	name := strings.TrimSpace(event.Text)
	if name == "" {
		return nil
	}
	branches, err := s.store.Branches(ctx)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}
	if len(branches) == 0 {
		return s.gateway.SendText(ctx, conv.Identity, msgNoBranches, nil)
	}
	rows := make([][]channel.Button, 0, len(branches))
	for _, branch := range branches {
		rows = append(rows, []channel.Button{{Label: branch.Name, Action: idTag(actionBranch, branch.ID)}})
	}
	if err := s.gateway.SendText(ctx, conv.Identity, msgChooseBranch, channel.Inline(rows...)); err != nil {
		return err
	}
	conv.Reg.FullName = name
	conv.State = StateAwaitingBranch
	return nil
}

func (s *Service) handleAwaitingBranch(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventChoice {
		return nil
	}
	prefix, payload := splitAction(event.Action)
	if prefix != actionBranch {
		return nil
	}
	if conv.Reg == nil {
		return fmt.Errorf("%w: missing registration draft", ErrMalformedChoice)
	}
	branchID, err := parseID(payload)
	if err != nil {
		return err
	}
	classes, err := s.store.ClassesByBranch(ctx, branchID)
	if err != nil {
		return fmt.Errorf("list classes: %w", err)
	}
	if len(classes) == 0 {
		// State unchanged so the user can pick a different branch.
		return s.gateway.SendText(ctx, conv.Identity, msgEmptyBranch, nil)
	}
	rows := make([][]channel.Button, 0, len(classes))
	for _, class := range classes {
		rows = append(rows, []channel.Button{{Label: class.Name, Action: idTag(actionClass, class.ID)}})
	}
	if err := s.gateway.SendText(ctx, conv.Identity, msgChooseClass, channel.Inline(rows...)); err != nil {
		return err
	}
	conv.Reg.BranchID = branchID
	conv.State = StateAwaitingClass
	return nil
}

func (s *Service) handleAwaitingClass(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventChoice {
		return nil
	}
	prefix, payload := splitAction(event.Action)
	if prefix != actionClass {
		return nil
	}
	if conv.Reg == nil {
		return fmt.Errorf("%w: missing registration draft", ErrMalformedChoice)
	}
	classID, err := parseID(payload)
	if err != nil {
		return err
	}
	class, err := s.store.Class(ctx, classID)
	if errors.Is(err, school.ErrNotFound) {
		return fmt.Errorf("%w: class %d", ErrMalformedChoice, classID)
	}
	if err != nil {
		return fmt.Errorf("get class: %w", err)
	}
	if class.BranchID != conv.Reg.BranchID {
		return fmt.Errorf("%w: class %d not in branch %d", ErrMalformedChoice, classID, conv.Reg.BranchID)
	}
	role, err := school.ParseRole(conv.Reg.Role)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedChoice, err)
	}
	branchID := conv.Reg.BranchID
	person, err := s.store.CreatePerson(ctx, school.CreatePersonParams{
		Identity: conv.Identity,
		FullName: conv.Reg.FullName,
		Role:     role,
		BranchID: &branchID,
		ClassID:  &class.ID,
	})
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	conv.reset()
	// The person exists; the confirmation is best effort.
	if err := s.gateway.SendText(ctx, conv.Identity, msgRegistered, menuKeyboard(person.Role)); err != nil {
		s.logger.Warn("send registration confirmation failed", slog.Any("error", err))
	}
	return nil
}

func (s *Service) handleAwaitingChildLogin(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventText {
		return nil
	}
	login := strings.TrimSpace(event.Text)
	if login == "" {
		return nil
	}
	child, err := s.store.PersonByIdentity(ctx, login)
	if errors.Is(err, school.ErrNotFound) || (err == nil && child.Role != school.RoleStudent) {
		conv.reset()
		return s.gateway.SendText(ctx, conv.Identity, msgChildNotFound, nil)
	}
	if err != nil {
		return fmt.Errorf("lookup child: %w", err)
	}
	name := strings.TrimSpace(event.Sender.DisplayName)
	if name == "" {
		name = "Parent of " + child.FullName
	}
	person, err := s.store.CreatePerson(ctx, school.CreatePersonParams{
		Identity: conv.Identity,
		FullName: name,
		Role:     school.RoleParent,
		ChildID:  &child.ID,
	})
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	conv.reset()
	summary := s.renderChildSummary(ctx, child)
	if err := s.gateway.SendText(ctx, conv.Identity, summary, menuKeyboard(person.Role)); err != nil {
		s.logger.Warn("send child summary failed", slog.Any("error", err))
	}
	return nil
}

func (s *Service) handleAwaitingTaskChoice(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventChoice {
		return nil
	}
	prefix, payload := splitAction(event.Action)
	if prefix != actionTask {
		return nil
	}
	taskID, err := parseID(payload)
	if err != nil {
		return err
	}
	task, err := s.store.Task(ctx, taskID)
	if errors.Is(err, school.ErrNotFound) {
		return fmt.Errorf("%w: task %d", ErrMalformedChoice, taskID)
	}
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if err := s.gateway.SendText(ctx, conv.Identity, taskInstructions(task, s.intake.Limits()), nil); err != nil {
		return err
	}
	conv.Sub = &SubmissionDraft{TaskID: task.ID}
	conv.State = StateAwaitingVideo
	return nil
}

func (s *Service) handleAwaitingVideo(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventMedia || event.Media == nil {
		return nil
	}
	if conv.Sub == nil {
		return fmt.Errorf("%w: missing submission draft", ErrMalformedChoice)
	}
	person, err := s.store.PersonByIdentity(ctx, conv.Identity)
	if errors.Is(err, school.ErrNotFound) {
		return fmt.Errorf("%w: unregistered submitter", ErrMalformedChoice)
	}
	if err != nil {
		return fmt.Errorf("lookup person: %w", err)
	}
	task, err := s.store.Task(ctx, conv.Sub.TaskID)
	if errors.Is(err, school.ErrNotFound) {
		return fmt.Errorf("%w: task %d", ErrMalformedChoice, conv.Sub.TaskID)
	}
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	result, err := s.intake.SubmitVideo(ctx, person, task, *event.Media)
	if err != nil {
		if msg, ok := s.rejectionMessage(err, false); ok {
			// Rejections leave the state unchanged so the user may retry.
			return s.gateway.SendText(ctx, conv.Identity, msg, nil)
		}
		return fmt.Errorf("submit video: %w", err)
	}
	if result.Duplicate {
		if err := s.gateway.SendText(ctx, conv.Identity, msgDuplicateFound, resubmitKeyboard(task.ID)); err != nil {
			return err
		}
		conv.Sub.Pending = event.Media
		return nil
	}
	conv.reset()
	if err := s.gateway.SendText(ctx, conv.Identity, msgVideoAccepted, menuKeyboard(person.Role)); err != nil {
		s.logger.Warn("send submission confirmation failed", slog.Any("error", err))
	}
	return nil
}

func (s *Service) handleResubmit(ctx context.Context, conv *Conversation, payload string) error {
	verb, rest, _ := strings.Cut(payload, ":")
	switch verb {
	case "no":
		conv.reset()
		return s.gateway.SendText(ctx, conv.Identity, msgResubmitKept, nil)
	case "yes":
		taskID, err := parseID(rest)
		if err != nil {
			return err
		}
		person, err := s.store.PersonByIdentity(ctx, conv.Identity)
		if errors.Is(err, school.ErrNotFound) {
			return fmt.Errorf("%w: unregistered submitter", ErrMalformedChoice)
		}
		if err != nil {
			return fmt.Errorf("lookup person: %w", err)
		}
		task, err := s.store.Task(ctx, taskID)
		if errors.Is(err, school.ErrNotFound) {
			return fmt.Errorf("%w: task %d", ErrMalformedChoice, taskID)
		}
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		if conv.Sub == nil || conv.Sub.TaskID != task.ID || conv.Sub.Pending == nil {
			// The stashed video is gone; ask for it again.
			if err := s.gateway.SendText(ctx, conv.Identity, msgSendVideoAgain, nil); err != nil {
				return err
			}
			conv.Sub = &SubmissionDraft{TaskID: task.ID}
			conv.State = StateAwaitingVideo
			return nil
		}
		_, err = s.intake.Replace(ctx, person, task, *conv.Sub.Pending)
		if errors.Is(err, school.ErrDuplicateSubmission) {
			// Lost a race to a concurrent submission; ask again.
			return s.gateway.SendText(ctx, conv.Identity, msgDuplicateFound, resubmitKeyboard(task.ID))
		}
		if err != nil {
			return fmt.Errorf("replace submission: %w", err)
		}
		conv.reset()
		if err := s.gateway.SendText(ctx, conv.Identity, msgResubmitted, menuKeyboard(person.Role)); err != nil {
			s.logger.Warn("send resubmission confirmation failed", slog.Any("error", err))
		}
		return nil
	default:
		return fmt.Errorf("%w: resubmit %q", ErrMalformedChoice, payload)
	}
}

func (s *Service) handleAwaitingMonthLabel(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventText {
		return nil
	}
	label := strings.TrimSpace(event.Text)
	if label == "" {
		return nil
	}
	if err := s.gateway.SendText(ctx, conv.Identity, msgSendDocument, nil); err != nil {
		return err
	}
	conv.Upload = &UploadDraft{MonthLabel: label}
	conv.State = StateAwaitingDocument
	return nil
}

func (s *Service) handleAwaitingDocument(ctx context.Context, conv *Conversation, event channel.Event) error {
	if event.Type != channel.EventMedia || event.Media == nil {
		return nil
	}
	if conv.Upload == nil {
		return fmt.Errorf("%w: missing upload draft", ErrMalformedChoice)
	}
	person, err := s.store.PersonByIdentity(ctx, conv.Identity)
	if errors.Is(err, school.ErrNotFound) {
		return fmt.Errorf("%w: unregistered uploader", ErrMalformedChoice)
	}
	if err != nil {
		return fmt.Errorf("lookup person: %w", err)
	}
	if person.Role != school.RoleCurator {
		return fmt.Errorf("%w: uploader is not a curator", ErrMalformedChoice)
	}
	_, err = s.intake.SubmitMonthlyDocument(ctx, person, conv.Upload.MonthLabel, *event.Media)
	if err != nil {
		if msg, ok := s.rejectionMessage(err, true); ok {
			return s.gateway.SendText(ctx, conv.Identity, msg, nil)
		}
		return fmt.Errorf("submit document: %w", err)
	}
	conv.reset()
	if err := s.gateway.SendText(ctx, conv.Identity, msgBookAccepted, menuKeyboard(person.Role)); err != nil {
		s.logger.Warn("send upload confirmation failed", slog.Any("error", err))
	}
	return nil
}

// rejectionMessage maps intake validation failures to a user-facing message.
// The second return is false for non-validation errors.
func (s *Service) rejectionMessage(err error, document bool) (string, bool) {
	limits := s.intake.Limits()
	switch {
	case errors.Is(err, intake.ErrUnsupportedMedia):
		if document {
			return msgExpectDocument, true
		}
		return msgExpectVideo, true
	case errors.Is(err, intake.ErrTooLong):
		return tooLongMessage(limits), true
	case errors.Is(err, intake.ErrTooLarge):
		maxBytes := limits.MaxVideoBytes
		if document {
			maxBytes = limits.MaxDocumentBytes
		}
		return tooLargeMessage(maxBytes), true
	case errors.Is(err, intake.ErrForwardRejected):
		return msgForwardRejected, true
	default:
		return "", false
	}
}

func resubmitKeyboard(taskID int64) *channel.Keyboard {
	return channel.Inline([]channel.Button{
		{Label: "Replace", Action: tag(actionResubmit, "yes:"+strconv.FormatInt(taskID, 10))},
		{Label: "Keep", Action: tag(actionResubmit, "no")},
	})
}
