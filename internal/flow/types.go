// Package flow is the per-user conversation state machine. One Conversation
// exists per transport identity while a flow is active; it is ephemeral
// memory, never persisted.
package flow

import "github.com/darsbot/darsbot/internal/channel"

// State is the conversation's position in a flow.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingRole       State = "awaiting_role"
	StateAwaitingFullName   State = "awaiting_full_name"
	StateAwaitingBranch     State = "awaiting_branch"
	StateAwaitingClass      State = "awaiting_class"
	StateAwaitingChildLogin State = "awaiting_child_login"
	StateAwaitingTaskChoice State = "awaiting_task_choice"
	StateAwaitingVideo      State = "awaiting_video"
	StateAwaitingMonthLabel State = "awaiting_month_label"
	StateAwaitingDocument   State = "awaiting_document"
)

// RegistrationDraft accumulates registration answers. Fields are filled in
// flow order; a later state never reads a field an earlier state did not set.
type RegistrationDraft struct {
	Role     string
	FullName string
	BranchID int64
}

// SubmissionDraft carries the selected task and, after a duplicate was
// detected, the stashed second video awaiting the resubmission decision.
type SubmissionDraft struct {
	TaskID  int64
	Pending *channel.Media
}

// UploadDraft carries the month label for a curator's document upload.
type UploadDraft struct {
	MonthLabel string
}

// Conversation is the ephemeral per-identity flow state.
type Conversation struct {
	Identity string
	State    State
	Reg      *RegistrationDraft
	Sub      *SubmissionDraft
	Upload   *UploadDraft
}

func (c *Conversation) reset() {
	c.State = StateIdle
	c.Reg = nil
	c.Sub = nil
	c.Upload = nil
}

// clone deep-copies the conversation so a failed transition never leaves a
// half-mutated draft behind.
func (c Conversation) clone() Conversation {
	if c.Reg != nil {
		reg := *c.Reg
		c.Reg = &reg
	}
	if c.Sub != nil {
		sub := *c.Sub
		if sub.Pending != nil {
			pending := *sub.Pending
			sub.Pending = &pending
		}
		c.Sub = &sub
	}
	if c.Upload != nil {
		upload := *c.Upload
		c.Upload = &upload
	}
	return c
}

func (c Conversation) idleAndEmpty() bool {
	return c.State == StateIdle && c.Reg == nil && c.Sub == nil && c.Upload == nil
}
