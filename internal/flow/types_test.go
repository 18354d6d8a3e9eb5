package flow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darsbot/darsbot/internal/channel"
)

func TestConversation_CloneIsDeep(t *testing.T) {
	original := Conversation{
		Identity: "1",
		State:    StateAwaitingVideo,
		Reg:      &RegistrationDraft{Role: "student", FullName: "A"},
		Sub:      &SubmissionDraft{TaskID: 7, Pending: &channel.Media{FileID: "f"}},
		Upload:   &UploadDraft{MonthLabel: "May 2026"},
	}
	copied := original.clone()
	copied.Reg.FullName = "B"
	copied.Sub.TaskID = 8
	copied.Sub.Pending.FileID = "g"
	copied.Upload.MonthLabel = "June 2026"

	assert.Equal(t, "A", original.Reg.FullName)
	assert.Equal(t, int64(7), original.Sub.TaskID)
	assert.Equal(t, "f", original.Sub.Pending.FileID)
	assert.Equal(t, "May 2026", original.Upload.MonthLabel)
}

func TestConversation_ResetClearsDrafts(t *testing.T) {
	conv := Conversation{
		Identity: "1",
		State:    StateAwaitingClass,
		Reg:      &RegistrationDraft{Role: "student"},
	}
	conv.reset()
	assert.True(t, conv.idleAndEmpty())
	assert.Equal(t, "1", conv.Identity)
}

func TestSessions_SameIdentitySameSession(t *testing.T) {
	sessions := newSessions()
	a := sessions.acquire("1")
	b := sessions.acquire("1")
	c := sessions.acquire("2")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestHandle_SerializesPerIdentity(t *testing.T) {
	store := newFakeStore()
	seedCatalog(store)
	gw := &fakeGateway{}
	svc := newTestMachine(store, gw, &fakeIntake{})
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, startEvent()))

	// Concurrent identical role choices must produce exactly one transition
	// each, never a torn conversation.
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Handle(ctx, choiceEvent("role:student"))
		}()
	}
	wg.Wait()

	conv := svc.conv(testIdentity)
	assert.Equal(t, StateAwaitingFullName, conv.State)
	require.NotNil(t, conv.Reg)
	assert.Equal(t, "student", conv.Reg.Role)
}
