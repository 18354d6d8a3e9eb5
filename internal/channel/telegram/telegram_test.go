package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darsbot/darsbot/internal/channel"
)

func messageUpdate(msg *tgbotapi.Message) tgbotapi.Update {
	if msg.Chat == nil {
		msg.Chat = &tgbotapi.Chat{ID: 555000}
	}
	return tgbotapi.Update{Message: msg}
}

func TestBuildEvent_StartCommand(t *testing.T) {
	update := messageUpdate(&tgbotapi.Message{
		Text: "/start",
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: 6},
		},
		From: &tgbotapi.User{FirstName: "Aziza", LastName: "Karimova"},
	})

	event, ok := buildEvent(update)
	require.True(t, ok)
	assert.Equal(t, channel.EventStart, event.Type)
	assert.Equal(t, "555000", event.Sender.Identity)
	assert.Equal(t, "Aziza Karimova", event.Sender.DisplayName)
}

func TestBuildEvent_PlainText(t *testing.T) {
	update := messageUpdate(&tgbotapi.Message{Text: "  Tasks  "})

	event, ok := buildEvent(update)
	require.True(t, ok)
	assert.Equal(t, channel.EventText, event.Type)
	assert.Equal(t, "Tasks", event.Text)
}

func TestBuildEvent_EmptyMessageSkipped(t *testing.T) {
	_, ok := buildEvent(messageUpdate(&tgbotapi.Message{}))
	assert.False(t, ok)

	_, ok = buildEvent(tgbotapi.Update{})
	assert.False(t, ok)
}

func TestBuildEvent_Callback(t *testing.T) {
	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		Data:    " task:7 ",
		From:    &tgbotapi.User{UserName: "aziza"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 555000}},
	}}

	event, ok := buildEvent(update)
	require.True(t, ok)
	assert.Equal(t, channel.EventChoice, event.Type)
	assert.Equal(t, "task:7", event.Action)
	assert.Equal(t, "555000", event.Sender.Identity)
	assert.Equal(t, "aziza", event.Sender.DisplayName)
}

func TestBuildEvent_Video(t *testing.T) {
	update := messageUpdate(&tgbotapi.Message{
		Video: &tgbotapi.Video{
			FileID:   "vid-1",
			FileName: "clip.mp4",
			MimeType: "video/mp4",
			Duration: 42,
			FileSize: 1024,
		},
	})

	event, ok := buildEvent(update)
	require.True(t, ok)
	assert.Equal(t, channel.EventMedia, event.Type)
	require.NotNil(t, event.Media)
	assert.Equal(t, channel.MediaVideo, event.Media.Kind)
	assert.Equal(t, "vid-1", event.Media.FileID)
	assert.Equal(t, 42, event.Media.DurationSeconds)
	assert.Equal(t, int64(1024), event.Media.SizeBytes)
	assert.False(t, event.Media.Forwarded)
}

func TestBuildEvent_ForwardedVideoFlagged(t *testing.T) {
	update := messageUpdate(&tgbotapi.Message{
		Video:       &tgbotapi.Video{FileID: "vid-1"},
		ForwardDate: 1767225600,
	})

	event, ok := buildEvent(update)
	require.True(t, ok)
	require.NotNil(t, event.Media)
	assert.True(t, event.Media.Forwarded)
}

func TestBuildEvent_VideoNote(t *testing.T) {
	update := messageUpdate(&tgbotapi.Message{
		VideoNote: &tgbotapi.VideoNote{FileID: "note-1", Duration: 15, FileSize: 512},
	})

	event, ok := buildEvent(update)
	require.True(t, ok)
	require.NotNil(t, event.Media)
	assert.Equal(t, channel.MediaVideoNote, event.Media.Kind)
}

func TestBuildEvent_Document(t *testing.T) {
	update := messageUpdate(&tgbotapi.Message{
		Document: &tgbotapi.Document{FileID: "doc-1", FileName: "reader.pdf", MimeType: "application/pdf"},
	})

	event, ok := buildEvent(update)
	require.True(t, ok)
	require.NotNil(t, event.Media)
	assert.Equal(t, channel.MediaDocument, event.Media.Kind)
	assert.Equal(t, "reader.pdf", event.Media.FileName)
}

func TestKeyboardMarkup_Inline(t *testing.T) {
	kb := channel.Inline([]channel.Button{{Label: "Replace", Action: "resubmit:yes:7"}})

	markup := keyboardMarkup(kb)
	inline, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, inline.InlineKeyboard, 1)
	button := inline.InlineKeyboard[0][0]
	assert.Equal(t, "Replace", button.Text)
	require.NotNil(t, button.CallbackData)
	assert.Equal(t, "resubmit:yes:7", *button.CallbackData)
}

func TestKeyboardMarkup_Reply(t *testing.T) {
	kb := &channel.Keyboard{Rows: [][]channel.Button{{{Label: "Tasks"}, {Label: "Books"}}}}

	markup := keyboardMarkup(kb)
	reply, ok := markup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, reply.Keyboard, 1)
	assert.Equal(t, "Tasks", reply.Keyboard[0][0].Text)
	assert.Equal(t, "Books", reply.Keyboard[0][1].Text)
}

func TestKeyboardMarkup_NilForEmpty(t *testing.T) {
	assert.Nil(t, keyboardMarkup(nil))
	assert.Nil(t, keyboardMarkup(&channel.Keyboard{}))
}

func TestParseIdentity(t *testing.T) {
	id, err := parseIdentity(" 555000 ")
	require.NoError(t, err)
	assert.Equal(t, int64(555000), id)

	_, err = parseIdentity("not-a-chat")
	assert.Error(t, err)
}

func TestResolveSender_FallsBackToUsername(t *testing.T) {
	sender := resolveSender(1, &tgbotapi.User{UserName: "aziza"})
	assert.Equal(t, "aziza", sender.DisplayName)

	sender = resolveSender(1, nil)
	assert.Empty(t, sender.DisplayName)
}
