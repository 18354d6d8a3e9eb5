// Package channel defines the transport-facing contract of the bot: the
// inbound event variants the state machine consumes and the gateway the
// machine sends through. Adapters such as Telegram implement Gateway.
package channel

import (
	"context"
	"io"
)

// EventType tags the inbound event variants.
type EventType string

const (
	// EventStart is the conversation entry command.
	EventStart EventType = "start"
	// EventText is free text, including menu labels.
	EventText EventType = "text"
	// EventChoice is a button press carrying an opaque action tag.
	EventChoice EventType = "choice"
	// EventMedia is an inbound binary attachment described by Media.
	EventMedia EventType = "media"
)

// MediaKind classifies an inbound attachment.
type MediaKind string

const (
	MediaVideo     MediaKind = "video"
	MediaVideoNote MediaKind = "video_note"
	MediaDocument  MediaKind = "document"
)

// Media describes an inbound attachment by reference. The payload itself is
// fetched through the Gateway only after validation passes.
type Media struct {
	Kind            MediaKind
	FileID          string
	FileName        string
	Mime            string
	DurationSeconds int
	SizeBytes       int64
	Forwarded       bool
}

// Sender identifies the transport-level originator of an event.
type Sender struct {
	// Identity is the stable opaque string keying the conversation.
	Identity    string
	DisplayName string
}

// Event is one inbound conversational event. Exactly the fields implied by
// Type are set: Text for EventText, Action for EventChoice, Media for
// EventMedia.
type Event struct {
	Type   EventType
	Sender Sender
	Text   string
	Action string
	Media  *Media
}

// Button is one labeled choice carrying an opaque action tag.
type Button struct {
	Label  string
	Action string
}

// Keyboard is an ordered list of button rows. Inline keyboards attach to a
// single message and report presses as EventChoice; menu keyboards replace
// the user's persistent reply keyboard and report presses as EventText.
type Keyboard struct {
	Inline bool
	Rows   [][]Button
}

// Inline builds an inline keyboard from button rows.
func Inline(rows ...[]Button) *Keyboard {
	return &Keyboard{Inline: true, Rows: rows}
}

// Menu builds a persistent reply keyboard from one row of plain labels.
func Menu(labels ...string) *Keyboard {
	row := make([]Button, 0, len(labels))
	for _, label := range labels {
		row = append(row, Button{Label: label})
	}
	return &Keyboard{Rows: [][]Button{row}}
}

// Gateway moves messages and binary attachments to and from the end user.
type Gateway interface {
	// SendText delivers a text message, optionally with a keyboard.
	SendText(ctx context.Context, identity string, text string, kb *Keyboard) error
	// SendDocument delivers a stored file with an optional caption.
	SendDocument(ctx context.Context, identity string, path string, caption string) error
	// Fetch resolves a file reference to its byte stream. The caller closes
	// the reader.
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Handler consumes one inbound event to completion.
type Handler func(ctx context.Context, event Event) error
