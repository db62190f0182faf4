package domain

import "context"

// ChatKind distinguishes one-to-one chats from multi-party chats.
type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatGroup   ChatKind = "group"
)

// Inbound is a text message delivered by the messaging surface.
type Inbound struct {
	ChatID     int64
	Kind       ChatKind
	Text       string
	SenderName string
}

// Surface is the outbound side of the messaging platform. The pipeline sends
// one placeholder per request and edits it in place; it never needs more.
type Surface interface {
	// Reply sends a rich-text message and returns its message ID so it can
	// be edited later.
	Reply(ctx context.Context, chatID int64, text string) (messageID int, err error)

	// ReplyVideo attaches a video payload with a rich-text caption.
	ReplyVideo(ctx context.Context, chatID int64, video *Transfer, caption string) error

	// Edit replaces the text of a previously sent message.
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
}
