package transport

import "context"

// ChatTarget addresses a chat. Chat is either a numeric id ("-100123...")
// or a public channel username ("@name").
type ChatTarget struct {
	Chat     string
	ThreadID int // telegram forum topic thread id (0 if none)
}

type MessageRef struct {
	Chat      string
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Attachment is a binary payload already read into memory.
type Attachment struct {
	Name string
	Data []byte
}

// TextSender is the minimal capability needed by log sinks and notices.
type TextSender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Sender is the outbound channel contract used by the delivery client.
//
// SendAlbum expects 2..10 attachments; the caption is attached to the first
// item (or sent as a follow-up text when it does not fit into a caption).
type Sender interface {
	TextSender
	SendPhoto(ctx context.Context, to ChatTarget, photo Attachment, caption string, opt *SendOptions) (MessageRef, error)
	SendAlbum(ctx context.Context, to ChatTarget, photos []Attachment, caption string, opt *SendOptions) ([]MessageRef, error)
}

// Identity describes the bot account behind a Sender.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
}

// Prober is implemented by adapters that can report the bot identity.
type Prober interface {
	Me(ctx context.Context) (Identity, error)
}
