package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "requestbot/internal/transport"
	logx "requestbot/pkg/logx"
)

const (
	telegramTextLimit    = 4000
	telegramCaptionLimit = 1024
	telegramAlbumMax     = 10
)

type Config struct {
	Token string
	// APIURL overrides the Bot API endpoint. Empty means api.telegram.org.
	APIURL string
	// RequestTimeout bounds a single Bot API HTTP call.
	RequestTimeout time.Duration
}

// Adapter is a send-only Telegram client. The bot never polls for updates.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Offline: true,
		Client:  newHTTPClient(timeout),
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// chatRecipient implements tele.Recipient for both numeric ids and @usernames.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

func recipient(to kit.ChatTarget) tele.Recipient {
	return chatRecipient(strings.TrimSpace(to.Chat))
}

// splitTelegramText splits long messages into chunks that are safe to send to Telegram.
// It prefers newline boundaries and (best-effort) avoids splitting inside HTML tags when ParseMode is HTML.
func splitTelegramText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		// Prefer splitting on a newline near the end of the window.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		if strings.EqualFold(parseMode, tele.ModeHTML) && end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func sendOptions(to kit.ChatTarget, opt *kit.SendOptions) *tele.SendOptions {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	return &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	}
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	parseMode := ""
	if opt != nil {
		parseMode = opt.ParseMode
	}
	chunks := splitTelegramText(text, telegramTextLimit, parseMode)

	var first kit.MessageRef
	for i, chunk := range chunks {
		msg, err := await(ctx, func() (*tele.Message, error) {
			return a.bot.Send(recipient(to), chunk, sendOptions(to, opt))
		})
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{Chat: to.Chat, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

func photoOf(att kit.Attachment) *tele.Photo {
	return &tele.Photo{File: tele.FromReader(bytes.NewReader(att.Data))}
}

// fitsCaption reports whether text can ride along as a media caption.
func fitsCaption(text string) bool {
	return len([]rune(text)) <= telegramCaptionLimit
}

func (a *Adapter) SendPhoto(ctx context.Context, to kit.ChatTarget, photo kit.Attachment, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if len(photo.Data) == 0 {
		return kit.MessageRef{}, fmt.Errorf("photo %q is empty", photo.Name)
	}
	p := photoOf(photo)
	overflow := !fitsCaption(caption)
	if !overflow {
		p.Caption = caption
	}
	msg, err := await(ctx, func() (*tele.Message, error) {
		return a.bot.Send(recipient(to), p, sendOptions(to, opt))
	})
	if err != nil {
		return kit.MessageRef{}, err
	}
	ref := kit.MessageRef{Chat: to.Chat, ThreadID: to.ThreadID, MessageID: msg.ID}
	if overflow && strings.TrimSpace(caption) != "" {
		if _, err := a.SendText(ctx, to, caption, opt); err != nil {
			return ref, fmt.Errorf("caption follow-up: %w", err)
		}
	}
	return ref, nil
}

func (a *Adapter) SendAlbum(ctx context.Context, to kit.ChatTarget, photos []kit.Attachment, caption string, opt *kit.SendOptions) ([]kit.MessageRef, error) {
	if len(photos) < 2 || len(photos) > telegramAlbumMax {
		return nil, fmt.Errorf("album size %d out of range [2,%d]", len(photos), telegramAlbumMax)
	}
	overflow := !fitsCaption(caption)
	album := make(tele.Album, 0, len(photos))
	for i, att := range photos {
		p := photoOf(att)
		if i == 0 && !overflow {
			p.Caption = caption
		}
		album = append(album, p)
	}
	msgs, err := await(ctx, func() ([]tele.Message, error) {
		return a.bot.SendAlbum(recipient(to), album, sendOptions(to, opt))
	})
	if err != nil {
		return nil, err
	}
	refs := make([]kit.MessageRef, 0, len(msgs))
	for _, m := range msgs {
		refs = append(refs, kit.MessageRef{Chat: to.Chat, ThreadID: to.ThreadID, MessageID: m.ID})
	}
	if overflow && strings.TrimSpace(caption) != "" {
		if _, err := a.SendText(ctx, to, caption, opt); err != nil {
			return refs, fmt.Errorf("caption follow-up: %w", err)
		}
	}
	return refs, nil
}

// Me calls getMe and reports the bot identity.
func (a *Adapter) Me(ctx context.Context) (kit.Identity, error) {
	raw, err := await(ctx, func() ([]byte, error) {
		return a.bot.Raw("getMe", nil)
	})
	if err != nil {
		return kit.Identity{}, err
	}
	var resp struct {
		Result tele.User `json:"result"`
	}
	if err := unmarshal(raw, &resp); err != nil {
		return kit.Identity{}, err
	}
	return kit.Identity{ID: resp.Result.ID, Username: resp.Result.Username, FirstName: resp.Result.FirstName}, nil
}
