// Package telegram implements the transport.Sender port on top of the
// Telegram Bot API via telebot.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "pubbot/internal/transport"
	logx "pubbot/pkg/logx"
)

type Config struct {
	Token string
	// Timeout bounds every outgoing Bot API call. Defaults to 10s.
	Timeout time.Duration
	// Offline skips the getMe token check (tests only).
	Offline bool
}

type Sender struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

// New validates the token against the Bot API (getMe) and returns a
// send-only client. The publisher never consumes updates, so no poller
// is attached and Start is never called on the underlying bot.
func New(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Client:  &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log.Debug("bot api client ready", logx.Duration("timeout", cfg.Timeout))
	return &Sender{cfg: cfg, log: log, bot: b}, nil
}

func (s *Sender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return kit.MessageRef{}, err
	}
	msg, err := s.bot.Send(chat(to), text, sendOpts(to, opt))
	if err != nil {
		return kit.MessageRef{}, err
	}
	return ref(msg), nil
}

func (s *Sender) SendPhoto(ctx context.Context, to kit.ChatTarget, fileID, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return kit.MessageRef{}, err
	}
	photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	msg, err := s.bot.Send(chat(to), photo, sendOpts(to, opt))
	if err != nil {
		return kit.MessageRef{}, err
	}
	return ref(msg), nil
}

func (s *Sender) SendVideo(ctx context.Context, to kit.ChatTarget, fileID, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return kit.MessageRef{}, err
	}
	video := &tele.Video{File: tele.File{FileID: fileID}, Caption: caption}
	msg, err := s.bot.Send(chat(to), video, sendOpts(to, opt))
	if err != nil {
		return kit.MessageRef{}, err
	}
	return ref(msg), nil
}

func (s *Sender) SendAnimation(ctx context.Context, to kit.ChatTarget, fileID, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return kit.MessageRef{}, err
	}
	anim := &tele.Animation{File: tele.File{FileID: fileID}, Caption: caption}
	msg, err := s.bot.Send(chat(to), anim, sendOpts(to, opt))
	if err != nil {
		return kit.MessageRef{}, err
	}
	return ref(msg), nil
}

func (s *Sender) Forward(ctx context.Context, to kit.ChatTarget, from kit.MessageRef) (kit.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return kit.MessageRef{}, err
	}
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(from.MessageID),
		ChatID:    from.ChatID,
	}
	msg, err := s.bot.Forward(chat(to), stored)
	if err != nil {
		return kit.MessageRef{}, err
	}
	return ref(msg), nil
}

func (s *Sender) Pin(ctx context.Context, target kit.MessageRef) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(target.MessageID),
		ChatID:    target.ChatID,
	}
	// Silent: pinning must not notify group members.
	return s.bot.Pin(stored, tele.Silent)
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func chat(to kit.ChatTarget) *tele.Chat {
	return &tele.Chat{ID: to.ChatID}
}

func ref(m *tele.Message) kit.MessageRef {
	if m == nil {
		return kit.MessageRef{}
	}
	return kit.MessageRef{ChatID: m.Chat.ID, MessageID: m.ID}
}

func sendOpts(to kit.ChatTarget, opt *kit.SendOptions) *tele.SendOptions {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	so := &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	}
	if opt.Button != nil {
		rm := &tele.ReplyMarkup{}
		rm.Inline(rm.Row(rm.URL(opt.Button.Label, opt.Button.URL)))
		so.ReplyMarkup = rm
	}
	return so
}
