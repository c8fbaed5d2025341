// Package publisher delivers one post to the messaging platform:
// send to the general channel, forward into the post's target group,
// optionally pin the forwarded copy.
//
// Side effects are irreversible and externally visible. There is no
// rollback if a later step fails; the poll loop turns any error here
// into an ERROR status upstream.
package publisher

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"pubbot/internal/post"
	kit "pubbot/internal/transport"
	logx "pubbot/pkg/logx"
)

type Config struct {
	// GeneralChannel is the primary destination every post is sent to
	// before being forwarded.
	GeneralChannel kit.ChatTarget
	// SendRate caps platform calls per second. Telegram throttles bots
	// aggressively on group sends; keep this low single-digit.
	// Defaults to 3.
	SendRate int
}

type Publisher struct {
	cfg     Config
	sender  kit.Sender
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, sender kit.Sender, log logx.Logger) *Publisher {
	rps := cfg.SendRate
	if rps <= 0 {
		rps = 3
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Publisher{
		cfg:     cfg,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// Deliver publishes p and returns the general-channel message ref.
//
// Sequence: dispatch by publication type, send to the general channel,
// forward the sent message into p.TargetGroup, pin the forwarded copy
// if p.WithPin. An unsupported type fails before any platform call.
func (p *Publisher) Deliver(ctx context.Context, pst post.Post) (kit.MessageRef, error) {
	send, err := p.sendFunc(pst.Publication)
	if err != nil {
		return kit.MessageRef{}, err
	}

	started := time.Now()

	if err := p.limiter.Wait(ctx); err != nil {
		return kit.MessageRef{}, &DeliveryError{Step: StepSend, Err: err}
	}
	ref, err := send(ctx)
	if err != nil {
		return kit.MessageRef{}, &DeliveryError{Step: StepSend, Err: err}
	}
	p.log.Debug("sent to general channel",
		logx.Int64("post_id", pst.ID),
		logx.Int("message_id", ref.MessageID))

	group := kit.ChatTarget{ChatID: pst.TargetGroup}
	if err := p.limiter.Wait(ctx); err != nil {
		return kit.MessageRef{}, &DeliveryError{Step: StepForward, Err: err}
	}
	fwd, err := p.sender.Forward(ctx, group, ref)
	if err != nil {
		return kit.MessageRef{}, &DeliveryError{Step: StepForward, Err: err}
	}

	if pst.WithPin {
		if err := p.limiter.Wait(ctx); err != nil {
			return kit.MessageRef{}, &DeliveryError{Step: StepPin, Err: err}
		}
		if err := p.sender.Pin(ctx, fwd); err != nil {
			return kit.MessageRef{}, &DeliveryError{Step: StepPin, Err: err}
		}
	}

	p.log.Info("post delivered",
		logx.Int64("post_id", pst.ID),
		logx.Int64("group", pst.TargetGroup),
		logx.Bool("pinned", pst.WithPin),
		logx.Duration("took", time.Since(started)))
	return ref, nil
}

// sendFunc resolves the general-channel send for a publication type.
// Unknown types are a distinct error, not a silent no-op.
func (p *Publisher) sendFunc(pub post.Publication) (func(context.Context) (kit.MessageRef, error), error) {
	opt := &kit.SendOptions{}
	if b := pub.Button; b != nil {
		opt.Button = &kit.URLButton{Label: b.Name, URL: b.URL}
	}
	to := p.cfg.GeneralChannel

	switch pub.Type {
	case post.TypeText:
		return func(ctx context.Context) (kit.MessageRef, error) {
			return p.sender.SendText(ctx, to, pub.Text, opt)
		}, nil
	case post.TypePhoto:
		return func(ctx context.Context) (kit.MessageRef, error) {
			return p.sender.SendPhoto(ctx, to, pub.FileID, pub.Text, opt)
		}, nil
	case post.TypeVideo:
		return func(ctx context.Context) (kit.MessageRef, error) {
			return p.sender.SendVideo(ctx, to, pub.FileID, pub.Text, opt)
		}, nil
	case post.TypeAnimation:
		return func(ctx context.Context) (kit.MessageRef, error) {
			return p.sender.SendAnimation(ctx, to, pub.FileID, pub.Text, opt)
		}, nil
	default:
		return nil, &TypeError{Type: pub.Type}
	}
}
