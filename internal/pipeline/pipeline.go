// Package pipeline runs one inbound link through
// classify → extract → fetch → deliver and reports the outcome through a
// single placeholder message edited in place.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"linklift/internal/classify"
	"linklift/internal/compose"
	"linklift/internal/domain"
	"linklift/internal/extract"
	"linklift/internal/metrics"
)

// State is the request's position in the pipeline. Rejected and Failed are
// off-path terminals; Done covers both delivery and the link-only fallback.
type State int

const (
	StateReceived State = iota
	StateClassified
	StateExtracting
	StateDelivering
	StateDone
	StateRejected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateClassified:
		return "classified"
	case StateExtracting:
		return "extracting"
	case StateDelivering:
		return "delivering"
	case StateDone:
		return "done"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Fetcher pulls a direct media URL into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Transfer, error)
}

// Orchestrator wires the pipeline stages together. One call per inbound
// message; no state survives a request.
type Orchestrator struct {
	table    *classify.Table
	adapters *extract.Registry
	fetcher  Fetcher
	composer *compose.Composer
	surface  domain.Surface
	mention  string
	logger   *slog.Logger
}

type Config struct {
	Table    *classify.Table
	Adapters *extract.Registry
	Fetcher  Fetcher
	Composer *compose.Composer
	Surface  domain.Surface
	Mention  string
	Logger   *slog.Logger
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		table:    cfg.Table,
		adapters: cfg.Adapters,
		fetcher:  cfg.Fetcher,
		composer: cfg.Composer,
		surface:  cfg.Surface,
		mention:  cfg.Mention,
		logger:   cfg.Logger,
	}
}

// Handle processes one message and returns the terminal state. In group
// chats the pipeline only engages when the text carries the bot mention; a
// message without it ends at StateReceived with no reply at all.
//
// Steps after classification operate on exactly one placeholder message,
// edited exactly once to a terminal text. A panic anywhere in the pipeline
// becomes the temporary-error edit; it never kills the polling loop.
func (o *Orchestrator) Handle(ctx context.Context, msg domain.Inbound) State {
	text := strings.TrimSpace(msg.Text)
	if msg.Kind == domain.ChatGroup {
		if !strings.Contains(text, o.mention) {
			return StateReceived
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, o.mention, ""))
	}

	platform := o.table.Classify(text)
	if platform == domain.PlatformUnknown {
		if _, err := o.surface.Reply(ctx, msg.ChatID, o.composer.Unsupported()); err != nil {
			o.logger.Error("unsupported-link reply failed", "chat", msg.ChatID, "err", err)
		}
		metrics.RequestsRejected.Inc()
		return StateRejected
	}

	o.logger.Info("link received",
		"platform", platform,
		"chat", msg.ChatID,
		"sender", msg.SenderName,
	)
	metrics.LinksReceived.Inc()
	metrics.PlatformCounter(string(platform)).Inc()
	metrics.RequestsInFlight.Inc()
	defer metrics.RequestsInFlight.Dec()

	placeholderID, err := o.surface.Reply(ctx, msg.ChatID, o.composer.Processing(platform))
	if err != nil {
		o.logger.Error("placeholder send failed", "chat", msg.ChatID, "err", err)
		metrics.RequestsFailed.Inc()
		return StateFailed
	}

	state, fellBack, final := o.guarded(ctx, msg, platform, text)

	if err := o.surface.Edit(ctx, msg.ChatID, placeholderID, final); err != nil {
		o.logger.Error("placeholder edit failed", "chat", msg.ChatID, "message", placeholderID, "err", err)
	}

	switch {
	case state == StateDone && fellBack:
		metrics.RequestsFallback.Inc()
	case state == StateDone:
		metrics.RequestsDone.Inc()
	case state == StateFailed:
		metrics.RequestsFailed.Inc()
	}
	o.logger.Info("request finished", "platform", platform, "state", state.String())
	return state
}

// guarded runs the extract/deliver stages and converts panics into the
// temporary-error outcome.
func (o *Orchestrator) guarded(ctx context.Context, msg domain.Inbound, platform domain.Platform, link string) (state State, fellBack bool, final string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic", "platform", platform, "panic", r)
			state = StateFailed
			fellBack = false
			final = o.composer.TemporaryError(fmt.Errorf("%v", r))
		}
	}()
	return o.run(ctx, msg, platform, link)
}

func (o *Orchestrator) run(ctx context.Context, msg domain.Inbound, platform domain.Platform, link string) (State, bool, string) {
	adapter, ok := o.adapters.For(platform)
	if !ok {
		o.logger.Error("no adapter registered", "platform", platform)
		return StateFailed, false, o.composer.Failure(platform, msg.SenderName)
	}

	start := time.Now()
	rec, err := adapter.Extract(ctx, link)
	metrics.ExtractSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		o.logger.Error("extraction failed", "platform", platform, "err", err)
		return StateFailed, false, o.composer.Failure(platform, msg.SenderName)
	}

	// Transfer failures collapse into the same user-visible outcome as
	// extraction failures; the cause stays in the logs.
	video, err := o.fetcher.Fetch(ctx, rec.URL)
	if err != nil {
		o.logger.Error("media fetch failed", "platform", platform, "err", err)
		return StateFailed, false, o.composer.Failure(platform, msg.SenderName)
	}
	metrics.FetchBytes.Observe(float64(video.Len()))

	// Prefer the high-quality stream when the adapter resolved one; a
	// failed HQ transfer falls back to the standard buffer.
	attach := video
	if rec.HQURL != "" {
		if hq, err := o.fetcher.Fetch(ctx, rec.HQURL); err == nil {
			metrics.FetchBytes.Observe(float64(hq.Len()))
			attach = hq
		} else {
			o.logger.Warn("high-quality fetch failed, using standard stream", "err", err)
		}
	}

	if err := o.surface.ReplyVideo(ctx, msg.ChatID, attach, o.composer.Caption(rec)); err != nil {
		if domain.IsTooLarge(err) {
			o.logger.Info("payload too large, falling back to link",
				"platform", platform,
				"bytes", attach.Len(),
			)
			return StateDone, true, o.composer.Fallback(rec)
		}
		o.logger.Error("video delivery failed", "platform", platform, "err", err)
		return StateFailed, false, o.composer.TemporaryError(err)
	}

	return StateDone, false, o.composer.Delivered(platform)
}
