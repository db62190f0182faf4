package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"linklift/internal/classify"
	"linklift/internal/compose"
	"linklift/internal/domain"
	"linklift/internal/extract"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- fakes ---

type sentVideo struct {
	chatID  int64
	data    []byte
	caption string
}

type fakeSurface struct {
	mu       sync.Mutex
	nextID   int
	replies  []string
	edits    map[int][]string
	videos   []sentVideo
	videoErr error
	replyErr error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{edits: make(map[int][]string)}
}

func (f *fakeSurface) Reply(_ context.Context, _ int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return 0, f.replyErr
	}
	f.nextID++
	f.replies = append(f.replies, text)
	return f.nextID, nil
}

func (f *fakeSurface) ReplyVideo(_ context.Context, chatID int64, video *domain.Transfer, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.videoErr != nil {
		return f.videoErr
	}
	f.videos = append(f.videos, sentVideo{chatID: chatID, data: video.Data, caption: caption})
	return nil
}

func (f *fakeSurface) Edit(_ context.Context, _ int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits[messageID] = append(f.edits[messageID], text)
	return nil
}

type fakeAdapter struct {
	platform domain.Platform
	rec      *domain.MediaRecord
	err      error
	panicMsg string
}

func (a *fakeAdapter) Platform() domain.Platform { return a.platform }

func (a *fakeAdapter) Extract(context.Context, string) (*domain.MediaRecord, error) {
	if a.panicMsg != "" {
		panic(a.panicMsg)
	}
	return a.rec, a.err
}

type fakeFetcher struct {
	payloads map[string][]byte
	errs     map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*domain.Transfer, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	data, ok := f.payloads[url]
	if !ok {
		return nil, fmt.Errorf("unexpected fetch: %s", url)
	}
	return &domain.Transfer{Data: data, FileName: "video.mp4"}, nil
}

// --- helpers ---

const mention = "@LinkLift_Bot"

func record() *domain.MediaRecord {
	return &domain.MediaRecord{
		Platform: domain.PlatformTikTok,
		URL:      "https://cdn.example.com/std.mp4",
		Title:    "Dance",
		Uploader: "dancer",
		Source:   "https://www.tiktok.com/@user/video/123",
	}
}

func newOrchestrator(surface *fakeSurface, adapter extract.Adapter, fetcher Fetcher) (*Orchestrator, *compose.Composer) {
	table := classify.Default()
	composer := compose.New("@illusivehacks", table)
	o := New(Config{
		Table:    table,
		Adapters: extract.NewRegistry(adapter),
		Fetcher:  fetcher,
		Composer: composer,
		Surface:  surface,
		Mention:  mention,
		Logger:   testLogger(),
	})
	return o, composer
}

func inbound(text string) domain.Inbound {
	return domain.Inbound{ChatID: 7, Kind: domain.ChatPrivate, Text: text, SenderName: "Alex"}
}

// --- tests ---

func TestHandle_Success(t *testing.T) {
	surface := newFakeSurface()
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: record()}
	fetcher := &fakeFetcher{payloads: map[string][]byte{"https://cdn.example.com/std.mp4": []byte("bytes")}}
	o, composer := newOrchestrator(surface, adapter, fetcher)

	state := o.Handle(context.Background(), inbound("https://www.tiktok.com/@user/video/123"))
	if state != StateDone {
		t.Fatalf("state: got %s, want done", state)
	}

	if len(surface.replies) != 1 {
		t.Fatalf("expected 1 placeholder, got %d", len(surface.replies))
	}
	if len(surface.videos) != 1 {
		t.Fatalf("expected 1 video delivery, got %d", len(surface.videos))
	}
	if string(surface.videos[0].data) != "bytes" {
		t.Errorf("video payload: got %q", surface.videos[0].data)
	}

	edits := surface.edits[1]
	if len(edits) != 1 {
		t.Fatalf("placeholder edited %d times, want exactly 1", len(edits))
	}
	if edits[0] != composer.Delivered(domain.PlatformTikTok) {
		t.Errorf("final edit:\n%s", edits[0])
	}
}

func TestHandle_FetchFailureEditsFailureMessage(t *testing.T) {
	surface := newFakeSurface()
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: record()}
	fetcher := &fakeFetcher{errs: map[string]error{
		"https://cdn.example.com/std.mp4": &domain.TransferError{Status: 404},
	}}
	o, composer := newOrchestrator(surface, adapter, fetcher)

	state := o.Handle(context.Background(), inbound("https://www.tiktok.com/@user/video/123"))
	if state != StateFailed {
		t.Fatalf("state: got %s, want failed", state)
	}

	edits := surface.edits[1]
	if len(edits) != 1 {
		t.Fatalf("placeholder edited %d times, want 1", len(edits))
	}
	want := composer.Failure(domain.PlatformTikTok, "Alex")
	if edits[0] != want {
		t.Errorf("edit:\n%s\nwant:\n%s", edits[0], want)
	}
	if len(surface.videos) != 0 {
		t.Error("no video should be delivered on fetch failure")
	}
}

func TestHandle_ExtractionFailure(t *testing.T) {
	surface := newFakeSurface()
	adapter := &fakeAdapter{platform: domain.PlatformInstagram, err: &domain.ExtractionError{
		Platform: domain.PlatformInstagram, Err: errors.New("private account"),
	}}
	o, composer := newOrchestrator(surface, adapter, &fakeFetcher{})

	state := o.Handle(context.Background(), inbound("https://www.instagram.com/reel/abc/"))
	if state != StateFailed {
		t.Fatalf("state: got %s", state)
	}
	if got := surface.edits[1][0]; got != composer.Failure(domain.PlatformInstagram, "Alex") {
		t.Errorf("edit:\n%s", got)
	}
}

func TestHandle_TooLargeFallsBackToLink(t *testing.T) {
	surface := newFakeSurface()
	surface.videoErr = errors.New("Bad Request: Request Entity Too Large")
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: record()}
	fetcher := &fakeFetcher{payloads: map[string][]byte{"https://cdn.example.com/std.mp4": make([]byte, 1024)}}
	o, composer := newOrchestrator(surface, adapter, fetcher)

	state := o.Handle(context.Background(), inbound("https://www.tiktok.com/@user/video/123"))
	if state != StateDone {
		t.Fatalf("too-large delivery must reach done, got %s", state)
	}

	edits := surface.edits[1]
	if len(edits) != 1 {
		t.Fatalf("placeholder edited %d times, want 1", len(edits))
	}
	want := composer.Fallback(record())
	if edits[0] != want {
		t.Errorf("edit is not the fallback template:\n%s", edits[0])
	}
	if edits[0] == composer.Failure(domain.PlatformTikTok, "Alex") {
		t.Error("fallback must not use the failure template")
	}
}

func TestHandle_OtherDeliveryErrorFails(t *testing.T) {
	surface := newFakeSurface()
	surface.videoErr = errors.New("Bad Request: wrong file identifier " + strings.Repeat("x", 300))
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: record()}
	fetcher := &fakeFetcher{payloads: map[string][]byte{"https://cdn.example.com/std.mp4": []byte("v")}}
	o, _ := newOrchestrator(surface, adapter, fetcher)

	state := o.Handle(context.Background(), inbound("https://www.tiktok.com/@user/video/123"))
	if state != StateFailed {
		t.Fatalf("state: got %s", state)
	}
	edit := surface.edits[1][0]
	if !strings.Contains(edit, "Temporary Error") {
		t.Errorf("expected temporary-error template:\n%s", edit)
	}
	if len(edit) > 400 {
		t.Errorf("diagnostic excerpt not truncated, edit is %d chars", len(edit))
	}
}

func TestHandle_UnknownLinkRejected(t *testing.T) {
	surface := newFakeSurface()
	o, composer := newOrchestrator(surface, &fakeAdapter{platform: domain.PlatformTikTok}, &fakeFetcher{})

	state := o.Handle(context.Background(), inbound("https://example.com/not-a-platform"))
	if state != StateRejected {
		t.Fatalf("state: got %s, want rejected", state)
	}
	if len(surface.replies) != 1 || surface.replies[0] != composer.Unsupported() {
		t.Errorf("expected single unsupported-link reply, got %v", surface.replies)
	}
	if len(surface.edits) != 0 {
		t.Error("rejection must not edit anything")
	}
}

func TestHandle_HighQualityPreferred(t *testing.T) {
	rec := record()
	rec.HQURL = "https://cdn.example.com/hd.mp4"
	surface := newFakeSurface()
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: rec}
	fetcher := &fakeFetcher{payloads: map[string][]byte{
		"https://cdn.example.com/std.mp4": []byte("std"),
		"https://cdn.example.com/hd.mp4":  []byte("hd"),
	}}
	o, _ := newOrchestrator(surface, adapter, fetcher)

	if state := o.Handle(context.Background(), inbound("https://www.tiktok.com/@user/video/123")); state != StateDone {
		t.Fatalf("state: got %s", state)
	}
	if string(surface.videos[0].data) != "hd" {
		t.Errorf("expected high-quality payload, got %q", surface.videos[0].data)
	}
}

func TestHandle_HighQualityFetchFailureUsesStandard(t *testing.T) {
	rec := record()
	rec.HQURL = "https://cdn.example.com/hd.mp4"
	surface := newFakeSurface()
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: rec}
	fetcher := &fakeFetcher{
		payloads: map[string][]byte{"https://cdn.example.com/std.mp4": []byte("std")},
		errs:     map[string]error{"https://cdn.example.com/hd.mp4": &domain.TransferError{Status: 403}},
	}
	o, _ := newOrchestrator(surface, adapter, fetcher)

	if state := o.Handle(context.Background(), inbound("https://www.tiktok.com/@user/video/123")); state != StateDone {
		t.Fatalf("state: got %s", state)
	}
	if string(surface.videos[0].data) != "std" {
		t.Errorf("expected standard payload after HQ failure, got %q", surface.videos[0].data)
	}
}

func TestHandle_PanicBecomesTemporaryError(t *testing.T) {
	surface := newFakeSurface()
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, panicMsg: "nil map write"}
	o, _ := newOrchestrator(surface, adapter, &fakeFetcher{})

	state := o.Handle(context.Background(), inbound("https://www.tiktok.com/@user/video/123"))
	if state != StateFailed {
		t.Fatalf("state: got %s, want failed", state)
	}
	edits := surface.edits[1]
	if len(edits) != 1 || !strings.Contains(edits[0], "Temporary Error") {
		t.Errorf("expected single temporary-error edit, got %v", edits)
	}
}

func TestHandle_SameLinkTwiceIsIndependent(t *testing.T) {
	surface := newFakeSurface()
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: record()}
	fetcher := &fakeFetcher{payloads: map[string][]byte{"https://cdn.example.com/std.mp4": []byte("v")}}
	o, _ := newOrchestrator(surface, adapter, fetcher)

	msg := inbound("https://www.tiktok.com/@user/video/123")
	o.Handle(context.Background(), msg)
	o.Handle(context.Background(), msg)

	if len(surface.replies) != 2 {
		t.Fatalf("expected 2 independent placeholders, got %d", len(surface.replies))
	}
	for id, edits := range surface.edits {
		if len(edits) != 1 {
			t.Errorf("placeholder %d edited %d times, want exactly 1", id, len(edits))
		}
	}
	if len(surface.edits) != 2 {
		t.Errorf("expected 2 edited placeholders, got %d", len(surface.edits))
	}
}

func TestHandle_GroupChatGating(t *testing.T) {
	surface := newFakeSurface()
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: record()}
	fetcher := &fakeFetcher{payloads: map[string][]byte{"https://cdn.example.com/std.mp4": []byte("v")}}
	o, _ := newOrchestrator(surface, adapter, fetcher)

	msg := domain.Inbound{
		ChatID:     9,
		Kind:       domain.ChatGroup,
		Text:       "https://www.tiktok.com/@user/video/123",
		SenderName: "Alex",
	}
	if state := o.Handle(context.Background(), msg); state != StateReceived {
		t.Fatalf("unmentioned group message: got %s, want received", state)
	}
	if len(surface.replies) != 0 || len(surface.videos) != 0 {
		t.Error("unmentioned group message must produce no replies")
	}

	msg.Text = mention + " https://www.tiktok.com/@user/video/123"
	if state := o.Handle(context.Background(), msg); state != StateDone {
		t.Fatalf("mentioned group message: got %s, want done", state)
	}
	if len(surface.videos) != 1 {
		t.Error("mentioned group message should deliver video")
	}
}

func TestHandle_PlaceholderSendFailure(t *testing.T) {
	surface := newFakeSurface()
	surface.replyErr = errors.New("network down")
	adapter := &fakeAdapter{platform: domain.PlatformTikTok, rec: record()}
	o, _ := newOrchestrator(surface, adapter, &fakeFetcher{})

	if state := o.Handle(context.Background(), inbound("https://www.tiktok.com/@user/video/123")); state != StateFailed {
		t.Fatalf("state: got %s, want failed", state)
	}
}
