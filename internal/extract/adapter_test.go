package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"linklift/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakeResolver struct {
	resolved *Resolved
	err      error
}

func (f *fakeResolver) Resolve(ctx context.Context, link string) (*Resolved, error) {
	return f.resolved, f.err
}

type fakeVariants struct {
	variants *Variants
	err      error
}

func (f *fakeVariants) Variants(ctx context.Context, link string) (*Variants, error) {
	return f.variants, f.err
}

func TestExtract_NormalizesRecord(t *testing.T) {
	a := New(domain.PlatformYouTube, &fakeResolver{resolved: &Resolved{
		URL:      "https://cdn.example.com/v.mp4",
		Title:    "A Video",
		Uploader: "someone",
		Duration: 42,
	}}, testLogger())

	rec, err := a.Extract(context.Background(), "https://youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.URL != "https://cdn.example.com/v.mp4" {
		t.Errorf("URL: got %q", rec.URL)
	}
	if rec.Title != "A Video" || rec.Uploader != "someone" {
		t.Errorf("metadata: got %q / %q", rec.Title, rec.Uploader)
	}
	if rec.Source != "https://youtube.com/watch?v=abc123" {
		t.Errorf("source: got %q", rec.Source)
	}
	if rec.Platform != domain.PlatformYouTube {
		t.Errorf("platform: got %s", rec.Platform)
	}
}

func TestExtract_AppliesDefaults(t *testing.T) {
	a := New(domain.PlatformTwitter, &fakeResolver{resolved: &Resolved{
		URL: "https://cdn.example.com/v.mp4",
	}}, testLogger())

	rec, err := a.Extract(context.Background(), "https://x.com/user/status/456")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Title != "Twitter Video" {
		t.Errorf("default title: got %q", rec.Title)
	}
	if rec.Uploader != "Unknown" {
		t.Errorf("default uploader: got %q", rec.Uploader)
	}
}

func TestExtract_ResolverError(t *testing.T) {
	a := New(domain.PlatformInstagram, &fakeResolver{err: fmt.Errorf("boom")}, testLogger())

	_, err := a.Extract(context.Background(), "https://www.instagram.com/reel/abc/")
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *domain.ExtractionError, got %T", err)
	}
	if ee.Platform != domain.PlatformInstagram {
		t.Errorf("platform: got %s", ee.Platform)
	}
}

func TestExtract_MissingURLIsFailure(t *testing.T) {
	a := New(domain.PlatformInstagram, &fakeResolver{resolved: &Resolved{Title: "t"}}, testLogger())

	_, err := a.Extract(context.Background(), "https://www.instagram.com/reel/abc/")
	if !errors.Is(err, domain.ErrNoMediaURL) {
		t.Fatalf("expected ErrNoMediaURL, got %v", err)
	}
}

func TestTikTok_AttachesVariants(t *testing.T) {
	a := NewTikTok(
		&fakeResolver{resolved: &Resolved{URL: "https://cdn.example.com/std.mp4"}},
		&fakeVariants{variants: &Variants{HQURL: "https://cdn.example.com/hd.mp4", AudioURL: "https://cdn.example.com/track.mp3"}},
		testLogger(),
	)

	rec, err := a.Extract(context.Background(), "https://www.tiktok.com/@user/video/123")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.HQURL != "https://cdn.example.com/hd.mp4" {
		t.Errorf("HQURL: got %q", rec.HQURL)
	}
	if rec.AudioURL != "https://cdn.example.com/track.mp3" {
		t.Errorf("AudioURL: got %q", rec.AudioURL)
	}
}

func TestTikTok_VariantFailureDegradesToStandard(t *testing.T) {
	a := NewTikTok(
		&fakeResolver{resolved: &Resolved{URL: "https://cdn.example.com/std.mp4"}},
		&fakeVariants{err: fmt.Errorf("page blocked")},
		testLogger(),
	)

	rec, err := a.Extract(context.Background(), "https://www.tiktok.com/@user/video/123")
	if err != nil {
		t.Fatalf("variant failure must not fail extraction: %v", err)
	}
	if rec.HQURL != "" || rec.AudioURL != "" {
		t.Errorf("expected empty variants, got %q / %q", rec.HQURL, rec.AudioURL)
	}
	if rec.URL != "https://cdn.example.com/std.mp4" {
		t.Errorf("standard URL lost: %q", rec.URL)
	}
}

func TestTikTok_ExtractionErrorStillPropagates(t *testing.T) {
	a := NewTikTok(&fakeResolver{err: fmt.Errorf("gone")}, &fakeVariants{}, testLogger())

	_, err := a.Extract(context.Background(), "https://www.tiktok.com/@user/video/123")
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *domain.ExtractionError, got %T", err)
	}
}

func TestParseHydrationState(t *testing.T) {
	state := `{"__DEFAULT_SCOPE__":{"webapp.video-detail":{"itemInfo":{"itemStruct":{` +
		`"video":{"playAddr":"https://v.example/std.mp4","downloadAddr":"https://v.example/hd.mp4",` +
		`"bitrateInfo":[{"PlayAddr":{"UrlList":["https://v.example/b0.mp4"]}}]},` +
		`"music":{"playUrl":"https://v.example/sound.mp3"}}}}}}`
	html := `<html><body><script id="` + hydrationScriptID + `" type="application/json">` + state + `</script></body></html>`

	v, err := parseHydrationState(html)
	if err != nil {
		t.Fatalf("parseHydrationState: %v", err)
	}
	if v.HQURL != "https://v.example/hd.mp4" {
		t.Errorf("HQURL: got %q", v.HQURL)
	}
	if v.AudioURL != "https://v.example/sound.mp3" {
		t.Errorf("AudioURL: got %q", v.AudioURL)
	}
}

func TestParseHydrationState_BitrateFallback(t *testing.T) {
	state := `{"__DEFAULT_SCOPE__":{"webapp.video-detail":{"itemInfo":{"itemStruct":{` +
		`"video":{"playAddr":"https://v.example/std.mp4",` +
		`"bitrateInfo":[{"PlayAddr":{"UrlList":["https://v.example/b0.mp4"]}}]},` +
		`"music":{}}}}}}`
	html := `<html><script id="` + hydrationScriptID + `" type="application/json">` + state + `</script></html>`

	v, err := parseHydrationState(html)
	if err != nil {
		t.Fatal(err)
	}
	if v.HQURL != "https://v.example/b0.mp4" {
		t.Errorf("HQURL: got %q", v.HQURL)
	}
}

func TestParseHydrationState_MissingScript(t *testing.T) {
	if _, err := parseHydrationState("<html><body>nothing</body></html>"); err == nil {
		t.Fatal("expected error when hydration script is absent")
	}
}

func TestRegistry(t *testing.T) {
	yt := New(domain.PlatformYouTube, &fakeResolver{}, testLogger())
	reg := NewRegistry(yt)

	if a, ok := reg.For(domain.PlatformYouTube); !ok || a.Platform() != domain.PlatformYouTube {
		t.Error("youtube adapter not found")
	}
	if _, ok := reg.For(domain.PlatformTikTok); ok {
		t.Error("unexpected tiktok adapter")
	}
}
