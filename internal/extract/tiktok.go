package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"linklift/internal/domain"
)

// Variants are the optional extras the specialized TikTok capability can
// resolve on top of the standard stream.
type Variants struct {
	HQURL    string
	AudioURL string
}

// VariantResolver resolves the high-quality and audio-track URLs for a link.
type VariantResolver interface {
	Variants(ctx context.Context, link string) (*Variants, error)
}

// tiktokAdapter decorates the standard adapter with the two-URL capability.
// Variant resolution is best-effort: any failure degrades to the standard
// stream instead of failing the extraction.
type tiktokAdapter struct {
	inner    Adapter
	variants VariantResolver
	logger   *slog.Logger
}

// NewTikTok wraps the standard TikTok adapter with a variant resolver.
func NewTikTok(resolver Resolver, variants VariantResolver, logger *slog.Logger) Adapter {
	return &tiktokAdapter{
		inner:    New(domain.PlatformTikTok, resolver, logger),
		variants: variants,
		logger:   logger,
	}
}

func (a *tiktokAdapter) Platform() domain.Platform { return domain.PlatformTikTok }

func (a *tiktokAdapter) Extract(ctx context.Context, link string) (*domain.MediaRecord, error) {
	rec, err := a.inner.Extract(ctx, link)
	if err != nil {
		return nil, err
	}
	if a.variants == nil {
		return rec, nil
	}

	v, err := a.variants.Variants(ctx, link)
	if err != nil {
		a.logger.Warn("tiktok variant resolution failed, using standard stream", "err", err)
		return rec, nil
	}
	if v.HQURL != "" {
		rec.HQURL = v.HQURL
	}
	if v.AudioURL != "" {
		rec.AudioURL = v.AudioURL
	}
	return rec, nil
}

// PageResolver renders the TikTok page in headless Chrome and reads the
// state JSON the web app embeds for hydration. That state carries the
// watermark-free download address and the music track URL, neither of which
// the generic capability exposes.
type PageResolver struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewPageResolver(timeout time.Duration, logger *slog.Logger) *PageResolver {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PageResolver{timeout: timeout, logger: logger}
}

const hydrationScriptID = "__UNIVERSAL_DATA_FOR_REHYDRATION__"

func (p *PageResolver) Variants(ctx context.Context, link string) (*Variants, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()
	taskCtx, timeoutCancel := context.WithTimeout(taskCtx, p.timeout)
	defer timeoutCancel()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(link),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("render tiktok page: %w", err)
	}

	return parseHydrationState(html)
}

// parseHydrationState pulls the variant URLs out of a rendered TikTok page.
func parseHydrationState(html string) (*Variants, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse tiktok page: %w", err)
	}

	raw := doc.Find("script#" + hydrationScriptID).Text()
	if raw == "" {
		return nil, fmt.Errorf("hydration state script not found")
	}

	var state struct {
		DefaultScope map[string]json.RawMessage `json:"__DEFAULT_SCOPE__"`
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("parse hydration state: %w", err)
	}

	detailRaw, ok := state.DefaultScope["webapp.video-detail"]
	if !ok {
		return nil, fmt.Errorf("video detail missing from hydration state")
	}

	var detail struct {
		ItemInfo struct {
			ItemStruct struct {
				Video struct {
					PlayAddr     string `json:"playAddr"`
					DownloadAddr string `json:"downloadAddr"`
					BitrateInfo  []struct {
						PlayAddr struct {
							URLList []string `json:"UrlList"`
						} `json:"PlayAddr"`
					} `json:"bitrateInfo"`
				} `json:"video"`
				Music struct {
					PlayURL string `json:"playUrl"`
				} `json:"music"`
			} `json:"itemStruct"`
		} `json:"itemInfo"`
	}
	if err := json.Unmarshal(detailRaw, &detail); err != nil {
		return nil, fmt.Errorf("parse video detail: %w", err)
	}

	video := detail.ItemInfo.ItemStruct.Video
	v := &Variants{AudioURL: detail.ItemInfo.ItemStruct.Music.PlayURL}

	// The download address is the watermark-free variant; the bitrate list
	// is the fallback when TikTok omits it.
	switch {
	case video.DownloadAddr != "":
		v.HQURL = video.DownloadAddr
	case len(video.BitrateInfo) > 0 && len(video.BitrateInfo[0].PlayAddr.URLList) > 0:
		v.HQURL = video.BitrateInfo[0].PlayAddr.URLList[0]
	}

	return v, nil
}
