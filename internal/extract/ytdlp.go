package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lrstanley/go-ytdlp"
)

// Resolved is the raw outcome of the generic extraction capability.
type Resolved struct {
	URL      string
	Title    string
	Uploader string
	Duration int
}

// Resolver resolves a page link into direct-media metadata. The production
// implementation shells out to yt-dlp; tests inject fakes.
type Resolver interface {
	Resolve(ctx context.Context, link string) (*Resolved, error)
}

// YtDlp resolves links through the yt-dlp binary via go-ytdlp. Metadata only;
// the actual bytes are pulled by the fetcher.
type YtDlp struct {
	format string
	logger *slog.Logger
}

func NewYtDlp(format string, logger *slog.Logger) *YtDlp {
	return &YtDlp{format: format, logger: logger}
}

// EnsureInstalled downloads a yt-dlp binary if none is on PATH.
func EnsureInstalled(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

// ytdlpInfo is the subset of yt-dlp's JSON dump the adapters consume.
type ytdlpInfo struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
}

func (y *YtDlp) Resolve(ctx context.Context, link string) (*Resolved, error) {
	cmd := ytdlp.New().
		Format(y.format).
		SkipDownload().
		DumpSingleJSON().
		NoPlaylist().
		NoProgress()

	res, err := cmd.Run(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal([]byte(res.Stdout), &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	y.logger.Debug("link resolved",
		"url", info.URL != "",
		"title", info.Title,
		"duration", info.Duration,
	)

	return &Resolved{
		URL:      info.URL,
		Title:    info.Title,
		Uploader: info.Uploader,
		Duration: int(info.Duration),
	}, nil
}
