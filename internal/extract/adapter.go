package extract

import (
	"context"
	"log/slog"

	"linklift/internal/domain"
)

// mediaAdapter is the standard single-URL adapter backing every platform.
// It normalizes the resolver's raw output and applies the platform defaults
// for missing title/uploader fields.
type mediaAdapter struct {
	platform domain.Platform
	resolver Resolver
	logger   *slog.Logger
}

// New builds the standard adapter for a platform.
func New(platform domain.Platform, resolver Resolver, logger *slog.Logger) Adapter {
	return &mediaAdapter{platform: platform, resolver: resolver, logger: logger}
}

func (a *mediaAdapter) Platform() domain.Platform { return a.platform }

func (a *mediaAdapter) Extract(ctx context.Context, link string) (*domain.MediaRecord, error) {
	resolved, err := a.resolver.Resolve(ctx, link)
	if err != nil {
		a.logger.Error("extraction failed", "platform", a.platform, "err", err)
		return nil, &domain.ExtractionError{Platform: a.platform, Err: err}
	}
	if resolved.URL == "" {
		a.logger.Error("extraction returned no media URL", "platform", a.platform)
		return nil, &domain.ExtractionError{Platform: a.platform, Err: domain.ErrNoMediaURL}
	}

	title := resolved.Title
	if title == "" {
		title = a.platform.Title() + " Video"
	}
	uploader := resolved.Uploader
	if uploader == "" {
		uploader = "Unknown"
	}

	return &domain.MediaRecord{
		Platform: a.platform,
		URL:      resolved.URL,
		Title:    title,
		Uploader: uploader,
		Source:   link,
		Duration: resolved.Duration,
	}, nil
}
