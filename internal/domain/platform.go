package domain

// Platform identifies the social-media source a link belongs to.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
	PlatformUnknown   Platform = "unknown"
)

// Title returns the display form of the platform name ("tiktok" -> "Tiktok").
func (p Platform) Title() string {
	if p == "" || p == PlatformUnknown {
		return "Unknown"
	}
	s := string(p)
	return string(s[0]-'a'+'A') + s[1:]
}
