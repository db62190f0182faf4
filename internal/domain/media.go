package domain

// MediaRecord is the normalized result of a successful extraction.
// URL is always non-empty on success; an extraction that cannot resolve a
// direct media URL is a failure, not a record with blank fields.
type MediaRecord struct {
	Platform Platform
	URL      string // direct media URL (required)
	HQURL    string // optional higher-quality variant
	AudioURL string // optional separate audio track
	Title    string
	Uploader string
	Source   string // the page link the user originally sent
	Duration int    // seconds, 0 if unknown
}

// Transfer is a fetched media payload. Consumed exactly once by delivery.
type Transfer struct {
	Data     []byte
	FileName string
}

// Len returns the payload size in bytes.
func (t *Transfer) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Data)
}
