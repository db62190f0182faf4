// Package compose builds every user-facing text the bot sends. The success
// caption and the link-only fallback render the same record fields and
// differ only in framing, so the fallback never recomputes anything.
package compose

import (
	"fmt"
	"strings"

	"linklift/internal/classify"
	"linklift/internal/domain"
)

// errExcerptLen bounds the diagnostic excerpt shown to users so a stack
// trace never lands in chat.
const errExcerptLen = 100

type Composer struct {
	attribution string
	table       *classify.Table
}

func New(attribution string, table *classify.Table) *Composer {
	return &Composer{attribution: attribution, table: table}
}

// Processing is the placeholder text sent while the pipeline runs.
func (c *Composer) Processing(p domain.Platform) string {
	return fmt.Sprintf(
		"⚡ *%s Processing %s...*\n\n"+
			"🚀 Downloading at lightning speed...\n"+
			"📦 Optimizing for fast delivery...\n\n"+
			"%s",
		c.table.Emoji(p), p.Title(), c.attribution)
}

// Caption is the text attached to a delivered video.
func (c *Composer) Caption(rec *domain.MediaRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✨ *%s Download Complete!* 🎉\n\n", rec.Platform.Title())
	if rec.Title != "" {
		fmt.Fprintf(&sb, "📝 *Title:* %s", rec.Title)
		if rec.Uploader != "" && rec.Uploader != "Unknown" {
			fmt.Fprintf(&sb, " - @%s", rec.Uploader)
		}
		sb.WriteString("\n")
	}
	if rec.AudioURL != "" {
		fmt.Fprintf(&sb, "🎵 *Sound:* %s\n", rec.AudioURL)
	}
	fmt.Fprintf(&sb, "🔗 *Link:* %s\n\n", rec.Source)
	fmt.Fprintf(&sb, "💫 *Powered by* %s\n", c.attribution)
	sb.WriteString("🎊 *Enjoy your content!*")
	return sb.String()
}

// Fallback is the link-only variant used when the payload is too large for
// the messaging surface.
func (c *Composer) Fallback(rec *domain.MediaRecord) string {
	return "📦 *Video Too Large - Link Provided* ⚡\n\n" + c.Caption(rec)
}

// Delivered is the final edit of the placeholder after a successful attach.
func (c *Composer) Delivered(p domain.Platform) string {
	return fmt.Sprintf(
		"✅ *%s Download Successful!* 🎉\n\n"+
			"⚡ Lightning fast service!\n\n"+
			"%s",
		p.Title(), c.attribution)
}

// Failure names the user and platform; extraction and transfer failures
// share this one message.
func (c *Composer) Failure(p domain.Platform, userName string) string {
	return fmt.Sprintf(
		"❌ *Download Failed* 😔\n\n"+
			"Sorry %s! Couldn't download from %s.\n"+
			"Please try a different link.\n\n"+
			"%s",
		userName, p.Title(), c.attribution)
}

// Unsupported lists the supported platforms, in table order.
func (c *Composer) Unsupported() string {
	var parts []string
	for _, e := range c.table.Entries() {
		parts = append(parts, fmt.Sprintf("%s %s", e.Emoji, e.Name.Title()))
	}
	return fmt.Sprintf(
		"❌ *Unsupported Link* ❌\n\n"+
			"I support: %s\n\n"+
			"Send a valid link from any of these platforms! ✨\n\n"+
			"%s",
		strings.Join(parts, " • "), c.attribution)
}

// TemporaryError carries a truncated diagnostic excerpt.
func (c *Composer) TemporaryError(err error) string {
	excerpt := err.Error()
	if len(excerpt) > errExcerptLen {
		excerpt = excerpt[:errExcerptLen]
	}
	return fmt.Sprintf(
		"⚡ *Temporary Error* ⚡\n\n"+
			"Please try again with a different link!\n\n"+
			"Error: %s...\n\n"+
			"%s",
		excerpt, c.attribution)
}

// Welcome is the /start message.
func (c *Composer) Welcome() string {
	var sb strings.Builder
	sb.WriteString("✨ *Welcome to LinkLift - Your Social Downloader!* ✨\n\n")
	sb.WriteString("⚡ *Lightning Fast Downloads From:*\n")
	for _, e := range c.table.Entries() {
		fmt.Fprintf(&sb, "%s %s %s\n", e.Emoji, e.Name.Title(), e.Label)
	}
	sb.WriteString("\n💫 *How to use:*\n")
	sb.WriteString("Simply send me a link from any supported platform and I'll handle the rest!\n\n")
	fmt.Fprintf(&sb, "*Powered by* %s", c.attribution)
	return sb.String()
}

// Help is the /help message with example link shapes from the table.
func (c *Composer) Help() string {
	var sb strings.Builder
	sb.WriteString("🆘 *LinkLift Help Guide* 🆘\n\n")
	sb.WriteString("*Supported Platforms:*\n")
	for _, e := range c.table.Entries() {
		fmt.Fprintf(&sb, "• *%s*: %s\n", e.Name.Title(), e.Label)
	}
	sb.WriteString("\n*How to Download:*\n")
	sb.WriteString("1. Copy video link\n2. Paste here\n3. Get your download! ✨\n\n")
	sb.WriteString("*Example Links:*\n")
	for _, e := range c.table.Entries() {
		fmt.Fprintf(&sb, "`%s`\n", e.Example)
	}
	fmt.Fprintf(&sb, "\n%s 💻", c.attribution)
	return sb.String()
}

// Custom is the static placeholder command response.
func (c *Composer) Custom() string {
	return "This is custom command"
}
