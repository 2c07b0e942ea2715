package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"xscraper/models"
)

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Fingerprint hashes the stable identity of a post's content. The post ID
// survives an edit while the text changes; the fingerprint moves the other
// way, so the archive can tell an edited post from a re-observation of the
// same one.
func Fingerprint(post *models.Post) string {
	input := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(post.AuthorHandle),
		post.Kind,
		NormalizeText(post.Text),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeText flattens casing, punctuation and whitespace so trivial
// re-renderings of the same text hash identically.
func NormalizeText(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = nonAlnumRegex.ReplaceAllString(text, " ")
	text = multiSpaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
