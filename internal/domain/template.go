package domain

import "regexp"

const (
	// NamePlaceholder is the only placeholder understood by Render.
	NamePlaceholder = "{name}"

	DefaultTemplate = "Hi {name}, how are you doing?"
)

var namePlaceholderPattern = regexp.MustCompile(`(?i)\{name\}`)

// Render replaces every case-insensitive occurrence of {name} with the
// recipient's name. The substituted text is inserted literally.
func Render(template string, r Recipient) string {
	return namePlaceholderPattern.ReplaceAllLiteralString(template, r.Name)
}
