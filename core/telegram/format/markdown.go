// Package format holds small text formatting helpers for outbound messages.
package format

import "strings"

var mdV1Replacer = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"[", `\[`,
	"`", "\\`",
)

// EscapeMarkdown escapes user-supplied text interpolated into Markdown (V1)
// messages so stray formatting characters cannot break the rendering.
func EscapeMarkdown(text string) string {
	return mdV1Replacer.Replace(text)
}
