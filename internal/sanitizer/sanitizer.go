// Package sanitizer cleans text that comes from the Dalgo backend before a
// terminal draws it. Notification authors and messages are user-written, so
// they may carry escape sequences that would move the cursor or retitle the
// window.
package sanitizer

import (
	"regexp"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// orphanedMouse matches SGR mouse reports whose ESC byte was already lost.
var orphanedMouse = regexp.MustCompile(`\[<[0-9]+;[0-9]+;[0-9]+[Mm]`)

type Config struct {
	AllowNewlines      bool
	ReplaceNewlineWith string
	// MaxRunes truncates the result; zero means no limit.
	MaxRunes int
}

func BlockConfig() Config {
	return Config{AllowNewlines: true}
}

func LineConfig() Config {
	return Config{ReplaceNewlineWith: " "}
}

type Sanitizer struct {
	config Config
}

func New(config Config) *Sanitizer {
	return &Sanitizer{config: config}
}

var (
	block = New(BlockConfig())
	line  = New(LineConfig())
)

// Block keeps newlines; use it for text rendered as a paragraph.
func Block(input string) string { return block.Sanitize(input) }

// Line folds the text onto one row, for table cells and list rows.
func Line(input string) string { return line.Sanitize(input) }

func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return input
	}
	input = xansi.Strip(input)
	input = orphanedMouse.ReplaceAllString(input, "")
	input = strings.ReplaceAll(input, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(input))
	count := 0
	for _, r := range input {
		if s.config.MaxRunes > 0 && count >= s.config.MaxRunes {
			break
		}
		switch {
		case r == '\n':
			if s.config.AllowNewlines {
				b.WriteRune(r)
				count++
			} else if s.config.ReplaceNewlineWith != "" {
				b.WriteString(s.config.ReplaceNewlineWith)
				count++
			}
		case r == '\t':
			b.WriteByte(' ')
			count++
		case r < 32 || r == 127 || (r >= 0x80 && r < 0xa0):
		default:
			b.WriteRune(r)
			count++
		}
	}
	return b.String()
}
