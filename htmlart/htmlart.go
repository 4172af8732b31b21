/*
Package htmlart converts HTML text art, as produced by most image to text art
generators, into rich text using <color=#RRGGBB> tags.

Each colored character arrives wrapped in its own <b style="color: ...">
element. Consecutive characters on a line sharing a color are grouped into a
single tag which keeps the output well under the byte limit of the text
components it is pasted into.
*/
package htmlart

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// ByteLimit is the largest number of bytes a text component accepts.
const ByteLimit = 65534

var (
	// ErrTooLarge is returned when applying text longer than ByteLimit
	ErrTooLarge = errors.New("htmlart: text exceeds byte limit")
	// ErrNoTarget is returned when nothing can receive the text
	ErrNoTarget = errors.New("htmlart: no text target")
)

var (
	preTag   = regexp.MustCompile(`(?i)</?pre[^>]*>`)
	boldTag  = regexp.MustCompile(`<b\s+style="color:\s*(#[0-9A-Fa-f]{6})">(.*?)</b>`)
	colorTag = regexp.MustCompile(`<color=(#[0-9A-Fa-f]{6})>(.*?)</color>`)
	anyTag   = regexp.MustCompile(`<[^>]+>`)
	hexColor = regexp.MustCompile(`(?i)^#[0-9a-f]{6}$`)
)

var policy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("pre", "b")
	p.AllowStyles("color").Matching(hexColor).OnElements("b")
	return p
}()

// Result is converted text art.
type Result struct {
	Text string
	// Width is the widest line in visible characters
	Width int
	// Height is the number of lines
	Height int
	// VisibleChars is the total of visible characters on every line
	VisibleChars int
}

// Bytes returns the UTF-8 encoded size of the text.
func (r Result) Bytes() int {
	return len(r.Text)
}

// Fits reports whether the text is within ByteLimit.
func (r Result) Fits() bool {
	return r.Bytes() <= ByteLimit
}

// Ratio returns width divided by height, or zero with no lines.
func (r Result) Ratio() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Sanitize strips everything but <pre> and <b> elements with a color style.
// Text is re-escaped so entities in the art survive as entities.
func Sanitize(html string) string {
	return policy.Sanitize(html)
}

// Convert converts HTML text art to rich text.
func Convert(html string) Result {
	if strings.TrimSpace(html) == "" {
		return Result{}
	}

	html = preTag.ReplaceAllString(html, "")
	html = strings.ReplaceAll(html, "\r\n", "\n")

	lines := strings.Split(html, "\n")

	var (
		sb  strings.Builder
		res = Result{Height: len(lines)}
	)
	for _, line := range lines {
		conv := boldTag.ReplaceAllString(line, "<color=$1>$2</color>")
		conv = GroupColorRuns(conv)

		n := utf8.RuneCountInString(anyTag.ReplaceAllString(conv, ""))
		if n > res.Width {
			res.Width = n
		}
		res.VisibleChars += n

		sb.WriteString(conv)
		sb.WriteByte('\n')
	}
	res.Text = strings.TrimRightFunc(sb.String(), unicode.IsSpace)

	return res
}

// GroupColorRuns merges consecutive <color> tags of the same color on a line.
// A line with no tags is returned unchanged, otherwise only the tagged text
// is kept.
func GroupColorRuns(line string) string {
	matches := colorTag.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return line
	}

	var (
		sb   strings.Builder
		run  strings.Builder
		prev string
	)
	flush := func() {
		if prev != "" {
			fmt.Fprintf(&sb, "<color=%s>%s</color>", prev, run.String())
		}
	}
	for _, m := range matches {
		if m[1] == prev {
			run.WriteString(m[2])
			continue
		}
		flush()
		prev = m[1]
		run.Reset()
		run.WriteString(m[2])
	}
	flush()

	return sb.String()
}

// TextTarget is implemented by anything that can display rich text art.
type TextTarget interface {
	SetText(text string)
	SetDisplaySize(width, height float64)
	SetAnimated(animated bool)
}

func formatScale(scale float64) string {
	return strconv.FormatFloat(math.Round(scale*100)/100, 'f', -1, 64)
}

// Apply sets the text on every target that implements TextTarget, sized by
// scale, and returns how many were updated.
func Apply(r Result, scale float64, targets ...interface{}) (int, error) {
	if !r.Fits() {
		return 0, ErrTooLarge
	}

	size := formatScale(scale)
	text := fmt.Sprintf("<size=%s><line-height=%s>%s", size, size, r.Text)

	n := 0
	for _, target := range targets {
		t, ok := target.(TextTarget)
		if !ok {
			continue
		}
		t.SetText(text)
		t.SetDisplaySize(float64(r.Width)*scale, float64(r.Height)*scale)
		t.SetAnimated(true)
		n++
	}
	if n == 0 {
		return 0, ErrNoTarget
	}

	return n, nil
}
