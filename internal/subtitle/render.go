package subtitle

import (
	"fmt"
	"sort"
	"strings"

	"scribe/internal/services"
)

// Format names a subtitle output format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatLRC Format = "lrc"
	FormatTXT Format = "txt"
)

var knownFormats = map[Format]struct{}{
	FormatSRT: {},
	FormatVTT: {},
	FormatLRC: {},
	FormatTXT: {},
}

// AllFormats returns the supported format names in sorted order.
func AllFormats() []Format {
	formats := make([]Format, 0, len(knownFormats))
	for f := range knownFormats {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// ParseFormats validates and normalizes a list of requested format names.
// An empty request defaults to srt. Duplicates collapse, order of first
// mention is preserved.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return []Format{FormatSRT}, nil
	}
	seen := make(map[Format]struct{}, len(names))
	formats := make([]Format, 0, len(names))
	for _, name := range names {
		f := Format(strings.ToLower(strings.TrimSpace(name)))
		if f == "" {
			continue
		}
		if _, ok := knownFormats[f]; !ok {
			return nil, services.Wrap(services.ErrValidation, "subtitle", "formats",
				fmt.Sprintf("unknown format %q", name), nil)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return []Format{FormatSRT}, nil
	}
	return formats, nil
}

// Render produces the subtitle document for one format. Rendering is pure
// and deterministic: the same entries always produce byte-identical output.
func Render(format Format, entries []Entry) (string, error) {
	kept := renderable(entries)
	switch format {
	case FormatSRT:
		return renderSRT(kept), nil
	case FormatVTT:
		return renderVTT(kept), nil
	case FormatLRC:
		return renderLRC(kept), nil
	case FormatTXT:
		return renderTXT(kept), nil
	default:
		return "", services.Wrap(services.ErrValidation, "subtitle", "render",
			fmt.Sprintf("unknown format %q", format), nil)
	}
}

func renderSRT(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(e.Start), srtTimestamp(e.End), e.Text)
	}
	return b.String()
}

func renderVTT(entries []Entry) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, vttTimestamp(e.Start), vttTimestamp(e.End), e.Text)
	}
	return b.String()
}

func renderLRC(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s%s\n", lrcTimestamp(e.Start), e.Text)
	}
	return b.String()
}

func renderTXT(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
