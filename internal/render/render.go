// Package render turns transcript segments into the deliverable output
// formats.
package render

import (
	"fmt"
	"strings"

	"scribe/internal/asr"
)

// Format identifies one output rendering.
type Format string

const (
	FormatText        Format = "text"
	FormatTimestamped Format = "timestamped"
	FormatMarkdown    Format = "markdown"
	FormatSRT         Format = "srt"
	FormatVTT         Format = "vtt"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatText:
		return FormatText, nil
	case FormatTimestamped:
		return FormatTimestamped, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	}
	return "", fmt.Errorf("unknown output format %q", name)
}

// FileName returns the artifact file name for a format, derived from the
// sanitized base name of the source media.
func FileName(base string, format Format) string {
	switch format {
	case FormatTimestamped:
		return base + "_timecodes.txt"
	case FormatMarkdown:
		return base + "_diarized.md"
	case FormatSRT:
		return base + ".srt"
	case FormatVTT:
		return base + ".vtt"
	default:
		return base + ".txt"
	}
}

// Render produces the content of one output format. Whitespace-only segments
// are skipped in every format.
func Render(format Format, segments []asr.Segment) (string, error) {
	segments = nonEmpty(segments)
	switch format {
	case FormatText:
		return plainText(segments), nil
	case FormatTimestamped:
		return timestamped(segments), nil
	case FormatMarkdown:
		return diarizedMarkdown(segments), nil
	case FormatSRT:
		return subRip(segments), nil
	case FormatVTT:
		return webVTT(segments), nil
	}
	return "", fmt.Errorf("unknown output format %q", format)
}

func nonEmpty(segments []asr.Segment) []asr.Segment {
	kept := make([]asr.Segment, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		kept = append(kept, seg)
	}
	return kept
}

func plainText(segments []asr.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func timestamped(segments []asr.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s - %s] %s\n", Clock(seg.Start), Clock(seg.End), strings.TrimSpace(seg.Text))
	}
	return b.String()
}

// diarizedMarkdown groups consecutive segments by the same speaker under one
// heading. Segments without a speaker label fall back to the raw text.
func diarizedMarkdown(segments []asr.Segment) string {
	var b strings.Builder
	current := ""
	for _, seg := range segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "Speaker"
		}
		if speaker != current {
			if current != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "**%s** (%s):\n", speaker, Clock(seg.Start))
			current = speaker
		}
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func subRip(segments []asr.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n", i+1, SRTTime(seg.Start), SRTTime(seg.End))
		text := strings.TrimSpace(seg.Text)
		if seg.Speaker != "" {
			text = seg.Speaker + ": " + text
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func webVTT(segments []asr.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "%s --> %s\n", VTTTime(seg.Start), VTTTime(seg.End))
		text := strings.TrimSpace(seg.Text)
		if seg.Speaker != "" {
			fmt.Fprintf(&b, "<v %s>%s\n\n", seg.Speaker, text)
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String()
}
