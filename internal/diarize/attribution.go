package diarize

import (
	"fmt"

	"scribe/internal/asr"
)

// Annotate assigns a speaker label to every transcript segment. Turns are
// first relabeled to stable ordinals by first appearance in the turn list, so
// a raw engine id always maps to the same "Speaker #N" throughout a file.
// Attribution picks the turn containing the segment midpoint; when the
// segment spans a gap or several turns, the turn with the largest positive
// overlap wins; with no overlap at all the segment is marked UnknownSpeaker.
func Annotate(segments []asr.Segment, turns []Turn) []asr.Segment {
	relabeled := RelabelOrdinals(turns)
	annotated := make([]asr.Segment, len(segments))
	for i, seg := range segments {
		seg.Speaker = speakerFor(seg, relabeled)
		annotated[i] = seg
	}
	return annotated
}

// AssignDefault labels every segment with the single default speaker. Used
// when diarization was requested but the engine failed.
func AssignDefault(segments []asr.Segment) []asr.Segment {
	annotated := make([]asr.Segment, len(segments))
	for i, seg := range segments {
		seg.Speaker = DefaultSpeaker
		annotated[i] = seg
	}
	return annotated
}

// RelabelOrdinals maps raw speaker ids to "Speaker #N" labels in order of
// first appearance in the turn list, never in transcript order.
func RelabelOrdinals(turns []Turn) []Turn {
	mapping := make(map[string]string)
	next := 1
	relabeled := make([]Turn, len(turns))
	for i, turn := range turns {
		label, ok := mapping[turn.Speaker]
		if !ok {
			label = fmt.Sprintf("Speaker #%d", next)
			mapping[turn.Speaker] = label
			next++
		}
		turn.Speaker = label
		relabeled[i] = turn
	}
	return relabeled
}

func speakerFor(seg asr.Segment, turns []Turn) string {
	midpoint := (seg.Start + seg.End) / 2
	for _, turn := range turns {
		if turn.Start <= midpoint && midpoint <= turn.End {
			return turn.Speaker
		}
	}
	if speaker, ok := maxOverlap(seg, turns); ok {
		return speaker
	}
	return UnknownSpeaker
}

func maxOverlap(seg asr.Segment, turns []Turn) (string, bool) {
	best := ""
	bestOverlap := 0.0
	for _, turn := range turns {
		start := seg.Start
		if turn.Start > start {
			start = turn.Start
		}
		end := seg.End
		if turn.End < end {
			end = turn.End
		}
		overlap := end - start
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = turn.Speaker
		}
	}
	return best, bestOverlap > 0
}
