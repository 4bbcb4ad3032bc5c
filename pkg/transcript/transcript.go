// Package transcript post-processes diarized transcripts: it splits them into
// per-speaker chunks, re-packs chunks under a word budget, and substitutes
// resolved names for anonymous speaker indices.
//
// Transcription backends diarize by numeric index only. Downstream consumers
// need named, size-bounded text, and a speaker's turn must never be split
// mid-chunk or attribution would be corrupted.
package transcript

import (
	"strconv"
	"strings"
)

// speakerMarker is the literal prefix a diarized paragraph starts with,
// followed by a numeric index and a colon: "Speaker 0: ...".
const speakerMarker = "Speaker"

// DefaultMaxWords is the word budget used when re-chunking transcripts into
// prompt-sized buckets.
const DefaultMaxWords = 1200

// SpeakerChunk is a contiguous run of transcript paragraphs attributable to
// one speaker. Speaker is -1 for text preceding any speaker marker.
type SpeakerChunk struct {
	Speaker int
	Text    string
}

// SpeakerIndex parses a speaker header from a transcript line. It returns the
// numeric index and true when the line starts a new speaker turn. A malformed
// header (missing colon, non-numeric index) is plain continuation text.
func SpeakerIndex(line string) (int, bool) {
	if !strings.HasPrefix(line, speakerMarker) {
		return 0, false
	}
	rest := line[len(speakerMarker):]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimSpace(rest[:colon]))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// SplitBySpeaker scans the transcript line by line and starts a new chunk at
// every speaker header. The concatenation of all chunk texts equals the input.
// A transcript with no speaker markers yields a single chunk with speaker -1.
func SplitBySpeaker(transcript string) []SpeakerChunk {
	if transcript == "" {
		return nil
	}

	var chunks []SpeakerChunk
	cur := SpeakerChunk{Speaker: -1}

	for _, line := range strings.SplitAfter(transcript, "\n") {
		if line == "" {
			continue
		}
		if idx, ok := SpeakerIndex(line); ok {
			if cur.Text != "" {
				chunks = append(chunks, cur)
			}
			cur = SpeakerChunk{Speaker: idx, Text: line}
			continue
		}
		cur.Text += line
	}
	if cur.Text != "" {
		chunks = append(chunks, cur)
	}
	return chunks
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// RechunkByWordBudget greedily packs consecutive chunks into buckets, starting
// a new bucket whenever adding the next chunk would exceed maxWords. A chunk
// larger than the budget is never split; it becomes its own oversized bucket.
// Bucket texts concatenate to exactly the concatenation of the chunk texts.
func RechunkByWordBudget(chunks []SpeakerChunk, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	var buckets []string
	var cur strings.Builder
	curWords := 0

	for _, chunk := range chunks {
		words := WordCount(chunk.Text)
		if cur.Len() > 0 && curWords+words > maxWords {
			buckets = append(buckets, cur.String())
			cur.Reset()
			curWords = 0
		}
		cur.WriteString(chunk.Text)
		curWords += words
	}
	if cur.Len() > 0 {
		buckets = append(buckets, cur.String())
	}
	return buckets
}

// ResolveSpeakerNames substitutes entries from names for the raw "Speaker N"
// markers, where names is ordered by speaker index. Indices without a
// corresponding name are left unresolved. An empty name list returns the
// transcript unchanged.
func ResolveSpeakerNames(transcript string, names []string) string {
	if len(names) == 0 {
		return transcript
	}

	lines := strings.Split(transcript, "\n")
	for i, line := range lines {
		idx, ok := SpeakerIndex(line)
		if !ok || idx >= len(names) {
			continue
		}
		colon := strings.Index(line, ":")
		lines[i] = names[idx] + line[colon:]
	}
	return strings.Join(lines, "\n")
}

// Labels returns the anonymous speaker labels present in the chunks, ordered
// by first appearance. Text preceding any marker (speaker -1) is skipped.
func Labels(chunks []SpeakerChunk) []string {
	seen := make(map[int]bool)
	var labels []string
	for _, chunk := range chunks {
		if chunk.Speaker < 0 || seen[chunk.Speaker] {
			continue
		}
		seen[chunk.Speaker] = true
		labels = append(labels, speakerMarker+" "+strconv.Itoa(chunk.Speaker))
	}
	return labels
}
