// Package synthesize distills extracted text into structured facts, quotes,
// links and topic-focused digests via the completion backend.
package synthesize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"contentmill/pkg/completion"
	"contentmill/pkg/domain"
)

// Completer is the completion-backend contract the synthesizer relies on.
// *completion.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, systemRole string) (*completion.Response, error)
	CompleteJSON(ctx context.Context, prompt string, temperature float64, out any) error
}

// Synthesizer generates structured summaries from source text.
type Synthesizer struct {
	completer Completer
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer on top of the given completion
// backend.
func NewSynthesizer(completer Completer, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completer: completer, logger: logger}
}

// Counts are the per-category extraction targets derived from the source
// text's size and density.
type Counts struct {
	Facts  int
	Quotes int
	Links  int
}

// CountTargets sizes extraction proportionally to the text: one fact per
// sentence, one quote per quotation-mark pair, one link per URL, with a floor
// of one in each category so short inputs still produce output.
func CountTargets(text string) Counts {
	c := Counts{
		Facts:  sentenceCount(text),
		Quotes: strings.Count(text, `"`) / 2,
		Links:  strings.Count(text, "http://") + strings.Count(text, "https://"),
	}
	if c.Facts < 1 {
		c.Facts = 1
	}
	if c.Quotes < 1 {
		c.Quotes = 1
	}
	if c.Links < 1 {
		c.Links = 1
	}
	return c
}

// sentenceCount counts runs of sentence terminators, so "?!" or "..." end a
// single sentence.
func sentenceCount(text string) int {
	count := 0
	inRun := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if !inRun {
				count++
				inRun = true
			}
		default:
			inRun = false
		}
	}
	return count
}

const factBundleTemplate = `Extract information from the provided text.

Return exactly %d facts, %d notable direct quotes, and %d hyperlinks that appear in the text.%s

The response must be stringified JSON in the following format: {"facts": ["fact"], "quotes": [{"speaker": "name of person quoted", "affiliation": "organization the speaker belongs to", "quote": "the direct quote"}], "links": [{"link": "the url", "context": "one sentence describing what the link points to"}]}

Do not return any commentary outside the JSON.

Text:
%s`

// FactBundle extracts facts, quotes and links from text, sized by
// CountTargets. A completion failure yields an empty bundle, never an error:
// downstream publishing treats "nothing extracted" as a valid outcome.
func (s *Synthesizer) FactBundle(ctx context.Context, text string) *domain.FactBundle {
	return s.factBundle(ctx, text, "")
}

// FactBundleForTopic extracts only the facts, quotes and links related to the
// given topic. An empty topic behaves like FactBundle.
func (s *Synthesizer) FactBundleForTopic(ctx context.Context, text, topic string) *domain.FactBundle {
	return s.factBundle(ctx, text, topic)
}

func (s *Synthesizer) factBundle(ctx context.Context, text, topic string) *domain.FactBundle {
	counts := CountTargets(text)
	topicClause := ""
	if topic != "" {
		topicClause = fmt.Sprintf(" Only include facts, quotes and links related to the topic %q.", topic)
	}
	prompt := fmt.Sprintf(factBundleTemplate, counts.Facts, counts.Quotes, counts.Links, topicClause, text)

	var bundle domain.FactBundle
	if err := s.completer.CompleteJSON(ctx, prompt, 0.4, &bundle); err != nil {
		s.logger.Warn("fact extraction failed", "topic", topic, "error", err)
		return &domain.FactBundle{}
	}
	return &bundle
}

// FactBundlesForTopics fans FactBundleForTopic out over topics concurrently
// and returns one bundle per topic, in input order. A failed topic
// contributes an empty bundle rather than failing the batch.
func (s *Synthesizer) FactBundlesForTopics(ctx context.Context, text string, topics []string) []*domain.FactBundle {
	results := make([]*domain.FactBundle, len(topics))

	var wg sync.WaitGroup
	for i, topic := range topics {
		wg.Add(1)
		go func(i int, topic string) {
			defer wg.Done()
			results[i] = s.FactBundleForTopic(ctx, text, topic)
		}(i, topic)
	}
	wg.Wait()

	return results
}

const topicInfoTemplate = `Provide all facts and information related to the topic "%s" from the provided text. If the text contains no information related to the topic, respond with "no information".

Do not add commentary, introductions, or conclusions. Respond only with the extracted information.

Text:
%s`

// lowInfoMarkers are backend phrasings of "nothing found". Short responses
// containing one of these are normalized to the empty string.
var lowInfoMarkers = []string{
	"no facts",
	"no specific information",
	"no information",
}

// InfoForTopic extracts the information in text related to a single topic.
// Low-information responses normalize to "".
func (s *Synthesizer) InfoForTopic(ctx context.Context, text, topic string) (string, error) {
	prompt := fmt.Sprintf(topicInfoTemplate, topic, text)
	resp, err := s.completer.Complete(ctx, prompt, 0.4, "")
	if err != nil {
		return "", err
	}
	return normalizeLowInfo(resp.Content), nil
}

func normalizeLowInfo(content string) string {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < 100 {
		lower := strings.ToLower(trimmed)
		for _, marker := range lowInfoMarkers {
			if strings.Contains(lower, marker) {
				return ""
			}
		}
	}
	return trimmed
}

// InfoForTopics fans InfoForTopic out over topics concurrently and returns
// one entry per topic, in input order. A failed topic contributes an empty
// string rather than failing the batch.
func (s *Synthesizer) InfoForTopics(ctx context.Context, text string, topics []string) []string {
	results := make([]string, len(topics))

	var wg sync.WaitGroup
	for i, topic := range topics {
		wg.Add(1)
		go func(i int, topic string) {
			defer wg.Done()
			info, err := s.InfoForTopic(ctx, text, topic)
			if err != nil {
				s.logger.Warn("topic extraction failed", "topic", topic, "error", err)
				return
			}
			results[i] = info
		}(i, topic)
	}
	wg.Wait()

	return results
}

const speakersTemplate = `The following is part of a diarized transcript where speakers are labeled %s. Based on how the speakers address each other and introduce themselves, identify the real name of each speaker.

The response must be stringified JSON in the following format: {"speakers": ["name of Speaker 0", "name of Speaker 1"]}. Use the label itself for any speaker whose name cannot be determined. Do not return any commentary outside the JSON.

Transcript:
%s`

// IdentifySpeakers asks the backend to resolve anonymous diarization labels
// to real names from the opening of the transcript. Failure returns nil:
// transcripts are published with anonymous labels rather than not at all.
func (s *Synthesizer) IdentifySpeakers(ctx context.Context, chunk string, labels []string) []string {
	if len(labels) == 0 {
		return nil
	}

	prompt := fmt.Sprintf(speakersTemplate, strings.Join(labels, ", "), chunk)
	var out struct {
		Speakers []string `json:"speakers"`
	}
	if err := s.completer.CompleteJSON(ctx, prompt, 0.4, &out); err != nil {
		s.logger.Warn("speaker identification failed", "error", err)
		return nil
	}
	return out.Speakers
}
