package synthesize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"contentmill/pkg/completion"
)

// fakeCompleter answers prompts from a lookup over substrings, recording
// every prompt it sees.
type fakeCompleter struct {
	mu      sync.Mutex
	answers map[string]string
	err     error
	prompts []string
}

func (f *fakeCompleter) answer(prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	for key, answer := range f.answers {
		if strings.Contains(prompt, key) {
			return answer, nil
		}
	}
	return "", fmt.Errorf("no canned answer for prompt %q", prompt)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, temperature float64, systemRole string) (*completion.Response, error) {
	content, err := f.answer(prompt)
	if err != nil {
		return nil, err
	}
	return &completion.Response{Content: content, FinishReason: "stop"}, nil
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, prompt string, temperature float64, out any) error {
	content, err := f.answer(prompt)
	if err != nil {
		return fmt.Errorf("%w: %s", completion.ErrNoResult, err)
	}
	if err := json.Unmarshal([]byte(strings.ReplaceAll(content, "\n", "")), out); err != nil {
		return fmt.Errorf("%w: %s", completion.ErrNoResult, err)
	}
	return nil
}

func TestCountTargets(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Counts
	}{
		{
			name: "sentences quotes and links",
			text: `First sentence. Second one! A "direct quote" here? See https://example.com and http://example.org.`,
			want: Counts{Facts: 4, Quotes: 1, Links: 2},
		},
		{
			name: "terminator runs count once",
			text: "Really?! Yes... done.",
			want: Counts{Facts: 3, Quotes: 1, Links: 1},
		},
		{
			name: "floors at one each",
			text: "no terminators here at all",
			want: Counts{Facts: 1, Quotes: 1, Links: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountTargets(tt.text); got != tt.want {
				t.Errorf("CountTargets = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFactBundle(t *testing.T) {
	fake := &fakeCompleter{answers: map[string]string{
		"Extract information": `{"facts": ["Digital wallet spending grew."],
"quotes": [{"speaker": "Dana Reed", "affiliation": "PayCo", "quote": "Adoption doubled."}],
"links": [{"link": "https://example.com/report", "context": "The quarterly report."}]}`,
	}}
	synth := NewSynthesizer(fake, nil)

	bundle := synth.FactBundle(context.Background(), `Spending grew. "Adoption doubled." See https://example.com/report.`)
	if len(bundle.Facts) != 1 || len(bundle.Quotes) != 1 || len(bundle.Links) != 1 {
		t.Fatalf("bundle = %+v", bundle)
	}
	if bundle.Quotes[0].Speaker != "Dana Reed" {
		t.Errorf("quote speaker = %q", bundle.Quotes[0].Speaker)
	}

	if len(fake.prompts) != 1 {
		t.Fatalf("prompts = %d, want 1", len(fake.prompts))
	}
	if !strings.Contains(fake.prompts[0], "Return exactly 3 facts") {
		t.Errorf("prompt missing sized fact target: %q", fake.prompts[0])
	}
}

func TestFactBundleForTopic(t *testing.T) {
	fake := &fakeCompleter{answers: map[string]string{
		`topic "payments"`: `{"facts": ["Wallet spending grew."], "quotes": [], "links": []}`,
	}}
	synth := NewSynthesizer(fake, nil)

	bundle := synth.FactBundleForTopic(context.Background(), "Spending grew.", "payments")
	if len(bundle.Facts) != 1 {
		t.Fatalf("bundle = %+v", bundle)
	}
	if len(fake.prompts) != 1 || !strings.Contains(fake.prompts[0], `related to the topic "payments"`) {
		t.Errorf("prompt missing topic clause: %q", fake.prompts)
	}
}

func TestFactBundlesForTopics_OrderAndFailureIsolation(t *testing.T) {
	fake := &fakeCompleter{answers: map[string]string{
		`topic "alpha"`: `{"facts": ["Alpha fact."], "quotes": [], "links": []}`,
		`topic "gamma"`: `{"facts": ["Gamma fact."], "quotes": [], "links": []}`,
	}}
	synth := NewSynthesizer(fake, nil)

	bundles := synth.FactBundlesForTopics(context.Background(), "Some text.", []string{"alpha", "beta", "gamma"})
	if len(bundles) != 3 {
		t.Fatalf("bundles = %d, want 3", len(bundles))
	}
	if len(bundles[0].Facts) != 1 || bundles[0].Facts[0] != "Alpha fact." {
		t.Errorf("bundles[0] = %+v", bundles[0])
	}
	if len(bundles[1].Facts) != 0 {
		t.Errorf("bundles[1] = %+v, want empty for failed topic", bundles[1])
	}
	if len(bundles[2].Facts) != 1 || bundles[2].Facts[0] != "Gamma fact." {
		t.Errorf("bundles[2] = %+v", bundles[2])
	}
}

func TestFactBundle_FailureYieldsEmptyBundle(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("backend down")}
	synth := NewSynthesizer(fake, nil)

	bundle := synth.FactBundle(context.Background(), "Some text.")
	if bundle == nil {
		t.Fatal("bundle is nil")
	}
	if len(bundle.Facts) != 0 || len(bundle.Quotes) != 0 || len(bundle.Links) != 0 {
		t.Errorf("bundle = %+v, want empty", bundle)
	}
}

func TestInfoForTopic_NormalizesLowInfo(t *testing.T) {
	fake := &fakeCompleter{answers: map[string]string{
		`topic "payments"`: "Digital wallet spending grew sharply this year.",
		`topic "weather"`:  "The text contains no information related to the topic.",
	}}
	synth := NewSynthesizer(fake, nil)

	got, err := synth.InfoForTopic(context.Background(), "text", "payments")
	if err != nil {
		t.Fatalf("InfoForTopic returned error: %v", err)
	}
	if !strings.Contains(got, "wallet spending") {
		t.Errorf("info = %q", got)
	}

	got, err = synth.InfoForTopic(context.Background(), "text", "weather")
	if err != nil {
		t.Fatalf("InfoForTopic returned error: %v", err)
	}
	if got != "" {
		t.Errorf("low-info response = %q, want empty", got)
	}
}

func TestInfoForTopics_OrderAndFailureIsolation(t *testing.T) {
	fake := &fakeCompleter{answers: map[string]string{
		`topic "alpha"`: "Alpha details here with plenty of substance to stay above the cutoff for meaningful responses.",
		`topic "gamma"`: "Gamma details here with plenty of substance to stay above the cutoff for meaningful responses.",
	}}
	synth := NewSynthesizer(fake, nil)

	got := synth.InfoForTopics(context.Background(), "text", []string{"alpha", "beta", "gamma"})
	if len(got) != 3 {
		t.Fatalf("results = %d, want 3", len(got))
	}
	if !strings.HasPrefix(got[0], "Alpha") {
		t.Errorf("results[0] = %q", got[0])
	}
	if got[1] != "" {
		t.Errorf("results[1] = %q, want empty for failed topic", got[1])
	}
	if !strings.HasPrefix(got[2], "Gamma") {
		t.Errorf("results[2] = %q", got[2])
	}
}

func TestIdentifySpeakers(t *testing.T) {
	fake := &fakeCompleter{answers: map[string]string{
		"identify the real name": `{"speakers": ["Dana Reed", "Speaker 1"]}`,
	}}
	synth := NewSynthesizer(fake, nil)

	names := synth.IdentifySpeakers(context.Background(), "Speaker 0: Hi, I'm Dana Reed.", []string{"Speaker 0", "Speaker 1"})
	if len(names) != 2 || names[0] != "Dana Reed" {
		t.Errorf("names = %v", names)
	}

	if names := synth.IdentifySpeakers(context.Background(), "chunk", nil); names != nil {
		t.Errorf("names = %v, want nil for no labels", names)
	}
}

func TestIdentifySpeakers_FailureReturnsNil(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("backend down")}
	synth := NewSynthesizer(fake, nil)

	if names := synth.IdentifySpeakers(context.Background(), "chunk", []string{"Speaker 0"}); names != nil {
		t.Errorf("names = %v, want nil on failure", names)
	}
}
