package usecase

import (
	"strings"
	"sync"
)

// transcriptAggregator reconciles differing result cadences into one linear
// transcript. Interim text is display-only and never persisted; finals
// either extend the accumulated transcript (continuous recognizer) or
// replace it (backend stream, whose finals carry the whole utterance).
type transcriptAggregator struct {
	mu          sync.Mutex
	accumulated string
	interim     string
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

func (a *transcriptAggregator) SetInterim(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.mu.Lock()
	a.interim = text
	a.mu.Unlock()
}

// ExtendFinal appends a final segment, skipping segments the accumulated
// transcript already ends with.
func (a *transcriptAggregator) ExtendFinal(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.interim = ""
	if a.accumulated == "" {
		a.accumulated = text
		return
	}
	if strings.HasSuffix(a.accumulated, text) {
		return
	}
	a.accumulated = a.accumulated + " " + text
}

// ReplaceFinal swaps the whole accumulated transcript for text.
func (a *transcriptAggregator) ReplaceFinal(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.mu.Lock()
	a.accumulated = text
	a.interim = ""
	a.mu.Unlock()
}

// Final returns the accumulated transcript.
func (a *transcriptAggregator) Final() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(a.accumulated)
}

// Interim returns the latest provisional fragment.
func (a *transcriptAggregator) Interim() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interim
}
