package usecase

import "testing"

func TestAggregatorExtendFinal(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.SetInterim("book a")
	agg.ExtendFinal("book a taxi")
	agg.ExtendFinal("to the airport")

	if got := agg.Final(); got != "book a taxi to the airport" {
		t.Fatalf("unexpected final: %q", got)
	}
	if agg.Interim() != "" {
		t.Fatalf("final segment should clear the interim text")
	}
}

func TestAggregatorExtendFinalSkipsRepeatedSuffix(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.ExtendFinal("book a taxi")
	agg.ExtendFinal("book a taxi")

	if got := agg.Final(); got != "book a taxi" {
		t.Fatalf("repeated final should not duplicate: %q", got)
	}
}

func TestAggregatorReplaceFinal(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.ReplaceFinal("book a")
	agg.ReplaceFinal("book a taxi tomorrow")

	if got := agg.Final(); got != "book a taxi tomorrow" {
		t.Fatalf("unexpected final: %q", got)
	}
}

func TestAggregatorIgnoresBlankSegments(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.ExtendFinal("hello")
	agg.ExtendFinal("   ")
	agg.SetInterim("")
	agg.ReplaceFinal("")

	if got := agg.Final(); got != "hello" {
		t.Fatalf("blank segments must not change the transcript: %q", got)
	}
}
