package audio

// Span is one scene's slot on the narration timeline in milliseconds
type Span struct {
	StartMs int64
	EndMs   int64
}

// PadMillis stretches a clip to at least minMs and appends a fixed pause
func PadMillis(ms, minMs, pauseMs int64) int64 {
	if ms < minMs {
		ms = minMs
	}
	return ms + pauseMs
}

// Layout places padded clips back to back from zero. Each span ends where
// the next begins and the last ends at the returned total.
func Layout(padded []int64) ([]Span, int64) {
	spans := make([]Span, len(padded))
	var cursor int64
	for i, d := range padded {
		spans[i] = Span{StartMs: cursor, EndMs: cursor + d}
		cursor += d
	}
	return spans, cursor
}
