package feed

import "sort"

// SegmentKind classifies a rendered text span.
type SegmentKind int

const (
	SegmentPlain SegmentKind = iota
	SegmentLink
	SegmentMention
	SegmentTag
	SegmentOther
)

// Segment is one typed span of a post's text, ready for rendering.
type Segment struct {
	Kind SegmentKind
	Text string

	// Payload carries the originating facet's feature value (link target,
	// mention DID, tag). Empty for plain spans.
	Payload string
}

// SegmentText splits text into typed spans using the facets' byte offsets.
// The text is encoded to bytes once and sliced only on facet boundaries;
// concatenating the emitted spans reproduces the original byte sequence
// exactly. Facets need not arrive sorted. Facets that fall outside the text
// or overlap an earlier one are dropped, with their range covered by the
// surrounding plain spans, so the reconstruction invariant holds regardless.
func SegmentText(text string, facets []Facet) []Segment {
	if len(facets) == 0 {
		if text == "" {
			return nil
		}
		return []Segment{{Kind: SegmentPlain, Text: text}}
	}

	data := []byte(text)

	sorted := make([]Facet, len(facets))
	copy(sorted, facets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ByteStart < sorted[j].ByteStart })

	var segments []Segment
	last := 0
	for _, f := range sorted {
		if f.ByteStart < last || f.ByteEnd > len(data) || f.ByteEnd <= f.ByteStart {
			continue
		}
		if f.ByteStart > last {
			segments = append(segments, Segment{Kind: SegmentPlain, Text: string(data[last:f.ByteStart])})
		}
		segments = append(segments, Segment{
			Kind:    segmentKind(f.Kind),
			Text:    string(data[f.ByteStart:f.ByteEnd]),
			Payload: f.Payload,
		})
		last = f.ByteEnd
	}
	if last < len(data) {
		segments = append(segments, Segment{Kind: SegmentPlain, Text: string(data[last:])})
	}
	return segments
}

func segmentKind(k FacetKind) SegmentKind {
	switch k {
	case FacetLink:
		return SegmentLink
	case FacetMention:
		return SegmentMention
	case FacetTag:
		return SegmentTag
	default:
		return SegmentOther
	}
}
