package feed

import "strings"

// galleryTags is the fixed allow-list of photography-related hashtags that
// admit a post into the gallery projection. Matched case-insensitively.
var galleryTags = map[string]struct{}{
	"photography": {},
	"photo":       {},
	"film":        {},
	"landscape":   {},
	"street":      {},
	"nature":      {},
	"bw":          {},
}

// LatestPost scans posts in source order and returns the first admissible
// one. First match wins, no further tie-break. The second return is false
// when nothing matches; that is a reportable no-content condition for the
// widget, not an error.
func LatestPost(posts []Post, admit AdmitFunc) (Post, bool) {
	for _, p := range posts {
		if admit(p) {
			return p, true
		}
	}
	return Post{}, false
}

// GalleryEntry is one gallery cell: a post expanded per image.
type GalleryEntry struct {
	Post  Post  `json:"post"`
	Image Image `json:"image"`
}

// GalleryEntries keeps posts that have at least one image and at least one
// allow-listed hashtag, expanded into one entry per image.
func GalleryEntries(posts []Post) []GalleryEntry {
	var entries []GalleryEntry
	for _, p := range posts {
		if len(p.Images) == 0 || !hasGalleryTag(p.Hashtags) {
			continue
		}
		for _, img := range p.Images {
			entries = append(entries, GalleryEntry{Post: p, Image: img})
		}
	}
	return entries
}

func hasGalleryTag(tags []string) bool {
	for _, tag := range tags {
		if _, ok := galleryTags[strings.ToLower(tag)]; ok {
			return true
		}
	}
	return false
}

// Pager tracks a monotonically growing visible count over the aggregated
// list, in fixed increments, for infinite scroll.
type Pager struct {
	step    int
	visible int
}

// NewPager creates a Pager showing one step initially.
func NewPager(step int) *Pager {
	if step <= 0 {
		step = 10
	}
	return &Pager{step: step, visible: step}
}

// Advance grows the visible count by one step.
func (p *Pager) Advance() {
	p.visible += p.step
}

// Visible returns the current visible count.
func (p *Pager) Visible() int {
	return p.visible
}

// Window slices posts down to the visible count.
func (p *Pager) Window(posts []Post) []Post {
	if p.visible >= len(posts) {
		return posts
	}
	return posts[:p.visible]
}

// HasMore reports whether the visible count has not yet covered total.
func (p *Pager) HasMore(total int) bool {
	return p.visible < total
}
