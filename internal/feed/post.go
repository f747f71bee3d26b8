package feed

import (
	"encoding/json"
	"time"
)

// FacetKind classifies a rich-text annotation.
type FacetKind int

const (
	FacetLink FacetKind = iota
	FacetMention
	FacetTag
	FacetOther
)

// Facet is a typed annotation over a byte range of a post's text. Positions
// are byte offsets into the UTF-8 encoding of the text, not rune offsets;
// the text may contain multi-byte characters. Facets are non-overlapping but
// arrive unsorted; consumers sort by ByteStart before slicing.
type Facet struct {
	ByteStart int       `json:"byteStart"`
	ByteEnd   int       `json:"byteEnd"`
	Kind      FacetKind `json:"kind"`

	// Payload is the feature value: the target URI for links, the DID for
	// mentions, the bare tag for hashtags.
	Payload string `json:"payload,omitempty"`
}

// AspectRatio is a width/height hint for an attached image.
type AspectRatio struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Image is one attached image with its CDN variants.
type Image struct {
	ThumbURL    string       `json:"thumbUrl"`
	FullURL     string       `json:"fullUrl"`
	AltText     string       `json:"altText"`
	AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
}

// Actor is the minimal author reference carried on a post.
type Actor struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Post is the unifying internal representation of a feed item. Posts are
// immutable value objects created only by DecodePost; the aggregate list is
// replaced wholesale on each fetch cycle, never patched.
type Post struct {
	// ID is the source AT-URI, the natural key.
	ID string `json:"id"`

	// URL is the human-facing permalink, derived once at decode time.
	URL string `json:"url"`

	Text        string    `json:"text"`
	Facets      []Facet   `json:"facets,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Author      Actor     `json:"author"`
	Images      []Image   `json:"images,omitempty"`

	// Hashtags is the derived lowercase tag set, deduplicated and sorted.
	Hashtags []string `json:"hashtags,omitempty"`

	// RawEmbed preserves whatever rich-embed payload the source supplied.
	// Embed is the same payload decoded into the tagged union; it is not
	// serialized and is rebuilt from RawEmbed on unmarshal.
	RawEmbed json.RawMessage `json:"embed,omitempty"`
	Embed    Embed           `json:"-"`

	IsReply    bool   `json:"isReply"`
	IsRepost   bool   `json:"isRepost"`
	RepostedBy *Actor `json:"repostedBy,omitempty"`

	LikeCount   int `json:"likeCount"`
	RepostCount int `json:"repostCount"`
	ReplyCount  int `json:"replyCount"`

	// PrimaryImage is set by the photo pipeline: the first image, singled
	// out for gallery display. Identity semantics are unchanged.
	PrimaryImage *Image `json:"primaryImage,omitempty"`
}

// UnmarshalJSON restores the decoded embed union after a cache round-trip so
// downstream code never has to re-probe the raw payload.
func (p *Post) UnmarshalJSON(data []byte) error {
	type alias Post
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Post(a)
	p.Embed = DecodeEmbed(p.RawEmbed)
	return nil
}
