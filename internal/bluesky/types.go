package bluesky

import "encoding/json"

// Author identifies the account behind a post.
type Author struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// ByteSlice is a half-open byte range [ByteStart, ByteEnd) over the UTF-8
// encoding of a post's text.
type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

// FacetFeature is one typed annotation attached to a byte range. The $type
// discriminant is an app.bsky.richtext.facet fragment (#link, #mention, #tag).
type FacetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri,omitempty"`
	DID  string `json:"did,omitempty"`
	Tag  string `json:"tag,omitempty"`
}

// Facet is a rich-text annotation over a byte range of the post text.
type Facet struct {
	Index    ByteSlice      `json:"index"`
	Features []FacetFeature `json:"features"`
}

// ReplyRef marks a post record as a reply. Only its presence matters here.
type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

// StrongRef is a reference to a specific version of a record.
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// PostRecord is the author-written content of an app.bsky.feed.post record.
type PostRecord struct {
	Type      string          `json:"$type"`
	Text      string          `json:"text"`
	CreatedAt string          `json:"createdAt"`
	Langs     []string        `json:"langs,omitempty"`
	Reply     *ReplyRef       `json:"reply,omitempty"`
	Facets    []Facet         `json:"facets,omitempty"`
	Embed     json.RawMessage `json:"embed,omitempty"`
}

// PostView is the hydrated view of a post as returned by the app view.
// Embed is kept raw; the feed package decodes it into a tagged union.
type PostView struct {
	URI         string          `json:"uri"`
	CID         string          `json:"cid"`
	Author      Author          `json:"author"`
	Record      *PostRecord     `json:"record"`
	Embed       json.RawMessage `json:"embed,omitempty"`
	ReplyCount  int             `json:"replyCount"`
	RepostCount int             `json:"repostCount"`
	LikeCount   int             `json:"likeCount"`
	IndexedAt   string          `json:"indexedAt"`
}

// Reason wraps a feed item that is a repost, naming the resharing actor.
type Reason struct {
	Type string  `json:"$type"`
	By   *Author `json:"by,omitempty"`
}

// FeedItem is one entry of a getAuthorFeed page.
type FeedItem struct {
	Post   *PostView `json:"post"`
	Reason *Reason   `json:"reason,omitempty"`
}

// FeedPage is one page of an author feed. Cursor is empty when the feed is
// exhausted.
type FeedPage struct {
	Items  []FeedItem `json:"feed"`
	Cursor string     `json:"cursor,omitempty"`
}

// Record is a raw repository record from com.atproto.repo.listRecords.
type Record struct {
	URI   string          `json:"uri"`
	CID   string          `json:"cid"`
	Value json.RawMessage `json:"value"`
}
