package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/j4ckxyz/linkhub/internal/bluesky"
)

const reasonRepostSuffix = "#reasonRepost"

// DecodePost transforms one wire feed item into a Post. It returns false if
// the item lacks a minimal valid shape (no post body); a missing text field
// is tolerated and treated as empty. The function is pure: no calls, no
// mutation of the input.
func DecodePost(item bluesky.FeedItem) (Post, bool) {
	if item.Post == nil || item.Post.Record == nil {
		return Post{}, false
	}

	view := item.Post
	record := view.Record

	facets := decodeFacets(record.Facets)
	embed := DecodeEmbed(view.Embed)

	post := Post{
		ID:          view.URI,
		URL:         permalink(view.URI, view.Author.Handle),
		Text:        record.Text,
		Facets:      facets,
		PublishedAt: parseTime(record.CreatedAt),
		Author: Actor{
			Handle:      view.Author.Handle,
			DisplayName: view.Author.DisplayName,
			AvatarURL:   view.Author.Avatar,
		},
		Images:      embedImages(embed, record.Embed),
		Hashtags:    ExtractHashtags(record.Text, facets),
		RawEmbed:    view.Embed,
		Embed:       embed,
		IsReply:     record.Reply != nil,
		IsRepost:    item.Reason != nil && strings.HasSuffix(item.Reason.Type, reasonRepostSuffix),
		LikeCount:   view.LikeCount,
		RepostCount: view.RepostCount,
		ReplyCount:  view.ReplyCount,
	}

	if post.IsRepost && item.Reason.By != nil {
		post.RepostedBy = &Actor{
			Handle:      item.Reason.By.Handle,
			DisplayName: item.Reason.By.DisplayName,
			AvatarURL:   item.Reason.By.Avatar,
		}
	}

	return post, true
}

// permalink composes the canonical bsky.app URL from the record key (the
// last path segment of the AT-URI) and the author handle.
func permalink(uri, handle string) string {
	parts := strings.Split(uri, "/")
	rkey := parts[len(parts)-1]
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, rkey)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeFacets(wire []bluesky.Facet) []Facet {
	if len(wire) == 0 {
		return nil
	}
	facets := make([]Facet, 0, len(wire))
	for _, f := range wire {
		facet := Facet{
			ByteStart: f.Index.ByteStart,
			ByteEnd:   f.Index.ByteEnd,
			Kind:      FacetOther,
		}
		if len(f.Features) > 0 {
			feature := f.Features[0]
			switch {
			case strings.HasSuffix(feature.Type, "#link"):
				facet.Kind = FacetLink
				facet.Payload = feature.URI
			case strings.HasSuffix(feature.Type, "#mention"):
				facet.Kind = FacetMention
				facet.Payload = feature.DID
			case strings.HasSuffix(feature.Type, "#tag"):
				facet.Kind = FacetTag
				facet.Payload = feature.Tag
			}
		}
		facets = append(facets, facet)
	}
	return facets
}

// embedImages extracts the attached images from a decoded embed. Two shapes
// carry images: the direct gallery and the quote+media composite, where the
// list lives one level deeper. Any other shape yields no images; the raw
// embed is preserved on the Post regardless.
//
// Aspect ratios come from the rendered view when present; otherwise the same
// index of the record's own embed declaration is consulted (two independent
// sources can carry the value; the view wins).
func embedImages(embed Embed, declared json.RawMessage) []Image {
	var images []Image
	switch e := embed.(type) {
	case ImagesEmbed:
		images = e.Images
	case QuoteWithMediaEmbed:
		if media, ok := e.Media.(ImagesEmbed); ok {
			images = media.Images
		}
	default:
		return nil
	}

	declaredRatios := declaredAspectRatios(declared)
	for i := range images {
		if images[i].AspectRatio == nil && i < len(declaredRatios) {
			images[i].AspectRatio = declaredRatios[i]
		}
	}
	return images
}

// declaredAspectRatios pulls per-image aspect ratios out of the record's own
// embed declaration (app.bsky.embed.images or the recordWithMedia wrapper).
func declaredAspectRatios(declared json.RawMessage) []*AspectRatio {
	if len(declared) == 0 {
		return nil
	}

	var head struct {
		Type  string `json:"$type"`
		Media json.RawMessage `json:"media,omitempty"`
	}
	if err := json.Unmarshal(declared, &head); err != nil {
		return nil
	}
	if strings.HasPrefix(head.Type, "app.bsky.embed.recordWithMedia") {
		return declaredAspectRatios(head.Media)
	}
	if !strings.HasPrefix(head.Type, "app.bsky.embed.images") {
		return nil
	}

	var v struct {
		Images []struct {
			AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
		} `json:"images"`
	}
	if err := json.Unmarshal(declared, &v); err != nil {
		return nil
	}
	ratios := make([]*AspectRatio, len(v.Images))
	for i, img := range v.Images {
		ratios[i] = img.AspectRatio
	}
	return ratios
}
