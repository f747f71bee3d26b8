package feed

import "encoding/json"

// Embed is the closed union of known rich-embed kinds. The wire payload is
// decoded into it exactly once, at the boundary; downstream code switches on
// the concrete type instead of probing optional JSON paths.
type Embed interface {
	embedKind() string
}

// ImagesEmbed is a direct image gallery attachment.
type ImagesEmbed struct {
	Images []Image
}

// ExternalEmbed is an external-link card.
type ExternalEmbed struct {
	URI         string
	Title       string
	Description string
	ThumbURL    string
}

// QuoteEmbed references another post by URI. The reference is non-owning and
// may dangle: a deleted or blocked quoted post degrades to a placeholder
// with NotFound or Blocked set, never an error.
type QuoteEmbed struct {
	URI      string
	Author   *Actor
	Text     string
	NotFound bool
	Blocked  bool
}

// VideoEmbed is an attached video with an HLS playlist.
type VideoEmbed struct {
	PlaylistURL  string
	ThumbnailURL string
	AltText      string
}

// QuoteWithMediaEmbed is a quote combined with media (the composite shape;
// the image list lives one level deeper than in a plain images embed).
type QuoteWithMediaEmbed struct {
	Media Embed
	Quote *QuoteEmbed
}

// UnknownEmbed preserves an unrecognized payload untouched.
type UnknownEmbed struct {
	Raw json.RawMessage
}

func (ImagesEmbed) embedKind() string         { return "images" }
func (ExternalEmbed) embedKind() string       { return "external" }
func (QuoteEmbed) embedKind() string          { return "quote" }
func (VideoEmbed) embedKind() string          { return "video" }
func (QuoteWithMediaEmbed) embedKind() string { return "quoteWithMedia" }
func (UnknownEmbed) embedKind() string        { return "unknown" }

// Wire discriminants for hydrated embed views.
const (
	typeImagesView          = "app.bsky.embed.images#view"
	typeExternalView        = "app.bsky.embed.external#view"
	typeRecordView          = "app.bsky.embed.record#view"
	typeVideoView           = "app.bsky.embed.video#view"
	typeRecordWithMediaView = "app.bsky.embed.recordWithMedia#view"

	typeViewRecord   = "app.bsky.embed.record#viewRecord"
	typeViewNotFound = "app.bsky.embed.record#viewNotFound"
	typeViewBlocked  = "app.bsky.embed.record#viewBlocked"
)

type wireImageView struct {
	Thumb       string       `json:"thumb"`
	Fullsize    string       `json:"fullsize"`
	Alt         string       `json:"alt"`
	AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
}

type wireAuthor struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// DecodeEmbed parses a raw embed view into the union. A nil or empty payload
// yields nil; an unrecognized discriminant yields UnknownEmbed.
func DecodeEmbed(raw json.RawMessage) Embed {
	if len(raw) == 0 {
		return nil
	}

	var head struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return UnknownEmbed{Raw: raw}
	}

	switch head.Type {
	case typeImagesView:
		var v struct {
			Images []wireImageView `json:"images"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return UnknownEmbed{Raw: raw}
		}
		return ImagesEmbed{Images: toImages(v.Images)}

	case typeExternalView:
		var v struct {
			External struct {
				URI         string `json:"uri"`
				Title       string `json:"title"`
				Description string `json:"description"`
				Thumb       string `json:"thumb"`
			} `json:"external"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return UnknownEmbed{Raw: raw}
		}
		return ExternalEmbed{
			URI:         v.External.URI,
			Title:       v.External.Title,
			Description: v.External.Description,
			ThumbURL:    v.External.Thumb,
		}

	case typeRecordView:
		var v struct {
			Record json.RawMessage `json:"record"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return UnknownEmbed{Raw: raw}
		}
		if q := decodeQuote(v.Record); q != nil {
			return *q
		}
		return UnknownEmbed{Raw: raw}

	case typeVideoView:
		var v struct {
			Playlist  string `json:"playlist"`
			Thumbnail string `json:"thumbnail"`
			Alt       string `json:"alt"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return UnknownEmbed{Raw: raw}
		}
		return VideoEmbed{PlaylistURL: v.Playlist, ThumbnailURL: v.Thumbnail, AltText: v.Alt}

	case typeRecordWithMediaView:
		var v struct {
			Media  json.RawMessage `json:"media"`
			Record struct {
				Record json.RawMessage `json:"record"`
			} `json:"record"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return UnknownEmbed{Raw: raw}
		}
		return QuoteWithMediaEmbed{
			Media: DecodeEmbed(v.Media),
			Quote: decodeQuote(v.Record.Record),
		}

	default:
		return UnknownEmbed{Raw: raw}
	}
}

// decodeQuote parses the record side of a quote embed. Dangling references
// (not found, blocked) produce a placeholder rather than nil so the caller
// always has something to render.
func decodeQuote(raw json.RawMessage) *QuoteEmbed {
	if len(raw) == 0 {
		return nil
	}

	var v struct {
		Type     string      `json:"$type"`
		URI      string      `json:"uri"`
		Author   *wireAuthor `json:"author,omitempty"`
		NotFound bool        `json:"notFound,omitempty"`
		Blocked  bool        `json:"blocked,omitempty"`
		Value    *struct {
			Text string `json:"text"`
		} `json:"value,omitempty"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	q := &QuoteEmbed{URI: v.URI}
	switch v.Type {
	case typeViewNotFound:
		q.NotFound = true
	case typeViewBlocked:
		q.Blocked = true
	default:
		if v.Author != nil {
			q.Author = &Actor{
				Handle:      v.Author.Handle,
				DisplayName: v.Author.DisplayName,
				AvatarURL:   v.Author.Avatar,
			}
		}
		if v.Value != nil {
			q.Text = v.Value.Text
		}
	}
	return q
}

func toImages(views []wireImageView) []Image {
	if len(views) == 0 {
		return nil
	}
	images := make([]Image, len(views))
	for i, v := range views {
		images[i] = Image{
			ThumbURL:    v.Thumb,
			FullURL:     v.Fullsize,
			AltText:     v.Alt,
			AspectRatio: v.AspectRatio,
		}
	}
	return images
}
