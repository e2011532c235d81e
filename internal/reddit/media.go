package reddit

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Media kinds.
const (
	MediaImage   = "image"
	MediaGallery = "gallery"
	MediaVideo   = "video"
	MediaEmbed   = "embed"
)

// Media is the embedded media resolved from a link's raw JSON.
type Media struct {
	Kind     string
	URL      string // image source or video fallback URL
	EmbedSrc string // iframe src for external embeds
	Width    int
	Height   int
	Gallery  []string // image URLs for gallery posts, in order
}

// ResolveMedia extracts embedded media from a link's raw JSON. The shapes
// involved (preview trees, gallery metadata, hosted video, oembed blobs)
// vary too much across post types for static structs, so fields are picked
// out with gjson. Returns nil when the post has no renderable media.
func ResolveMedia(raw []byte) *Media {
	if v := gjson.GetBytes(raw, "secure_media.reddit_video"); v.Exists() {
		return redditVideo(v)
	}
	if v := gjson.GetBytes(raw, "media.reddit_video"); v.Exists() {
		return redditVideo(v)
	}

	if gjson.GetBytes(raw, "is_gallery").Bool() {
		if m := gallery(raw); m != nil {
			return m
		}
	}

	if oembed := gjson.GetBytes(raw, "secure_media.oembed"); oembed.Exists() {
		if m := embedFrame(oembed); m != nil {
			return m
		}
	}

	if src := gjson.GetBytes(raw, "preview.images.0.source"); src.Exists() {
		u := html.UnescapeString(src.Get("url").String())
		if u != "" {
			return &Media{
				Kind:   MediaImage,
				URL:    u,
				Width:  int(src.Get("width").Int()),
				Height: int(src.Get("height").Int()),
			}
		}
	}

	// Direct image links have no preview when thumbnails are disabled.
	if gjson.GetBytes(raw, "post_hint").String() == "image" {
		if u := gjson.GetBytes(raw, "url").String(); u != "" {
			return &Media{Kind: MediaImage, URL: u}
		}
	}

	return nil
}

func redditVideo(v gjson.Result) *Media {
	u := v.Get("fallback_url").String()
	if u == "" {
		return nil
	}
	return &Media{
		Kind:   MediaVideo,
		URL:    u,
		Width:  int(v.Get("width").Int()),
		Height: int(v.Get("height").Int()),
	}
}

func gallery(raw []byte) *Media {
	meta := gjson.GetBytes(raw, "media_metadata")
	if !meta.Exists() {
		return nil
	}

	// gallery_data carries the display order; media_metadata is keyed by id.
	var urls []string
	gjson.GetBytes(raw, "gallery_data.items.#.media_id").ForEach(func(_, id gjson.Result) bool {
		item := meta.Get(id.String())
		u := item.Get("s.u").String()
		if u == "" {
			// Animated gallery items expose gif/mp4 instead of u.
			u = item.Get("s.gif").String()
		}
		if u != "" {
			urls = append(urls, html.UnescapeString(u))
		}
		return true
	})
	if len(urls) == 0 {
		return nil
	}
	return &Media{Kind: MediaGallery, URL: urls[0], Gallery: urls}
}

// embedFrame pulls the iframe src out of an oembed HTML snippet.
func embedFrame(oembed gjson.Result) *Media {
	frag := html.UnescapeString(oembed.Get("html").String())
	if frag == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(frag))
	if err != nil {
		return nil
	}
	src, ok := doc.Find("iframe").First().Attr("src")
	if !ok || src == "" {
		return nil
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	return &Media{
		Kind:     MediaEmbed,
		EmbedSrc: src,
		Width:    int(oembed.Get("width").Int()),
		Height:   int(oembed.Get("height").Int()),
	}
}
