package reddit

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// thing is Reddit's generic kind/data envelope. Every API object arrives
// wrapped in one: t1 comment, t3 link, t5 subreddit, Listing, more.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Listing is one page of links plus the cursors for pagination.
type Listing struct {
	After  string
	Before string
	Links  []*Link
}

// Link is a submitted post.
type Link struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"` // fullname, e.g. t3_abc123
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Subreddit     string  `json:"subreddit"`
	Permalink     string  `json:"permalink"`
	URL           string  `json:"url"`
	Domain        string  `json:"domain"`
	Selftext      string  `json:"selftext"`
	Score         int     `json:"score"`
	UpvoteRatio   float64 `json:"upvote_ratio"`
	NumComments   int     `json:"num_comments"`
	CreatedUTC    float64 `json:"created_utc"`
	Over18        bool    `json:"over_18"`
	Stickied      bool    `json:"stickied"`
	IsSelf        bool    `json:"is_self"`
	Likes         *bool   `json:"likes"` // nil = no vote, true = up, false = down
	LinkFlairText string  `json:"link_flair_text"`
	Thumbnail     string  `json:"thumbnail"`

	// Media is the resolved embedded media, nil for plain text/link posts.
	Media *Media `json:"-"`
}

// Comment is one node of a post's comment tree. A "more" stub (collapsed
// children Reddit did not inline) is represented with MoreCount > 0 and an
// empty Author.
type Comment struct {
	ID            string
	Name          string
	Author        string
	Body          string
	Score         int
	ScoreHidden   bool
	CreatedUTC    float64
	Depth         int
	Stickied      bool
	IsSubmitter   bool
	Distinguished string
	Likes         *bool
	Replies       []*Comment
	MoreCount     int
}

// Account is the identity returned by /api/v1/me.
type Account struct {
	Name         string  `json:"name"`
	LinkKarma    int     `json:"link_karma"`
	CommentKarma int     `json:"comment_karma"`
	IconImg      string  `json:"icon_img"`
	CreatedUTC   float64 `json:"created_utc"`
}

// Subreddit is a community, as returned by /subreddits/mine/subscriber.
type Subreddit struct {
	DisplayName   string `json:"display_name"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Subscribers   int    `json:"subscribers"`
	CommunityIcon string `json:"community_icon"`
	Over18        bool   `json:"over18"`
}

func parseListing(raw []byte) (*Listing, error) {
	var t thing
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decoding listing envelope: %w", err)
	}
	if t.Kind != "Listing" {
		return nil, fmt.Errorf("expected Listing, got kind %q", t.Kind)
	}

	var data struct {
		After    string  `json:"after"`
		Before   string  `json:"before"`
		Children []thing `json:"children"`
	}
	if err := json.Unmarshal(t.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding listing data: %w", err)
	}

	listing := &Listing{After: data.After, Before: data.Before}
	for _, child := range data.Children {
		if child.Kind != "t3" {
			continue
		}
		link, err := parseLink(child.Data)
		if err != nil {
			return nil, err
		}
		listing.Links = append(listing.Links, link)
	}
	return listing, nil
}

func parseLink(raw []byte) (*Link, error) {
	var link Link
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("decoding link: %w", err)
	}
	link.Media = ResolveMedia(raw)
	return &link, nil
}

// parseComments decodes the [post listing, comment listing] pair returned
// by the comments endpoint.
func parseComments(raw []byte) (*Link, []*Comment, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, nil, fmt.Errorf("decoding comments response: %w", err)
	}
	if len(pair) < 2 {
		return nil, nil, fmt.Errorf("comments response has %d elements, want 2", len(pair))
	}

	postListing, err := parseListing(pair[0])
	if err != nil {
		return nil, nil, err
	}
	if len(postListing.Links) == 0 {
		return nil, nil, fmt.Errorf("comments response has no post")
	}

	comments, err := parseCommentListing(pair[1], 0)
	if err != nil {
		return nil, nil, err
	}
	return postListing.Links[0], comments, nil
}

func parseCommentListing(raw []byte, depth int) ([]*Comment, error) {
	// Reddit sends the empty string instead of an empty listing for leaf
	// comments.
	if len(raw) == 0 || string(raw) == `""` {
		return nil, nil
	}

	var t thing
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decoding comment listing: %w", err)
	}
	var data struct {
		Children []thing `json:"children"`
	}
	if err := json.Unmarshal(t.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding comment listing data: %w", err)
	}

	var out []*Comment
	for _, child := range data.Children {
		c, err := parseCommentThing(child, depth)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func parseCommentThing(t thing, depth int) (*Comment, error) {
	switch t.Kind {
	case "more":
		var more struct {
			Count    int      `json:"count"`
			Children []string `json:"children"`
		}
		if err := json.Unmarshal(t.Data, &more); err != nil {
			return nil, fmt.Errorf("decoding more stub: %w", err)
		}
		count := more.Count
		if count == 0 {
			count = len(more.Children)
		}
		if count == 0 {
			return nil, nil
		}
		return &Comment{Depth: depth, MoreCount: count}, nil

	case "t1":
		var data struct {
			ID            string          `json:"id"`
			Name          string          `json:"name"`
			Author        string          `json:"author"`
			Body          string          `json:"body"`
			Score         int             `json:"score"`
			ScoreHidden   bool            `json:"score_hidden"`
			CreatedUTC    float64         `json:"created_utc"`
			Stickied      bool            `json:"stickied"`
			IsSubmitter   bool            `json:"is_submitter"`
			Distinguished string          `json:"distinguished"`
			Likes         *bool           `json:"likes"`
			Replies       json.RawMessage `json:"replies"`
		}
		if err := json.Unmarshal(t.Data, &data); err != nil {
			return nil, fmt.Errorf("decoding comment: %w", err)
		}

		replies, err := parseCommentListing(data.Replies, depth+1)
		if err != nil {
			return nil, err
		}

		return &Comment{
			ID:            data.ID,
			Name:          data.Name,
			Author:        data.Author,
			Body:          data.Body,
			Score:         data.Score,
			ScoreHidden:   data.ScoreHidden,
			CreatedUTC:    data.CreatedUTC,
			Depth:         depth,
			Stickied:      data.Stickied,
			IsSubmitter:   data.IsSubmitter,
			Distinguished: data.Distinguished,
			Likes:         data.Likes,
			Replies:       replies,
		}, nil

	default:
		return nil, nil
	}
}

func parseSubreddits(raw []byte) ([]*Subreddit, error) {
	var t thing
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decoding subreddit listing: %w", err)
	}
	var data struct {
		Children []thing `json:"children"`
	}
	if err := json.Unmarshal(t.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding subreddit listing data: %w", err)
	}

	var out []*Subreddit
	for _, child := range data.Children {
		if child.Kind != "t5" {
			continue
		}
		var sub Subreddit
		if err := json.Unmarshal(child.Data, &sub); err != nil {
			return nil, fmt.Errorf("decoding subreddit: %w", err)
		}
		out = append(out, &sub)
	}
	return out, nil
}
