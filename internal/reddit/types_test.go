package reddit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentsJSON = `[
  {"kind": "Listing", "data": {"children": [
    {"kind": "t3", "data": {
      "id": "abc", "name": "t3_abc", "title": "A post",
      "author": "op", "subreddit": "golang", "selftext": "body text",
      "score": 10, "num_comments": 2, "created_utc": 1700000000, "is_self": true
    }}
  ]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {
      "id": "c1", "name": "t1_c1", "author": "op", "body": "top comment",
      "score": 5, "created_utc": 1700000100, "is_submitter": true,
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "t1", "data": {
          "id": "c2", "name": "t1_c2", "author": "other", "body": "a reply",
          "score": 2, "created_utc": 1700000200, "replies": ""
        }},
        {"kind": "more", "data": {"count": 12, "children": ["c3", "c4"]}}
      ]}}
    }},
    {"kind": "more", "data": {"count": 0, "children": []}}
  ]}}
]`

func TestParseComments(t *testing.T) {
	post, comments, err := parseComments([]byte(commentsJSON))
	require.NoError(t, err)

	assert.Equal(t, "A post", post.Title)
	assert.True(t, post.IsSelf)
	assert.Equal(t, "body text", post.Selftext)

	// Empty "more" stubs are dropped, so only the top comment remains.
	require.Len(t, comments, 1)
	top := comments[0]
	assert.Equal(t, "top comment", top.Body)
	assert.True(t, top.IsSubmitter)
	assert.Equal(t, 0, top.Depth)

	require.Len(t, top.Replies, 2)
	assert.Equal(t, "a reply", top.Replies[0].Body)
	assert.Equal(t, 1, top.Replies[0].Depth)

	more := top.Replies[1]
	assert.Equal(t, 12, more.MoreCount)
	assert.Empty(t, more.Author)
}

func TestParseCommentsBadShape(t *testing.T) {
	_, _, err := parseComments([]byte(`{"kind":"Listing","data":{}}`))
	assert.Error(t, err)

	_, _, err = parseComments([]byte(`[{"kind":"Listing","data":{"children":[]}}]`))
	assert.Error(t, err)
}

func TestParseListingRejectsWrongKind(t *testing.T) {
	_, err := parseListing([]byte(`{"kind":"t3","data":{}}`))
	assert.ErrorContains(t, err, "expected Listing")
}

func TestParseListingSkipsNonLinks(t *testing.T) {
	raw := `{"kind":"Listing","data":{"after":null,"children":[
	  {"kind":"t5","data":{"display_name":"golang"}},
	  {"kind":"t3","data":{"id":"x","name":"t3_x","title":"only link"}}
	]}}`

	listing, err := parseListing([]byte(raw))
	require.NoError(t, err)
	require.Len(t, listing.Links, 1)
	assert.Equal(t, "only link", listing.Links[0].Title)
}

func TestParseSubreddits(t *testing.T) {
	raw := `{"kind":"Listing","data":{"children":[
	  {"kind":"t5","data":{"display_name":"golang","title":"The Go Programming Language","url":"/r/golang/","subscribers":250000}},
	  {"kind":"t5","data":{"display_name":"programming","title":"Programming","url":"/r/programming/","subscribers":5000000}}
	]}}`

	subs, err := parseSubreddits([]byte(raw))
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "golang", subs[0].DisplayName)
	assert.Equal(t, 250000, subs[0].Subscribers)
}
