package render

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aliceResult() *domain.ProfileResult {
	return &domain.ProfileResult{
		User:      &domain.User{ID: 1, Name: "alice", DisplayName: "Alice"},
		Friends:   &domain.Count{Count: 3},
		Followers: &domain.Count{Count: 5},
		Following: &domain.Count{Count: 2},
	}
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func stat(doc *goquery.Document, class string) string {
	sel := doc.Find("." + class)
	return sel.Find("span").Text() + " " + sel.Find("strong").Text()
}

func TestPresentResultsWithoutCollections(t *testing.T) {
	p, err := Present(domain.ShowingResults{Result: aliceResult()})
	require.NoError(t, err)

	assert.Equal(t, domain.StateResults, p.State)
	assert.False(t, p.ResultsHidden)
	assert.True(t, p.ErrorHidden)

	doc := parse(t, string(p.ResultsHTML))
	assert.Equal(t, "Friends 3", stat(doc, "stat-friends"))
	assert.Equal(t, "Followers 5", stat(doc, "stat-followers"))
	assert.Equal(t, "Following 2", stat(doc, "stat-following"))
	assert.Equal(t, "Groups (0)", doc.Find(".groups h3").Text())
	assert.Equal(t, "Badges (0)", doc.Find(".badges h3").Text())
	assert.Equal(t, "No description.", doc.Find(".description").Text())
	assert.Equal(t, 0, doc.Find("li").Length())
}

func TestPresentProfileHeader(t *testing.T) {
	result := aliceResult()
	avatar := "https://tr.rbxcdn.com/avatar.png"
	result.Avatar = &avatar
	result.User.Description = "builder"

	p, err := Present(domain.ShowingResults{Result: result})
	require.NoError(t, err)
	doc := parse(t, string(p.ResultsHTML))

	src, ok := doc.Find("img.avatar").Attr("src")
	require.True(t, ok)
	assert.Equal(t, avatar, src)
	assert.Equal(t, "Alice", doc.Find("h2").Text())
	assert.Equal(t, "@alice", doc.Find(".profile p").First().Text())
	assert.Equal(t, "User ID: 1", doc.Find(".profile p.muted").Text())
	assert.Equal(t, "builder", doc.Find(".description").Text())
}

func TestPresentMissingAvatarHasEmptySrc(t *testing.T) {
	p, err := Present(domain.ShowingResults{Result: aliceResult()})
	require.NoError(t, err)

	src, ok := parse(t, string(p.ResultsHTML)).Find("img.avatar").Attr("src")
	require.True(t, ok)
	assert.Empty(t, src)
}

func TestPresentCapsListsButCountsAll(t *testing.T) {
	result := aliceResult()
	result.Groups = &domain.Collection[domain.GroupMembership]{}
	for i := 0; i < 15; i++ {
		result.Groups.Data = append(result.Groups.Data, domain.GroupMembership{
			Group: domain.Group{ID: int64(i), Name: fmt.Sprintf("Group %d", i)},
			Role:  domain.Role{Name: "Member"},
		})
	}
	result.Badges = &domain.Collection[domain.Badge]{}
	for i := 0; i < 3; i++ {
		result.Badges.Data = append(result.Badges.Data, domain.Badge{
			Name:    fmt.Sprintf("Badge %d", i),
			Created: "2021-05-01T10:00:00Z",
		})
	}

	p, err := Present(domain.ShowingResults{Result: result})
	require.NoError(t, err)
	doc := parse(t, string(p.ResultsHTML))

	assert.Equal(t, "Groups (15)", doc.Find(".groups h3").Text())
	assert.Equal(t, 12, doc.Find(".groups li").Length())
	assert.Equal(t, "Group 0", doc.Find(".groups li strong").First().Text())
	assert.Equal(t, "Group 11", doc.Find(".groups li strong").Last().Text())
	assert.Equal(t, "Member", doc.Find(".groups li span").First().Text())

	assert.Equal(t, "Badges (3)", doc.Find(".badges h3").Text())
	assert.Equal(t, 3, doc.Find(".badges li").Length())
	assert.Equal(t, "2021-05-01T10:00:00Z", doc.Find(".badges li span").First().Text())
}

func TestPresentEscapesUserContent(t *testing.T) {
	result := aliceResult()
	result.User.DisplayName = `<script>alert(1)</script>`

	p, err := Present(domain.ShowingResults{Result: result})
	require.NoError(t, err)

	assert.NotContains(t, string(p.ResultsHTML), "<script>")
	assert.Equal(t, `<script>alert(1)</script>`, parse(t, string(p.ResultsHTML)).Find("h2").Text())
}

func TestPresentError(t *testing.T) {
	p, err := Present(domain.ShowingError{Message: "Network error. Try again."})
	require.NoError(t, err)

	assert.True(t, p.ResultsHidden)
	assert.False(t, p.ErrorHidden)
	assert.Equal(t, "Network error. Try again.", p.ErrorText)
	assert.Empty(t, p.ResultsHTML)
}

func TestPresentIdleAndLoadingHideBothRegions(t *testing.T) {
	for _, state := range []domain.DisplayState{nil, domain.Idle{}, domain.Loading{Query: "alice"}} {
		p, err := Present(state)
		require.NoError(t, err)
		assert.True(t, p.ResultsHidden)
		assert.True(t, p.ErrorHidden)
	}
}

func TestPresentRejectsIncompleteResult(t *testing.T) {
	_, err := Present(domain.ShowingResults{Result: &domain.ProfileResult{User: &domain.User{}}})
	assert.Error(t, err)
}

func TestPageMarksHiddenRegions(t *testing.T) {
	p, err := Present(domain.ShowingError{Message: "user not found"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Page(&buf, "ghost", p))
	doc := parse(t, buf.String())

	assert.Equal(t, "user not found", doc.Find("#error").Text())
	assert.False(t, doc.Find("#error").HasClass("hidden"))
	assert.True(t, doc.Find("#results").HasClass("hidden"))
	value, _ := doc.Find("#query").Attr("value")
	assert.Equal(t, "ghost", value)
}

func TestTextRendering(t *testing.T) {
	result := aliceResult()
	result.Groups = &domain.Collection[domain.GroupMembership]{Data: []domain.GroupMembership{
		{Group: domain.Group{Name: "Builders"}, Role: domain.Role{Name: "Owner"}},
	}}

	text := Text(domain.ShowingResults{Result: result})
	assert.Contains(t, text, "@alice")
	assert.Contains(t, text, "User ID: 1")
	assert.Contains(t, text, "No description.")
	assert.Contains(t, text, "Friends 3 | Followers 5 | Following 2")
	assert.Contains(t, text, "Groups (1)\n  - Builders (Owner)")
	assert.Contains(t, text, "Badges (0)")

	assert.Equal(t, "user not found", Text(domain.ShowingError{Message: "user not found"}))
	assert.Equal(t, `Looking up "alice"...`, Text(domain.Loading{Query: "alice"}))
	assert.Empty(t, Text(domain.Idle{}))
}
