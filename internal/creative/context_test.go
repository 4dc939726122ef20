package creative

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/privacy"
)

func post(text string, views, reactions int) channel.Post {
	return channel.Post{Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Text: text, Views: views, Reactions: reactions}
}

func testDigest(posts ...channel.Post) *channel.Digest {
	return &channel.Digest{
		Handle:   "examplechan",
		Link:     "https://t.me/examplechan",
		Metadata: channel.Metadata{Title: "Example Channel", Description: "About examples"},
		Posts:    posts,
	}
}

func TestEngagementScore(t *testing.T) {
	if got := EngagementScore(post("x", 100, 7)); got != 114 {
		t.Errorf("score = %d, want 114", got)
	}
	if got := EngagementScore(post("x", 0, 0)); got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
}

func TestRankByEngagement_StableAndNonMutating(t *testing.T) {
	posts := []channel.Post{post("a", 10, 0), post("b", 50, 0), post("c", 10, 0), post("d", 0, 30)}
	ranked := RankByEngagement(posts)

	want := []string{"d", "b", "a", "c"}
	for i, w := range want {
		if ranked[i].Text != w {
			t.Errorf("ranked[%d] = %q, want %q", i, ranked[i].Text, w)
		}
	}
	if posts[0].Text != "a" || posts[1].Text != "b" {
		t.Error("input slice was reordered")
	}
}

func TestBestMediaPost(t *testing.T) {
	low := post("low", 10, 0)
	low.Media = []byte{1}
	high := post("high", 500, 0)
	high.Media = []byte{2}
	top := post("text only", 9000, 0)

	got := BestMediaPost(testDigest(low, top, high))
	if got == nil || got.Text != "high" {
		t.Fatalf("best = %+v, want high", got)
	}
	if BestMediaPost(testDigest(top)) != nil {
		t.Error("expected nil without media posts")
	}
	if BestMediaPost(nil) != nil {
		t.Error("expected nil for nil digest")
	}
}

func TestBuildContext_MetadataOnly(t *testing.T) {
	got := BuildContext(testDigest(), nil)
	want := "Channel title: Example Channel\nDescription: About examples\nLink: https://t.me/examplechan\n"
	if got != want {
		t.Errorf("context = %q, want %q", got, want)
	}
}

func TestBuildContext_TopTenWithMeta(t *testing.T) {
	var posts []channel.Post
	for i := 0; i < 12; i++ {
		posts = append(posts, post(strings.Repeat("p", i+1), i*10, 0))
	}
	posts[0].Reactions = 1000

	got := BuildContext(testDigest(posts...), nil)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	var postLines []string
	for _, l := range lines {
		if strings.HasPrefix(l, "- ") {
			postLines = append(postLines, l)
		}
	}
	if len(postLines) != 10 {
		t.Fatalf("got %d post lines, want 10", len(postLines))
	}
	if postLines[0] != "- [reactions: 1000] p" {
		t.Errorf("first line = %q", postLines[0])
	}
	if postLines[1] != "- [views: 110] "+strings.Repeat("p", 12) {
		t.Errorf("second line = %q", postLines[1])
	}
	if strings.Contains(got, "[views: 10] pp\n") || strings.Contains(got, "[views: 20] ppp\n") {
		t.Error("lowest ranked posts must be cut")
	}
}

func TestBuildContext_TruncatesByRunes(t *testing.T) {
	long := strings.Repeat("ж", 600)
	got := BuildContext(testDigest(post(long, 0, 0)), nil)
	want := "- " + strings.Repeat("ж", 500) + "…\n"
	if !strings.HasSuffix(got, want) {
		t.Errorf("post line not truncated to 500 runes: %q", got[len(got)-40:])
	}
}

func TestBuildContext_Redacts(t *testing.T) {
	r, err := privacy.Compile([]string{`\+\d{11}`})
	if err != nil {
		t.Fatal(err)
	}
	got := BuildContext(testDigest(post("call +79001234567 now", 5, 0)), r)
	if strings.Contains(got, "+79001234567") {
		t.Error("phone number leaked into model context")
	}
	if !strings.Contains(got, "call [REDACTED] now") {
		t.Errorf("context = %q", got)
	}
}
