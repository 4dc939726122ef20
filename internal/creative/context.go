// Package creative turns a channel digest into an advertising post.
package creative

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/privacy"
)

const (
	contextPosts    = 10
	contextPostLen  = 500
	truncatedSuffix = "…"
)

// EngagementScore weighs reactions twice as heavily as views.
func EngagementScore(p channel.Post) int {
	return p.Views + 2*p.Reactions
}

// RankByEngagement returns a copy of posts ordered by descending score.
// Ties keep their original (newest first) order.
func RankByEngagement(posts []channel.Post) []channel.Post {
	ranked := make([]channel.Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return EngagementScore(ranked[i]) > EngagementScore(ranked[j])
	})
	return ranked
}

// BestMediaPost returns the highest-engagement post carrying media, or nil.
func BestMediaPost(d *channel.Digest) *channel.Post {
	if d == nil {
		return nil
	}
	for _, p := range RankByEngagement(d.Posts) {
		if p.HasMedia() {
			return &p
		}
	}
	return nil
}

// BuildContext renders the digest as model input: channel facts followed by
// the ten most engaging posts.
func BuildContext(d *channel.Digest, r *privacy.Redactor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel title: %s\n", d.Metadata.Title)
	fmt.Fprintf(&b, "Description: %s\n", d.Metadata.Description)
	fmt.Fprintf(&b, "Link: %s\n", d.Link)

	if len(d.Posts) == 0 {
		return b.String()
	}

	b.WriteString("\nPosts with the highest reach (views and reactions); build the creative on them:\n")
	ranked := RankByEngagement(d.Posts)
	if len(ranked) > contextPosts {
		ranked = ranked[:contextPosts]
	}
	for _, p := range ranked {
		b.WriteString("- ")
		if meta := engagementMeta(p); meta != "" {
			b.WriteString("[" + meta + "] ")
		}
		b.WriteString(truncate(r.Apply(p.Text), contextPostLen))
		b.WriteByte('\n')
	}
	return b.String()
}

func engagementMeta(p channel.Post) string {
	var parts []string
	if p.Views > 0 {
		parts = append(parts, fmt.Sprintf("views: %d", p.Views))
	}
	if p.Reactions > 0 {
		parts = append(parts, fmt.Sprintf("reactions: %d", p.Reactions))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + truncatedSuffix
}
