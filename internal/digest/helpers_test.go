package digest

import (
	"time"

	"github.com/ppiankov/tgcreative/internal/channel"
)

var postTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func makePost(offset int, text string, views, reactions int, media []byte) channel.Post {
	p := channel.Post{
		Date:      postTime.Add(time.Duration(offset) * time.Hour),
		Text:      text,
		Views:     views,
		Reactions: reactions,
	}
	if media != nil {
		p.Media = media
		p.MediaType = "image/jpeg"
	}
	return p
}

func makeDigest(posts ...channel.Post) *channel.Digest {
	return &channel.Digest{
		Handle:   "gonews",
		Link:     "https://t.me/gonews",
		Metadata: channel.Metadata{Title: "Go News", Description: "Weekly Go links"},
		Posts:    posts,
	}
}
