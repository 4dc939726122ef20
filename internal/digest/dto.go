package digest

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ppiankov/tgcreative/internal/channel"
)

// ChannelInfo is the wire form of a digest shared by the HTTP API and JSON output.
type ChannelInfo struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Username    string     `json:"username"`
	ChannelLink string     `json:"channelLink"`
	Posts       []PostInfo `json:"posts"`
}

// PostInfo is one post on the wire. Zero views and reactions are omitted.
type PostInfo struct {
	Date           string `json:"date"`
	Text           string `json:"text"`
	PhotoBase64    string `json:"photoBase64,omitempty"`
	MediaType      string `json:"mediaType,omitempty"`
	Views          int    `json:"views,omitempty"`
	ReactionsCount int    `json:"reactionsCount,omitempty"`
}

// FromDigest converts d. Media is base64-encoded only when includeMedia is set.
func FromDigest(d *channel.Digest, includeMedia bool) ChannelInfo {
	info := ChannelInfo{
		Title:       d.Metadata.Title,
		Description: d.Metadata.Description,
		Username:    d.Handle.String(),
		ChannelLink: d.Link,
		Posts:       make([]PostInfo, 0, len(d.Posts)),
	}
	for _, p := range d.Posts {
		pi := PostInfo{
			Date:           p.Date.UTC().Format(time.RFC3339),
			Text:           p.Text,
			Views:          p.Views,
			ReactionsCount: p.Reactions,
		}
		if p.HasMedia() {
			pi.MediaType = p.MediaType
			if includeMedia {
				pi.PhotoBase64 = base64.StdEncoding.EncodeToString(p.Media)
			}
		}
		info.Posts = append(info.Posts, pi)
	}
	return info
}

// ToDigest rebuilds a digest from its wire form, as sent back by API clients.
func (c ChannelInfo) ToDigest() (*channel.Digest, error) {
	handle := channel.Handle(c.Username)
	if handle == "" {
		h, err := channel.ExtractHandle(c.ChannelLink)
		if err != nil {
			return nil, err
		}
		handle = h
	}
	link := c.ChannelLink
	if link == "" {
		link = handle.Link()
	}

	d := &channel.Digest{
		Handle:   handle,
		Link:     link,
		Metadata: channel.Metadata{Title: c.Title, Description: c.Description},
		Posts:    make([]channel.Post, 0, len(c.Posts)),
	}
	for i, pi := range c.Posts {
		p := channel.Post{
			Text:      pi.Text,
			MediaType: pi.MediaType,
			Views:     pi.Views,
			Reactions: pi.ReactionsCount,
		}
		if t, err := time.Parse(time.RFC3339, pi.Date); err == nil {
			p.Date = t
		}
		if pi.PhotoBase64 != "" {
			media, err := base64.StdEncoding.DecodeString(pi.PhotoBase64)
			if err != nil {
				return nil, fmt.Errorf("post %d: decode photo: %w", i, err)
			}
			p.Media = media
		}
		d.Posts = append(d.Posts, p)
	}
	return d, nil
}
