package mtproto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/ppiankov/tgcreative/internal/channel"
)

// Session is one connected client. It is owned by a single aggregation run.
type Session struct {
	api    *tg.Client
	dl     *downloader.Downloader
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// ResolveEntity looks the handle up and returns the matching channel.
func (s *Session) ResolveEntity(ctx context.Context, h channel.Handle) (channel.EntityRef, error) {
	res, err := s.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: h.String()})
	if err != nil {
		if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
			return channel.EntityRef{}, channel.ErrEntityNotFound
		}
		return channel.EntityRef{}, fmt.Errorf("mtproto: resolve username: %w", err)
	}
	return pickChannel(res, h)
}

// FetchPage requests one page of history older than beforeID.
func (s *Session) FetchPage(ctx context.Context, e channel.EntityRef, beforeID, pageSize int) ([]channel.RawMessage, error) {
	res, err := s.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     &tg.InputPeerChannel{ChannelID: e.ID, AccessHash: e.AccessHash},
		OffsetID: beforeID,
		Limit:    pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("mtproto: get history: %w", err)
	}
	return convertHistory(res)
}

// DownloadMedia streams the attachment of msg into memory.
func (s *Session) DownloadMedia(ctx context.Context, msg channel.RawMessage) ([]byte, error) {
	loc, err := fileLocation(msg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := s.dl.Download(s.api, loc).Stream(ctx, &buf); err != nil {
		return nil, fmt.Errorf("mtproto: download message %d: %w", msg.ID, err)
	}
	return buf.Bytes(), nil
}

// Close stops the run loop and waits for it to exit. Later calls are no-ops.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

func pickChannel(res *tg.ContactsResolvedPeer, h channel.Handle) (channel.EntityRef, error) {
	var wantID int64
	if peer, ok := res.Peer.(*tg.PeerChannel); ok {
		wantID = peer.ChannelID
	}
	for _, c := range res.Chats {
		ch, ok := c.(*tg.Channel)
		if !ok {
			continue
		}
		if (wantID != 0 && ch.ID == wantID) || strings.EqualFold(ch.Username, h.String()) {
			return channel.EntityRef{ID: ch.ID, AccessHash: ch.AccessHash, Title: ch.Title}, nil
		}
	}
	return channel.EntityRef{}, channel.ErrEntityNotFound
}

func convertHistory(res tg.MessagesMessagesClass) ([]channel.RawMessage, error) {
	var msgs []tg.MessageClass
	switch r := res.(type) {
	case *tg.MessagesMessages:
		msgs = r.Messages
	case *tg.MessagesMessagesSlice:
		msgs = r.Messages
	case *tg.MessagesChannelMessages:
		msgs = r.Messages
	case *tg.MessagesMessagesNotModified:
		return nil, nil
	default:
		return nil, fmt.Errorf("mtproto: unexpected history type %T", res)
	}

	out := make([]channel.RawMessage, 0, len(msgs))
	for _, mc := range msgs {
		switch m := mc.(type) {
		case *tg.Message:
			out = append(out, convertMessage(m))
		case *tg.MessageService:
			// Kept without content so the paging cursor still advances past it.
			out = append(out, channel.RawMessage{ID: m.ID, Date: unixTime(m.Date)})
		case *tg.MessageEmpty:
			out = append(out, channel.RawMessage{ID: m.ID})
		}
	}
	return out, nil
}

func convertMessage(m *tg.Message) channel.RawMessage {
	raw := channel.RawMessage{
		ID:   m.ID,
		Date: unixTime(m.Date),
		Text: m.Message,
	}
	if v, ok := m.GetViews(); ok {
		raw.Views = v
	}
	if r, ok := m.GetReactions(); ok {
		for _, rc := range r.Results {
			raw.Reactions += rc.Count
		}
	}

	media, ok := m.GetMedia()
	if !ok {
		return raw
	}
	switch md := media.(type) {
	case *tg.MessageMediaPhoto:
		if p, ok := md.Photo.(*tg.Photo); ok {
			raw.Kind = channel.MediaPhoto
			raw.MIMEType = "image/jpeg"
			raw.Attachment = p
		} else {
			raw.Kind = channel.MediaOther
		}
	case *tg.MessageMediaDocument:
		doc, ok := md.Document.(*tg.Document)
		if !ok {
			raw.Kind = channel.MediaOther
			break
		}
		raw.MIMEType = doc.MimeType
		raw.Attachment = doc
		if channel.IsImageMIME(doc.MimeType) {
			raw.Kind = channel.MediaImageDocument
		} else {
			raw.Kind = channel.MediaOther
		}
	default:
		raw.Kind = channel.MediaOther
	}
	return raw
}

func unixTime(sec int) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}

func fileLocation(msg channel.RawMessage) (tg.InputFileLocationClass, error) {
	switch a := msg.Attachment.(type) {
	case *tg.Photo:
		size, ok := largestPhotoSize(a.Sizes)
		if !ok {
			return nil, fmt.Errorf("mtproto: message %d: photo has no downloadable size", msg.ID)
		}
		return &tg.InputPhotoFileLocation{
			ID:            a.ID,
			AccessHash:    a.AccessHash,
			FileReference: a.FileReference,
			ThumbSize:     size,
		}, nil
	case *tg.Document:
		return &tg.InputDocumentFileLocation{
			ID:            a.ID,
			AccessHash:    a.AccessHash,
			FileReference: a.FileReference,
		}, nil
	default:
		return nil, errors.New("mtproto: message has no downloadable attachment")
	}
}

// largestPhotoSize returns the type letter of the biggest full-size rendition.
func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, bool) {
	best, bestArea := "", -1
	for _, sc := range sizes {
		var typ string
		var area int
		switch s := sc.(type) {
		case *tg.PhotoSize:
			typ, area = s.Type, s.W*s.H
		case *tg.PhotoSizeProgressive:
			typ, area = s.Type, s.W*s.H
		default:
			continue
		}
		if area > bestArea {
			best, bestArea = typ, area
		}
	}
	return best, best != ""
}
