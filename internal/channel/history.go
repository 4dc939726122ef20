package channel

import (
	"context"
	"regexp"
	"strings"
	"time"
)

var imageMIMERe = regexp.MustCompile(`(?i)^image/(gif|jpeg|jpg|png|webp)$`)

// Credentials gate the authenticated history path. All three secrets must be set.
type Credentials struct {
	AppID   string
	AppHash string
	Session string
}

// Present reports whether every secret is non-empty. There is no partial-auth mode.
func (c Credentials) Present() bool {
	return strings.TrimSpace(c.AppID) != "" &&
		strings.TrimSpace(c.AppHash) != "" &&
		strings.TrimSpace(c.Session) != ""
}

// EntityRef identifies a resolved channel on the messaging network.
type EntityRef struct {
	ID         int64
	AccessHash int64
	Title      string
}

// MediaKind classifies the attachment of a raw message.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaPhoto
	MediaImageDocument
	MediaOther
)

func (k MediaKind) String() string {
	switch k {
	case MediaNone:
		return "none"
	case MediaPhoto:
		return "photo"
	case MediaImageDocument:
		return "image_document"
	default:
		return "other"
	}
}

// RawMessage is one history record, validated at the session boundary.
// Views and Reactions are zero when the network did not report them.
type RawMessage struct {
	ID        int
	Date      time.Time
	Text      string
	Views     int
	Reactions int
	Kind      MediaKind
	MIMEType  string

	// Attachment is session-specific data DownloadMedia needs; the aggregator never inspects it.
	Attachment any
}

// HasImage reports whether the message carries a photo or an image document.
func (m RawMessage) HasImage() bool {
	return m.Kind == MediaPhoto || m.Kind == MediaImageDocument
}

// IsImageMIME reports whether a document MIME type counts as an image attachment.
func IsImageMIME(mime string) bool {
	return imageMIMERe.MatchString(strings.TrimSpace(mime))
}

// Session is an authenticated, stateful connection able to page through channel history.
// A session is owned by one aggregation run and is not safe for concurrent use.
type Session interface {
	// ResolveEntity maps a handle to a channel, or fails with ErrEntityNotFound.
	ResolveEntity(ctx context.Context, h Handle) (EntityRef, error)

	// FetchPage returns up to pageSize messages older than beforeID, newest first.
	// beforeID 0 means the most recent messages. An empty page means history is exhausted.
	FetchPage(ctx context.Context, entity EntityRef, beforeID, pageSize int) ([]RawMessage, error)

	// DownloadMedia returns the bytes of the message attachment.
	DownloadMedia(ctx context.Context, msg RawMessage) ([]byte, error)

	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Session, error)
}
