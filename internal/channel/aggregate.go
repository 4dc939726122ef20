package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/logging"
)

const (
	// MaxPosts bounds the number of posts in a digest.
	MaxPosts = 15
	// MediaBudget bounds media downloads across one aggregation run.
	MediaBudget = 5
	// MaxPages bounds history page fetches per run.
	MaxPages = 3
	// PageSize is the number of messages requested per page.
	PageSize = 100

	mediaPlaceholder = "(media)"
	photoMIMEType    = "image/jpeg"
	defaultImageMIME = "image/png"
)

// Post is one qualifying channel message. Text is never empty; Media is nil
// when nothing was downloaded. Views and Reactions are zero when unknown.
type Post struct {
	Date      time.Time
	Text      string
	Media     []byte
	MediaType string
	Views     int
	Reactions int
}

// HasMedia reports whether the post carries downloaded media.
func (p Post) HasMedia() bool { return len(p.Media) > 0 }

// Limits are the aggregation bounds. Zero or out-of-range values fall back to the defaults.
type Limits struct {
	MaxPosts    int
	MediaBudget int
	MaxPages    int
	PageSize    int
}

// DefaultLimits returns the standard bounds: 15 posts, 5 media, 3 pages of 100.
func DefaultLimits() Limits {
	return Limits{MaxPosts: MaxPosts, MediaBudget: MediaBudget, MaxPages: MaxPages, PageSize: PageSize}
}

func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.MaxPosts <= 0 || l.MaxPosts > MaxPosts {
		l.MaxPosts = d.MaxPosts
	}
	if l.MediaBudget <= 0 || l.MediaBudget > MediaBudget {
		l.MediaBudget = d.MediaBudget
	}
	if l.MaxPages <= 0 || l.MaxPages > MaxPages {
		l.MaxPages = d.MaxPages
	}
	if l.PageSize <= 0 {
		l.PageSize = d.PageSize
	}
	return l
}

// Aggregator pages through channel history and builds a bounded post list.
// It never fails: every error degrades to fewer or zero posts.
type Aggregator struct {
	dialer  Dialer
	creds   Credentials
	enabled bool
	limits  Limits
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewAggregator creates an aggregator. Credential presence is decided here, once;
// without all three secrets the aggregator never dials.
func NewAggregator(dialer Dialer, creds Credentials, limits Limits, logger logrus.FieldLogger) *Aggregator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Aggregator{
		dialer:  dialer,
		creds:   creds,
		enabled: dialer != nil && creds.Present(),
		limits:  limits.normalized(),
		log:     logger,
		now:     time.Now,
	}
}

// Enabled reports whether the authenticated history path is configured.
func (a *Aggregator) Enabled() bool { return a.enabled }

// Aggregate returns up to MaxPosts recent posts of h, newest first.
func (a *Aggregator) Aggregate(ctx context.Context, h Handle) []Post {
	log := logging.FromContext(ctx, a.log).WithField("handle", h.String())
	if !a.enabled {
		log.Info("posts not loaded: history credentials (app id, app hash, session) are not configured")
		historyOutcomes.WithLabelValues("disabled").Inc()
		return nil
	}

	posts, err := a.collect(ctx, h, log)
	// Exits after the context expired are counted by whoever set the deadline.
	expired := ctx.Err() != nil
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.WithError(err).Debug("history aggregation stopped by context")
		} else {
			log.WithError(err).Warn("history aggregation failed; continuing without posts")
		}
		if !expired {
			historyOutcomes.WithLabelValues("failed").Inc()
		}
		return nil
	}

	if !expired {
		historyOutcomes.WithLabelValues("ok").Inc()
	}
	log.WithField("posts", len(posts)).Info("recent posts loaded")
	return posts
}

func (a *Aggregator) collect(ctx context.Context, h Handle, log logrus.FieldLogger) (posts []Post, err error) {
	sess, err := a.dialer.Dial(ctx, a.creds)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.WithError(cerr).Debug("close history session")
		}
	}()

	entity, err := sess.ResolveEntity(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", h, err)
	}

	var (
		beforeID   int
		downloaded int
		firstPage  []RawMessage
	)

	for page := 0; page < a.limits.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msgs, err := sess.FetchPage(ctx, entity, beforeID, a.limits.PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page+1, err)
		}
		if page == 0 {
			firstPage = msgs
			log.WithField("messages", len(msgs)).Debug("first history page received")
		}
		if len(msgs) == 0 {
			break
		}

		for _, m := range msgs {
			if len(posts) >= a.limits.MaxPosts {
				break
			}
			if post, ok := a.buildPost(ctx, sess, m, &downloaded, log); ok {
				posts = append(posts, post)
			}
		}
		if len(posts) >= a.limits.MaxPosts {
			break
		}
		beforeID = msgs[len(msgs)-1].ID
	}

	if len(firstPage) > 0 && len(posts) == 0 {
		first := firstPage[0]
		log.WithFields(logrus.Fields{
			"message_id": first.ID,
			"media_kind": first.Kind.String(),
			"has_text":   strings.TrimSpace(first.Text) != "",
		}).Info("history returned messages but none had text or images")
	}

	return posts, nil
}

// buildPost turns m into a Post, downloading media while the budget allows.
// A failed download keeps the post if it has text.
func (a *Aggregator) buildPost(ctx context.Context, sess Session, m RawMessage, downloaded *int, log logrus.FieldLogger) (Post, bool) {
	text := strings.TrimSpace(m.Text)
	if text == "" && !m.HasImage() {
		return Post{}, false
	}

	post := Post{
		Date:      m.Date,
		Views:     m.Views,
		Reactions: m.Reactions,
	}
	if post.Date.IsZero() {
		post.Date = a.now()
	}

	if m.HasImage() && *downloaded < a.limits.MediaBudget {
		blob, err := sess.DownloadMedia(ctx, m)
		switch {
		case err != nil:
			mediaDownloads.WithLabelValues("failed").Inc()
			log.WithError(err).WithField("message_id", m.ID).Debug("media download failed")
		case len(blob) == 0:
			mediaDownloads.WithLabelValues("failed").Inc()
			log.WithField("message_id", m.ID).Debug("media download returned no data")
		default:
			mediaDownloads.WithLabelValues("ok").Inc()
			post.Media = blob
			post.MediaType = mediaType(m)
			*downloaded++
		}
	}

	if text == "" && !post.HasMedia() {
		return Post{}, false
	}
	if text == "" {
		text = mediaPlaceholder
	}
	post.Text = text
	return post, true
}

func mediaType(m RawMessage) string {
	if m.Kind == MediaPhoto {
		return photoMIMEType
	}
	if mime := strings.TrimSpace(m.MIMEType); mime != "" {
		return mime
	}
	return defaultImageMIME
}
