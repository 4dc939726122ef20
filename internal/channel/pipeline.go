package channel

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/logging"
)

// Digest is the result of one pipeline run. It is built once and never mutated.
type Digest struct {
	Handle   Handle
	Link     string
	Metadata Metadata
	Posts    []Post
}

// MediaCount returns the number of posts carrying media.
func (d *Digest) MediaCount() int {
	n := 0
	for _, p := range d.Posts {
		if p.HasMedia() {
			n++
		}
	}
	return n
}

// Pipeline sequences handle extraction, metadata fetch and deadline-bounded aggregation.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	fetcher      *MetadataFetcher
	aggregator   *Aggregator
	postsTimeout time.Duration
	log          logrus.FieldLogger
}

// NewPipeline wires a pipeline. postsTimeout <= 0 means DefaultPostsTimeout.
func NewPipeline(fetcher *MetadataFetcher, aggregator *Aggregator, postsTimeout time.Duration, logger logrus.FieldLogger) *Pipeline {
	if postsTimeout <= 0 {
		postsTimeout = DefaultPostsTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		fetcher:      fetcher,
		aggregator:   aggregator,
		postsTimeout: postsTimeout,
		log:          logger,
	}
}

// Run analyzes rawInput. It fails only with ErrNotFound or an *UpstreamError;
// history problems and deadline expiry produce a digest with no posts.
func (p *Pipeline) Run(ctx context.Context, rawInput string) (*Digest, error) {
	h, err := ExtractHandle(rawInput)
	if err != nil {
		pipelineRuns.WithLabelValues("not_found").Inc()
		return nil, err
	}

	log := logging.FromContext(ctx, p.log).WithFields(logrus.Fields{
		"run_id": ulid.Make().String(),
		"handle": h.String(),
	})
	start := time.Now()

	meta, err := p.fetcher.Fetch(ctx, h)
	if err != nil {
		pipelineRuns.WithLabelValues("upstream_unavailable").Inc()
		log.WithError(err).Info("channel page unavailable")
		return nil, err
	}

	runCtx := logging.IntoContext(ctx, log)
	posts, finished := WithDeadline(runCtx, p.postsTimeout, func(ctx context.Context) []Post {
		return p.aggregator.Aggregate(ctx, h)
	}, nil)
	if !finished {
		historyOutcomes.WithLabelValues("timeout").Inc()
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Info("post loading abandoned: caller went away")
		} else {
			log.WithField("timeout", p.postsTimeout.String()).Warn("post loading timed out; returning channel metadata only")
		}
	}
	if posts == nil {
		posts = []Post{}
	}

	digest := &Digest{
		Handle:   h,
		Link:     h.Link(),
		Metadata: meta,
		Posts:    posts,
	}

	pipelineRuns.WithLabelValues("ok").Inc()
	pipelineDuration.Observe(time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"posts": len(digest.Posts),
		"media": digest.MediaCount(),
		"took":  time.Since(start).Round(time.Millisecond).String(),
	}).Info("channel analyzed")

	return digest, nil
}
