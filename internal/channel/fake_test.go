package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var testCreds = Credentials{AppID: "12345", AppHash: "hash", Session: "session"}

// fakeSession serves a fixed list of pages and records what the aggregator asked for.
type fakeSession struct {
	mu sync.Mutex

	pages       [][]RawMessage
	resolveErr  error
	failPage    int // 1-based page number whose fetch fails; 0 never fails
	downloadErr map[int]error
	block       bool // FetchPage waits for ctx cancellation

	fetchCalls []int
	downloads  []int
	closed     int
}

func (s *fakeSession) ResolveEntity(_ context.Context, h Handle) (EntityRef, error) {
	if s.resolveErr != nil {
		return EntityRef{}, s.resolveErr
	}
	return EntityRef{ID: 42, AccessHash: 7, Title: h.String()}, nil
}

func (s *fakeSession) FetchPage(ctx context.Context, _ EntityRef, beforeID, _ int) ([]RawMessage, error) {
	s.mu.Lock()
	s.fetchCalls = append(s.fetchCalls, beforeID)
	n := len(s.fetchCalls)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.failPage == n {
		return nil, fmt.Errorf("page %d: flood wait", n)
	}
	if n > len(s.pages) {
		return nil, nil
	}
	return s.pages[n-1], nil
}

func (s *fakeSession) DownloadMedia(_ context.Context, msg RawMessage) ([]byte, error) {
	s.mu.Lock()
	s.downloads = append(s.downloads, msg.ID)
	s.mu.Unlock()

	if err := s.downloadErr[msg.ID]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("blob-%d", msg.ID)), nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSession) stats() (fetches, downloads, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fetchCalls), len(s.downloads), s.closed
}

type fakeDialer struct {
	mu      sync.Mutex
	session *fakeSession
	err     error
	delay   time.Duration
	dials   int
}

func (d *fakeDialer) Dial(ctx context.Context, _ Credentials) (Session, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()

	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.session == nil {
		return nil, errors.New("no session")
	}
	return d.session, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// textMsg builds a text-only message whose date increases with id.
func textMsg(id int, text string) RawMessage {
	return RawMessage{ID: id, Date: baseTime.Add(time.Duration(id) * time.Minute), Text: text}
}

func photoMsg(id int, text string) RawMessage {
	m := textMsg(id, text)
	m.Kind = MediaPhoto
	m.MIMEType = "image/jpeg"
	return m
}

// emptyMsg has neither text nor an image.
func emptyMsg(id int) RawMessage {
	return RawMessage{ID: id, Date: baseTime.Add(time.Duration(id) * time.Minute)}
}
