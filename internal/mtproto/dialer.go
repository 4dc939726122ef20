// Package mtproto implements the authenticated channel history session on top of gotd/td.
package mtproto

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/logging"
)

// ErrUnauthorized means the stored session is not logged in.
var ErrUnauthorized = errors.New("mtproto: session is not authorized, run `tgcreative login`")

// Dialer opens history sessions from string credentials.
type Dialer struct {
	log logrus.FieldLogger
}

// NewDialer creates a Dialer.
func NewDialer(logger logrus.FieldLogger) *Dialer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dialer{log: logger}
}

// ParseAppID validates the numeric application id.
func ParseAppID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("mtproto: invalid app id %q", s)
	}
	return id, nil
}

// Dial connects, waits until the client is ready and checks authorization.
// The returned session owns a background run loop until Close.
func (d *Dialer) Dial(ctx context.Context, creds channel.Credentials) (channel.Session, error) {
	appID, err := ParseAppID(creds.AppID)
	if err != nil {
		return nil, err
	}
	storage, err := memoryStorage(ctx, creds.Session)
	if err != nil {
		return nil, err
	}

	client := telegram.NewClient(appID, strings.TrimSpace(creds.AppHash), telegram.Options{
		SessionStorage: storage,
		NoUpdates:      true,
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		api:    client.API(),
		dl:     downloader.NewDownloader(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	ready := make(chan error, 1)
	go func() {
		defer close(s.done)
		err := client.Run(runCtx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				err = fmt.Errorf("mtproto: auth status: %w", err)
				ready <- err
				return err
			}
			if !status.Authorized {
				ready <- ErrUnauthorized
				return ErrUnauthorized
			}
			ready <- nil
			<-ctx.Done()
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			d.log.WithError(err).Debug("mtproto run loop ended")
		}
		select {
		case ready <- fmt.Errorf("mtproto: client stopped before ready: %w", err):
		default:
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		d.log.Debug("mtproto session ready")
		return s, nil
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}
}

// memoryStorage loads a session secret into in-memory storage. JSON secrets are
// gotd session files as written by Login; anything else is read as a Telethon
// string session.
func memoryStorage(ctx context.Context, secret string) (*session.StorageMemory, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("mtproto: empty session")
	}

	storage := new(session.StorageMemory)
	if strings.HasPrefix(secret, "{") {
		if err := storage.StoreSession(ctx, []byte(secret)); err != nil {
			return nil, fmt.Errorf("mtproto: store session: %w", err)
		}
		return storage, nil
	}

	data, err := session.TelethonSession(secret)
	if err != nil {
		return nil, fmt.Errorf("mtproto: decode string session: %w", err)
	}
	loader := session.Loader{Storage: storage}
	if err := loader.Save(ctx, data); err != nil {
		return nil, fmt.Errorf("mtproto: store session: %w", err)
	}
	return storage, nil
}
