package mtproto

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/logging"
)

const (
	loginAttempts  = 2
	loginRetryWait = 3 * time.Second
)

// Prompter asks the operator for one value.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
}

// LinePrompter reads answers line by line.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter prompts on out and reads from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Prompt prints label and returns the trimmed next line.
func (p *LinePrompter) Prompt(_ context.Context, label string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// LoginOptions configure interactive session creation.
type LoginOptions struct {
	AppID       int
	AppHash     string
	Phone       string // prompted when empty
	SessionPath string
	Prompter    Prompter
	Logger      logrus.FieldLogger

	// RetryWait overrides the pause before the second attempt.
	RetryWait time.Duration
}

// Login runs the code (and 2FA password) flow and writes the session file.
// Connection-class failures get one more attempt.
func Login(ctx context.Context, opts LoginOptions) (*tg.User, error) {
	if opts.Prompter == nil {
		return nil, errors.New("mtproto: login needs a prompter")
	}
	if opts.SessionPath == "" {
		return nil, errors.New("mtproto: login needs a session path")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	wait := opts.RetryWait
	if wait <= 0 {
		wait = loginRetryWait
	}

	if err := os.MkdirAll(filepath.Dir(opts.SessionPath), 0o700); err != nil {
		return nil, fmt.Errorf("mtproto: create session dir: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= loginAttempts; attempt++ {
		user, err := login(ctx, opts)
		if err == nil {
			return user, nil
		}
		lastErr = err
		if attempt == loginAttempts || !isConnectionError(err) {
			break
		}
		opts.Logger.WithError(err).WithField("attempt", attempt).Warn("login connection failed, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func login(ctx context.Context, opts LoginOptions) (*tg.User, error) {
	client := telegram.NewClient(opts.AppID, opts.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: opts.SessionPath},
		NoUpdates:      true,
	})

	var self *tg.User
	err := client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(promptAuth{phone: opts.Phone, prompter: opts.Prompter}, auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		user, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("self: %w", err)
		}
		self = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mtproto: login: %w", err)
	}
	return self, nil
}

// promptAuth answers the auth flow from a Prompter. Sign up is not supported.
type promptAuth struct {
	phone    string
	prompter Prompter
}

func (a promptAuth) Phone(ctx context.Context) (string, error) {
	if a.phone != "" {
		return a.phone, nil
	}
	return a.prompter.Prompt(ctx, "Phone number (+countrycode)")
}

func (a promptAuth) Password(ctx context.Context) (string, error) {
	return a.prompter.Prompt(ctx, "2FA password")
}

func (a promptAuth) Code(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompter.Prompt(ctx, "Login code")
}

func (promptAuth) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (promptAuth) SignUp(context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported, register the account in an official app first")
}

func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "migrate", "closed", "timeout", "timed out"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ReadSessionFile returns the stored session for use as a session secret.
func ReadSessionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("mtproto: read session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
