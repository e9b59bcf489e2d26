package credentials

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/oauth2"

	"jurnalguru/internal/utils"
)

// DriveScope grants access to files the app itself created.
const DriveScope = "https://www.googleapis.com/auth/drive.file"

// ErrSignedOut is returned by the session's token source while no one is
// signed in.
var ErrSignedOut = errors.New("not signed in")

// Session holds the current bearer token. It is set on sign-in, cleared on
// sign-out and read by every remote call at call time.
type Session struct {
	cfg     *oauth2.Config
	account string
	persist bool

	mu        sync.RWMutex
	token     *oauth2.Token
	source    Source
	listeners []func(signedIn bool)
}

// NewSession creates a signed-out session. cfg supplies the client id and
// token endpoint used to refresh tokens; it may be nil when only
// ready-made access tokens are used.
func NewSession(cfg *oauth2.Config) *Session {
	return &Session{cfg: cfg, account: DefaultAccount, persist: true, source: SourceNone}
}

// Restore re-hydrates the session from the keyring or environment. It
// reports whether a token was found and does not notify listeners.
func (s *Session) Restore() (bool, error) {
	tok, src, err := Resolve(s.account)
	if err != nil || tok == nil {
		return false, err
	}

	s.mu.Lock()
	s.token = tok
	s.source = src
	s.mu.Unlock()
	utils.Debugf("Restored Drive session from %s", src)
	return true, nil
}

// AuthCodeURL returns the consent page URL for the authorization code flow.
func (s *Session) AuthCodeURL(state string) (string, error) {
	if s.cfg == nil || s.cfg.ClientID == "" {
		return "", utils.ErrInvalidConfig("drive.client_id", "required for browser sign-in")
	}
	return s.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a token and signs in with it.
func (s *Session) Exchange(ctx context.Context, code string) error {
	if s.cfg == nil || s.cfg.ClientID == "" {
		return utils.ErrInvalidConfig("drive.client_id", "required for browser sign-in")
	}
	tok, err := s.cfg.Exchange(ctx, code)
	if err != nil {
		return err
	}
	return s.SignIn(tok)
}

// SignIn installs tok, stores it in the keyring when possible and notifies
// listeners.
func (s *Session) SignIn(tok *oauth2.Token) error {
	if tok == nil || (tok.AccessToken == "" && tok.RefreshToken == "") {
		return errors.New("token cannot be empty")
	}

	if s.persist {
		if !IsAvailable() {
			utils.Warnf("Keyring not available; the session will not outlive this process")
		} else if err := s.save(tok); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.token = tok
	s.source = SourceSignIn
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(true)
	}
	return nil
}

func (s *Session) save(tok *oauth2.Token) error {
	return SaveToken(s.account, tok)
}

// SignOut clears the token, removes it from the keyring and notifies
// listeners. Calls in flight may still fail with an auth error.
func (s *Session) SignOut() error {
	s.mu.Lock()
	s.token = nil
	s.source = SourceNone
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	var err error
	if s.persist && IsAvailable() {
		err = DeleteToken(s.account)
	}
	for _, fn := range listeners {
		fn(false)
	}
	return err
}

// IsSignedIn reports whether a token is present.
func (s *Session) IsSignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != nil && (s.token.AccessToken != "" || s.token.RefreshToken != "")
}

// Source reports where the current token came from.
func (s *Session) Source() Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// OnChange registers fn to run after every sign-in and sign-out.
func (s *Session) OnChange(fn func(signedIn bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// TokenSource returns a source that reads the session's token at call time,
// refreshing it through the OAuth config when it has expired.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionSource{ctx: ctx, s: s}
}

type sessionSource struct {
	ctx context.Context
	s   *Session
}

func (ss *sessionSource) Token() (*oauth2.Token, error) {
	s := ss.s
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()

	if tok == nil {
		return nil, ErrSignedOut
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" || s.cfg == nil {
		return nil, errors.New("access token expired; sign in again")
	}

	fresh, err := s.cfg.TokenSource(ss.ctx, tok).Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.token == tok {
		s.token = fresh
	}
	s.mu.Unlock()

	if s.persist && IsAvailable() {
		if err := s.save(fresh); err != nil {
			utils.Warnf("Failed to store refreshed token: %v", err)
		}
	}
	return fresh, nil
}
