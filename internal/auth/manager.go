package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// refreshInterval is how long the refresh loop sleeps between token
// requests. Chosen to stay under the typical 600 s access token TTL.
const refreshInterval = 580 * time.Second

// tokenPath is the identity provider's token endpoint, relative to the
// origin of the configured base URL.
const tokenPath = "/auth/realms/LAB/protocol/openid-connect/token"

// Options configures a Manager.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
}

// Manager acquires the initial token via a password grant, then keeps it
// fresh via refresh grants on a fixed cadence. It is the sole writer of
// the Store.
type Manager struct {
	store      *Store
	cfg        *oauth2.Config
	username   string
	httpClient *http.Client
	interval   time.Duration
	logger     *slog.Logger

	// sleepFunc waits between refreshes. Tests override to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewManager builds a Manager. httpClient should be the mutual-TLS client;
// it is used for all token endpoint requests.
func NewManager(store *Store, httpClient *http.Client, opts Options, logger *slog.Logger) (*Manager, error) {
	tokenURL, err := TokenURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store: store,
		cfg: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		username:   opts.Username,
		httpClient: httpClient,
		interval:   refreshInterval,
		logger:     logger,
		sleepFunc:  timeSleep,
	}, nil
}

// TokenURL derives the token endpoint from the configured base URL.
// Only the scheme and host are kept; the backend's API prefix is not part
// of the identity provider path.
func TokenURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("auth: invalid base URL %q", baseURL)
	}

	return u.Scheme + "://" + u.Host + tokenPath, nil
}

// Acquire requests a token pair and atomically replaces the stored
// credential. A refresh grant is used when a refresh token is held,
// otherwise a password grant. On failure the previous credential is left
// in place (fail open): a long batch should not be aborted by one
// transient refresh failure, at the cost of possibly operating with an
// expired token whose calls then fail and are reported normally.
func (m *Manager) Acquire(ctx context.Context) error {
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	var (
		tok *oauth2.Token
		err error
	)

	if cur := m.store.Current(); cur.RefreshToken != "" {
		tok, err = m.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cur.RefreshToken}).Token()
	} else {
		tok, err = m.cfg.PasswordCredentialsToken(ctx, m.username, "")
	}

	if err != nil {
		return fmt.Errorf("auth: token request failed: %w", err)
	}

	m.store.Replace(Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	})

	m.logger.Debug("token acquired",
		slog.Time("expiry", tok.Expiry),
	)

	return nil
}

// Start acquires the initial token synchronously, so upload work only
// begins with a credential in place, then launches the background refresh
// loop. The loop runs until ctx is canceled, which in practice means
// process exit.
func (m *Manager) Start(ctx context.Context) error {
	err := m.Acquire(ctx)
	if err != nil {
		m.logger.Error("initial token acquisition failed",
			slog.String("error", err.Error()),
		)
	}

	go m.refreshLoop(ctx)

	return err
}

// refreshLoop sleeps for the refresh interval and re-acquires, forever.
// A failed refresh keeps the previous (stale) token.
func (m *Manager) refreshLoop(ctx context.Context) {
	for {
		if err := m.sleepFunc(ctx, m.interval); err != nil {
			return
		}

		if err := m.Acquire(ctx); err != nil {
			m.logger.Warn("token refresh failed, keeping previous token",
				slog.String("error", err.Error()),
			)
		}
	}
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Manager.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
