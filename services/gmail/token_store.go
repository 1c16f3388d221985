package gmail

import (
	"encoding/json"
	"sync"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/customeros/maildigest/config"
)

const (
	keyringServiceName = "maildigest"
	tokenKey           = "gmail-oauth-token"
)

type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
}

// keyringTokenStore keeps the OAuth token in an encrypted file keyring.
type keyringTokenStore struct {
	ring keyring.Keyring
}

func NewKeyringTokenStore(cfg *config.GmailConfig) (TokenStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.FileBackend,
		},
		FileDir:          cfg.TokenDir,
		FilePasswordFunc: keyring.FixedStringPrompt(cfg.TokenPassword),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening keyring")
	}
	return &keyringTokenStore{ring: ring}, nil
}

// Load returns nil without error when no token was saved yet.
func (s *keyringTokenStore) Load() (*oauth2.Token, error) {
	item, err := s.ring.Get(tokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading gmail token")
	}
	var token oauth2.Token
	if err := json.Unmarshal(item.Data, &token); err != nil {
		return nil, errors.Wrap(err, "decoding gmail token")
	}
	return &token, nil
}

func (s *keyringTokenStore) Save(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(err, "encoding gmail token")
	}
	err = s.ring.Set(keyring.Item{
		Key:   tokenKey,
		Data:  data,
		Label: "maildigest gmail token",
	})
	return errors.Wrap(err, "saving gmail token")
}

// persistingTokenSource saves refreshed tokens back to the store.
type persistingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	store  TokenStore
	last   string
	onSave func(error)
}

func newPersistingTokenSource(base oauth2.TokenSource, store TokenStore, initial *oauth2.Token, onSave func(error)) oauth2.TokenSource {
	last := ""
	if initial != nil {
		last = initial.AccessToken
	}
	return &persistingTokenSource{base: base, store: store, last: last, onSave: onSave}
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		p.last = token.AccessToken
		saveErr := p.store.Save(token)
		if p.onSave != nil {
			p.onSave(saveErr)
		}
	}
	return token, nil
}
