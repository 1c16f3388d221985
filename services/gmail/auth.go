package gmail

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/int128/oauth2cli"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/customeros/maildigest/config"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
)

const (
	authorizationTimeout = 5 * time.Minute
	loopbackHost         = "127.0.0.1"
	successHTML          = "<html><body>Authorization complete, you can close this window.</body></html>"
)

// LoadOAuthConfig reads the installed-app client secrets file.
func LoadOAuthConfig(cfg *config.GmailConfig) (*oauth2.Config, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ErrAuth, err, "unable to read gmail client secret file")
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ErrAuth, err, "unable to parse gmail client secret file")
	}
	return oauthConfig, nil
}

// Authorize runs the loopback consent flow: it logs the local URL that starts
// the consent and waits for Google to redirect back with the code.
func Authorize(ctx context.Context, oauthConfig *oauth2.Config, port int, log logger.Logger) (*oauth2.Token, error) {
	return authorize(ctx, oauthConfig, port, func(url string) {
		log.Infof("Open the following link in your browser to authorize Gmail access:\n%s", url)
	})
}

func authorize(ctx context.Context, oauthConfig *oauth2.Config, port int, onReady func(url string)) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, authorizationTimeout)
	defer cancel()

	ready := make(chan string, 1)
	go func() {
		select {
		case url := <-ready:
			onReady(url)
		case <-ctx.Done():
		}
	}()

	token, err := oauth2cli.GetToken(ctx, oauth2cli.Config{
		OAuth2Config:           *oauthConfig,
		AuthCodeOptions:        []oauth2.AuthCodeOption{oauth2.AccessTypeOffline},
		LocalServerBindAddress: []string{fmt.Sprintf("%s:%d", loopbackHost, port)},
		RedirectURLHostname:    loopbackHost,
		LocalServerReadyChan:   ready,
		LocalServerSuccessHTML: successHTML,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, mderrors.Wrap(mderrors.ErrAuth, err, "gmail authorization not completed")
		}
		return nil, mderrors.Wrap(mderrors.ErrAuth, err, "gmail authorization failed")
	}
	return token, nil
}
