package auth

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// LoadClientConfig reads the OAuth client-secret descriptor provisioned from
// the Google Cloud Console ("installed app" JSON) and returns the OAuth2
// configuration with the Gmail modify scope.
//
// The descriptor is read-only and provisioned out-of-band; its absence is
// fatal until re-provisioned.
func LoadClientConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret file %s: %w (download OAuth credentials from the Google Cloud Console)", path, err)
	}

	conf, err := google.ConfigFromJSON(b, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file %s: %w", path, err)
	}
	return conf, nil
}
