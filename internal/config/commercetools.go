package config

import (
	"fmt"
	"strings"
	"time"
)

type Commercetools struct {
	ClientID     string `env:"CTP_CLIENT_ID,required,notEmpty"`
	ClientSecret string `env:"CTP_CLIENT_SECRET,required,notEmpty"`
	ProjectKey   string `env:"CTP_PROJECT_KEY,required,notEmpty"`
	Scope        string `env:"CTP_SCOPE" envDefault:"default"`
	Region       string `env:"CTP_REGION,required,notEmpty"`

	Timeout time.Duration `env:"CTP_TIMEOUT" envDefault:"10s"`

	// APIURL and AuthURL override the region-derived hosts.
	APIURL  string `env:"CTP_API_URL"`
	AuthURL string `env:"CTP_AUTH_URL"`
}

// APIHost returns the HTTP API host for the configured region.
func (c Commercetools) APIHost() string {
	if c.APIURL != "" {
		return strings.TrimSuffix(c.APIURL, "/")
	}
	return fmt.Sprintf("https://api.%s.commercetools.com", c.Region)
}

// TokenURL returns the OAuth token endpoint for the configured region.
func (c Commercetools) TokenURL() string {
	host := fmt.Sprintf("https://auth.%s.commercetools.com", c.Region)
	if c.AuthURL != "" {
		host = strings.TrimSuffix(c.AuthURL, "/")
	}
	return host + "/oauth/token"
}

// Scopes splits the space separated scope string. An empty scope yields "default".
func (c Commercetools) Scopes() []string {
	scopes := strings.Fields(c.Scope)
	if len(scopes) == 0 {
		return []string{"default"}
	}
	return scopes
}
