// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Identity   Identity   `yaml:"identity"`
	Backend    Backend    `yaml:"backend"`
	TokenCache TokenCache `yaml:"tokenCache"`
	ValKey     ValKey     `yaml:"valkey"`
	WebUI      WebUI      `yaml:"webUI"`
	APIServer  APIServer  `yaml:"apiServer"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":5173"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// Identity configures the Azure AD B2C public client.
type Identity struct {
	ClientID            commoncfg.SourceRef `yaml:"clientID"`
	Authority           string              `yaml:"authority"`
	KnownAuthorityHosts []string            `yaml:"knownAuthorityHosts"`
	RedirectURI         string              `yaml:"redirectURI" default:"http://localhost"`
	APIScope            string              `yaml:"apiScope"`
	// PostLogoutRedirectURI defaults to RedirectURI when empty.
	PostLogoutRedirectURI string `yaml:"postLogoutRedirectURI"`
}

type Backend struct {
	Endpoint string `yaml:"endpoint" default:"http://localhost:8000/api/endpoint"`
	// Timeout of zero leaves the backend call without a deadline.
	Timeout time.Duration `yaml:"timeout" default:"0s"`
}

type TokenCacheType string

const (
	TokenCacheMemory TokenCacheType = "memory"
	TokenCacheValKey TokenCacheType = "valkey"
)

type TokenCache struct {
	Type      TokenCacheType `yaml:"type" default:"memory"`
	KeyPrefix string         `yaml:"keyPrefix" default:"b2c-demo"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type WebUI struct {
	CSRFSecret            commoncfg.SourceRef `yaml:"csrfSecret"`
	SessionCookieTemplate CookieTemplate      `yaml:"sessionCookie"`
}

type APIServer struct {
	Address         string        `yaml:"address" default:":8000"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
	DiscoveryURL    string        `yaml:"discoveryURL"`
	Issuer          string        `yaml:"issuer"`
	Audience        string        `yaml:"audience"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	KeyCacheTTL     time.Duration `yaml:"keyCacheTTL" default:"1h"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

type CookieTemplate struct {
	Name     string         `yaml:"name" default:"b2c-demo-session"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path" default:"/"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure"`
	SameSite CookieSameSite `yaml:"sameSite" default:"Strict"`
	HTTPOnly bool           `yaml:"httpOnly" default:"true"`
}
