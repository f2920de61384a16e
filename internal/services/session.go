package services

import (
	"net/http"

	"golang.org/x/oauth2"
)

// sessionCookie is the cookie name the catalog site uses for signed-in sessions.
const sessionCookie = "PHPSESSID"

// NewSessionClient wraps base so every request carries the session token, both as a
// bearer Authorization header and as the site's session cookie.
//
// An empty token returns base unchanged.
func NewSessionClient(base *http.Client, token string) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	if token == "" {
		return base
	}

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &http.Client{
		Timeout: base.Timeout,
		Jar:     base.Jar,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   &cookieTransport{token: token, base: transport},
		},
	}
}

// cookieTransport adds the session cookie to outgoing requests.
type cookieTransport struct {
	token string
	base  http.RoundTripper
}

func (t *cookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.AddCookie(&http.Cookie{Name: sessionCookie, Value: t.token})
	return t.base.RoundTrip(clone)
}
