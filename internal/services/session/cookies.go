package session

import (
	"net/http"
	"time"
)

const (
	DefaultAccessCookie  = "accessToken"
	DefaultRefreshCookie = "refreshToken"
)

type CookieConfig struct {
	AccessName  string
	RefreshName string
	Domain      string
	Path        string
	Secure      bool
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.AccessName == "" {
		c.AccessName = DefaultAccessCookie
	}
	if c.RefreshName == "" {
		c.RefreshName = DefaultRefreshCookie
	}
	if c.Path == "" {
		c.Path = "/"
	}
	return c
}

// Browsers drop SameSite=None cookies that are not also Secure.
func (c CookieConfig) cookie(name, value string, expires time.Time, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(expires.Sub(now).Seconds()),
		Expires:  expires.UTC(),
	}
}

func (c CookieConfig) setAccess(w http.ResponseWriter, token string, expires, now time.Time) {
	http.SetCookie(w, c.cookie(c.AccessName, token, expires, now))
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, token string, expires, now time.Time) {
	http.SetCookie(w, c.cookie(c.RefreshName, token, expires, now))
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	for _, name := range []string{c.AccessName, c.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     c.Path,
			Domain:   c.Domain,
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteNoneMode,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0).UTC(),
		})
	}
}

func readCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
