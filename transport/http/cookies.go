package http

import (
	"net/http"
	"net/url"
)

// JarCookies expires cookies the backend set in a cookie jar
type JarCookies struct {
	jar  http.CookieJar
	site *url.URL
}

// NewJarCookies creates a JarCookies for the cookies jar holds for site
func NewJarCookies(jar http.CookieJar, site *url.URL) *JarCookies {
	return &JarCookies{jar: jar, site: site}
}

// RemoveCookie expires the cookie called name
func (c *JarCookies) RemoveCookie(name string) {
	c.jar.SetCookies(c.site, []*http.Cookie{{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
}
