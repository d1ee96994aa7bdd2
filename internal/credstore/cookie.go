package credstore

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// CookieStore reads keys from the request cookie jar and writes them back
// as Set-Cookie headers on the response. Writes are no-ops when the store
// was built without a response writer (outside a request context), never
// an error.
//
// Values are percent-encoded on the wire: the cached account profile is
// raw JSON, and bare quotes or commas would not survive a Set-Cookie
// header.
type CookieStore struct {
	r *http.Request
	w http.ResponseWriter
}

func NewCookie(r *http.Request, w http.ResponseWriter) *CookieStore {
	return &CookieStore{r: r, w: w}
}

func (c *CookieStore) Get(_ context.Context, key string) (string, error) {
	if c.r == nil {
		return "", nil
	}

	cookie, err := c.r.Cookie(key)
	if err != nil {
		// Only http.ErrNoCookie is possible here
		return "", nil
	}

	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		// Not something this store wrote; hand it over as is
		return cookie.Value, nil
	}
	return value, nil
}

func (c *CookieStore) Set(_ context.Context, key string, value string, expiry time.Time) error {
	if c.w == nil {
		return nil
	}

	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiry,
	})
	return nil
}

func (c *CookieStore) Remove(_ context.Context, key string) error {
	if c.w == nil {
		return nil
	}

	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	return nil
}
