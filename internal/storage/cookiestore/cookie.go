// Package cookiestore mirrors wizard drafts into browser cookies. A Store is
// bound to one request/response pair.
package cookiestore

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const DefaultMaxAge = 7 * 24 * time.Hour

type Options struct {
	MaxAge time.Duration
	Secure bool
}

type Store struct {
	w    http.ResponseWriter
	r    *http.Request
	opts Options

	mu sync.Mutex
	// written holds values set during this request; nil value means removed.
	written map[string]*string
}

func New(w http.ResponseWriter, r *http.Request, opts Options) *Store {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	return &Store{w: w, r: r, opts: opts, written: map[string]*string{}}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	if v, ok := s.written[key]; ok {
		s.mu.Unlock()
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}
	s.mu.Unlock()

	c, err := s.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.written[key] = &value
	s.mu.Unlock()

	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(s.opts.MaxAge / time.Second),
		Expires:  time.Now().Add(s.opts.MaxAge),
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	s.written[key] = nil
	s.mu.Unlock()

	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}
