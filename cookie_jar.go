package goGuard

import "sync"

// memoryCookieJar is the in-process [CookieJar] used when no browser bridge is
// injected. Cookies are keyed by name; a later Set with the same name replaces
// the earlier one, matching browser behavior for a single host.
type memoryCookieJar struct {
	mu      sync.RWMutex
	cookies map[string]Cookie
}

// NewMemoryCookieJar creates an empty in-process cookie jar.
func NewMemoryCookieJar() CookieJar {
	return &memoryCookieJar{
		cookies: make(map[string]Cookie),
	}
}

// Set implements [CookieJar].
func (j *memoryCookieJar) Set(c Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cookies[c.Name] = c
	return nil
}

// Get implements [CookieJar].
func (j *memoryCookieJar) Get(name string) (Cookie, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	c, ok := j.cookies[name]
	return c, ok
}

// Delete implements [CookieJar]. An empty path deletes regardless of the
// stored path; a non-empty path deletes only on exact match.
func (j *memoryCookieJar) Delete(name, path string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	c, ok := j.cookies[name]
	if !ok {
		return
	}
	if path != "" && c.Path != path {
		return
	}
	delete(j.cookies, name)
}

// All implements [CookieJar].
func (j *memoryCookieJar) All() []Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		out = append(out, c)
	}
	return out
}
