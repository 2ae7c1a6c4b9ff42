package security

import (
	"net/http"
	"strings"
)

// CORS answers preflight requests and tags responses for browser clients.
// The device header must be allowed or browsers drop it.
type CORS struct {
	allowAll bool
	origins  map[string]struct{}
	headers  string
	methods  string
}

func NewCORS(allowedOrigins []string, extraHeaders ...string) *CORS {
	c := &CORS{
		origins: make(map[string]struct{}),
		headers: strings.Join(append([]string{"Content-Type", "X-Request-ID"}, extraHeaders...), ", "),
		methods: "GET, POST, PUT, DELETE, OPTIONS",
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			c.allowAll = true
			continue
		}
		c.origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	return c
}

func (c *CORS) allowed(origin string) bool {
	if c.allowAll {
		return true
	}
	_, ok := c.origins[origin]
	return ok
}

func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !c.allowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		if c.allowAll {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", c.methods)
			h.Set("Access-Control-Allow-Headers", c.headers)
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
