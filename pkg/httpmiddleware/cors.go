package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin resource sharing.
type CORSConfig struct {
	// AllowOrigins lists origins permitted to make cross-origin requests.
	// Empty, or a single "*", allows every origin.
	AllowOrigins []string
	// AllowMethods lists permitted methods. Empty defaults to the common
	// REST set.
	AllowMethods []string
	// AllowHeaders lists permitted request headers. Empty echoes back
	// whatever the preflight asked for.
	AllowHeaders []string
	// ExposeHeaders lists response headers readable by browser scripts.
	ExposeHeaders []string
	// AllowCredentials permits cookies and authorization headers. The
	// wildcard origin is never sent in that mode; the matched origin is
	// echoed instead.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header.
	MaxAge int
}

type corsPolicy struct {
	cfg      CORSConfig
	wildcard bool
	origins  map[string]string // lowercased -> as configured
	methods  string
	headers  string
	expose   string
	maxAge   string
}

// CORS returns a middleware applying the given cross-origin policy. Origin
// matching is case-insensitive and Vary headers are set so shared caches
// never serve one origin's response to another.
func CORS(cfg CORSConfig) Middleware {
	p := &corsPolicy{
		cfg:     cfg,
		origins: make(map[string]string, len(cfg.AllowOrigins)),
	}
	p.wildcard = len(cfg.AllowOrigins) == 0
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.wildcard = true
		}
		p.origins[strings.ToLower(o)] = o
	}
	// Wildcard plus credentials is disallowed; echo the matched origin.
	if cfg.AllowCredentials {
		p.wildcard = false
	}

	p.methods = strings.Join(cfg.AllowMethods, ", ")
	if p.methods == "" {
		p.methods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	}
	p.headers = strings.Join(cfg.AllowHeaders, ", ")
	p.expose = strings.Join(cfg.ExposeHeaders, ", ")
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if isPreflight(r) {
				p.handlePreflight(w, r, origin)
				return
			}
			p.applyActual(w, origin)
			next.ServeHTTP(w, r)
		})
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

func (p *corsPolicy) handlePreflight(w http.ResponseWriter, r *http.Request, origin string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	allow := p.allowValue(origin)
	if allow == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Allow-Methods", p.methods)
	if p.headers != "" {
		h.Set("Access-Control-Allow-Headers", p.headers)
	} else if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	}
	if p.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p *corsPolicy) applyActual(w http.ResponseWriter, origin string) {
	h := w.Header()
	if !p.wildcard {
		h.Add("Vary", "Origin")
	}
	allow := p.allowValue(origin)
	if allow == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", allow)
	if p.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.expose != "" {
		h.Set("Access-Control-Expose-Headers", p.expose)
	}
}

// allowValue resolves the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (p *corsPolicy) allowValue(origin string) string {
	if p.wildcard {
		return "*"
	}
	if configured, ok := p.origins[strings.ToLower(origin)]; ok {
		return configured
	}
	return ""
}
