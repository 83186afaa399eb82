// Package cache implements an offline-first cache for the static app shell.
// A fixed manifest is precached into a versioned namespace at install time,
// stale namespaces are purged at activation, and requests are then served
// cache-first with network fallback.
package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NamespacePrefix tags every cache namespace owned by this manager. The
// full namespace name is the prefix plus the deployed version; bumping the
// version is the sole cache-invalidation mechanism.
const NamespacePrefix = "booktracker-"

// DefaultOfflinePath is the fallback page served when a navigation request
// cannot be satisfied from cache or network.
const DefaultOfflinePath = "/offline.html"

// DefaultManifest lists the static shell assets precached at install time.
var DefaultManifest = []string{
	"/",
	"/index.html",
	"/offline.html",
	"/manifest.webmanifest",
	"/css/style.css",
	"/js/utils.js",
	"/js/db.js",
	"/js/books.js",
	"/js/quotes.js",
	"/js/stats.js",
	"/js/app.js",
	"/assets/icon-192.png",
	"/assets/icon-512.png",
}

// Control actions accepted from the hosting page.
const (
	ActionSkipWaiting = "skipWaiting"
	ActionClearCache  = "clearCache"
)

// ControlMessage is an out-of-band command for the manager.
type ControlMessage struct {
	Action string `json:"action"`
}

// InstallError reports a failed precache. Install is all-or-nothing: a
// single failing asset fails the whole phase and leaves no namespace behind.
type InstallError struct {
	Path string
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("precache %s failed: %v", e.Path, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Manager serves the static shell cache-first from a versioned namespace,
// falling back to the origin on misses. It owns its namespaces exclusively.
type Manager struct {
	store    *Store
	origin   *url.URL
	client   *http.Client
	log      *zap.Logger
	version  string
	manifest []string
	offline  string

	mu        sync.Mutex
	installed bool
	active    bool
}

// NewManager creates a manager for the given origin and version. A nil
// manifest selects DefaultManifest; an empty offlinePath selects
// DefaultOfflinePath.
func NewManager(store *Store, origin, version string, manifest []string, offlinePath string, log *zap.Logger) (*Manager, error) {
	originURL, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return nil, fmt.Errorf("origin url must be http(s), got %q", origin)
	}
	if version == "" {
		return nil, fmt.Errorf("cache version is required")
	}
	if manifest == nil {
		manifest = DefaultManifest
	}
	if offlinePath == "" {
		offlinePath = DefaultOfflinePath
	}
	return &Manager{
		store:    store,
		origin:   originURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
		version:  version,
		manifest: manifest,
		offline:  offlinePath,
	}, nil
}

// Namespace returns the cache namespace for the current version.
func (m *Manager) Namespace() string {
	return NamespacePrefix + m.version
}

// Version returns the deployed version string.
func (m *Manager) Version() string {
	return m.version
}

// Install fetches every manifest asset from the origin and stores it in the
// current namespace. Any failure removes the partial namespace and fails
// the install; the host retries on its next start.
func (m *Manager) Install(ctx context.Context) error {
	namespace := m.Namespace()
	m.log.Info("installing cache",
		zap.String("namespace", namespace),
		zap.Int("assets", len(m.manifest)))

	for _, path := range m.manifest {
		entry, err := m.fetch(ctx, path)
		if err == nil && entry.Status != http.StatusOK {
			err = fmt.Errorf("unexpected status %d", entry.Status)
		}
		if err == nil {
			err = m.store.Put(namespace, path, *entry)
		}
		if err != nil {
			_ = m.store.DeleteNamespace(namespace)
			return &InstallError{Path: path, Err: err}
		}
	}

	m.mu.Lock()
	m.installed = true
	m.mu.Unlock()

	m.log.Info("cache install complete", zap.String("namespace", namespace))
	return nil
}

// Activate deletes every namespace other than the current version's and
// takes over serving.
func (m *Manager) Activate(ctx context.Context) error {
	namespaces, err := m.store.Namespaces()
	if err != nil {
		return err
	}
	for _, namespace := range namespaces {
		if namespace == m.Namespace() {
			continue
		}
		m.log.Info("deleting stale cache", zap.String("namespace", namespace))
		if err := m.store.DeleteNamespace(namespace); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.active = true
	m.mu.Unlock()

	m.log.Info("cache activated", zap.String("namespace", m.Namespace()))
	return nil
}

// Control handles an out-of-band message from the hosting page.
func (m *Manager) Control(ctx context.Context, msg ControlMessage) error {
	switch msg.Action {
	case ActionSkipWaiting:
		m.mu.Lock()
		pending := m.installed && !m.active
		m.mu.Unlock()
		if pending {
			return m.Activate(ctx)
		}
		return nil
	case ActionClearCache:
		return m.clearAll()
	default:
		return fmt.Errorf("unknown control action %q", msg.Action)
	}
}

// clearAll deletes every namespace regardless of version. A manual reset
// escape hatch; subsequent requests repopulate the cache from the network.
func (m *Manager) clearAll() error {
	namespaces, err := m.store.Namespaces()
	if err != nil {
		return err
	}
	for _, namespace := range namespaces {
		m.log.Info("clearing cache", zap.String("namespace", namespace))
		if err := m.store.DeleteNamespace(namespace); err != nil {
			return err
		}
	}
	return nil
}

// ServeHTTP serves GET requests cache-first. Non-GET requests are passed
// through to the origin untouched and never cached.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		m.passThrough(w, r)
		return
	}

	key := r.URL.RequestURI()
	namespace := m.Namespace()

	entry, ok, err := m.store.Get(namespace, key)
	if err != nil {
		m.log.Warn("cache lookup failed", zap.String("path", key), zap.Error(err))
	}
	if ok {
		writeEntry(w, entry)
		return
	}

	netEntry, err := m.fetch(r.Context(), key)
	if err != nil {
		m.serveOffline(w, r, namespace)
		return
	}

	if netEntry.Status == http.StatusOK {
		// Best effort: a failed write must not affect the response.
		if err := m.store.Put(namespace, key, *netEntry); err != nil {
			m.log.Warn("cache write failed", zap.String("path", key), zap.Error(err))
		}
	}
	writeEntry(w, netEntry)
}

// serveOffline answers a request whose network fetch failed: navigations
// get the cached offline page, everything else a synthesized 503.
func (m *Manager) serveOffline(w http.ResponseWriter, r *http.Request, namespace string) {
	if isNavigation(r) {
		if entry, ok, err := m.store.Get(namespace, m.offline); err == nil && ok {
			writeEntry(w, entry)
			return
		}
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = io.WriteString(w, "offline")
}

// isNavigation reports whether the request loads a top-level page rather
// than a subresource.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// fetch retrieves ref (a path, optionally with a query string) from the
// origin and captures the full response.
func (m *Manager) fetch(ctx context.Context, ref string) (*Entry, error) {
	target, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse request path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.origin.ResolveReference(target).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch from origin: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read origin response: %w", err)
	}

	return &Entry{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

// passThrough forwards a request to the origin without caching.
func (m *Manager) passThrough(w http.ResponseWriter, r *http.Request) {
	target := m.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	req.Header = r.Header.Clone()

	resp, err := m.client.Do(req)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
	for _, key := range hopHeaders {
		dst.Del(key)
	}
}

func writeEntry(w http.ResponseWriter, entry *Entry) {
	copyHeader(w.Header(), entry.Header)
	w.Header().Set("Content-Length", fmt.Sprint(len(entry.Body)))
	w.WriteHeader(entry.Status)
	_, _ = w.Write(entry.Body)
}
