// Package proxy rotates outbound HTTP proxies across requests.
package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// Rotator hands out proxies in round-robin order. A Rotator with no proxies
// sends every request direct.
type Rotator struct {
	proxies []*url.URL
	mu      sync.Mutex
	next    int
}

// NewRotator parses each proxy URL. Entries need a scheme and a host.
func NewRotator(rawProxies []string) (*Rotator, error) {
	r := &Rotator{}
	for _, raw := range rawProxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q: scheme and host are required", raw)
		}
		r.proxies = append(r.proxies, u)
	}
	return r, nil
}

func (r *Rotator) Len() int { return len(r.proxies) }

// Next returns the proxy for the following request, or nil when none are configured.
func (r *Rotator) Next() *url.URL {
	if len(r.proxies) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.proxies[r.next]
	r.next = (r.next + 1) % len(r.proxies)
	return p
}

// ProxyFunc satisfies http.Transport.Proxy.
func (r *Rotator) ProxyFunc(*http.Request) (*url.URL, error) {
	return r.Next(), nil
}

// Transport clones the default transport and routes it through the rotator.
func (r *Rotator) Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = r.ProxyFunc
	return t
}
