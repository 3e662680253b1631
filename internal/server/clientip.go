package server

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/raaihank/fairhire/internal/websocket"
)

// clientResolver picks the address a request is rate limited and logged
// under. Forwarding headers count only when the peer is a trusted proxy.
type clientResolver struct {
	trusted []netip.Prefix
}

// newClientResolver parses trusted proxies given as addresses or CIDR prefixes.
func newClientResolver(proxies []string) (*clientResolver, error) {
	c := &clientResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(p); err == nil {
			c.trusted = append(c.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", p)
		}
		addr = addr.Unmap()
		c.trusted = append(c.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return c, nil
}

func (c *clientResolver) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address, or for a trusted peer the nearest
// untrusted hop of X-Forwarded-For, then X-Real-IP.
func (c *clientResolver) clientIP(r *http.Request) string {
	remote := websocket.ClientIP(r)
	peer, err := netip.ParseAddr(remote)
	if err != nil || !c.isTrusted(peer) {
		return remote
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	// Right to left: the last entries were appended by our own proxies.
	var leftmost string
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		leftmost = addr.Unmap().String()
		if !c.isTrusted(addr) {
			return leftmost
		}
	}
	if leftmost != "" {
		return leftmost
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return remote
}
