package transport

import (
	"net"
	"net/url"
	"time"
)

// Probe reports connectivity by attempting a short TCP dial to the backend
// host. The selector consults it once per session start.
type Probe struct {
	addr    string
	timeout time.Duration
}

func NewProbe(baseURL string, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	addr := ""
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		addr = u.Host
		if u.Port() == "" {
			switch u.Scheme {
			case "https", "wss":
				addr = net.JoinHostPort(u.Hostname(), "443")
			default:
				addr = net.JoinHostPort(u.Hostname(), "80")
			}
		}
	}
	return &Probe{addr: addr, timeout: timeout}
}

func (p *Probe) Online() bool {
	if p.addr == "" {
		return false
	}
	conn, err := net.DialTimeout("tcp", p.addr, p.timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
