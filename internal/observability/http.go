package observability

import (
	"net"
	"net/http"
	"strings"
)

// ClientMeta carries per-connection request metadata attached to
// websocket lifecycle events.
type ClientMeta struct {
	DeviceID  string
	RequestID string
	IP        string
}

// ClientMetaFromRequest extracts the client-reported device id, the
// propagated correlation id, and the originating IP. The first entry of
// X-Forwarded-For wins over the socket peer address.
func ClientMetaFromRequest(r *http.Request) ClientMeta {
	return ClientMeta{
		DeviceID:  r.Header.Get("X-Device-Id"),
		RequestID: r.Header.Get("X-Request-Id"),
		IP:        clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
