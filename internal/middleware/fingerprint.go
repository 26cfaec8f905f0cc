package middleware

import (
	"net"
	"net/http"
	"strings"
)

// Fingerprint はリクエストから投稿者識別用のフィンガープリントを導出する。
// X-Forwarded-Forヘッダーがあれば先頭（オリジナル送信元）のIPを、
// なければRemoteAddrのIP部分を返す。
// IPベースの識別のため、同一NAT配下の利用者は同一フィンガープリントを
// 共有する。これは評価の重複排除としては粗い制約であり、
// 厳密な1人1票の保証ではない。
func Fingerprint(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
