// client.go — данные клиента для журнала входов.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// unknownClient — значение для отсутствующего адреса или User-Agent.
const unknownClient = "unknown"

// ClientIP возвращает адрес клиента: первый элемент X-Forwarded-For,
// затем X-Real-IP, затем хост из RemoteAddr. Пустой результат — "unknown".
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if r.RemoteAddr == "" {
		return unknownClient
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserAgent возвращает заголовок User-Agent или "unknown".
func UserAgent(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return unknownClient
}
