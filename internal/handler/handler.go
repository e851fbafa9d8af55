package handler

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angeloszaimis/inverse-config/internal/metrics"
	"github.com/angeloszaimis/inverse-config/internal/webconfig"
	"github.com/angeloszaimis/inverse-config/pkg/logger"
)

type ConfigHandler struct {
	logger            *slog.Logger
	assembler         *webconfig.Assembler
	metricsCollector  *metrics.Collector
	trustProxyHeaders bool
}

func NewConfigHandler(logger *slog.Logger, assembler *webconfig.Assembler, collector *metrics.Collector, trustProxyHeaders bool) *ConfigHandler {
	return &ConfigHandler{
		logger:            logger,
		assembler:         assembler,
		metricsCollector:  collector,
		trustProxyHeaders: trustProxyHeaders,
	}
}

// ServeHTTP adapts Serve to net/http. Write failures cannot be reported to
// the client any more, so they are logged and counted.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Serve(w, r); err != nil {
		logger.WithRequestID(h.logger, r).Error("Failed to write config response",
			slog.String("from", clientIP(r, h.trustProxyHeaders)),
			slog.String("error", err.Error()))

		h.metricsCollector.Emit(metrics.MetricEvent{
			Type:      metrics.EventConfigWriteFailed,
			Timestamp: time.Now(),
		})
	}
}

// Serve writes the configuration document for r and flushes it. An error
// from writing or flushing the response is returned unmodified.
func (h *ConfigHandler) Serve(w http.ResponseWriter, r *http.Request) error {
	start := time.Now()
	log := logger.WithRequestID(h.logger, r)

	log.Debug("Processing config request",
		slog.String("from", clientIP(r, h.trustProxyHeaders)),
		slog.String("host", r.Host))

	doc := h.assembler.Build(RequestInfo(r, h.trustProxyHeaders))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	n, err := doc.WriteTo(w)
	if err != nil {
		return err
	}

	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:      metrics.EventConfigServed,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Bytes:     n,
	})

	log.Debug("Served config",
		slog.String("bosh_service_url", doc.BoshServiceURL),
		slog.String("domain", doc.Domain()),
		slog.Int64("bytes", n))

	return nil
}

// RequestInfo derives the address the client used to reach the server, the
// way a servlet container reports scheme, server name and server port. With
// trustProxy set, X-Forwarded-Proto, X-Forwarded-Host and X-Forwarded-Port
// take precedence.
func RequestInfo(r *http.Request, trustProxy bool) webconfig.RequestInfo {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	hostport := r.Host

	if trustProxy {
		if proto := firstHeaderValue(r, "X-Forwarded-Proto"); proto != "" {
			scheme = strings.ToLower(proto)
		}
		if fwdHost := firstHeaderValue(r, "X-Forwarded-Host"); fwdHost != "" {
			hostport = fwdHost
		}
	}

	host, port := splitHostPort(hostport)
	if host == "" {
		host = localHost(r)
	}

	if trustProxy {
		if p, err := strconv.Atoi(firstHeaderValue(r, "X-Forwarded-Port")); err == nil && p > 0 {
			port = p
		}
	}

	if port == 0 {
		port = defaultPort(scheme)
	}

	return webconfig.RequestInfo{
		Scheme: scheme,
		Host:   urlHost(host),
		Port:   port,
	}
}

func splitHostPort(hostport string) (string, int) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return strings.Trim(hostport, "[]"), 0
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return host, 0
	}
	return host, port
}

func localHost(r *http.Request) string {
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		if host, _, err := net.SplitHostPort(addr.String()); err == nil {
			return host
		}
	}
	return "localhost"
}

func urlHost(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

func firstHeaderValue(r *http.Request, name string) string {
	v := r.Header.Get(name)
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// clientIP is the peer address, or the first X-Forwarded-For entry when
// proxy headers are trusted.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := firstHeaderValue(r, "X-Forwarded-For"); xff != "" {
			return xff
		}
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
