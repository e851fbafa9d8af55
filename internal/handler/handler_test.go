package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/inverse-config/internal/handler"
	"github.com/angeloszaimis/inverse-config/internal/identity"
	"github.com/angeloszaimis/inverse-config/internal/language"
	"github.com/angeloszaimis/inverse-config/internal/metrics"
	"github.com/angeloszaimis/inverse-config/internal/properties"
	"github.com/angeloszaimis/inverse-config/internal/webconfig"
	"github.com/angeloszaimis/inverse-config/pkg/logger"
)

// brokenWriter fails every body write.
type brokenWriter struct {
	header http.Header
	err    error
	status int
}

func (w *brokenWriter) Header() http.Header {
	return w.header
}

func (w *brokenWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

func (w *brokenWriter) WriteHeader(code int) {
	w.status = code
}

var _ = Describe("ConfigHandler", func() {
	var (
		h         *handler.ConfigHandler
		store     properties.Map
		collector *metrics.Collector
		logBuf    *bytes.Buffer
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		logBuf = &bytes.Buffer{}
		log = logger.NewWithWriter(logBuf, "debug", false, "prod")

		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, slog.New(slog.NewTextHandler(GinkgoWriter, nil)))
		collector.Start(ctx)

		store = properties.Map{}
		assembler := webconfig.NewAssembler(store,
			identity.Static{XMPPDomain: "example.com"},
			language.Fixed(language.English),
			"inverse")
		h = handler.NewConfigHandler(log, assembler, collector, false)
	})

	AfterEach(func() {
		cancel()
	})

	Describe("ServeHTTP", func() {
		It("should write the configuration as indented JSON", func() {
			req := httptest.NewRequest(http.MethodGet, "https://chat.example.com/inverse/config", nil)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json; charset=utf-8"))
			Expect(w.Header().Get("Cache-Control")).To(Equal("no-store"))
			Expect(w.Body.String()).To(HavePrefix("{\n  \""))

			var out map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &out)).To(Succeed())
			Expect(out).To(HaveKeyWithValue("default_domain", "example.com"))
			Expect(out).To(HaveKeyWithValue("bosh_service_url", "https://chat.example.com:443/http-bind/"))
			Expect(out).NotTo(HaveKey("registration_domain"))
			Expect(out).NotTo(HaveKey("allow_registration"))
		})

		It("should flush the response", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inverse/config", nil))
			Expect(w.Flushed).To(BeTrue())
		})

		It("should reflect store changes between requests", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inverse/config", nil))
			Expect(w.Body.String()).To(ContainSubstring(`"loglevel": "info"`))

			store[webconfig.Key(webconfig.SettingLogLevel)] = "debug"
			w = httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inverse/config", nil))
			Expect(w.Body.String()).To(ContainSubstring(`"loglevel": "debug"`))
		})

		Context("with X-Forwarded-For", func() {
			newRequest := func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/inverse/config", nil)
				req.RemoteAddr = "203.0.113.5:40000"
				req.Header.Set("X-Forwarded-For", "10.9.9.9, 10.0.0.1")
				return req
			}

			It("should log the peer address unless proxy headers are trusted", func() {
				h.ServeHTTP(httptest.NewRecorder(), newRequest())

				Expect(logBuf.String()).To(ContainSubstring(`"from":"203.0.113.5"`))
				Expect(logBuf.String()).NotTo(ContainSubstring("10.9.9.9"))
			})

			It("should log the forwarded client when proxy headers are trusted", func() {
				assembler := webconfig.NewAssembler(store,
					identity.Static{XMPPDomain: "example.com"},
					language.Fixed(language.English),
					"inverse")
				trusted := handler.NewConfigHandler(log, assembler, collector, true)

				trusted.ServeHTTP(httptest.NewRecorder(), newRequest())

				Expect(logBuf.String()).To(ContainSubstring(`"from":"10.9.9.9"`))
			})
		})

		It("should count served documents", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inverse/config", nil))

			Eventually(func() int64 {
				return collector.Snapshot().ConfigsServed
			}).Should(Equal(int64(1)))
			Expect(collector.Snapshot().ConfigBytes).To(Equal(int64(w.Body.Len())))
		})

		Context("when the response cannot be written", func() {
			It("should log and count the failure", func() {
				w := &brokenWriter{header: http.Header{}, err: errors.New("connection reset by peer")}
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inverse/config", nil))

				Eventually(func() int64 {
					return collector.Snapshot().WriteFailures
				}).Should(Equal(int64(1)))
				Expect(collector.Snapshot().ConfigsServed).To(BeZero())
				Expect(logBuf.String()).To(ContainSubstring("Failed to write config response"))
				Expect(logBuf.String()).To(ContainSubstring("connection reset by peer"))
			})
		})

		It("should work without a metrics collector", func() {
			assembler := webconfig.NewAssembler(store, identity.Static{XMPPDomain: "example.com"}, language.Fixed(language.English), "inverse")
			bare := handler.NewConfigHandler(log, assembler, nil, false)

			w := httptest.NewRecorder()
			bare.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inverse/config", nil))
			Expect(w.Code).To(Equal(http.StatusOK))

			Expect(func() {
				bare.ServeHTTP(&brokenWriter{header: http.Header{}, err: errors.New("gone")},
					httptest.NewRequest(http.MethodGet, "/inverse/config", nil))
			}).NotTo(Panic())
		})
	})

	Describe("Serve", func() {
		It("should return the write error unmodified", func() {
			errGone := errors.New("broken pipe")
			w := &brokenWriter{header: http.Header{}, err: errGone}

			err := h.Serve(w, httptest.NewRequest(http.MethodGet, "/inverse/config", nil))
			Expect(err).To(BeIdenticalTo(errGone))
		})

		It("should succeed on writers without flush support", func() {
			w := &struct{ http.ResponseWriter }{httptest.NewRecorder()}
			err := h.Serve(w, httptest.NewRequest(http.MethodGet, "/inverse/config", nil))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

var _ = Describe("RequestInfo", func() {
	newRequest := func(target string) *http.Request {
		return httptest.NewRequest(http.MethodGet, target, nil)
	}

	DescribeTable("without proxy headers",
		func(target, host string, want webconfig.RequestInfo) {
			req := newRequest(target)
			if host != "" {
				req.Host = host
			}
			Expect(handler.RequestInfo(req, false)).To(Equal(want))
		},
		Entry("plain http", "http://chat.example.com/inverse/config", "",
			webconfig.RequestInfo{Scheme: "http", Host: "chat.example.com", Port: 80}),
		Entry("tls", "https://chat.example.com/inverse/config", "",
			webconfig.RequestInfo{Scheme: "https", Host: "chat.example.com", Port: 443}),
		Entry("explicit port", "http://localhost:7070/inverse/config", "",
			webconfig.RequestInfo{Scheme: "http", Host: "localhost", Port: 7070}),
		Entry("ipv6 with port", "/inverse/config", "[::1]:7443",
			webconfig.RequestInfo{Scheme: "http", Host: "[::1]", Port: 7443}),
		Entry("ipv6 without port", "/inverse/config", "[fe80::1]",
			webconfig.RequestInfo{Scheme: "http", Host: "[fe80::1]", Port: 80}),
		Entry("bad port", "/inverse/config", "chat.example.com:http",
			webconfig.RequestInfo{Scheme: "http", Host: "chat.example.com", Port: 80}),
	)

	It("should fall back to the local address without a host", func() {
		req := newRequest("/inverse/config")
		req.Host = ""
		addr := &net.TCPAddr{IP: net.ParseIP("192.0.2.10"), Port: 7070}
		req = req.WithContext(context.WithValue(req.Context(), http.LocalAddrContextKey, addr))

		Expect(handler.RequestInfo(req, false)).To(Equal(webconfig.RequestInfo{Scheme: "http", Host: "192.0.2.10", Port: 80}))
	})

	It("should fall back to localhost without any address", func() {
		req := newRequest("/inverse/config")
		req.Host = ""
		Expect(handler.RequestInfo(req, false).Host).To(Equal("localhost"))
	})

	Context("with proxy headers", func() {
		var req *http.Request

		BeforeEach(func() {
			req = newRequest("http://10.0.0.5:7070/inverse/config")
			req.Header.Set("X-Forwarded-Proto", "HTTPS")
			req.Header.Set("X-Forwarded-Host", "chat.example.com, proxy.internal")
		})

		It("should ignore them unless trusted", func() {
			Expect(handler.RequestInfo(req, false)).To(Equal(webconfig.RequestInfo{Scheme: "http", Host: "10.0.0.5", Port: 7070}))
		})

		It("should use them when trusted", func() {
			Expect(handler.RequestInfo(req, true)).To(Equal(webconfig.RequestInfo{Scheme: "https", Host: "chat.example.com", Port: 443}))
		})

		It("should honour X-Forwarded-Port", func() {
			req.Header.Set("X-Forwarded-Port", "8443")
			Expect(handler.RequestInfo(req, true)).To(Equal(webconfig.RequestInfo{Scheme: "https", Host: "chat.example.com", Port: 8443}))
		})

		It("should ignore an invalid X-Forwarded-Port", func() {
			req.Header.Set("X-Forwarded-Port", "nope")
			Expect(handler.RequestInfo(req, true).Port).To(Equal(443))
		})
	})
})
