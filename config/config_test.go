package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/inverse-config/config"
)

var _ = Describe("Config", func() {
	var (
		tempDir string
		origDir string
	)

	writeConfig := func(name, content string) string {
		configPath := filepath.Join(tempDir, name)
		err := os.WriteFile(configPath, []byte(content), 0644)
		Expect(err).NotTo(HaveOccurred())
		return configPath
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tempDir)
		os.Unsetenv("SERVER_ADDRESS")
		os.Unsetenv("XMPP_DOMAIN")
	})

	Describe("Load", func() {
		Context("with valid config file", func() {
			var configPath string

			BeforeEach(func() {
				configPath = writeConfig("config.yaml", `
server:
  address: ":9090"
  environment: "prod"
  trust_proxy_headers: true

xmpp:
  domain: "chat.example.org"
  inband_registration: false

web:
  context_root: "chat"
  language: "de"

properties:
  file: "/etc/inverse/properties.yaml"
  watch: false

logging:
  level: "debug"

metrics:
  buffer_size: 50
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load(configPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should parse the server section", func() {
				cfg, _ := config.Load(configPath)
				Expect(cfg.Server.Address).To(Equal(":9090"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvProd))
				Expect(cfg.Server.TrustProxyHeaders).To(BeTrue())
			})

			It("should parse the xmpp section", func() {
				cfg, _ := config.Load(configPath)
				Expect(cfg.XMPP.Domain).To(Equal("chat.example.org"))
				Expect(cfg.XMPP.InbandRegistration).To(BeFalse())
			})

			It("should parse the web and properties sections", func() {
				cfg, _ := config.Load(configPath)
				Expect(cfg.Web.ContextRoot).To(Equal("chat"))
				Expect(cfg.Web.Language).To(Equal("de"))
				Expect(cfg.Properties.File).To(Equal("/etc/inverse/properties.yaml"))
				Expect(cfg.Properties.Watch).To(BeFalse())
				Expect(cfg.Metrics.BufferSize).To(Equal(50))
			})

			It("should let environment variables override the file", func() {
				os.Setenv("SERVER_ADDRESS", "127.0.0.1:8080")
				cfg, err := config.Load(configPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal("127.0.0.1:8080"))
			})
		})

		Context("without a config file", func() {
			BeforeEach(func() {
				Expect(os.Chdir(tempDir)).To(Succeed())
			})

			It("should use defaults", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":7070"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvDev))
				Expect(cfg.XMPP.Domain).To(Equal("localhost"))
				Expect(cfg.XMPP.InbandRegistration).To(BeTrue())
				Expect(cfg.Web.ContextRoot).To(Equal("inverse"))
				Expect(cfg.Properties.Watch).To(BeTrue())
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelInfo))
			})

			It("should find config.yaml in the working directory", func() {
				writeConfig("config.yaml", "xmpp:\n  domain: found.example.org\n")
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.XMPP.Domain).To(Equal("found.example.org"))
			})

			It("should read values from the environment", func() {
				os.Setenv("XMPP_DOMAIN", "env.example.org")
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.XMPP.Domain).To(Equal("env.example.org"))
			})
		})

		Context("with an invalid file", func() {
			It("should fail for a missing explicit file", func() {
				cfg, err := config.Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
				Expect(cfg).To(BeNil())
			})

			It("should fail for unknown log levels", func() {
				path := writeConfig("config.yaml", "logging:\n  level: loud\n")
				cfg, err := config.Load(path)
				Expect(err).To(HaveOccurred())
				Expect(cfg).To(BeNil())
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			cfg = &config.Config{
				Server:     config.ServerConfig{Address: ":7070", Environment: config.EnvDev},
				XMPP:       config.XMPPConfig{Domain: "example.com"},
				Web:        config.WebConfig{ContextRoot: "inverse"},
				Properties: config.PropertiesConfig{File: "properties.yaml"},
				Logging:    config.LoggingConfig{Level: config.LogLevelInfo},
				Metrics:    config.MetricsConfig{BufferSize: 10},
			}
		})

		It("should accept a valid configuration", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject an unknown environment", func() {
			cfg.Server.Environment = "qa"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an address without a port", func() {
			cfg.Server.Address = "localhost"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a certificate without a key", func() {
			cfg.Server.TLSCert = "cert.pem"
			Expect(cfg.Validate()).NotTo(Succeed())

			cfg.Server.TLSKey = "key.pem"
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject a key without a certificate", func() {
			cfg.Server.TLSKey = "key.pem"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require an XMPP domain", func() {
			cfg.XMPP.Domain = ""
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a malformed XMPP domain", func() {
			cfg.XMPP.Domain = "not a domain"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a context root with unsafe characters", func() {
			cfg.Web.ContextRoot = "../escape?"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject dot segments in the context root", func() {
			cfg.Web.ContextRoot = "apps/../inverse"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should accept a nested context root", func() {
			cfg.Web.ContextRoot = "/apps/inverse/"
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should require the web root to be a directory", func() {
			cfg.Web.RootDir = filepath.Join(tempDir, "missing")
			Expect(cfg.Validate()).NotTo(Succeed())

			cfg.Web.RootDir = tempDir
			Expect(cfg.Validate()).To(Succeed())

			file := writeConfig("file.txt", "x")
			cfg.Web.RootDir = file
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an empty metrics buffer", func() {
			cfg.Metrics.BufferSize = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})
