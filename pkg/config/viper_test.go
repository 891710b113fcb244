package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		data := `[client]
api_target = "http://council:8000"
stream_idle_timeout = "0s"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("client.api_target")).To(Equal("http://council:8000"))
		Expect(v.GetString("client.stream_idle_timeout")).To(Equal("0s"))
		Expect(v.GetString("client.request_timeout")).To(Equal("30s"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[client]
api_target = "http://from-file:8000"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("COUNCIL_CLIENT_API_TARGET", "http://from-env:8000")
		GinkgoT().Setenv("COUNCIL_RENDER_PLAIN", "true")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.APITarget).To(Equal("http://from-env:8000"))
		Expect(cfg.Render.Plain).To(BeTrue())
	})

	It("rejects invalid effective values", func() {
		GinkgoT().Setenv("COUNCIL_CLIENT_REQUEST_TIMEOUT", "forever")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		_, err = config.FromViper(v)
		Expect(err).To(MatchError(ContainSubstring("client.request_timeout")))
	})
})

var _ = Describe("BindRegisteredFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	newCmd := func() (*cobra.Command, *string, *bool) {
		cmd := &cobra.Command{Use: "test"}
		var target string
		var plain bool
		config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &target)
		config.AddBoolFlag(cmd, config.ClientFlags, config.FlagPlain, &plain)
		return cmd, &target, &plain
	}

	It("binds a set flag over every other source", func() {
		GinkgoT().Setenv("COUNCIL_CLIENT_API_TARGET", "http://from-env:8000")
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd, _, _ := newCmd()
		Expect(cmd.Flags().Set("api-target", "http://from-flag:8000")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.ClientFlags, config.ClientFlagKeys)

		Expect(v.GetString("client.api_target")).To(Equal("http://from-flag:8000"))
	})

	It("falls through to config when flag not set", func() {
		data := `[render]
plain = true
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd, _, _ := newCmd()
		config.BindRegisteredFlags(v, cmd, config.ClientFlags, config.ClientFlagKeys)

		Expect(v.GetBool("render.plain")).To(BeTrue())
	})

	It("skips flags that were not registered", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{"nonexistent", config.FlagWidth})

		Expect(v.GetUint("render.width")).To(Equal(uint(80)))
	})

	It("pulls name, shorthand, default and description from the FlagSet", func() {
		cmd, _, _ := newCmd()

		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("a"))
		Expect(f.Usage).To(Equal("Council backend URL"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Client.APITarget))

		var width uint
		config.AddUintFlag(cmd, config.ClientFlags, config.FlagWidth, &width)
		Expect(cmd.Flags().Lookup("width").DefValue).To(Equal("80"))
	})
})
