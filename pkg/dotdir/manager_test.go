package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/council/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var workDir, homeDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		root, err := filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		workDir = filepath.Join(root, "project")
		homeDir = filepath.Join(root, "home")
		Expect(os.Mkdir(workDir, 0o755)).To(Succeed())
		Expect(os.Mkdir(homeDir, 0o755)).To(Succeed())

		m = dotdir.NewManager(dotdir.WithWorkDir(workDir), dotdir.WithHomeDir(homeDir))
	})

	Describe("Target", func() {
		It("creates and returns the override dir", func() {
			dir := filepath.Join(workDir, "custom")
			Expect(os.Mkdir(filepath.Join(workDir, ".council"), 0o755)).To(Succeed())

			got, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(dir))
			Expect(dir).To(BeADirectory())
		})

		It("prefers an existing local .council dir over home", func() {
			local := filepath.Join(workDir, ".council")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			got, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(local))
			Expect(filepath.Join(homeDir, ".council")).NotTo(BeADirectory())
		})

		It("ignores a local .council that is a file", func() {
			Expect(os.WriteFile(filepath.Join(workDir, ".council"), nil, 0o600)).To(Succeed())

			got, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(homeDir, ".council")))
		})

		It("creates ~/.council when there is no local dir", func() {
			got, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(homeDir, ".council")))
			Expect(got).To(BeADirectory())
		})
	})

	Describe("File", func() {
		It("joins the name onto the target", func() {
			got, err := m.File("", "config.toml")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(homeDir, ".council", "config.toml")))
		})
	})
})

