package dotdir_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/council/pkg/dotdir"
)

var _ = Describe("dotdir.Manager state", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	Describe("LoadState", func() {
		It("returns an empty state when no state file exists", func() {
			state, err := m.LoadState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(&dotdir.State{}))
		})

		It("returns an error for invalid JSON", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "state.json"), []byte("{nope"), 0o600)).To(Succeed())

			_, err := m.LoadState(tmpDir)
			Expect(err).To(MatchError(ContainSubstring("parsing state")))
		})
	})

	Describe("SaveState", func() {
		It("returns an error for nil state", func() {
			Expect(m.SaveState(nil, tmpDir)).NotTo(Succeed())
		})

		It("round-trips the state", func() {
			want := &dotdir.State{DeviceID: "device_x", LastConversation: "conv-1"}
			Expect(m.SaveState(want, tmpDir)).To(Succeed())

			got, err := m.LoadState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		})
	})

	Describe("DeviceID", func() {
		It("generates a device id once and then reuses it", func() {
			first, err := m.DeviceID(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.HasPrefix(first, "device_")).To(BeTrue())

			second, err := m.DeviceID(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("keeps the last conversation when generating", func() {
			Expect(m.SetLastConversation("conv-9", tmpDir)).To(Succeed())

			_, err := m.DeviceID(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.LastConversation).To(Equal("conv-9"))
			Expect(state.DeviceID).NotTo(BeEmpty())
		})
	})

	Describe("NewDeviceID", func() {
		It("is unique", func() {
			Expect(dotdir.NewDeviceID()).NotTo(Equal(dotdir.NewDeviceID()))
		})
	})
})
