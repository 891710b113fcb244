package sse

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
)

var _ = Describe("Decoder", func() {
	var (
		logs *bytes.Buffer
		dec  *Decoder
	)

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		dec = NewDecoder(logger.New(logger.WithWriter(logs), logger.WithFormat(logger.FormatJSON)))
	})

	It("decodes a typed payload verbatim", func() {
		ev, ok, done := dec.Decode(`data: {"type":"stage1","model_a":"hi"}`)
		Expect(ok).To(BeTrue())
		Expect(done).To(BeFalse())
		Expect(ev.Type).To(Equal(council.EventStage1))
		Expect(string(ev.Payload)).To(Equal(`{"type":"stage1","model_a":"hi"}`))
	})

	It("turns the sentinel into a final complete event", func() {
		ev, ok, done := dec.Decode("data: [DONE]")
		Expect(ok).To(BeTrue())
		Expect(done).To(BeTrue())
		Expect(ev).To(Equal(council.CompleteEvent()))
	})

	It("returns complete events sent by the backend without ending the stream", func() {
		ev, ok, done := dec.Decode(`data: {"type":"complete"}`)
		Expect(ok).To(BeTrue())
		Expect(done).To(BeFalse())
		Expect(ev.Type).To(Equal(council.EventComplete))
	})

	It("returns unknown event types", func() {
		ev, ok, _ := dec.Decode(`data: {"type":"title_complete","title":"Go"}`)
		Expect(ok).To(BeTrue())
		Expect(ev.Type).To(Equal(council.EventType("title_complete")))
	})

	DescribeTable("ignores lines without a payload",
		func(line string) {
			_, ok, done := dec.Decode(line)
			Expect(ok).To(BeFalse())
			Expect(done).To(BeFalse())
			Expect(logs.String()).To(BeEmpty())
		},
		Entry("blank keep-alive", ""),
		Entry("comment", ": ping"),
		Entry("event field", "event: message"),
		Entry("prefix without space", `data:{"type":"stage1"}`),
		Entry("sentinel without prefix", "[DONE]"),
	)

	DescribeTable("drops and logs unusable payloads",
		func(line string) {
			_, ok, done := dec.Decode(line)
			Expect(ok).To(BeFalse())
			Expect(done).To(BeFalse())
			Expect(logs.String()).To(ContainSubstring("dropping"))
		},
		Entry("not json", "data: not-json"),
		Entry("truncated json", `data: {"type":"stage1"`),
		Entry("missing type", `data: {"model_a":"hi"}`),
		Entry("non-string type", `data: {"type":3}`),
		Entry("array", `data: ["stage1"]`),
	)
})
