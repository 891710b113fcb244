package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
)

const fullStream = "data: {\"type\":\"stage1\",\"model_a\":\"héllo wörld\",\"model_b\":\"日本語\"}\n" +
	"\n" +
	"data: not-json\n" +
	"data: {\"type\":\"stage2\",\"model_a\":\"Response B\",\"label_to_model\":{\"Response A\":\"model_a\"}}\r\n" +
	": keep-alive\n" +
	"data: {\"type\":\"stage3\",\"response\":\"😀 final\"}\n" +
	"data: [DONE]\n" +
	"data: {\"type\":\"stage1\",\"model_a\":\"after the end\"}\n"

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		It("decodes an event split inside its payload", func() {
			r := NewReader(newChunkReader(`data: {"typ`, `e":"stage1","model_a":"hi"}`+"\n"))

			events, err := readAllEvents(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(council.EventStage1))
			Expect(events[0].Payload).To(MatchJSON(`{"type":"stage1","model_a":"hi"}`))
		})

		It("skips a malformed line and completes on the sentinel", func() {
			var logs bytes.Buffer
			l := logger.New(logger.WithWriter(&logs), logger.WithFormat(logger.FormatJSON))
			r := NewReader(strings.NewReader("data: not-json\ndata: [DONE]\n"), WithLogger(l))

			events, err := readAllEvents(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]council.Event{council.CompleteEvent()}))
			Expect(logs.String()).To(ContainSubstring("not-json"))
		})

		It("stops reading at the sentinel even if the source continues", func() {
			src := newChunkReader("data: [DONE]\n", `data: {"type":"stage1"}`+"\n")
			r := NewReader(src)

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal(council.EventComplete))

			_, err = r.Next()
			Expect(err).To(MatchError(io.EOF))
			_, err = r.Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("ends with io.EOF when the source closes without a sentinel", func() {
			r := NewReader(strings.NewReader(`data: {"type":"stage1","a":"b"}` + "\n" + `data: {"type":"stage2"`))

			events, err := readAllEvents(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(council.EventStage1))
		})

		It("skips overlong lines", func() {
			big := `data: {"type":"stage1","model_a":"` + strings.Repeat("x", 200) + `"}`
			r := NewReader(strings.NewReader(big+"\n"+`data: {"type":"stage3","response":"ok"}`+"\n"),
				WithMaxLineBytes(64))

			events, err := readAllEvents(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(council.EventStage3))
		})

		It("returns transport errors", func() {
			boom := errors.New("unexpected EOF")
			src := newChunkReader(`data: {"type":"stage1","a":"b"}` + "\n")
			src.err = boom
			r := NewReader(src)

			_, err := r.Next()
			Expect(err).NotTo(HaveOccurred())

			_, err = r.Next()
			Expect(err).To(MatchError(boom))
			_, err = r.Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("tees the raw stream", func() {
			var tee bytes.Buffer
			r := NewReader(strings.NewReader(fullStream), WithTee(&tee))

			_, err := readAllEvents(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.HasPrefix(fullStream, tee.String())).To(BeTrue())
			Expect(tee.String()).To(ContainSubstring("data: [DONE]\n"))
		})
	})

	Describe("chunk boundaries", func() {
		var want []council.Event

		BeforeEach(func() {
			var err error
			want, err = readAllEvents(NewReader(strings.NewReader(fullStream)))
			Expect(err).NotTo(HaveOccurred())
			Expect(want).To(HaveLen(4))
			Expect(want[0].Type).To(Equal(council.EventStage1))
			Expect(want[1].Type).To(Equal(council.EventStage2))
			Expect(want[2].Type).To(Equal(council.EventStage3))
			Expect(want[3]).To(Equal(council.CompleteEvent()))
		})

		It("yields the same events for every single split point", func() {
			for i := 1; i < len(fullStream); i++ {
				got, err := readAllEvents(NewReader(newChunkReader(splitAt(fullStream, i)...)))
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want), "split at byte %d", i)
			}
		})

		It("yields the same events for every pair of split points", func() {
			for i := 1; i < len(fullStream); i += 3 {
				for j := i + 1; j < len(fullStream); j += 5 {
					got, err := readAllEvents(NewReader(newChunkReader(splitAt(fullStream, i, j)...)))
					Expect(err).NotTo(HaveOccurred())
					Expect(got).To(Equal(want), "split at bytes %d and %d", i, j)
				}
			}
		})

		It("yields the same events when fed one byte at a time", func() {
			cuts := make([]int, 0, len(fullStream))
			for i := 1; i < len(fullStream); i++ {
				cuts = append(cuts, i)
			}
			got, err := readAllEvents(NewReader(newChunkReader(splitAt(fullStream, cuts...)...)))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		})

		It("splits inside the data prefix and inside multi-byte characters", func() {
			emoji := strings.Index(fullStream, "😀")
			prefix := strings.Index(fullStream, "data: [DONE]")
			got, err := readAllEvents(NewReader(newChunkReader(splitAt(fullStream, emoji+2, prefix+3)...)))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		})
	})
})
