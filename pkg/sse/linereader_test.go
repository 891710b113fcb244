package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LineReader", func() {
	It("splits lines across chunk boundaries", func() {
		r := NewLineReader(newChunkReader("data: {\"typ", "e\":1}\nda", "ta: x\n"))

		lines, err := readAllLines(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{`data: {"type":1}`, "data: x"}))
	})

	It("returns blank lines", func() {
		r := NewLineReader(strings.NewReader("a\n\nb\n"))

		lines, err := readAllLines(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"a", "", "b"}))
	})

	It("strips CRLF terminators", func() {
		r := NewLineReader(strings.NewReader("a\r\nb\r\n"))

		lines, err := readAllLines(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"a", "b"}))
	})

	It("discards an unterminated tail at the end of the source", func() {
		r := NewLineReader(newChunkReader("first\n", "second"))

		line, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("first"))

		_, err = r.Next()
		Expect(err).To(MatchError(io.EOF))

		_, err = r.Next()
		Expect(err).To(MatchError(io.EOF))
	})

	It("keeps a multi-byte character split between chunks intact", func() {
		s := "data: héllo 世界\n"
		idx := strings.Index(s, "世") + 1

		r := NewLineReader(newChunkReader(s[:idx], s[idx:]))
		lines, err := readAllLines(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"data: héllo 世界"}))
	})

	It("yields the same lines for every byte-by-byte split", func() {
		s := "data: é\n\ndata: 世\r\n"
		var chunks []string
		for i := range len(s) {
			chunks = append(chunks, s[i:i+1])
		}

		lines, err := readAllLines(NewLineReader(newChunkReader(chunks...)))
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"data: é", "", "data: 世"}))
	})

	It("strips a leading byte order mark", func() {
		r := NewLineReader(strings.NewReader("\ufeffdata: x\n"))

		lines, err := readAllLines(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"data: x"}))
	})

	It("replaces invalid UTF-8", func() {
		r := NewLineReader(strings.NewReader("a\xffb\n"))

		lines, err := readAllLines(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"a\ufffdb"}))
	})

	It("skips lines over the limit and resumes after them", func() {
		long := strings.Repeat("x", 100)
		r := NewLineReader(strings.NewReader("short\n"+long+"\nafter\n"), WithMaxLineBytes(32))

		line, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("short"))

		_, err = r.Next()
		Expect(err).To(MatchError(ErrLineTooLong))

		line, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("after"))
	})

	It("accepts a line exactly at the limit", func() {
		exact := strings.Repeat("y", 32)
		r := NewLineReader(strings.NewReader(exact+"\r\n"), WithMaxLineBytes(32))

		line, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal(exact))
	})

	It("copies the raw bytes to the tee writer", func() {
		raw := "data: a\r\n\ndata: b\ntail"
		var tee bytes.Buffer
		r := NewLineReader(newChunkReader(raw[:3], raw[3:]), WithTee(&tee))

		_, err := readAllLines(r)
		Expect(err).NotTo(HaveOccurred())
		Expect(tee.String()).To(Equal(raw))
	})

	It("returns source errors and keeps returning them", func() {
		boom := errors.New("connection reset")
		src := newChunkReader("ok\n", "partial")
		src.err = boom
		r := NewLineReader(src)

		line, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("ok"))

		_, err = r.Next()
		Expect(err).To(MatchError(boom))
		_, err = r.Next()
		Expect(err).To(MatchError(boom))
	})
})
