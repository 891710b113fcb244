package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/council/pkg/eventstream"
	"github.com/papercomputeco/council/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("returns ErrNilAnswerEvent for nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishAnswer(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilAnswerEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishAnswer(context.Background(), &eventstream.AnswerCompletedEvent{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
