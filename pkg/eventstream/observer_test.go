package eventstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/eventstream"
	"github.com/papercomputeco/council/pkg/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.AnswerCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishAnswer(_ context.Context, ev *eventstream.AnswerCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []*eventstream.AnswerCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.AnswerCompletedEvent(nil), p.events...)
}

var _ = Describe("Observer", func() {
	var (
		pub *recordingPublisher
		st  *store.Store
		src = eventstream.EventSource{DeviceID: "device_1", Backend: "http://council"}
	)

	stage3 := council.Event{
		Type:    council.EventStage3,
		Payload: json.RawMessage(`{"type":"stage3","response":"final"}`),
	}

	ask := func(prompt string) {
		Expect(st.AppendMessage(council.NewUserMessage(prompt))).To(Succeed())
		Expect(st.AppendMessage(council.NewAssistantMessage())).To(Succeed())
	}

	BeforeEach(func() {
		pub = &recordingPublisher{}
		st = store.New(council.Conversation{ID: "conv-1"})
		st.Subscribe(eventstream.NewObserver(pub, src, nil))
	})

	It("publishes once when the open answer finishes", func() {
		ask("what?")
		st.ApplyEvent(stage3)
		Expect(pub.Events()).To(BeEmpty())

		st.ApplyEvent(council.CompleteEvent())
		st.ApplyEvent(council.CompleteEvent())

		events := pub.Events()
		Expect(events).To(HaveLen(1))
		Expect(events[0].ConversationID).To(Equal("conv-1"))
		Expect(events[0].Prompt).To(Equal("what?"))
		Expect(events[0].Source).To(Equal(src))
		Expect(events[0].Answer.State).To(Equal(council.StateDone))
		Expect(*events[0].Answer.Stage3).To(Equal("final"))
	})

	It("publishes every answer of the conversation", func() {
		ask("one")
		st.ApplyEvent(council.CompleteEvent())
		ask("two")
		st.ApplyEvent(council.CompleteEvent())

		events := pub.Events()
		Expect(events).To(HaveLen(2))
		Expect(events[0].Prompt).To(Equal("one"))
		Expect(events[1].Prompt).To(Equal("two"))
		Expect(events[0].EventID).NotTo(Equal(events[1].EventID))
	})

	It("does not publish history", func() {
		done := council.NewAssistantMessage()
		_, err := council.Apply(&done, council.CompleteEvent())
		Expect(err).NotTo(HaveOccurred())

		Expect(st.Replace(council.Conversation{
			ID:       "conv-1",
			Messages: []council.Message{council.NewUserMessage("old"), done},
		})).To(Succeed())
		Expect(pub.Events()).To(BeEmpty())
	})

	It("keeps going when publishing fails", func() {
		pub.err = errors.New("broker down")

		ask("one")
		Expect(st.ApplyEvent(council.CompleteEvent())).To(BeTrue())
		Expect(pub.Events()).To(HaveLen(1))
		Expect(st.Snapshot().Messages[1].State).To(Equal(council.StateDone))
	})
})
