package store_test

import (
	"bytes"
	"encoding/json"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
	"github.com/papercomputeco/council/pkg/store"
)

func event(t council.EventType, payload string) council.Event {
	return council.Event{Type: t, Payload: json.RawMessage(payload)}
}

// recorder collects every snapshot it is notified with.
type recorder struct {
	mu    sync.Mutex
	convs []council.Conversation
}

func (r *recorder) Notify(conv council.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs = append(r.convs, conv)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

var _ = Describe("Store", func() {
	var (
		s    *store.Store
		rec  *recorder
		logs *bytes.Buffer
	)

	BeforeEach(func() {
		rec = &recorder{}
		logs = &bytes.Buffer{}
		s = store.New(council.Conversation{ID: "conv-1"},
			store.WithObserver(rec),
			store.WithLogger(logger.New(logger.WithWriter(logs), logger.WithFormat(logger.FormatJSON))),
		)
	})

	Describe("AppendMessage", func() {
		It("appends in order and notifies once per append", func() {
			Expect(s.AppendMessage(council.NewUserMessage("q"))).To(Succeed())
			Expect(s.AppendMessage(council.NewAssistantMessage())).To(Succeed())

			Expect(rec.count()).To(Equal(2))
			Expect(rec.convs[0].Messages).To(HaveLen(1))
			Expect(rec.convs[1].Messages).To(HaveLen(2))

			conv := s.Snapshot()
			Expect(conv.Messages[0].Role).To(Equal(council.RoleUser))
			Expect(conv.Messages[1].Role).To(Equal(council.RoleAssistant))
		})
	})

	Describe("ApplyEvent", func() {
		BeforeEach(func() {
			Expect(s.AppendMessage(council.NewUserMessage("q"))).To(Succeed())
			Expect(s.AppendMessage(council.NewAssistantMessage())).To(Succeed())
			rec.convs = nil
		})

		It("updates the open assistant message and notifies once", func() {
			Expect(s.ApplyEvent(event(council.EventStage1, `{"type":"stage1","m":"a"}`))).To(BeTrue())

			Expect(rec.count()).To(Equal(1))
			last, _ := rec.convs[0].Last()
			Expect(last.Stage1).To(Equal(map[string]string{"m": "a"}))
			Expect(last.State).To(Equal(council.StateAwaitingStage2))
		})

		It("does not notify for a duplicate event", func() {
			ev := event(council.EventStage1, `{"type":"stage1","m":"a"}`)
			Expect(s.ApplyEvent(ev)).To(BeTrue())
			Expect(s.ApplyEvent(ev)).To(BeFalse())
			Expect(rec.count()).To(Equal(1))
		})

		It("keeps applying valid events around a malformed one", func() {
			Expect(s.ApplyEvent(event(council.EventStage1, `{"type":"stage1","m":"a"}`))).To(BeTrue())
			Expect(s.ApplyEvent(event(council.EventStage2, `{"type":"stage2","m":7}`))).To(BeFalse())
			Expect(s.ApplyEvent(event(council.EventStage2, `{"type":"stage2","m":"1. A"}`))).To(BeTrue())

			last, _ := s.Snapshot().Last()
			Expect(last.Stage2).To(HaveKeyWithValue("m", council.Ranking{Text: "1. A"}))
			Expect(logs.String()).To(ContainSubstring("dropping event"))
		})

		It("ignores events once the message is done", func() {
			Expect(s.ApplyEvent(council.CompleteEvent())).To(BeTrue())
			Expect(s.ApplyEvent(event(council.EventStage1, `{"type":"stage1","m":"late"}`))).To(BeFalse())

			last, _ := s.Snapshot().Last()
			Expect(last.State).To(Equal(council.StateDone))
			Expect(last.Stage1).To(BeNil())
			Expect(rec.count()).To(Equal(1))
		})

		It("ignores events when the last message is a user message", func() {
			Expect(s.ApplyEvent(council.CompleteEvent())).To(BeTrue())
			Expect(s.AppendMessage(council.NewUserMessage("again"))).To(Succeed())

			Expect(s.ApplyEvent(event(council.EventStage1, `{"type":"stage1","m":"x"}`))).To(BeFalse())
		})

		It("ignores events on an empty conversation", func() {
			empty := store.New(council.Conversation{ID: "empty"})
			Expect(empty.ApplyEvent(council.CompleteEvent())).To(BeFalse())
		})

		It("only targets the most recent assistant message", func() {
			Expect(s.AppendMessage(council.NewUserMessage("second"))).To(Succeed())
			Expect(s.AppendMessage(council.NewAssistantMessage())).To(Succeed())

			Expect(s.ApplyEvent(event(council.EventStage1, `{"type":"stage1","m":"b"}`))).To(BeTrue())

			conv := s.Snapshot()
			Expect(conv.Messages[1].Stage1).To(BeNil())
			Expect(conv.Messages[3].Stage1).To(HaveKeyWithValue("m", "b"))
		})

		It("freezes an unfinished answer when the next message is appended", func() {
			Expect(s.ApplyEvent(event(council.EventStage1, `{"type":"stage1","m":"a"}`))).To(BeTrue())
			Expect(s.AppendMessage(council.NewUserMessage("next question"))).To(Succeed())
			Expect(s.AppendMessage(council.NewAssistantMessage())).To(Succeed())

			conv := s.Snapshot()
			open := 0
			for _, m := range conv.Messages {
				if m.Open() {
					open++
				}
			}
			Expect(open).To(Equal(1))

			abandoned := conv.Messages[1]
			Expect(abandoned.State).To(Equal(council.StateDone))
			Expect(abandoned.Loading.Any()).To(BeFalse())
			Expect(abandoned.Stage1).To(HaveKeyWithValue("m", "a"))
			Expect(abandoned.Stage2).To(BeNil())

			last, _ := conv.Last()
			Expect(last.Open()).To(BeTrue())
		})
	})

	Describe("snapshots", func() {
		It("are not affected by later mutations or by the observer", func() {
			Expect(s.AppendMessage(council.NewAssistantMessage())).To(Succeed())
			before := s.Snapshot()

			rec.convs[0].Messages[0].Content = "scribbled"
			Expect(s.ApplyEvent(event(council.EventStage1, `{"type":"stage1","m":"a"}`))).To(BeTrue())

			Expect(before.Messages[0].Stage1).To(BeNil())
			Expect(s.Snapshot().Messages[0].Content).To(BeEmpty())
		})

		It("copies the seed conversation", func() {
			seed := council.Conversation{ID: "c", Messages: []council.Message{council.NewUserMessage("q")}}
			seeded := store.New(seed)
			seed.Messages[0].Content = "changed"

			Expect(seeded.Snapshot().Messages[0].Content).To(Equal("q"))
		})
	})

	Describe("Replace", func() {
		It("swaps the conversation and notifies", func() {
			Expect(s.Replace(council.Conversation{ID: "conv-2", Title: "Loaded"})).To(Succeed())
			Expect(s.Snapshot().ID).To(Equal("conv-2"))
			Expect(rec.count()).To(Equal(1))
		})
	})

	Describe("Subscribe", func() {
		It("notifies observers added later", func() {
			var got []int
			s.Subscribe(store.ObserverFunc(func(conv council.Conversation) {
				got = append(got, len(conv.Messages))
			}))

			Expect(s.AppendMessage(council.NewUserMessage("q"))).To(Succeed())
			Expect(got).To(Equal([]int{1}))
		})
	})

	Describe("Close", func() {
		It("stops every mutation and notification", func() {
			Expect(s.AppendMessage(council.NewAssistantMessage())).To(Succeed())
			s.Close()

			Expect(s.ApplyEvent(council.CompleteEvent())).To(BeFalse())
			Expect(s.AppendMessage(council.NewUserMessage("q"))).To(MatchError(store.ErrClosed))
			Expect(s.Replace(council.Conversation{})).To(MatchError(store.ErrClosed))
			Expect(rec.count()).To(Equal(1))

			last, _ := s.Snapshot().Last()
			Expect(last.Open()).To(BeTrue())
		})
	})

	Describe("concurrent use", func() {
		It("notifies observers in mutation order", func() {
			const n = 50
			var wg sync.WaitGroup
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					Expect(s.AppendMessage(council.NewUserMessage("q"))).To(Succeed())
				}()
			}
			wg.Wait()

			Expect(rec.count()).To(Equal(n))
			for i, conv := range rec.convs {
				Expect(conv.Messages).To(HaveLen(i + 1))
			}
		})
	})
})
