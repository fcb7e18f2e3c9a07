package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/praetorian-inc/infobserve/pkg/feeder"
	"github.com/praetorian-inc/infobserve/pkg/matcher"
	"github.com/praetorian-inc/infobserve/pkg/types"
)

type scriptedQueue struct {
	payloads []string
}

func (q *scriptedQueue) BlockingPop(ctx context.Context, key string) (string, error) {
	if len(q.payloads) == 0 {
		<-ctx.Done()
		return "", ctx.Err()
	}
	p := q.payloads[0]
	q.payloads = q.payloads[1:]
	return p, nil
}

func TestRun_EndToEnd_SingleEventPersisted(t *testing.T) {
	payload := `{"url":"u","source":"s","raw_content":"pw: hunter2","filename":"f","creator":"c","size":1,"created_at":"2024/01/02-03:04:05","discovered_at":"2024/01/02-03:04:05"}`

	feedQueue := make(chan types.Event, 4)
	loadQueue := make(chan types.ProcessedEvent, 4)

	q := &scriptedQueue{payloads: []string{payload, feeder.QuitSentinel}}
	w := feeder.NewWorker(0, q, "events", feedQueue, nil)

	fm := &fakeMatcher{results: map[string][]types.FlatMatch{
		"pw: hunter2": {{RuleName: "default::MyPass", Fragments: []string{"pw: hunter2"}}},
	}}
	st := &fakeStore{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := Run(ctx, Config{
		Feeders:       []*feeder.Worker{w},
		FeedQueue:     feedQueue,
		NumProcessors: 1,
		NewMatcher:    func() (matcher.Matcher, error) { return fm, nil },
		NumLoaders:    1,
		LoadQueue:     loadQueue,
		Store:         st,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Total.EventsProcessed != 1 {
		t.Errorf("expected 1 event processed, got %d", summary.Total.EventsProcessed)
	}
	if summary.Total.EventsMatched != 1 {
		t.Errorf("expected 1 event matched, got %d", summary.Total.EventsMatched)
	}
	if len(st.persisted) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(st.persisted))
	}
	if st.persisted[0].Event.URL != "u" {
		t.Errorf("unexpected persisted event: %+v", st.persisted[0])
	}
}

func TestRun_StartupRuleValidationFailsFast(t *testing.T) {
	feedQueue := make(chan types.Event, 1)
	loadQueue := make(chan types.ProcessedEvent, 1)

	_, err := Run(context.Background(), Config{
		Feeders:       nil,
		FeedQueue:     feedQueue,
		NumProcessors: 1,
		NewMatcher:    func() (matcher.Matcher, error) { return nil, matcher.ErrNoRules },
		NumLoaders:    1,
		LoadQueue:     loadQueue,
		Store:         &fakeStore{},
	})
	if err == nil {
		t.Fatal("expected startup rule validation to fail")
	}
}
