package ocr

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubEngine struct {
	name     string
	inFlight int32
	maxSeen  int32
}

func (s *stubEngine) Name() string     { return s.name }
func (s *stubEngine) GetModel() string { return "stub-model" }

func (s *stubEngine) Detect(ctx context.Context, img []byte, opt Options) ([]Detection, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		old := atomic.LoadInt32(&s.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&s.maxSeen, old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return []Detection{{Text: s.name, Confidence: 1}}, nil
}

func TestEnginesLookup(t *testing.T) {
	gpt := &stubEngine{name: "gpt"}
	tess := &stubEngine{name: "tesseract"}
	e := NewEngines(tess, nil, gpt)

	if got := e.Names(); !reflect.DeepEqual(got, []string{"gpt", "tesseract"}) {
		t.Fatalf("Names = %v", got)
	}
	for _, name := range []string{"gpt", "openai", " OpenAI ", "GPT"} {
		got, err := e.GetEngine(name)
		if err != nil || got != gpt {
			t.Fatalf("GetEngine(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := e.GetEngine("deepseek"); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("err = %v", err)
	}
}

func TestManagerPerChat(t *testing.T) {
	def := &stubEngine{name: "tesseract"}
	alt := &stubEngine{name: "gemini"}
	m := NewManager(def)
	m.Set(42, alt)
	if m.Get(42) != alt {
		t.Fatalf("chat 42 should use gemini")
	}
	if m.Get(7) != def {
		t.Fatalf("chat 7 should use the default")
	}
}

func TestSerialize(t *testing.T) {
	inner := &stubEngine{name: "tesseract"}
	eng := Serialize(inner)
	if Serialize(eng) != eng {
		t.Fatalf("double wrap")
	}
	if eng.Name() != "tesseract" || eng.GetModel() != "stub-model" {
		t.Fatalf("wrapper hides identity")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.Detect(context.Background(), nil, Options{}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&inner.maxSeen); got != 1 {
		t.Fatalf("max concurrent calls = %d, want 1", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.Detect(ctx, nil, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

type modelSpy struct {
	stubEngine
	gotModel string
}

func (m *modelSpy) Detect(_ context.Context, _ []byte, opt Options) ([]Detection, error) {
	m.gotModel = opt.Model
	return nil, nil
}

func TestWithModel(t *testing.T) {
	spy := &modelSpy{stubEngine: stubEngine{name: "gemini"}}
	if WithModel(spy, "") != Engine(spy) {
		t.Fatalf("empty model should return the engine itself")
	}
	pinned := WithModel(WithModel(spy, "a"), "b")
	if pinned.GetModel() != "b" || pinned.Name() != "gemini" {
		t.Fatalf("pinned = %s/%s", pinned.Name(), pinned.GetModel())
	}
	if _, err := pinned.Detect(context.Background(), nil, Options{Model: "ignored"}); err != nil {
		t.Fatal(err)
	}
	if spy.gotModel != "b" {
		t.Fatalf("engine saw model %q", spy.gotModel)
	}
	if spy.GetModel() != "stub-model" {
		t.Fatalf("shared engine was mutated")
	}
}
