package ocr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Engine turns an encoded image into text detections. Implementations are
// created once per process and must not be mutated after start-up.
type Engine interface {
	Name() string
	GetModel() string
	Detect(ctx context.Context, img []byte, opt Options) ([]Detection, error)
}

var ErrUnknownEngine = errors.New("unknown ocr engine")

// Engines is the set of configured engines keyed by name.
type Engines struct {
	byName map[string]Engine
}

func NewEngines(list ...Engine) *Engines {
	e := &Engines{byName: make(map[string]Engine, len(list))}
	for _, eng := range list {
		if eng != nil {
			e.byName[eng.Name()] = eng
		}
	}
	return e
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "openai" {
		name = "gpt"
	}
	if eng, ok := e.byName[name]; ok {
		return eng, nil
	}
	return nil, fmt.Errorf("%w %q; use one of: %s", ErrUnknownEngine, name, strings.Join(e.Names(), ", "))
}

func (e *Engines) Names() []string {
	out := make([]string, 0, len(e.byName))
	for n := range e.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Manager remembers the engine each chat picked.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}

// Serialize guards an engine that is not safe for concurrent use. Only the
// engine call is serialized; callers run the rest of their pipeline freely.
func Serialize(e Engine) Engine {
	if _, ok := e.(*serialized); ok {
		return e
	}
	return &serialized{Engine: e}
}

type serialized struct {
	Engine
	mu sync.Mutex
}

func (s *serialized) Detect(ctx context.Context, img []byte, opt Options) ([]Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Engine.Detect(ctx, img, opt)
}

// WithModel pins a model for one user without touching the shared engine.
func WithModel(e Engine, model string) Engine {
	if model == "" {
		return e
	}
	if m, ok := e.(*pinnedModel); ok {
		e = m.Engine
	}
	return &pinnedModel{Engine: e, model: model}
}

type pinnedModel struct {
	Engine
	model string
}

func (p *pinnedModel) GetModel() string { return p.model }

func (p *pinnedModel) Detect(ctx context.Context, img []byte, opt Options) ([]Detection, error) {
	opt.Model = p.model
	return p.Engine.Detect(ctx, img, opt)
}
