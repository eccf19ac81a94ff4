package beacon

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/zoobzio/capitan"
)

// Layer is one source of a composed declaration and the codec its
// documents are written in. A nil Codec means JSON.
type Layer struct {
	Watcher Watcher
	Codec   Codec
}

// SourceError is a decode failure from one layer of a ComposedWatcher.
type SourceError struct {
	Index int
	Error error
}

// ComposedWatcher merges several declaration sources into one document
// stream. Layers are applied in order: a marker field set by a later layer
// replaces the one from an earlier layer, and the last layer declaring info
// windows supplies them.
//
// Nothing is emitted until every layer has produced a decodable document.
// A layer whose update fails to decode keeps its previous document and the
// failure is reported through SourceErrors. Emitted documents are JSON, so
// the consuming Binding keeps its default codec.
//
// Example:
//
//	w := beacon.Compose(
//	    beacon.Layer{Watcher: beacon.NewFileWatcher("defaults.yaml"), Codec: beacon.YAMLCodec{}},
//	    beacon.Layer{Watcher: redis.New(client, "markers:depot")},
//	)
//	b := beacon.NewBinding(w, m)
type ComposedWatcher struct {
	layers []Layer

	mu           sync.Mutex
	sourceErrors []SourceError
}

// Compose creates a ComposedWatcher over layers.
func Compose(layers ...Layer) *ComposedWatcher {
	return &ComposedWatcher{layers: layers}
}

// SourceErrors returns the layers whose latest document failed to decode.
func (c *ComposedWatcher) SourceErrors() []SourceError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SourceError(nil), c.sourceErrors...)
}

type layerDoc struct {
	index int
	raw   []byte
}

// Watch starts every layer and emits the merged declaration each time a
// layer changes.
func (c *ComposedWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if len(c.layers) == 0 {
		return nil, fmt.Errorf("compose: no layers")
	}

	chans := make([]<-chan []byte, len(c.layers))
	for i, l := range c.layers {
		ch, err := l.Watcher.Watch(ctx)
		if err != nil {
			return nil, fmt.Errorf("compose: layer %d: %w", i, err)
		}
		chans[i] = ch
	}

	in := make(chan layerDoc)
	var wg sync.WaitGroup
	for i, ch := range chans {
		wg.Add(1)
		go func(i int, ch <-chan []byte) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-ch:
					if !ok {
						return
					}
					select {
					case in <- layerDoc{index: i, raw: raw}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(i, ch)
	}
	go func() {
		wg.Wait()
		close(in)
	}()

	out := make(chan []byte)
	go func() {
		defer close(out)
		decls := make([]*Declaration, len(c.layers))
		for {
			var doc layerDoc
			var ok bool
			select {
			case <-ctx.Done():
				return
			case doc, ok = <-in:
			}
			if !ok {
				return
			}

			var decl Declaration
			if err := c.codec(doc.index).Unmarshal(doc.raw, &decl); err != nil {
				c.fail(ctx, doc.index, err)
				continue
			}
			c.clear(doc.index)
			decls[doc.index] = &decl

			merged, ready := merge(decls)
			if !ready {
				continue
			}
			raw, err := json.Marshal(merged)
			if err != nil {
				c.fail(ctx, doc.index, err)
				continue
			}
			if !send(ctx, out, raw) {
				return
			}
		}
	}()
	return out, nil
}

func (c *ComposedWatcher) codec(i int) Codec {
	if c.layers[i].Codec == nil {
		return JSONCodec{}
	}
	return c.layers[i].Codec
}

func (c *ComposedWatcher) fail(ctx context.Context, index int, err error) {
	c.mu.Lock()
	c.sourceErrors = append(c.without(index), SourceError{Index: index, Error: err})
	c.mu.Unlock()

	capitan.Emit(ctx, DeclarationDecodeFailed,
		KeyLayer.Field(index),
		KeyError.Field(err.Error()),
	)
}

func (c *ComposedWatcher) clear(index int) {
	c.mu.Lock()
	c.sourceErrors = c.without(index)
	c.mu.Unlock()
}

// without returns the source errors other than index's. Callers hold mu.
func (c *ComposedWatcher) without(index int) []SourceError {
	kept := c.sourceErrors[:0]
	for _, se := range c.sourceErrors {
		if se.Index != index {
			kept = append(kept, se)
		}
	}
	return kept
}

// merge overlays decls in order. It reports false until every layer has a
// document.
func merge(decls []*Declaration) (Declaration, bool) {
	var merged Declaration
	for _, d := range decls {
		if d == nil {
			return Declaration{}, false
		}
		merged.Marker = merged.Marker.Overlay(d.Marker)
		if d.InfoWindows != nil {
			merged.InfoWindows = d.InfoWindows
		}
	}
	return merged, true
}
