package image

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"moldura/internal/logging"
)

// Dispatcher runs a completion callback, typically on the UI goroutine.
type Dispatcher func(func())

// Cache memoises the most recent decoded image for each layer slot. A new
// source starts an asynchronous decode; until it settles the slot keeps the
// previous bitmap so readers never see a blank layer.
//
// Each slot carries a generation counter. A decode only publishes if its
// generation is still current, so a superseded load can never overwrite a
// newer source or trigger a ready signal.
type Cache struct {
	decoder  Decoder
	dispatch Dispatcher

	mu      sync.Mutex
	slots   [slotCount]slotState
	onReady []func(*Bitmap)
}

type slotState struct {
	source  string        // Most recently requested source ("" = none)
	gen     uint64        // Bumped on every source change
	bitmap  *Bitmap       // Last settled result; may belong to an older source while loading
	loading chan struct{} // Closed when the current generation settles; nil when settled
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithDispatcher routes completion callbacks through d.
func WithDispatcher(d Dispatcher) CacheOption {
	return func(c *Cache) {
		c.dispatch = d
	}
}

// NewCache creates a cache decoding through dec.
func NewCache(dec Decoder, opts ...CacheOption) *Cache {
	c := &Cache{
		decoder:  dec,
		dispatch: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnBackgroundReady registers fn to run whenever a new background source
// finishes decoding successfully.
func (c *Cache) OnBackgroundReady(fn func(*Bitmap)) {
	c.mu.Lock()
	c.onReady = append(c.onReady, fn)
	c.mu.Unlock()
}

// EnsureLoaded makes source the current source of slot. An empty source
// clears the slot. Re-requesting the current source is a no-op, including
// after a failed decode.
func (c *Cache) EnsureLoaded(slot Slot, source string) {
	c.mu.Lock()
	st := &c.slots[slot]
	if source == st.source {
		c.mu.Unlock()
		return
	}

	st.gen++
	st.source = source
	if st.loading != nil {
		// Wake anyone waiting on the superseded load.
		close(st.loading)
		st.loading = nil
	}
	if source == "" {
		st.bitmap = nil
		c.mu.Unlock()
		logging.Logger().Debug("layer cleared", slog.String("slot", slot.String()))
		return
	}
	st.loading = make(chan struct{})
	gen := st.gen
	c.mu.Unlock()

	go c.load(slot, source, gen)
}

func (c *Cache) load(slot Slot, source string, gen uint64) {
	img, err := c.decoder.Decode(context.Background(), source)
	c.dispatch(func() {
		c.complete(slot, source, gen, img, err)
	})
}

func (c *Cache) complete(slot Slot, source string, gen uint64, img image.Image, err error) {
	log := logging.Logger()

	c.mu.Lock()
	st := &c.slots[slot]
	if st.gen != gen {
		c.mu.Unlock()
		log.Debug("stale layer load ignored",
			slog.String("slot", slot.String()),
			slog.String("source", describe(source)))
		return
	}

	var bm *Bitmap
	if err != nil || img == nil {
		// A failed layer is simply absent.
		st.bitmap = nil
		log.Warn("layer decode failed",
			slog.String("slot", slot.String()),
			slog.String("source", describe(source)),
			slog.Any("err", err))
	} else {
		bm = newBitmap(source, img)
		st.bitmap = bm
		log.Debug("layer decoded",
			slog.String("slot", slot.String()),
			slog.Int("width", bm.Width),
			slog.Int("height", bm.Height))
	}
	close(st.loading)
	st.loading = nil

	var listeners []func(*Bitmap)
	if slot == SlotBackground && bm != nil {
		listeners = append(listeners, c.onReady...)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(bm)
	}
}

// Current returns the slot's last settled bitmap, which may be stale while a
// newer source is still decoding. Nil means the layer is absent.
func (c *Cache) Current(slot Slot) *Bitmap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[slot].bitmap
}

// Source returns the slot's most recently requested source.
func (c *Cache) Source(slot Slot) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[slot].source
}

// Pending reports whether the slot's current source is still decoding.
func (c *Cache) Pending(slot Slot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[slot].loading != nil
}

// AnyPending reports whether any slot is still decoding.
func (c *Cache) AnyPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].loading != nil {
			return true
		}
	}
	return false
}

// Acquire waits until the slot's current source has settled and returns its
// bitmap, or nil when the layer is absent or failed to decode. If the source
// changes while waiting, Acquire follows the newer source. Only ctx
// cancellation produces an error.
func (c *Cache) Acquire(ctx context.Context, slot Slot) (*Bitmap, error) {
	for {
		c.mu.Lock()
		st := &c.slots[slot]
		if st.loading == nil {
			bm := st.bitmap
			c.mu.Unlock()
			return bm, nil
		}
		ch := st.loading
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
