package gesture

import (
	"math"
	"sync"
	"time"
)

type contact struct {
	start Point
	last  Point
	began time.Time
	moved bool
}

// Classifier recognizes gestures from raw contact streams and feeds them to a
// Translator. One contact is a tap, long press or drag; two concurrent
// contacts scroll.
type Classifier struct {
	t         *Translator
	longPress time.Duration

	mu        sync.Mutex
	contacts  map[int]*contact
	scrolling bool
}

func NewClassifier(t *Translator, longPress time.Duration) *Classifier {
	if longPress <= 0 {
		longPress = DefaultLongPress
	}
	return &Classifier{
		t:         t,
		longPress: longPress,
		contacts:  make(map[int]*contact),
	}
}

// Down starts tracking contact id. A second concurrent contact turns the
// gesture into a scroll and ends any drag in progress.
func (c *Classifier) Down(id int, p Point, at time.Time) error {
	c.mu.Lock()
	c.contacts[id] = &contact{start: p, last: p, began: at}
	startScroll := len(c.contacts) == 2 && !c.scrolling
	if startScroll {
		c.scrolling = true
	}
	c.mu.Unlock()

	if startScroll {
		return c.t.Cancel()
	}
	return nil
}

func (c *Classifier) Move(id int, p Point, at time.Time) error {
	c.mu.Lock()
	ct, ok := c.contacts[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}

	if c.scrolling {
		if len(c.contacts) < 2 {
			ct.last = p
			c.mu.Unlock()
			return nil
		}
		// Mean of both contacts' vertical deltas; the other contact has not
		// moved since its last sample.
		dy := (p.Y - ct.last.Y) / float64(len(c.contacts))
		ct.last = p
		c.mu.Unlock()
		return c.t.OnTwoFingerScroll(dy)
	}

	ct.last = p
	if !ct.moved && math.Hypot(p.X-ct.start.X, p.Y-ct.start.Y) >= c.t.opts.DragThreshold {
		ct.moved = true
	}
	start := ct.start
	c.mu.Unlock()

	return c.t.OnDragChanged(start, p)
}

// Up ends contact id and emits the gesture it completed, if any. Contacts
// that took part in a scroll never produce a click.
func (c *Classifier) Up(id int, p Point, at time.Time) error {
	c.mu.Lock()
	ct, ok := c.contacts[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	delete(c.contacts, id)

	if c.scrolling {
		if len(c.contacts) == 0 {
			c.scrolling = false
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	switch {
	case ct.moved || c.t.Dragging():
		return c.t.OnDragEnded(p)
	case at.Sub(ct.began) >= c.longPress:
		return c.t.OnLongPress(p)
	default:
		return c.t.OnTap(p)
	}
}

// Cancel drops every tracked contact and releases any held button.
func (c *Classifier) Cancel() error {
	c.mu.Lock()
	clear(c.contacts)
	c.scrolling = false
	c.mu.Unlock()
	return c.t.Cancel()
}
