package clock

import (
	"sync"
	"time"
)

// FakeClock стоит на месте, пока не вызван Advance.
// Тикеры срабатывают при переходе через свой дедлайн.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*fakeTicker
	changed *sync.Cond
}

type fakeTicker struct {
	deadline time.Time
	interval time.Duration
	ch       chan time.Time
	stopped  bool
}

func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.changed = sync.NewCond(&c.mu)

	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ft := &fakeTicker{
		deadline: c.current.Add(d),
		interval: d,
		ch:       make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, ft)
	c.changed.Broadcast()

	return &Ticker{
		C: ft.ch,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ft.stopped = true
		},
	}
}

// Advance сдвигает время на d. Каждый тикер, чей дедлайн пройден,
// получает не больше одного тика за вызов, лишние тики отбрасываются.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)

	active := c.tickers[:0]
	for _, ft := range c.tickers {
		if ft.stopped {
			continue
		}
		active = append(active, ft)

		if ft.deadline.After(c.current) {
			continue
		}
		for !ft.deadline.After(c.current) {
			ft.deadline = ft.deadline.Add(ft.interval)
		}

		select {
		case ft.ch <- c.current:
		default:
		}
	}
	c.tickers = active
}

// WaitForTickers блокируется, пока не появится хотя бы n активных тикеров.
func (c *FakeClock) WaitForTickers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.activeLocked() < n {
		c.changed.Wait()
	}
}

func (c *FakeClock) activeLocked() int {
	n := 0
	for _, ft := range c.tickers {
		if !ft.stopped {
			n++
		}
	}

	return n
}
