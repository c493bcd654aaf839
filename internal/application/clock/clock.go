package clock

import "time"

// Clock абстрагирует время, чтобы движок комнат можно было тестировать
// без реальных ожиданий. В продакшене используется Real(), в тестах Fake().
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *Ticker
}

// Ticker - периодический таймер. Тики читаются из C, буфер на один тик.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

func (t *Ticker) Stop() { t.stop() }

// Real возвращает Clock поверх пакета time.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)

	return &Ticker{C: t.C, stop: t.Stop}
}
