package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// Tier - уровень подписки. Порядок значений важен: Pro > Standard > Free.
type Tier int

const (
	TierFree Tier = iota
	TierStandard
	TierPro
)

func ParseTier(s string) (Tier, error) {
	switch s {
	case "free", "":
		return TierFree, nil
	case "standard", "rookie":
		return TierStandard, nil
	case "pro":
		return TierPro, nil
	default:
		return TierFree, fmt.Errorf("unknown tier %q", s)
	}
}

func (t Tier) String() string {
	switch t {
	case TierStandard:
		return "standard"
	case TierPro:
		return "pro"
	default:
		return "free"
	}
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v

	return nil
}

func (t Tier) Value() (driver.Value, error) { return t.String(), nil }

func (t *Tier) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return t.UnmarshalText([]byte(v))
	case []byte:
		return t.UnmarshalText(v)
	case nil:
		*t = TierFree
		return nil
	default:
		return fmt.Errorf("scan tier: unsupported type %T", src)
	}
}

// Limit - ограничение длины очереди. Unbounded означает отсутствие лимита.
type Limit struct {
	Max       int
	Unbounded bool
}

func LimitOf(n int) Limit { return Limit{Max: n} }

func Unbounded() Limit { return Limit{Unbounded: true} }

// Allows сообщает, можно ли добавить ещё один элемент к очереди длины n.
func (l Limit) Allows(n int) bool {
	return l.Fits(n, 1)
}

// Fits сообщает, помещаются ли ещё k элементов к очереди длины n.
func (l Limit) Fits(n, k int) bool {
	return l.Unbounded || n+k <= l.Max
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.Unbounded {
		return []byte("null"), nil
	}

	return []byte(strconv.Itoa(l.Max)), nil
}

func (l *Limit) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = Unbounded()
		return nil
	}

	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = LimitOf(n)

	return nil
}

// TierTable - таблица лимитов и частоты рекламы по уровням.
// AdEvery == 0 означает, что реклама не показывается.
type TierTable struct {
	FreeQueueLimit     int
	StandardQueueLimit int
	FreeAdEvery        int
	StandardAdEvery    int
}

func DefaultTierTable() TierTable {
	return TierTable{
		FreeQueueLimit:     1,
		StandardQueueLimit: 10,
		FreeAdEvery:        1,
		StandardAdEvery:    2,
	}
}

func (tt TierTable) QueueLimit(t Tier) Limit {
	switch t {
	case TierFree:
		return LimitOf(tt.FreeQueueLimit)
	case TierStandard:
		return LimitOf(tt.StandardQueueLimit)
	default:
		return Unbounded()
	}
}

func (tt TierTable) AdEvery(t Tier) int {
	switch t {
	case TierFree:
		return tt.FreeAdEvery
	case TierStandard:
		return tt.StandardAdEvery
	default:
		return 0
	}
}
