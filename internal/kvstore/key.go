package kvstore

import (
	"fmt"
	"time"

	"elarocks/internal/util"
)

// KeyTimeLayout renders the timestamp part of a record key. It is fixed
// width, so keys of one action sort chronologically.
const KeyTimeLayout = util.SysmonTimeLayout

// KeyGenerator builds keys of the form {action}_{time}{seq:05d}. The sequence
// restarts at zero whenever the timestamp differs from the previous key's.
type KeyGenerator struct {
	now      func() time.Time
	previous string
	counter  int
}

func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now}
}

// Next returns the key for a row and the parsed timestamp it was built from.
// An unparseable utcTime falls back to the current UTC time.
func (g *KeyGenerator) Next(action, utcTime string) (string, time.Time) {
	ts, err := time.Parse(util.SysmonTimeLayout, utcTime)
	if err != nil {
		ts = g.now().UTC()
	}
	formatted := ts.Format(KeyTimeLayout)
	if formatted != g.previous {
		g.counter = 0
		g.previous = formatted
	}
	key := fmt.Sprintf("%s_%s%05d", action, formatted, g.counter)
	g.counter++
	return key, ts
}

// KeyRange returns [lower, upper) bounds covering every key of action whose
// timestamp lies in [start, end].
func KeyRange(action string, start, end time.Time) (lower, upper []byte) {
	lower = []byte(fmt.Sprintf("%s_%s", action, start.UTC().Format(KeyTimeLayout)))
	upper = []byte(fmt.Sprintf("%s_%s\xff", action, end.UTC().Format(KeyTimeLayout)))
	return lower, upper
}
