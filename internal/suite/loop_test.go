package suite

import (
	"sort"
	"time"
)

// fakeLoop runs timers in virtual time, earliest first.
type fakeLoop struct {
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

func (l *fakeLoop) AfterFunc(d time.Duration, fn func()) func() {
	t := &fakeTimer{at: l.now + d, seq: l.seq, fn: fn}
	l.seq++
	l.timers = append(l.timers, t)
	return func() { t.cancelled = true }
}

// drain runs every pending timer, including ones scheduled while draining.
func (l *fakeLoop) drain() {
	for {
		live := l.timers[:0]
		for _, t := range l.timers {
			if !t.cancelled {
				live = append(live, t)
			}
		}
		l.timers = live
		if len(l.timers) == 0 {
			return
		}
		sort.SliceStable(l.timers, func(i, j int) bool {
			if l.timers[i].at != l.timers[j].at {
				return l.timers[i].at < l.timers[j].at
			}
			return l.timers[i].seq < l.timers[j].seq
		})
		t := l.timers[0]
		l.timers = l.timers[1:]
		l.now = t.at
		t.fn()
	}
}
