package sim

import "container/heap"

// Time is simulated time in nanoseconds since the start of the run.
type Time uint64

// timer is a pending wakeup in the simulated future.
//
// Timers at the same instant fire in the order they were scheduled (seq),
// which keeps runs deterministic.
type timer struct {
	at        Time
	seq       uint64
	fire      func()
	cancelled bool
}

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x any) { *q = append(*q, x.(*timer)) }

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

func (s *Simulator) schedule(at Time, fire func()) *timer {
	t := &timer{at: at, seq: s.timerSeq, fire: fire}
	s.timerSeq++
	heap.Push(&s.timers, t)
	return t
}
