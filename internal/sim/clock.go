package sim

// StartClock spawns an independently-scheduled task driving an unbounded
// 50%-duty square wave on p. The wave starts high at the current simulated
// instant. Odd periods split as hi = period/2, lo = period - hi.
//
// A clock has no stop: it outlives the scenario that started it and parks
// when the run ends.
func (s *Simulator) StartClock(name string, p *Port, period Time) {
	hi := period / 2
	lo := period - hi
	s.Spawn(name, func(t *Task) error {
		for {
			p.Set(1)
			if err := t.Delay(hi); err != nil {
				return err
			}
			p.Set(0)
			if err := t.Delay(lo); err != nil {
				return err
			}
		}
	})
}

// PeriodFor converts a clock frequency in Hz to a period in simulated
// nanoseconds, truncating toward zero.
func PeriodFor(freqHz uint64) Time {
	return Time(1_000_000_000 / freqHz)
}
