package journal

// tamperEvent mutates a retained event in place so integrity tests can
// plant corruption without reaching into the ring from outside the package.
func (j *Journal) tamperEvent(seq uint64, mutate func(*Event)) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.events {
		if j.events[i].Seq == seq {
			mutate(&j.events[i])
			return true
		}
	}
	return false
}
