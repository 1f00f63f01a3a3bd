package vulkan

// ReleaseStack runs teardown functions in the reverse order of their registration.
type ReleaseStack struct {
	entries []releaseEntry
}

type releaseEntry struct {
	name    string
	release func()
}

// Push registers release under name. It runs before everything pushed earlier.
func (s *ReleaseStack) Push(name string, release func()) {
	s.entries = append(s.entries, releaseEntry{name: name, release: release})
}

func (s *ReleaseStack) Len() int {
	return len(s.entries)
}

// Unwind runs and drops every registered function, newest first. onRelease,
// when not nil, sees each name before its function runs.
func (s *ReleaseStack) Unwind(onRelease func(name string)) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if onRelease != nil {
			onRelease(entry.name)
		}
		entry.release()
	}
	s.entries = nil
}
