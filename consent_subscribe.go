package goGuard

import "github.com/google/uuid"

// Subscribe registers fn to be called with the merged record after every
// successful Update. Callbacks run synchronously on the updating goroutine,
// after persistence, in no particular order. The returned id cancels the
// subscription via Unsubscribe.
func (s *ConsentStore) Subscribe(fn func(Preferences)) string {
	if s == nil || fn == nil {
		return ""
	}

	id := uuid.NewString()

	s.subMu.Lock()
	s.subs[id] = fn
	s.subMu.Unlock()

	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (s *ConsentStore) Unsubscribe(id string) {
	if s == nil {
		return
	}

	s.subMu.Lock()
	delete(s.subs, id)
	s.subMu.Unlock()
}

func (s *ConsentStore) notify(p Preferences) {
	s.subMu.RLock()
	fns := make([]func(Preferences), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(p)
	}
}
