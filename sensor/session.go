package sensor

import (
	"sort"

	"github.com/moffa90/go-r503/protocol"
)

// Session is a snapshot of results cached from earlier commands.
// None of the fields are live; each reflects the last successful command
// that produced it.
type Session struct {
	// Templates are the occupied slots from the last ReadTemplates, ascending
	Templates []int

	// TemplatesKnown is false until ReadTemplates has succeeded once
	TemplatesKnown bool

	// SecurityLevel is the level from the last ReadSysParam, 0 before any read
	SecurityLevel int

	// FingerID and Confidence describe the last successful SearchFingerLib
	FingerID   int
	Confidence int

	// Params holds the last system parameters read, nil before any read
	Params *protocol.SysParams
}

type sessionState struct {
	templates     map[int]struct{}
	securityLevel int
	fingerID      int
	confidence    int
	params        *protocol.SysParams
}

func (st *sessionState) setTemplates(slots []int) {
	st.templates = make(map[int]struct{}, len(slots))
	for _, slot := range slots {
		st.templates[slot] = struct{}{}
	}
}

func (st *sessionState) forget(slot int) {
	delete(st.templates, slot)
}

func (st *sessionState) forgetAll() {
	if st.templates != nil {
		st.templates = map[int]struct{}{}
	}
}

func (st *sessionState) templateList() []int {
	out := make([]int, 0, len(st.templates))
	for slot := range st.templates {
		out = append(out, slot)
	}
	sort.Ints(out)
	return out
}

// Session returns a snapshot of the cached session state.
func (s *Sensor) Session() Session {
	snap := Session{
		Templates:      s.session.templateList(),
		TemplatesKnown: s.session.templates != nil,
		SecurityLevel:  s.session.securityLevel,
		FingerID:       s.session.fingerID,
		Confidence:     s.session.confidence,
	}
	if s.session.params != nil {
		p := *s.session.params
		snap.Params = &p
	}
	return snap
}

// Templates returns the occupied slots cached by the last ReadTemplates.
func (s *Sensor) Templates() []int {
	return s.session.templateList()
}

// SecurityLevel returns the security level cached by the last ReadSysParam.
func (s *Sensor) SecurityLevel() int {
	return s.session.securityLevel
}

// LastMatch returns the slot and confidence of the last successful search.
func (s *Sensor) LastMatch() (slot int, confidence int) {
	return s.session.fingerID, s.session.confidence
}
