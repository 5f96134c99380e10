package core

import "pkt.systems/notechat/schema"

// directory holds the known sessions, newest first, and the active pointer.
type directory struct {
	sessions []schema.Session
	active   schema.SessionID
}

func (d *directory) replace(sessions []schema.Session) {
	d.sessions = append([]schema.Session(nil), sessions...)
}

// prepend inserts a created session at the front, replacing a stale entry
// with the same id.
func (d *directory) prepend(session schema.Session) {
	out := make([]schema.Session, 0, len(d.sessions)+1)
	out = append(out, session)
	for _, existing := range d.sessions {
		if existing.ID != session.ID {
			out = append(out, existing)
		}
	}
	d.sessions = out
}

func (d *directory) contains(id schema.SessionID) bool {
	for _, session := range d.sessions {
		if session.ID == id {
			return true
		}
	}
	return false
}

func (d *directory) list() []schema.Session {
	return append([]schema.Session(nil), d.sessions...)
}
