package hub

// MultiAuditor fans events out to several sinks, letting the NATS feed and
// the report archive both observe moderation activity.
type MultiAuditor []Auditor

// ReportFiled forwards the event to every sink.
func (m MultiAuditor) ReportFiled(ev ReportEvent) {
	for _, a := range m {
		a.ReportFiled(ev)
	}
}

// BanIssued forwards the event to every sink.
func (m MultiAuditor) BanIssued(ev BanEvent) {
	for _, a := range m {
		a.BanIssued(ev)
	}
}

// MessageBlocked forwards the event to every sink.
func (m MultiAuditor) MessageBlocked(ev BlockedEvent) {
	for _, a := range m {
		a.MessageBlocked(ev)
	}
}
