package telemetry

// API is what components report through instead of logging directly, so tests
// can assert on what was reported.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that needs attention. The id names the
	// component (`discord.send`, `state.save`), details go in params.
	//
	// ids are lowercase, dotted per component and dashed per method.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something worth a look that did not break anything.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
	// ReportCount reports a point-in-time count, successive counts are samples and
	// should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with one or more namespaces, ex. "monitor: fetch".
type ScopedAPI struct {
	prefix string
	inner  API
}

// NewScopedAPI scopes inner under namespace. Scoping a ScopedAPI again appends
// the namespace to its prefix instead of wrapping it, a nil inner reports nowhere.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	switch api := inner.(type) {
	case nil:
		return ScopedAPI{prefix: namespace + ": ", inner: Nop{}}
	case ScopedAPI:
		return ScopedAPI{prefix: api.prefix + namespace + ": ", inner: api.inner}
	}
	return ScopedAPI{prefix: namespace + ": ", inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix+id, params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix+id, params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix+id, count)
}

// Nop drops every report.
type Nop struct{}

func (Nop) ReportBroken(string, ...any)  {}
func (Nop) ReportWarning(string, ...any) {}
func (Nop) ReportDebug(string, ...any)   {}
func (Nop) ReportCount(string, int64)    {}
