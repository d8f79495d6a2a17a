package chat

// Pager guards backward pagination: at most one fetch in flight, none once the server
// reports no older page.
type Pager struct {
	hasPrevious bool
	inFlight    bool
}

// Begin reserves the next fetch. It returns false when a fetch is already running or
// there is nothing older to load.
func (p *Pager) Begin() bool {
	if p.inFlight || !p.hasPrevious {
		return false
	}
	p.inFlight = true
	return true
}

func (p *Pager) End(hasPrevious bool) {
	p.inFlight = false
	p.hasPrevious = hasPrevious
}

func (p *Pager) SetHasPrevious(v bool) {
	p.hasPrevious = v
}

func (p *Pager) HasPrevious() bool {
	return p.hasPrevious
}

func (p *Pager) Loading() bool {
	return p.inFlight
}

func (p *Pager) Reset() {
	*p = Pager{}
}
