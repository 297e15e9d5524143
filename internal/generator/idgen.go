package generator

// PanelIDs numbers the panels of one dashboard from 1 in build order.
// Alert rules refer to a panel by this number.
type PanelIDs struct {
	last int
}

// Next returns the id for the next panel.
func (g *PanelIDs) Next() int {
	g.last++
	return g.last
}

// Reset starts numbering again for a new dashboard.
func (g *PanelIDs) Reset() {
	g.last = 0
}

// Issued is the number of ids handed out since the last Reset.
func (g *PanelIDs) Issued() int {
	return g.last
}
