package domain

// ReleaseGroup aggregates two or more copies of the same release.
// Main is the first record observed for the key; Members holds every
// later copy in observation order. A group with an empty member list has
// not reached two copies yet and renders as a single.
type ReleaseGroup struct {
	Key     ReleaseKey `json:"key"`
	Main    *Record    `json:"main"`
	Members []*Record  `json:"members,omitempty"`
	Format  Format     `json:"format"`
}

// Size returns the total number of copies in the group, main included.
func (g *ReleaseGroup) Size() int {
	return 1 + len(g.Members)
}

// FromPrice returns the lowest minimum price across all copies.
func (g *ReleaseGroup) FromPrice() float64 {
	lowest := g.Main.PriceRange.MinAmount
	for _, m := range g.Members {
		if m.PriceRange.MinAmount < lowest {
			lowest = m.PriceRange.MinAmount
		}
	}
	return lowest
}

// RenderKind discriminates the two shapes of a render item.
type RenderKind string

// Render item kinds.
const (
	KindSingle RenderKind = "single"
	KindGroup  RenderKind = "group"
)

// RenderItem is the unit handed to the progressive renderer: either one
// ungrouped record or a formed release group. OriginalIndex is the fetch
// position of the item's earliest-known member and is the sole sort key
// for presentation order.
type RenderItem struct {
	Kind          RenderKind    `json:"kind"`
	Record        *Record       `json:"record,omitempty"` // singles only
	Group         *ReleaseGroup `json:"group,omitempty"`  // groups only
	OriginalIndex int           `json:"original_index"`
}

// ID returns the identifying record ID for the item: the record itself
// for singles, the group's main record for groups.
func (it *RenderItem) ID() string {
	if it.Kind == KindGroup {
		return it.Group.Main.ID
	}
	return it.Record.ID
}

// CopyCount returns the number of copies the item represents.
func (it *RenderItem) CopyCount() int {
	if it.Kind == KindGroup {
		return it.Group.Size()
	}
	return 1
}
