package record

// Unknown stands in for a caller that was not recorded.
const Unknown = "?"

// Chain is the reconstructed call path of a record.
type Chain struct {
	// Index is the record's position in the buffer.
	Index int
	// Path holds the names of the record's callers, outermost first, ending
	// with the record itself.
	Path []string
	// Parent is the buffer index of the nearest recorded caller, -1 if the
	// direct caller was not recorded or the record is outermost.
	Parent int
}

// Chains reconstructs call paths from records in completion order. A call
// completes after everything it calls, so walking the buffer backwards
// visits every caller before its callees. Callers that were filtered out
// are named Unknown; when an unrecorded caller had recorded siblings the
// attribution is best effort.
func Chains(records []Record) []Chain {
	chains := make([]Chain, len(records))
	var (
		names []string
		index []int
	)
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		d := int(r.Depth)
		if d < len(names) {
			names = names[:d]
			index = index[:d]
		}
		for len(names) < d {
			names = append(names, Unknown)
			index = append(index, -1)
		}
		names = append(names, r.Name())
		index = append(index, i)

		parent := -1
		if d > 0 {
			parent = index[d-1]
		}
		path := make([]string, len(names))
		copy(path, names)
		chains[i] = Chain{Index: i, Path: path, Parent: parent}
	}
	return chains
}

// SelfDurations returns each record's duration minus the durations of its
// recorded direct callees, clamped at zero.
func SelfDurations(records []Record, chains []Chain) []uint64 {
	self := make([]uint64, len(records))
	for i, r := range records {
		self[i] = r.Duration
	}
	for _, c := range chains {
		if c.Parent < 0 {
			continue
		}
		d := records[c.Index].Duration
		if self[c.Parent] < d {
			self[c.Parent] = 0
			continue
		}
		self[c.Parent] -= d
	}
	return self
}
