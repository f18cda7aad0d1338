package yupdate

// Summary is the per-update reduction shown in a timeline entry
type Summary struct {
	StructCount  int
	ClientIDs    []uint64 // distinct, first-seen order
	StructTypes  []string // distinct, first-seen order
	ContentTypes []string // distinct, first-seen order
	PerClient    map[uint64]int
	DeleteSet    map[uint64]int // delete-range items per client
}

// Summarize reduces a decoded update in a single pass over its structs and
// a single pass over its delete set.
func Summarize(u *Update) Summary {
	sum := Summary{
		ClientIDs:    []uint64{},
		StructTypes:  []string{},
		ContentTypes: []string{},
		PerClient:    make(map[uint64]int),
		DeleteSet:    make(map[uint64]int),
	}

	seenType := make(map[string]bool)
	seenContent := make(map[string]bool)
	for _, s := range u.Structs {
		sum.StructCount++
		if _, ok := sum.PerClient[s.Client]; !ok {
			sum.ClientIDs = append(sum.ClientIDs, s.Client)
		}
		sum.PerClient[s.Client]++

		kind := s.Kind.String()
		if !seenType[kind] {
			seenType[kind] = true
			sum.StructTypes = append(sum.StructTypes, kind)
		}
		if s.Item != nil && s.Item.Content != nil {
			name := s.Item.Content.Name()
			if !seenContent[name] {
				seenContent[name] = true
				sum.ContentTypes = append(sum.ContentTypes, name)
			}
		}
	}

	for client, items := range u.DeleteSet {
		if len(items) > 0 {
			sum.DeleteSet[client] = len(items)
		}
	}

	return sum
}
