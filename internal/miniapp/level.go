package miniapp

import "sort"

// Level is the group of handlers sharing one execution level for a single
// dispatch. It is built per call and discarded afterwards.
type Level struct {
	Order    int
	Handlers []Handler
}

// partition groups handlers by Level() and sorts the groups ascending.
// Within a group, handlers keep registration order.
func partition(hs []Handler) []Level {
	byOrder := make(map[int][]Handler)
	for _, h := range hs {
		byOrder[h.Level()] = append(byOrder[h.Level()], h)
	}
	levels := make([]Level, 0, len(byOrder))
	for order, group := range byOrder {
		levels = append(levels, Level{Order: order, Handlers: group})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Order < levels[j].Order })
	return levels
}
