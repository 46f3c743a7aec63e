package schema

// Node is a named item that must come after the items it depends on.
type Node struct {
	Name         string
	Dependencies []string
}

// SortByDependencies orders nodes so every node follows its dependencies.
// Dependencies on names outside the set are treated as satisfied.
// Cycles are broken with a scoring heuristic; the names placed to break
// them are returned in broken.
func SortByDependencies(nodes []*Node) (sorted []*Node, broken []string) {
	known := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		known[n.Name] = n
	}
	processed := make(map[string]bool, len(nodes))
	satisfied := func(dep string) bool {
		_, ok := known[dep]
		return !ok || processed[dep]
	}

	for len(sorted) < len(nodes) {
		added := false

		// Pass 1: nodes whose dependencies are all placed
		for _, n := range nodes {
			if processed[n.Name] {
				continue
			}
			ready := true
			for _, dep := range n.Dependencies {
				if !satisfied(dep) {
					ready = false
					break
				}
			}
			if ready {
				sorted = append(sorted, n)
				processed[n.Name] = true
				added = true
			}
		}
		if added {
			continue
		}

		// Pass 2: cycle. Prefer fewest open dependencies, boost nodes that are
		// part of a direct back-reference, break remaining ties by name.
		var best *Node
		bestScore := -999999
		for _, n := range nodes {
			if processed[n.Name] {
				continue
			}
			score := 0
			open := 0
			circular := false
			for _, dep := range n.Dependencies {
				if satisfied(dep) {
					continue
				}
				open++
				for _, back := range known[dep].Dependencies {
					if back == n.Name {
						circular = true
						break
					}
				}
			}
			score -= open * 100
			if circular {
				score += 500
			}
			if score > bestScore || (score == bestScore && (best == nil || n.Name < best.Name)) {
				bestScore = score
				best = n
			}
		}
		if best == nil {
			break
		}
		sorted = append(sorted, best)
		processed[best.Name] = true
		broken = append(broken, best.Name)
	}
	return sorted, broken
}
