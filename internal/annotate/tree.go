package annotate

// Head returns the head index of token i, or -1 when i is out of range.
func (d *Document) Head(i int) int {
	if !d.Valid(i) {
		return -1
	}
	return d.Tokens[i].Head
}

// IsRoot reports whether token i heads itself.
func (d *Document) IsRoot(i int) bool {
	return d.Valid(i) && d.Tokens[i].Head == i
}

// Root returns the index of the sentence root: the first token labelled
// ROOT, else the first token heading itself, else -1.
func (d *Document) Root() int {
	for i := 0; i < d.Len(); i++ {
		if d.Tokens[i].Dep == "ROOT" {
			return i
		}
	}
	for i := 0; i < d.Len(); i++ {
		if d.IsRoot(i) {
			return i
		}
	}
	return -1
}

// Children returns the direct dependents of token i in token order.
func (d *Document) Children(i int) []int {
	if !d.Valid(i) {
		return nil
	}
	var out []int
	for j := 0; j < d.Len(); j++ {
		if j != i && d.Tokens[j].Head == i {
			out = append(out, j)
		}
	}
	return out
}

// Ancestors returns the heads of token i from nearest to farthest. The walk
// stops at the root, on a repeated index, or after MaxDependencyDepth steps.
func (d *Document) Ancestors(i int) []int {
	if !d.Valid(i) {
		return nil
	}
	var out []int
	seen := map[int]bool{i: true}
	cur := i
	for depth := 0; depth < MaxDependencyDepth; depth++ {
		h := d.Head(cur)
		if h < 0 || h == cur || seen[h] {
			break
		}
		out = append(out, h)
		seen[h] = true
		cur = h
	}
	return out
}

// Descendants returns the dependents of token i reachable within depth
// levels, breadth first, in token order within a level.
func (d *Document) Descendants(i, depth int) []int {
	if !d.Valid(i) || depth <= 0 {
		return nil
	}
	var out []int
	seen := map[int]bool{i: true}
	frontier := []int{i}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []int
		for _, n := range frontier {
			for _, c := range d.Children(n) {
				if seen[c] {
					continue
				}
				seen[c] = true
				out = append(out, c)
				next = append(next, c)
			}
		}
		frontier = next
	}
	return out
}

// Siblings returns the other dependents of token i's head.
// A root token has no siblings.
func (d *Document) Siblings(i int) []int {
	if !d.Valid(i) || d.IsRoot(i) {
		return nil
	}
	var out []int
	for _, c := range d.Children(d.Head(i)) {
		if c != i {
			out = append(out, c)
		}
	}
	return out
}

// HasChildDep reports whether token i has a dependent labelled dep.
func (d *Document) HasChildDep(i int, dep string) bool {
	for _, c := range d.Children(i) {
		if d.Tokens[c].Dep == dep {
			return true
		}
	}
	return false
}

// LowestCommonAncestor returns the nearest token that dominates both a and
// b (either may dominate the other), or -1 when they share no ancestor.
func (d *Document) LowestCommonAncestor(a, b int) int {
	if !d.Valid(a) || !d.Valid(b) {
		return -1
	}
	inB := map[int]bool{b: true}
	for _, anc := range d.Ancestors(b) {
		inB[anc] = true
	}
	if inB[a] {
		return a
	}
	for _, anc := range d.Ancestors(a) {
		if inB[anc] {
			return anc
		}
	}
	return -1
}

// Path returns the dependency path from a to b through their lowest common
// ancestor, inclusive of both ends. Disconnected tokens yield nil.
func (d *Document) Path(a, b int) []int {
	lca := d.LowestCommonAncestor(a, b)
	if lca < 0 {
		return nil
	}
	up := d.pathTo(a, lca)
	down := d.pathTo(b, lca)

	path := make([]int, 0, len(up)+len(down)+1)
	path = append(path, up...)
	path = append(path, lca)
	for k := len(down) - 1; k >= 0; k-- {
		path = append(path, down[k])
	}
	return path
}

// pathTo lists the tokens from i up to, but excluding, ancestor.
func (d *Document) pathTo(i, ancestor int) []int {
	var out []int
	cur := i
	for depth := 0; cur != ancestor && depth < MaxDependencyDepth; depth++ {
		out = append(out, cur)
		h := d.Head(cur)
		if h < 0 || h == cur {
			break
		}
		cur = h
	}
	return out
}
