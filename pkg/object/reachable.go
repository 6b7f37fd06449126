package object

import (
	"fmt"
	"sort"
	"strings"
)

// Connectivity is the result of walking the object graph from a set of roots.
type Connectivity struct {
	Reachable map[Hash]ObjectType
	// Missing lists referenced objects absent from the store, sorted.
	Missing []Hash
}

// Walk follows references from roots (commit -> tree and parents, tree ->
// entries) and records every object it reaches. Absent objects are
// collected in Missing rather than failing the walk; unreadable ones fail it.
func (s *Store) Walk(roots []Hash) (*Connectivity, error) {
	res := &Connectivity{Reachable: make(map[Hash]ObjectType)}
	missing := make(map[Hash]struct{})

	stack := uniqueNormalizedHashes(roots)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := res.Reachable[h]; ok {
			continue
		}
		if _, ok := missing[h]; ok {
			continue
		}
		if !s.Has(h) {
			missing[h] = struct{}{}
			continue
		}

		objType, data, err := s.Read(h)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", h, err)
		}
		res.Reachable[h] = objType
		refs, err := referencedHashes(objType, data)
		if err != nil {
			return nil, fmt.Errorf("walk %s (%s): %w", h, objType, err)
		}
		stack = append(stack, refs...)
	}

	for h := range missing {
		res.Missing = append(res.Missing, h)
	}
	sort.Slice(res.Missing, func(i, j int) bool { return res.Missing[i] < res.Missing[j] })
	return res, nil
}

func referencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeCommit:
		c, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		return append([]Hash{c.TreeHash}, c.Parents...), nil
	case TypeTree:
		tr, err := ParseTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, len(tr.Entries))
		for i, e := range tr.Entries {
			refs[i] = e.Hash
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("unsupported object type %q", objType)
	}
}

func uniqueNormalizedHashes(in []Hash) []Hash {
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		h = Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
