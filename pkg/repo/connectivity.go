package repo

import (
	"fmt"
	"strings"

	"github.com/odvcencio/grit/pkg/object"
)

// CheckConnectivity walks the object graph from every ref, a detached HEAD,
// and every index entry, and reports objects those roots need but the store
// lacks.
func (r *Repo) CheckConnectivity() (*object.Connectivity, error) {
	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}
	roots := make([]object.Hash, 0, len(refs)+1)
	for _, ref := range refs {
		roots = append(roots, ref.Hash)
	}

	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(head, "refs/") {
		roots = append(roots, object.Hash(head))
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	for _, e := range idx.Entries {
		roots = append(roots, e.Hash)
	}

	conn, err := r.Store.Walk(roots)
	if err != nil {
		return nil, fmt.Errorf("check connectivity: %w", err)
	}
	if len(conn.Missing) > 0 {
		r.log.Warn("missing objects", "count", len(conn.Missing), "first", conn.Missing[0])
	}
	return conn, nil
}
