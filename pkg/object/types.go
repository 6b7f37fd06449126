package object

// Hash is a 40-character lowercase hex-encoded SHA-1 digest.
type Hash string

// HashLen is the length of a hex-encoded Hash.
const HashLen = 40

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

// Valid reports whether t is a known object type.
func (t ObjectType) Valid() bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit:
		return true
	}
	return false
}

const (
	// Tree mode tokens. Only regular files and directories are modeled.
	TreeModeFile = "100644"
	TreeModeDir  = "040000"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one child reference inside a tree object.
type TreeEntry struct {
	Mode string
	Name string
	Hash Hash
}

// Type derives the entry kind from its mode: 100644 is a blob, anything else
// is a tree.
func (e TreeEntry) Type() ObjectType {
	if e.Mode == TreeModeFile {
		return TypeBlob
	}
	return TypeTree
}

// IsDir reports whether the entry references a sub-tree.
func (e TreeEntry) IsDir() bool {
	return e.Type() == TypeTree
}

// TreeObj holds the entries of a tree in encounter order.
type TreeObj struct {
	Entries []TreeEntry
}

// ByName returns a name-keyed view of the entries. When a name appears more
// than once the last entry wins.
func (t *TreeObj) ByName() map[string]TreeEntry {
	m := make(map[string]TreeEntry, len(t.Entries))
	for _, e := range t.Entries {
		m[e.Name] = e
	}
	return m
}

// Signature identifies who made a commit and when.
type Signature struct {
	Name     string
	Email    string
	When     int64  // unix seconds
	Timezone string // e.g. "+0200"
}

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Signature string
	Message   string
}
