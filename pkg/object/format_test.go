package object

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTree(t *testing.T) {
	fileHash := HashObject(TypeBlob, []byte("x"))
	dirHash := HashObject(TypeTree, nil)
	entries := []TreeEntry{
		{Mode: TreeModeFile, Name: "x", Hash: fileHash},
		{Mode: TreeModeDir, Name: "sub", Hash: dirHash},
	}

	var long bytes.Buffer
	require.NoError(t, FormatTree(&long, entries, false))
	assert.Equal(t,
		"100644  blob  "+string(fileHash)+"  x\n"+
			"040000  tree  "+string(dirHash)+"  sub\n",
		long.String())

	var names bytes.Buffer
	require.NoError(t, FormatTree(&names, entries, true))
	assert.Equal(t, "x\nsub/\n", names.String())
}
