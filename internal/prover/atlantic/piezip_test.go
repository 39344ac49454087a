package atlantic

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/types"
)

func TestZipPie_ContainsAllFiveMembers(t *testing.T) {
	pie := types.CairoPie{Raw: types.PieArtifacts{
		VersionJSON:            []byte("v"),
		MetadataJSON:           []byte("m"),
		MemoryBin:              []byte("b"),
		AdditionalDataJSON:     []byte("a"),
		ExecutionResourcesJSON: []byte("r"),
	}}

	data, err := zipPie(pie)
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[f.Name] = string(content)
	}

	assert.Equal(t, "v", names["version.json"])
	assert.Equal(t, "m", names["metadata.json"])
	assert.Equal(t, "b", names["memory.bin"])
	assert.Equal(t, "a", names["additional_data.json"])
	assert.Equal(t, "r", names["execution_resources.json"])
}
