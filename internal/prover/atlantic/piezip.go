package atlantic

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/sayaproofs/saya/internal/types"
)

// zipPie compresses a CairoPie's five opaque artifact members into the
// deflated zip archive the atlantic-query endpoint's pieFile field
// expects.
func zipPie(pie types.CairoPie) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	members := []struct {
		name string
		data []byte
	}{
		{"version.json", pie.Raw.VersionJSON},
		{"metadata.json", pie.Raw.MetadataJSON},
		{"memory.bin", pie.Raw.MemoryBin},
		{"additional_data.json", pie.Raw.AdditionalDataJSON},
		{"execution_resources.json", pie.Raw.ExecutionResourcesJSON},
	}

	for _, m := range members {
		fw, err := w.CreateHeader(&zip.FileHeader{
			Name:   m.name,
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, fmt.Errorf("atlantic: create zip entry %s: %w", m.name, err)
		}
		if _, err := fw.Write(m.data); err != nil {
			return nil, fmt.Errorf("atlantic: write zip entry %s: %w", m.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("atlantic: close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}
