package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

func sampleDocument() *WorldDocument {
	doc := NewDocument([]PaletteEntry{{ID: 0, Identifier: "air"}, {ID: 1, Identifier: "stone"}})
	doc.AddChunk(vec.New(0, 0, 0), []chunk.Run{{ID: 1, Length: 1024}, {ID: 0, Length: chunk.Volume - 1024}})
	doc.AddChunk(vec.New(-16, 0, 16), []chunk.Run{{ID: 0, Length: chunk.Volume}})
	return doc
}

func TestDocumentJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, sampleDocument(), false))

	out := buf.String()
	assert.Contains(t, out, `"palette":[{"index":0,"id":"air"},{"index":1,"id":"stone"}]`)
	assert.Contains(t, out, `"position":[-16,0,16]`)
	assert.Contains(t, out, `"blocks":[[1,1024],[0,3072]]`)
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, WriteDocument(&buf, sampleDocument(), compress))
		if compress {
			assert.Equal(t, zstdMagic, buf.Bytes()[:4])
		}

		doc, err := ReadDocument(&buf)
		require.NoError(t, err)
		assert.Equal(t, sampleDocument(), doc)
	}
}

func TestDocumentRecords(t *testing.T) {
	records := sampleDocument().Records()
	require.Len(t, records, 2)

	assert.Equal(t, vec.New(-16, 0, 16), records[1].Position)
	assert.Equal(t, "stone", records[0].PaletteMap()[1])
	assert.Equal(t, int32(1024), records[0].Runs[0].Length)
}

func TestReadDocumentInvalid(t *testing.T) {
	_, err := ReadDocument(bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}
