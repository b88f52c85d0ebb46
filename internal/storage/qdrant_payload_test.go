package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointUUID_StableAndDistinct(t *testing.T) {
	a := PointUUID("code_0")
	b := PointUUID("code_0")
	c := PointUUID("wsp_0")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestPayloadRoundTrip(t *testing.T) {
	p := Point{
		ID:       "wsp_3",
		Document: "WSP 37 Roadmap Scoring\nScores roadmap items",
		Metadata: map[string]any{
			"wsp_id":   "WSP_37",
			"priority": 10,
			"doc_type": "wsp_protocol",
		},
	}

	payload, err := qdrant.TryValueMap(payloadFromPoint(p))
	require.NoError(t, err)

	hit := hitFromPayload(payload)
	assert.Equal(t, p.ID, hit.ID)
	assert.Equal(t, p.Document, hit.Document)
	assert.Equal(t, p.Metadata, hit.Metadata)
}
