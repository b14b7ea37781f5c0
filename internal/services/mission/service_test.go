package mission

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agribotlabs/agribot/internal/model/entities"
)

type capturePublisher struct {
	payloads [][]byte
}

func (p *capturePublisher) PublishMessage(payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturePublisher) Close() {}

func TestGenerateFromDocumentPublishes(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewService(nil, pub, CoverageConfig{})

	m, err := svc.GenerateFromDocument(mustJSON(t, validDoc()))
	require.NoError(t, err)

	require.Len(t, pub.payloads, 1)
	var published entities.Mission
	require.NoError(t, json.Unmarshal(pub.payloads[0], &published))
	assert.Equal(t, m.ID, published.ID)
	assert.Equal(t, m.Metadata.TotalWaypoints, published.Metadata.TotalWaypoints)
}

func TestHandleGenerate(t *testing.T) {
	svc := NewService(nil, nil, CoverageConfig{})

	req := httptest.NewRequest(http.MethodPost, "/missions/generate", bytes.NewReader(mustJSON(t, validDoc())))
	rec := httptest.NewRecorder()
	svc.HandleGenerate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var m entities.Mission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, entities.MissionReady, m.Status)
	assert.Equal(t, 2, m.Metadata.TotalZones)

	// the generated mission is now retrievable
	require.NotNil(t, svc.Latest())
	assert.Equal(t, m.ID, svc.Latest().ID)
}

func TestHandleGenerateRejectsBadDocument(t *testing.T) {
	svc := NewService(nil, nil, CoverageConfig{})

	doc := validDoc()
	delete(doc, "field_id")
	req := httptest.NewRequest(http.MethodPost, "/missions/generate", bytes.NewReader(mustJSON(t, doc)))
	rec := httptest.NewRecorder()
	svc.HandleGenerate(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing_field", body["reason"])
	assert.NotEmpty(t, body["error"])

	// a rejected document leaves no mission behind
	assert.Nil(t, svc.Latest())
}

func TestHandleGenerateMethodNotAllowed(t *testing.T) {
	svc := NewService(nil, nil, CoverageConfig{})
	rec := httptest.NewRecorder()
	svc.HandleGenerate(rec, httptest.NewRequest(http.MethodGet, "/missions/generate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleLatestEmpty(t *testing.T) {
	svc := NewService(nil, nil, CoverageConfig{})
	rec := httptest.NewRecorder()
	svc.HandleLatest(rec, httptest.NewRequest(http.MethodGet, "/missions/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
