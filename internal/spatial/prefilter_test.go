package spatial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/publicartatlas/artimport/internal/model"
	"github.com/publicartatlas/artimport/internal/store"
)

type mockCorpus struct {
	mock.Mock
}

func (m *mockCorpus) ArtworksInBoundingBox(ctx context.Context, box store.BoundingBox, limit int) ([]model.CandidateEntity, error) {
	args := m.Called(ctx, box, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CandidateEntity), args.Error(1)
}

func (m *mockCorpus) SearchArtistsByName(ctx context.Context, name string, limit int) ([]model.ArtistCandidate, error) {
	args := m.Called(ctx, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ArtistCandidate), args.Error(1)
}

func (m *mockCorpus) Close() error { return nil }

func TestBoundingBoxAround(t *testing.T) {
	box := BoundingBoxAround(49.2827, -123.1207, 100)

	// 100m of latitude is just under 0.001 degrees.
	assert.InDelta(t, 0.000898, box.MaxLat-49.2827, 1e-5)
	assert.InDelta(t, box.MaxLat-49.2827, 49.2827-box.MinLat, 1e-12)

	// Longitude span widens with latitude (1/cos(49.28°) ≈ 1.53).
	dLat := box.MaxLat - 49.2827
	dLon := box.MaxLon - (-123.1207)
	assert.Greater(t, dLon, dLat)
	assert.InDelta(t, 1.53, dLon/dLat, 0.02)
}

func TestBoundingBoxAroundClamped(t *testing.T) {
	box := BoundingBoxAround(89.9999, 0, 100000)
	assert.Equal(t, 90.0, box.MaxLat)
	assert.Equal(t, -180.0, box.MinLon)
	assert.Equal(t, 180.0, box.MaxLon)
}

func TestCandidatesOrderedByDistance(t *testing.T) {
	corpus := &mockCorpus{}
	lat, lon := 49.2827, -123.1207

	corpus.On("ArtworksInBoundingBox", mock.Anything, mock.Anything, 50).Return([]model.CandidateEntity{
		{ID: "far", Lat: lat, Lon: lon + 0.0008},
		{ID: "exact", Lat: lat, Lon: lon},
		{ID: "near", Lat: lat, Lon: lon + 0.0002},
	}, nil)

	p := New(corpus, 100, 50)
	got, err := p.Candidates(context.Background(), lat, lon)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "exact", got[0].ID)
	assert.Equal(t, "near", got[1].ID)
	assert.Equal(t, "far", got[2].ID)
	assert.Zero(t, got[0].DistanceMeters)
	assert.Greater(t, got[2].DistanceMeters, got[1].DistanceMeters)
}

func TestCandidatesBackendFailure(t *testing.T) {
	corpus := &mockCorpus{}
	corpus.On("ArtworksInBoundingBox", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	p := New(corpus, 100, 0)
	got, err := p.Candidates(context.Background(), 49.28, -123.12)
	require.Error(t, err)
	assert.Empty(t, got)
	assert.Contains(t, err.Error(), "candidate query")
}
