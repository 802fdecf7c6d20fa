package artist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/publicartatlas/artimport/internal/model"
	"github.com/publicartatlas/artimport/internal/store"
	"github.com/publicartatlas/artimport/pkg/ingest"
)

type mockCorpus struct {
	mock.Mock
}

func (m *mockCorpus) ArtworksInBoundingBox(ctx context.Context, box store.BoundingBox, limit int) ([]model.CandidateEntity, error) {
	args := m.Called(ctx, box, limit)
	if v := args.Get(0); v != nil {
		return v.([]model.CandidateEntity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCorpus) SearchArtistsByName(ctx context.Context, name string, limit int) ([]model.ArtistCandidate, error) {
	args := m.Called(ctx, name, limit)
	if v := args.Get(0); v != nil {
		return v.([]model.ArtistCandidate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCorpus) Close() error { return nil }

var _ store.Corpus = (*mockCorpus)(nil)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) SubmitArtwork(ctx context.Context, req ingest.ArtworkSubmission) (*ingest.ArtworkResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*ingest.ArtworkResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWriter) CreateArtist(ctx context.Context, req ingest.ArtistSubmission) (*ingest.ArtistResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*ingest.ArtistResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWriter) MergeTags(ctx context.Context, artworkID string, tags map[string]string) (*ingest.TagMergeResponse, error) {
	args := m.Called(ctx, artworkID, tags)
	if v := args.Get(0); v != nil {
		return v.(*ingest.TagMergeResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func artistAt(id, name string, created string) model.ArtistCandidate {
	ts, _ := time.Parse(time.RFC3339, created)
	return model.ArtistCandidate{ID: id, Name: name, CreatedAt: ts}
}

func TestResolveMatchesExistingAboveThreshold(t *testing.T) {
	corpus := new(mockCorpus)
	// Same name with different diacritics and case normalizes to identical.
	corpus.On("SearchArtistsByName", mock.Anything, "Janet Echelman", searchLimit).
		Return([]model.ArtistCandidate{
			artistAt("ar-1", "JANET ECHELMAN", "2020-01-01T00:00:00Z"),
		}, nil)

	r := New(corpus, nil, Config{MatchThreshold: 0.95, CreateMissing: false})
	matches, err := r.Resolve(context.Background(), []string{"Janet Echelman"}, "vancouver-od/123")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ar-1", matches[0].MatchedID)
	assert.Empty(t, matches[0].CreatedID)
	assert.InDelta(t, 1.0, matches[0].Confidence, 1e-9)
	corpus.AssertExpectations(t)
}

func TestResolveNearMissBelowThresholdCreates(t *testing.T) {
	corpus := new(mockCorpus)
	// "Jim Smith" vs "Jane Smith": similar but well under 0.95.
	corpus.On("SearchArtistsByName", mock.Anything, "Jim Smith", searchLimit).
		Return([]model.ArtistCandidate{
			artistAt("ar-2", "Jane Smith", "2020-01-01T00:00:00Z"),
		}, nil)

	writer := new(mockWriter)
	writer.On("CreateArtist", mock.Anything, mock.MatchedBy(func(req ingest.ArtistSubmission) bool {
		return req.Name == "Jim Smith" &&
			req.Tags["source"] == ProvenanceSource &&
			req.Tags["artwork"] == "vancouver-od/123" &&
			req.Tags["reason"] == "referenced_in_artwork"
	})).Return(&ingest.ArtistResponse{ID: "ar-new"}, nil)

	r := New(corpus, writer, DefaultConfig())
	matches, err := r.Resolve(context.Background(), []string{"Jim Smith"}, "vancouver-od/123")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ar-new", matches[0].CreatedID)
	assert.Empty(t, matches[0].MatchedID)
	writer.AssertExpectations(t)
}

func TestResolveCreationDisabledReportsNotFound(t *testing.T) {
	corpus := new(mockCorpus)
	corpus.On("SearchArtistsByName", mock.Anything, "Unknown Sculptor", searchLimit).
		Return(nil, nil)

	r := New(corpus, nil, Config{MatchThreshold: 0.95, CreateMissing: false})
	matches, err := r.Resolve(context.Background(), []string{"Unknown Sculptor"}, "ref")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, matches)
}

func TestResolveNamesAreIndependent(t *testing.T) {
	corpus := new(mockCorpus)
	corpus.On("SearchArtistsByName", mock.Anything, "Good Artist", searchLimit).
		Return([]model.ArtistCandidate{
			artistAt("ar-3", "Good Artist", "2021-01-01T00:00:00Z"),
		}, nil)
	corpus.On("SearchArtistsByName", mock.Anything, "Broken Artist", searchLimit).
		Return(nil, assert.AnError)

	r := New(corpus, nil, Config{MatchThreshold: 0.95, CreateMissing: false})
	matches, err := r.Resolve(context.Background(), []string{"Broken Artist", "Good Artist"}, "ref")
	// The failure is reported but the other name still resolved.
	require.Error(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ar-3", matches[0].MatchedID)
}

func TestResolveTieGoesToEarliestCreated(t *testing.T) {
	corpus := new(mockCorpus)
	corpus.On("SearchArtistsByName", mock.Anything, "Ana Rivera", searchLimit).
		Return([]model.ArtistCandidate{
			artistAt("ar-late", "Ana Rivera", "2023-06-01T00:00:00Z"),
			artistAt("ar-early", "Ana Rivera", "2019-02-01T00:00:00Z"),
		}, nil)

	r := New(corpus, nil, Config{MatchThreshold: 0.95, CreateMissing: false})
	matches, err := r.Resolve(context.Background(), []string{"Ana Rivera"}, "ref")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ar-early", matches[0].MatchedID)
}

func TestResolveSkipsBlankNames(t *testing.T) {
	corpus := new(mockCorpus)
	r := New(corpus, nil, Config{MatchThreshold: 0.95, CreateMissing: false})
	matches, err := r.Resolve(context.Background(), []string{"", "   ", "\t"}, "ref")
	require.NoError(t, err)
	assert.Empty(t, matches)
	corpus.AssertNotCalled(t, "SearchArtistsByName")
}

func TestLinksAssignRoles(t *testing.T) {
	matches := []model.ArtistMatch{
		{RawName: "A", MatchedID: "ar-1", Confidence: 1},
		{RawName: "B", CreatedID: "ar-2", Confidence: 1},
	}
	links := Links(matches)
	require.Len(t, links, 2)
	assert.Equal(t, model.ArtistLink{ArtistID: "ar-1", Role: model.RolePrimary}, links[0])
	assert.Equal(t, model.ArtistLink{ArtistID: "ar-2", Role: model.RoleContributor}, links[1])
}
