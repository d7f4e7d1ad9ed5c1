package index_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/doctordirectory/backend/internal/application/index"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/pkg/ngram"
)

func sampleDoctors() []*entities.Doctor {
	return []*entities.Doctor{
		{ID: "doc2", Name: "Dr. Mark Lee", Speciality: "Dermatologist", Experience: "6 Years", Available: true},
		{ID: "doc1", Name: "Dr. Jane Doe", Speciality: "Cardiologist", Experience: "12 Years", Available: true},
		{ID: "doc3", Name: "Dr. Ana Ruiz", Speciality: "Cardiologist", Experience: "3 Years", Available: true},
	}
}

func TestDoctorIndex_Build(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	assert.True(t, idx.IsEmpty())
	assert.True(t, idx.NeedsBuild())

	idx.Build(sampleDoctors())

	assert.False(t, idx.IsEmpty())
	assert.Equal(t, 3, idx.Size())
	assert.False(t, idx.NeedsBuild())

	entries := idx.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "doc1", entries[0].Doctor.ID)
	assert.Equal(t, "doc3", entries[2].Doctor.ID)

	entry, ok := idx.Entry("doc1")
	require.True(t, ok)
	assert.Contains(t, entry.Text, "cardiologist")
	for _, n := range ngram.IndexSizes {
		assert.NotEmpty(t, entry.Grams[n])
	}
}

func TestDoctorIndex_BuildIsIdempotent(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	idx.Build(sampleDoctors())
	first := idx.Stats()

	idx.Build(sampleDoctors())
	second := idx.Stats()

	assert.Equal(t, first, second)
}

func TestDoctorIndex_BuildReplacesPreviousContent(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	idx.Build(sampleDoctors())

	idx.Build([]*entities.Doctor{{ID: "doc9", Name: "Dr. Solo", Speciality: "Neurologist"}})

	assert.Equal(t, 1, idx.Size())
	_, ok := idx.Entry("doc1")
	assert.False(t, ok)
	assert.Empty(t, idx.Lookup("car", 3))
	assert.Equal(t, []string{"doc9"}, idx.Lookup("neu", 3))
}

func TestDoctorIndex_Lookup(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	idx.Build(sampleDoctors())

	assert.Equal(t, []string{"doc1", "doc3"}, idx.Lookup("car", 3))
	assert.Equal(t, []string{"doc1", "doc3"}, idx.Lookup("card", 4))
	assert.Empty(t, idx.Lookup("car", 4))
	assert.Empty(t, idx.Lookup("zzz", 3))
}

func TestDoctorIndex_MergedModeIgnoresSize(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeMerged)
	idx.Build(sampleDoctors())

	assert.Equal(t, index.ModeMerged, idx.Mode())
	assert.Equal(t, []string{"doc1", "doc3"}, idx.Lookup("car", 3))
	assert.Equal(t, []string{"doc1", "doc3"}, idx.Lookup("car", 2))
}

func TestDoctorIndex_ModesAgreeOnCandidates(t *testing.T) {
	isolated := index.NewDoctorIndex(index.ModeIsolated)
	merged := index.NewDoctorIndex(index.ModeMerged)
	isolated.Build(sampleDoctors())
	merged.Build(sampleDoctors())

	for _, q := range []string{"cardio", "jane", "derm", "xyz", "lee"} {
		grams := ngram.Sets(q, ngram.IndexSizes...)
		assert.Equal(t, isolated.Candidates(grams), merged.Candidates(grams), q)
		assert.Equal(t, isolated.Stats().TotalNgrams, merged.Stats().TotalNgrams)
	}
}

func TestDoctorIndex_Candidates(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	idx.Build(sampleDoctors())

	assert.Equal(t, []string{"doc1", "doc3"}, idx.Candidates(ngram.Sets("cardiologist", ngram.IndexSizes...)))
	assert.Empty(t, idx.Candidates(ngram.Sets("", ngram.IndexSizes...)))
	assert.Empty(t, idx.Candidates(ngram.Sets("qqq", ngram.IndexSizes...)))
}

func TestDoctorIndex_InvalidateAndClear(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	idx.Build(sampleDoctors())

	idx.Invalidate()
	assert.True(t, idx.IsStale())
	assert.True(t, idx.NeedsBuild())
	assert.Equal(t, 3, idx.Size())

	idx.Build(sampleDoctors())
	assert.False(t, idx.IsStale())

	idx.Clear()
	assert.True(t, idx.IsEmpty())
	assert.Empty(t, idx.Entries())
	assert.Zero(t, idx.Stats().TotalNgrams)
}

func TestDoctorIndex_EnsureBuilt(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	calls := 0
	load := func(ctx context.Context) ([]*entities.Doctor, error) {
		calls++
		return sampleDoctors(), nil
	}

	built, err := idx.EnsureBuilt(context.Background(), load)
	require.NoError(t, err)
	assert.True(t, built)

	built, err = idx.EnsureBuilt(context.Background(), load)
	require.NoError(t, err)
	assert.False(t, built)
	assert.Equal(t, 1, calls)

	idx.Invalidate()
	built, err = idx.EnsureBuilt(context.Background(), load)
	require.NoError(t, err)
	assert.True(t, built)
	assert.Equal(t, 2, calls)
}

func TestDoctorIndex_EnsureBuiltPropagatesLoadError(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	boom := errors.New("directory down")

	_, err := idx.EnsureBuilt(context.Background(), func(ctx context.Context) ([]*entities.Doctor, error) {
		return nil, boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, idx.IsEmpty())
}

func TestDoctorIndex_ConcurrentReadsDuringRebuild(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	idx.Build(sampleDoctors())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			idx.Build(sampleDoctors())
		}()
		go func() {
			defer wg.Done()
			size := idx.Size()
			assert.True(t, size == 0 || size == 3)
			for _, e := range idx.Entries() {
				assert.NotNil(t, e.Doctor)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, idx.Size())
}

func TestDoctorIndex_Stats(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	idx.Build(sampleDoctors())

	stats := idx.Stats()
	assert.Equal(t, 3, stats.TotalDoctors)
	assert.Greater(t, stats.TotalNgrams, 0)
	assert.LessOrEqual(t, len(stats.MostCommonNgrams), 10)

	total := 0
	for _, grams := range stats.NgramDistribution {
		total += grams
	}
	assert.Equal(t, stats.TotalNgrams, total)

	// "dr" appears in every doctor's name
	require.NotEmpty(t, stats.MostCommonNgrams)
	assert.Equal(t, 3, stats.MostCommonNgrams[0].Doctors)
	for i := 1; i < len(stats.MostCommonNgrams); i++ {
		prev, cur := stats.MostCommonNgrams[i-1], stats.MostCommonNgrams[i]
		assert.True(t, prev.Doctors > cur.Doctors || (prev.Doctors == cur.Doctors && prev.Ngram < cur.Ngram))
	}
}
