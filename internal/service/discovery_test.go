package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-edge/internal/models"
)

// dominantCorpus is 20 near-identical records with high fatigue and injuries, 16 of them wins
func dominantCorpus() []models.HistoricalRecord {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.HistoricalRecord, 20)
	for i := range out {
		out[i] = models.HistoricalRecord{
			SelectionID: "sel",
			Factors: models.FactorSet{
				models.FactorFatigue:  0.8,
				models.FactorInjuries: 0.85,
			},
			Won:       i < 16,
			EventDate: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestRediscoverReplacesPatternSets(t *testing.T) {
	f := newFixture()
	f.persistence.On("SavePattern", mock.Anything, "league", mock.Anything).Return(nil)
	p := newTestPipeline(t, testStrategy(), f)

	reports, err := p.Rediscover(context.Background(), map[string][]models.HistoricalRecord{"league": dominantCorpus()})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	first := reports[0]
	assert.True(t, first.Replaced)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 0, first.PreviousVersion)
	assert.Equal(t, 20, first.Records)
	assert.Equal(t, 2, first.Patterns)
	assert.Len(t, p.Cache().Patterns("league"), 2)
	f.persistence.AssertNumberOfCalls(t, "SavePattern", 2)

	reports, err = p.Rediscover(context.Background(), map[string][]models.HistoricalRecord{"league": dominantCorpus()})
	require.NoError(t, err)
	assert.Equal(t, 2, reports[0].Version)
	assert.Equal(t, 1, reports[0].PreviousVersion)
}

func TestRediscoverKeepsPreviousSetOnFailure(t *testing.T) {
	f := newFixture()
	f.persistence.On("SavePattern", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	p := newTestPipeline(t, testStrategy(), f)

	_, err := p.Rediscover(context.Background(), map[string][]models.HistoricalRecord{"league": dominantCorpus()})
	require.NoError(t, err)

	broken := dominantCorpus()
	broken[3].Factors = models.FactorSet{models.FactorFatigue: 0.8}
	reports, err := p.Rediscover(context.Background(), map[string][]models.HistoricalRecord{"league": broken})
	require.NoError(t, err)

	assert.NotEmpty(t, reports[0].Error)
	assert.False(t, reports[0].Replaced)
	set, ok := p.Cache().Current("league")
	require.True(t, ok)
	assert.Equal(t, 1, set.Version)
}

func TestRediscoverFromProvider(t *testing.T) {
	f := newFixture()
	f.outcomes.On("GetOutcomeRecords", mock.Anything, "league").Return(dominantCorpus(), nil)
	f.outcomes.On("GetOutcomeRecords", mock.Anything, "cup").Return(nil, errors.New("unavailable"))
	f.persistence.On("SavePattern", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	p := newTestPipeline(t, testStrategy(), f)

	reports, err := p.RediscoverFromProvider(context.Background(), []string{"league"})
	require.NoError(t, err)
	assert.Equal(t, 2, reports[0].Patterns)

	_, err = p.RediscoverFromProvider(context.Background(), []string{"cup"})
	assert.Error(t, err)

	deps := f.deps()
	deps.Outcomes = nil
	bare, err := NewPipeline(testStrategy(), deps, nil, 1, quietLogger())
	require.NoError(t, err)
	_, err = bare.RediscoverFromProvider(context.Background(), []string{"league"})
	assert.Error(t, err)
}

func TestPipelineWalkForwardRejectsShortHistory(t *testing.T) {
	p := newTestPipeline(t, testStrategy(), newFixture())

	_, status, reasons, err := p.WalkForward(context.Background(), "league", dominantCorpus())
	assert.ErrorIs(t, err, models.ErrInsufficientSample)
	assert.Equal(t, models.BatchUnvalidated, status)
	assert.NotEmpty(t, reasons)
}
