package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/healthaccess/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleSummaries() []model.CountySummary {
	return []model.CountySummary{
		{
			StateFIPS: "13", CountyFIPS: "121", CountyName: "Fulton County, Georgia", FullFIPS: "13121",
			NumFacilities: 1, Population: model.IntOf(0), Category: model.Unknown,
		},
		{
			StateFIPS: "13", CountyFIPS: "089", CountyName: "DeKalb County, Georgia", FullFIPS: "13089",
			NumFacilities: 3, Population: model.IntOf(100000), Density: 0.3,
			RUCCCode: model.IntOf(1), RUCCDesc: "Metro", Category: model.Metropolitan,
		},
	}
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_SaveRunAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := Run{ID: uuid.New().String(), StateFIPS: "13", FacilitiesPath: "sites.csv", Counties: 2, Facilities: 4}
	require.NoError(t, st.SaveRun(ctx, run, sampleSummaries()))

	got, err := st.ListCountySummary(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "13089", got[0].FullFIPS)
	assert.Equal(t, sampleSummaries()[1], got[0])
	assert.False(t, got[1].RUCCCode.Valid)
	assert.Equal(t, model.Unknown, got[1].Category)

	stored, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "sites.csv", stored.FacilitiesPath)
	assert.Equal(t, 4, stored.Facilities)
}

func TestSQLite_SaveRunReplacesPreviousSummary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, Run{ID: uuid.New().String()}, sampleSummaries()))
	require.NoError(t, st.SaveRun(ctx, Run{ID: uuid.New().String()}, sampleSummaries()[:1]))

	got, err := st.ListCountySummary(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "13121", got[0].FullFIPS)
}

func TestSQLite_SaveRunSameIDTwice(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, Run{ID: "run-1", FacilitiesPath: "a.csv", Counties: 2}, sampleSummaries()))
	require.NoError(t, st.SaveRun(ctx, Run{ID: "run-1", FacilitiesPath: "b.csv", Counties: 2}, sampleSummaries()))

	run, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "b.csv", run.FacilitiesPath)

	got, err := st.ListCountySummary(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLite_SaveRun_EmptyID(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.SaveRun(context.Background(), Run{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty run id")
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_ReplacePopulation(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := []model.PopulationRecord{
		{StateFIPS: "13", CountyFIPS: "001", CountyName: "Appling County, Georgia", Population: model.IntOf(18444)},
		{StateFIPS: "13", CountyFIPS: "003", CountyName: "Atkinson County, Georgia"},
	}
	require.NoError(t, st.ReplacePopulation(ctx, first))
	n, err := st.CountPopulation(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, st.ReplacePopulation(ctx, first[:1]))
	n, err = st.CountPopulation(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
