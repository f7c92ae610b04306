package service_test

import (
	"context"
	"math"
	"testing"

	"academictracker/internal/analysis"
	"academictracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisSummaryOverSeed(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, service.Seed(ctx, db))
	analysisService := service.NewAnalysisService(db)

	report, err := analysisService.Summary(ctx, analysis.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 60.0, report.Threshold)
	require.Len(t, report.StudentSummaries, 2)

	ana, juan := report.StudentSummaries[0], report.StudentSummaries[1]
	assert.Equal(t, "Ana", ana.Student.FirstName)
	require.NotNil(t, ana.GeneralAverage)
	assert.Equal(t, 77.5, *ana.GeneralAverage)
	assert.False(t, ana.IsAtRisk)
	assert.Empty(t, ana.NeedsImprovement)

	assert.Equal(t, "Juan", juan.Student.FirstName)
	require.NotNil(t, juan.GeneralAverage)
	assert.Equal(t, 56.0, *juan.GeneralAverage)
	assert.True(t, juan.IsAtRisk)
	require.Len(t, juan.NeedsImprovement, 1)
	assert.Equal(t, "Mathematics", juan.NeedsImprovement[0].SubjectName)
	assert.Equal(t, 50.0, juan.NeedsImprovement[0].PercentAverage)

	require.Len(t, report.SubjectAverages, 2)
	averages := map[string]float64{}
	for _, sa := range report.SubjectAverages {
		require.NotNil(t, sa.PercentAverage, sa.Subject.Name)
		averages[sa.Subject.Name] = *sa.PercentAverage
	}
	assert.Equal(t, map[string]float64{"Mathematics": 67.5, "Language": 66}, averages)

	again, err := analysisService.Summary(ctx, analysis.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func TestAnalysisThresholdIsExplicit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, service.Seed(ctx, db))
	analysisService := service.NewAnalysisService(db)

	report, err := analysisService.Summary(ctx, analysis.Options{Threshold: 50})
	require.NoError(t, err)
	assert.Equal(t, 50.0, report.Threshold)
	for _, s := range report.StudentSummaries {
		assert.False(t, s.IsAtRisk, s.Student.FirstName)
	}

	_, err = analysisService.Summary(ctx, analysis.Options{Threshold: math.NaN()})
	assert.ErrorIs(t, err, analysis.ErrInvalidThreshold)
}

func TestAnalysisStudentSummary(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, service.Seed(ctx, db))
	analysisService := service.NewAnalysisService(db)

	students, err := service.NewStudentService(db).List(ctx)
	require.NoError(t, err)
	juan := students[0]

	summary, err := analysisService.StudentSummary(ctx, juan.ID, analysis.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, juan.ID, summary.Student.ID)
	require.NotNil(t, summary.GeneralAverage)
	assert.Equal(t, 56.0, *summary.GeneralAverage)
	assert.True(t, summary.IsAtRisk)

	newcomer, err := service.NewStudentService(db).Create(ctx, service.StudentInput{FirstName: "Eva", LastName: "Diaz"})
	require.NoError(t, err)
	summary, err = analysisService.StudentSummary(ctx, newcomer.ID, analysis.Options{Threshold: 100})
	require.NoError(t, err)
	assert.Nil(t, summary.GeneralAverage)
	assert.False(t, summary.IsAtRisk)
	assert.Empty(t, summary.PerSubjectAverages)

	_, err = analysisService.StudentSummary(ctx, 999, analysis.DefaultOptions())
	assert.ErrorIs(t, err, service.ErrStudentNotFound)
}

func TestAnalysisCharts(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, service.Seed(ctx, db))

	charts, err := service.NewAnalysisService(db).Charts(ctx, analysis.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana Lopez", "Juan Perez"}, charts.StudentAverages.Labels)
	assert.Equal(t, []float64{77.5, 56}, charts.StudentAverages.Data)
	assert.Equal(t, []string{"Mathematics", "Language"}, charts.SubjectAverages.Labels)
	assert.Equal(t, []float64{67.5, 66}, charts.SubjectAverages.Data)
}
