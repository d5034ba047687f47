package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designwheel/engine/internal/directory"
	"github.com/designwheel/engine/internal/workflow"
)

func TestResultsHeader(t *testing.T) {
	assert.Equal(t,
		"Student ID,Name,Email,Project Title,Total Score,"+
			"Empathize Status,Empathize Score,Define Status,Define Score,Ideate Status,Ideate Score,"+
			"Prototype Status,Prototype Score,Test Status,Test Score,Implement Status,Implement Score",
		strings.Join(ResultsHeader(), ","))
}

func TestExportFilename(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "design_thinker_results_2026-03-07.csv",
		env.export.Filename(time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC)))
}

func TestWriteResultsCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada, the First")
	_, err := env.project.Submit(ctx, p.ID, workflow.Empathize)
	require.NoError(t, err)
	_, err = env.project.ApplyVerdict(ctx, p.ID, workflow.Empathize, true)
	require.NoError(t, err)
	_, err = env.project.UpdateScore(ctx, p.ID, workflow.Empathize, 8.5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.export.WriteResultsCSV(ctx, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// allow-list order: 0987654321 then 1234567890
	assert.Equal(t, []string{graceID, NotRegistered, "", NoProject, "0",
		"N/A", "0", "N/A", "0", "N/A", "0", "N/A", "0", "N/A", "0", "N/A", "0"}, rows[1])

	ada := rows[2]
	assert.Equal(t, adaID, ada[0])
	assert.Equal(t, "Ada, the First", ada[1])
	assert.Equal(t, "student@uni.edu", ada[2])
	assert.Equal(t, "Campus Food Waste", ada[3])
	assert.Equal(t, "1.28", ada[4])
	assert.Equal(t, "APPROVED", ada[5])
	assert.Equal(t, "8.5", ada[6])
	assert.Equal(t, "IN_PROGRESS", ada[7])
	assert.Equal(t, "LOCKED", ada[9])
}

func TestExportReimportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.directory.ImportAllowList(ctx, "5555555555\n3333333333")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.export.WriteResultsCSV(ctx, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	var firstColumn []string
	for _, r := range rows[1:] {
		firstColumn = append(firstColumn, r[0])
	}
	want, err := env.directory.AllowList(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, directory.ParseStudentIDs(strings.Join(firstColumn, "\n")))

	res, err := env.directory.ImportAllowList(ctx, strings.Join(firstColumn, ","))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
}
