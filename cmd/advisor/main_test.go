package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-backend/internal/recommendations"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "CATALOG_PATH", "LOG_FILE"} {
		if _, ok := os.LookupEnv(key); !ok {
			t.Setenv(key, "")
		}
	}
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAnalyzeJSON(t *testing.T) {
	out, _, err := runCLI(t, "", "analyze", "--json", "I need an online store to sell my products")
	require.NoError(t, err)

	var res recommendations.AnalyzeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "retail", string(res.Analysis.BusinessType))
	assert.False(t, res.NeedsClarification)
}

func TestAnalyzeReport(t *testing.T) {
	out, _, err := runCLI(t, "", "analyze", "I need something to help manage my business")
	require.NoError(t, err)
	assert.Contains(t, out, "Business type:  unknown")
	assert.Contains(t, out, "Needs clarification:")
}

func TestRecommendReport(t *testing.T) {
	out, _, err := runCLI(t, "", "recommend", "--budget", "1000", "I want a food delivery app")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform:       mobile")
	assert.Contains(t, out, "Business type:  restaurant")
	assert.Contains(t, out, "Tech stack:")
	assert.Contains(t, out, "Note:")
}

func TestRecommendVagueWithoutInteractivePrintsQuestions(t *testing.T) {
	out, _, err := runCLI(t, "", "recommend", "I need something to help manage my business")
	require.NoError(t, err)
	assert.Contains(t, out, "too vague")
	assert.Contains(t, out, "--interactive")
}

func TestRecommendInteractive(t *testing.T) {
	stdin := "Healthcare\niphone\nappointment scheduling\n"
	out, errOut, err := runCLI(t, stdin, "recommend", "--interactive", "--json", "I need something to help manage my business")
	require.NoError(t, err)
	assert.Contains(t, errOut, "A few questions")

	var rec recommendations.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "resolved", string(rec.State))
	assert.Equal(t, "healthcare", string(rec.BusinessType))
	assert.Equal(t, "mobile", string(rec.Platform))
	require.NotNil(t, rec.Outcome.Recommendation)

	var ids []string
	for _, f := range rec.Outcome.Recommendation.Features {
		ids = append(ids, string(f.ID))
	}
	assert.Contains(t, ids, "appointment_scheduling")
}

func TestRecommendInteractiveAsksPortabilityWithoutPlatform(t *testing.T) {
	stdin := "Healthcare\n\nlow\noffline\nappointment scheduling\n"
	out, errOut, err := runCLI(t, stdin, "recommend", "--interactive", "--json", "I need something to help manage my business")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Portability (high/medium/low)")
	assert.Contains(t, errOut, "Access (online/offline)")

	var rec recommendations.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "desktop", string(rec.Platform))
}

func TestRecommendPortabilityFlag(t *testing.T) {
	out, _, err := runCLI(t, "", "recommend", "--business", "retail", "--portability", "high", "I need something to help manage my business")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform:       mobile")

	_, _, err = runCLI(t, "", "recommend", "--access", "sometimes", "I need an online store")
	require.Error(t, err)
}

func TestAnalyzeReportsSecondarySignals(t *testing.T) {
	out, _, err := runCLI(t, "", "analyze", "An urgent online store with order alerts and push notifications, budget $8,000, live in 6 weeks")
	require.NoError(t, err)
	assert.Contains(t, out, "Portability:    medium")
	assert.Contains(t, out, "Notifications:  major")
	assert.Contains(t, out, "Urgency:        medium")
	assert.Contains(t, out, "Budget:         8000.00")
	assert.Contains(t, out, "Timeline:       42 days")
}

func TestRecommendFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.md")
	require.NoError(t, os.WriteFile(path, []byte("I need an online store to sell my products\n"), 0o644))

	out, _, err := runCLI(t, "", "recommend", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Source: "+path)
	assert.Contains(t, out, "Business type:  retail")
}

func TestRecommendBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.txt")
	content := "# requirements\nI need an online store to sell my products\n\nI need something to help manage my business\n   \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, _, err := runCLI(t, "", "recommend", "--batch", path)
	require.NoError(t, err)

	var lines []batchLine
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var l batchLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Line)
	require.NotNil(t, lines[0].Outcome)
	assert.NotNil(t, lines[0].Outcome.Recommendation)
	assert.Equal(t, 4, lines[1].Line)
	assert.NotNil(t, lines[1].Outcome.Clarification)
}

func TestRecommendSaveToSQLite(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "cli.db"))
	out, _, err := runCLI(t, "", "recommend", "--save", "--user", "alice", "I want a food delivery app")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved as ")
	assert.Contains(t, out, "(resolved)")
}

func TestRecommendSaveRequiresDatabase(t *testing.T) {
	_, _, err := runCLI(t, "", "recommend", "--save", "I want a food delivery app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestRecommendRejectsUnknownFlagValues(t *testing.T) {
	_, _, err := runCLI(t, "", "recommend", "--feature", "zzzqqq", "I need an online store")
	require.Error(t, err)

	_, _, err = runCLI(t, "", "recommend")
	require.Error(t, err)
	_, _, err = runCLI(t, "   \n", "recommend", "-")
	require.Error(t, err)
}

func TestCatalogShowAndValidate(t *testing.T) {
	out, _, err := runCLI(t, "", "catalog", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "BUSINESS TYPE")
	assert.Contains(t, out, "loyalty_program")

	out, _, err = runCLI(t, "", "catalog", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog OK: 9 business types, 3 platforms")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("settings:\n  clarity_threshold: 2\nbusiness_types: []\n"), 0o644))
	_, _, err = runCLI(t, "", "catalog", "validate", bad)
	require.Error(t, err)
}

func TestRecommendReadsPipedText(t *testing.T) {
	out, _, err := runCLI(t, "I want a food delivery app\n", "recommend", "--json", "-")
	require.NoError(t, err)

	var rec recommendations.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "restaurant", string(rec.BusinessType))
	assert.Equal(t, "mobile", string(rec.Platform))
	assert.False(t, isTerminal(strings.NewReader("x")))
}
