package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/corey/scoreweb/internal/app"
	"github.com/corey/scoreweb/internal/ports"
)

func testRun() *ports.Run {
	return &ports.Run{
		ID:        "0b1c2d3e-0000-4000-8000-000000000001",
		Root:      "/docs",
		Keywords:  []string{"cat", "dog"},
		Engine:    app.EngineKMP,
		CreatedAt: 1700000000,
		ElapsedMs: 4,
		MaxScore:  1.5,
		HasMax:    true,
		Entries: []ports.RunEntry{
			{ID: "a.txt", Score: 1.5, Percent: 100, Counts: []int{3, 1}},
			{ID: "b.txt", Score: 0.6, Percent: 40, Counts: []int{1, 0}},
			{ID: "c.txt", Score: 0, Percent: 0, Counts: []int{0, 0}},
		},
	}
}

func TestWriteRun_TablePlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, testRun(), outputOptions{Format: formatTable}))
	out := buf.String()

	assert.NotContains(t, out, "\x1b[", "no ANSI escapes without color")
	assert.Contains(t, out, "3 documents │ 2 keywords │ kmp │ 4ms")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "a.txt")
	assert.Contains(t, lines[1], "100.0%")
	assert.Contains(t, lines[2], "b.txt")
	assert.Contains(t, lines[2], "40.0%")
	assert.Contains(t, lines[3], "c.txt")
	assert.Contains(t, lines[3], "0.0%")
}

func TestWriteRun_TableColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, testRun(), outputOptions{Format: formatTable, Color: true}))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestWriteRun_TableCountsAndTop(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, testRun(), outputOptions{Format: formatTable, Counts: true, Top: 1}))
	out := buf.String()

	assert.Contains(t, out, "cat:3 dog:1")
	assert.NotContains(t, out, "b.txt")
	assert.Contains(t, out, "… 2 more")
}

func TestWriteRun_TableNoBaseline(t *testing.T) {
	run := testRun()
	run.MaxScore = -0.5
	for i := range run.Entries {
		run.Entries[i].Score, run.Entries[i].Percent = 0, 0
	}

	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, run, outputOptions{Format: formatTable}))
	out := buf.String()
	assert.Contains(t, out, "percentages unavailable")
	assert.NotContains(t, out, "%  ", "no percent column without a baseline")
}

func TestWriteRun_TableFailedAndEmpty(t *testing.T) {
	run := &ports.Run{Engine: app.EngineAho, Failed: []string{"locked.txt"}}

	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, run, outputOptions{}))
	out := buf.String()
	assert.Contains(t, out, "no documents")
	assert.Contains(t, out, "unreadable: locked.txt")
	assert.NotContains(t, out, "percentages unavailable")
}

func TestWriteRun_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, testRun(), outputOptions{Format: formatJSON}))

	var v runView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	assert.Equal(t, "/docs", v.Root)
	assert.Equal(t, "2023-11-14T22:13:20Z", v.CreatedAt)
	require.NotNil(t, v.MaxScore)
	assert.InDelta(t, 1.5, *v.MaxScore, 1e-9)
	require.Len(t, v.Documents, 3)
	assert.Equal(t, 1, v.Documents[0].Rank)
	assert.Equal(t, "a.txt", v.Documents[0].Document)
	require.NotNil(t, v.Documents[1].Percent)
	assert.InDelta(t, 40, *v.Documents[1].Percent, 1e-9)
	assert.Equal(t, []keywordCount{{Keyword: "cat", Count: 3}, {Keyword: "dog", Count: 1}}, v.Documents[0].Counts)
}

func TestWriteRun_JSONDuplicateKeywordsKeepSlots(t *testing.T) {
	run := testRun()
	run.Keywords = []string{"cat", "cat"}
	run.Entries = []ports.RunEntry{{ID: "a.txt", Score: 1.5, Percent: 100, Counts: []int{3, 2}}}

	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, run, outputOptions{Format: formatJSON}))

	var v runView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	require.Len(t, v.Documents, 1)
	assert.Equal(t, []keywordCount{{Keyword: "cat", Count: 3}, {Keyword: "cat", Count: 2}}, v.Documents[0].Counts)
}

func TestWriteRun_JSONNoBaselineUsesNull(t *testing.T) {
	run := testRun()
	run.MaxScore = 0

	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, run, outputOptions{Format: formatJSON}))
	assert.Contains(t, buf.String(), `"percent": null`)
}

func TestWriteRun_JSONEmptyDocumentsIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, &ports.Run{}, outputOptions{Format: formatJSON}))
	assert.Contains(t, buf.String(), `"documents": []`)
	assert.Contains(t, buf.String(), `"max_score": null`)
}

func TestWriteRun_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRun(&buf, testRun(), outputOptions{Format: formatYAML, Top: 2}))

	var v runView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &v))
	assert.Equal(t, []string{"cat", "dog"}, v.Keywords)
	require.Len(t, v.Documents, 2)
	assert.Equal(t, "b.txt", v.Documents[1].Document)
}

func TestWriteRun_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeRun(&buf, testRun(), outputOptions{Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
	assert.Error(t, checkFormat("xml"))
	assert.NoError(t, checkFormat(formatYAML))
}

func TestFormatHistory(t *testing.T) {
	var buf bytes.Buffer
	out := formatHistory([]ports.RunSummary{
		{ID: "run-2", Root: "/docs", CreatedAt: 1700000100, Documents: 3, Top: "a.txt"},
		{ID: "run-1", Root: "/docs", CreatedAt: 1700000000},
	}, newStyles(&buf, false))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "2 runs")
	assert.Contains(t, lines[1], "run-2")
	assert.Contains(t, lines[1], "a.txt")
	assert.Contains(t, lines[2], "  0 docs  -")
}

func TestFormatConfig(t *testing.T) {
	var buf bytes.Buffer
	paths := app.NewPaths("/work")
	cfg := app.DefaultConfig()
	cfg.Extensions = []string{".html"}

	out := formatConfig(cfg, paths, false, newStyles(&buf, false))
	assert.Contains(t, out, "not found, using defaults")
	assert.Contains(t, out, "Engine:     kmp")
	assert.Contains(t, out, "insensitive")
	assert.Contains(t, out, ".html")
	assert.Contains(t, out, "device, internet")
}
