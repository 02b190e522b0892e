package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/review-refinery/internal/core/services/batch"
	"github.com/alejandroruanova/review-refinery/internal/core/services/refinery"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

const sampleReview = "Ưng quá combo này, giao hàng trong 30p, giá 50k nha!!!"

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var cli CLI
	parser, err := kong.New(&cli, kong.Name("refinery"))
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	app, err := newApp(context.Background(), &cli, strings.NewReader(stdin), &out, io.Discard)
	require.NoError(t, err)

	err = kctx.Run(app)
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "refinery version "+version+"\n", out)
}

func TestCleanCmd(t *testing.T) {
	out, err := runCLI(t, "", "clean", sampleReview, "Hàng k đẹp")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ưng quá combo này giao_hàng trong timev giá pricev nha", lines[0])
	assert.Equal(t, refinery.Preprocessing("Hàng k đẹp", nil), lines[1])
}

func TestCleanCmd_Stdin(t *testing.T) {
	out, err := runCLI(t, sampleReview+"\nGIAO HÀNG NHANH\n", "clean")
	require.NoError(t, err)
	assert.Equal(t, "ưng quá combo này giao_hàng trong timev giá pricev nha\ngiao_hàng_nhanh\n", out)
}

func TestCleanCmd_Disable(t *testing.T) {
	out, err := runCLI(t, "", "clean", "--disable=word_tokenize", "Giao hàng nhanh!!!")
	require.NoError(t, err)
	assert.Equal(t, "giao hàng nhanh\n", out)

	_, err = runCLI(t, "", "clean", "--disable=spell_check", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestCleanCmd_Trace(t *testing.T) {
	out, err := runCLI(t, "", "clean", "--trace", "Giá 50k!!!")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "input "), out)
	assert.Contains(t, out, `"Giá 50k!!!"`)
	for _, step := range refinery.StepNames() {
		assert.Contains(t, out, step)
	}
	assert.Contains(t, out, `"giá pricev"`)
}

func TestCleanCmd_UnknownRefinery(t *testing.T) {
	_, err := runCLI(t, "", "clean", "--refinery=v9", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRefineryNotFound))
}

func TestCleanCmd_CustomLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.txt")
	require.NoError(t, os.WriteFile(path, []byte("# shop words\ncombo này\n"), 0o644))
	t.Setenv("SEGMENTER_LEXICON", path)

	out, err := runCLI(t, "", "clean", "combo này giao hàng")
	require.NoError(t, err)
	assert.Equal(t, "combo_này giao hàng\n", out)

	t.Setenv("SEGMENTER_LEXICON", filepath.Join(t.TempDir(), "missing.txt"))
	_, err = runCLI(t, "", "clean", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidLexicon))
}

func TestStepsCmd(t *testing.T) {
	out, err := runCLI(t, "", "steps", "--disable=remove_emojis,handle_number")
	require.NoError(t, err)

	assert.Contains(t, out, "Vietnamese Review Cleaning (v1)")
	assert.Contains(t, out, " 1. to_lower")
	assert.NotContains(t, out, "remove_emojis")
	assert.NotContains(t, out, "handle_number")
}

func TestRefineriesCmd(t *testing.T) {
	out, err := runCLI(t, "", "refineries")
	require.NoError(t, err)
	assert.Contains(t, out, "v1\tVietnamese Review Cleaning\taliases: reviews, vi, vietnamese")
}

func TestBatchCmd(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memory")

	dir := t.TempDir()
	input := filepath.Join(dir, "reviews.csv")
	require.NoError(t, os.WriteFile(input, []byte("content\nGiao hàng nhanh!!!\ngiao hàng nhanh\nHàng đẹp\n"), 0o644))
	output := filepath.Join(dir, "clean.jsonl")

	out, err := runCLI(t, "", "batch", input, output, "--dedup", "--workers=2")
	require.NoError(t, err)

	var report batch.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.TotalRecords)
	assert.Equal(t, 2, report.WrittenRecords)
	assert.Equal(t, 1, report.DuplicateRecords)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t,
		`{"content":"Giao hàng nhanh!!!","pre_content":"giao_hàng_nhanh"}`+"\n"+
			`{"content":"Hàng đẹp","pre_content":"hàng đẹp"}`+"\n",
		string(data))
}

func TestCleanupCmd(t *testing.T) {
	t.Setenv("STORAGE_DIR", t.TempDir())

	out, err := runCLI(t, "", "cleanup", "--older-than=1h")
	require.NoError(t, err)
	assert.Equal(t, "removed 0 directories\n", out)
}
