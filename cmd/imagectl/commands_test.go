package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	usecase.ImageUC
	getReq *usecase.GetImageReq
	batch  []domain.BatchItem
}

func (f *fakeUC) ProcessImage(_ context.Context, req *usecase.ProcessImageReq) (domain.VariantResult, error) {
	return domain.VariantResult{"w300": "https://cdn/" + string(req.Category)}, nil
}

func (f *fakeUC) GetImage(_ context.Context, req *usecase.GetImageReq) (string, error) {
	f.getReq = req
	return "https://cdn/one", nil
}

func (f *fakeUC) BatchProcessImages(_ context.Context, items []domain.BatchItem) map[string]domain.BatchItemResult {
	f.batch = items
	out := map[string]domain.BatchItemResult{}
	for _, it := range items {
		out[it.ID] = domain.BatchItemResult{Success: it.Category == domain.CategoryPoster}
	}
	return out
}

func run(t *testing.T, uc usecase.ImageUC, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(func() (usecase.ImageUC, error) { return uc, nil })
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProcessCommand(t *testing.T) {
	out, err := run(t, &fakeUC{}, "", "process", "https://x/a.jpg", "-c", "backdrop")
	require.NoError(t, err)

	var variants map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &variants))
	assert.Equal(t, "https://cdn/backdrop", variants["w300"])
}

func TestGetCommand(t *testing.T) {
	uc := &fakeUC{}
	out, err := run(t, uc, "", "get", "https://x/a.jpg", "--category", "profile", "--size", "h632")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn/one\n", out)
	assert.Equal(t, domain.CategoryProfile, uc.getReq.Category)
	assert.Equal(t, "h632", uc.getReq.Size)
}

func TestUnknownCategoryDoesNotBuild(t *testing.T) {
	built := false
	cmd := newRootCmd(func() (usecase.ImageUC, error) {
		built = true
		return nil, errors.New("must not be called")
	})
	cmd.SetArgs([]string{"process", "https://x/a.jpg", "-c", "logo"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.ErrorIs(t, err, e.ErrUnknownCategory)
	assert.False(t, built)
}

func TestBatchCommand(t *testing.T) {
	uc := &fakeUC{}
	stdin := `[{"url":"https://x/a.jpg","category":"POSTER","id":"a"},{"url":"https://x/b.jpg","category":"backdrop","id":"b"}]`

	out, err := run(t, uc, stdin, "batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 items failed: b")

	var results map[string]domain.BatchItemResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.True(t, results["a"].Success)
	assert.Equal(t, domain.CategoryPoster, uc.batch[0].Category)
}

func TestBatchCommandRejectsEmptyInput(t *testing.T) {
	_, err := run(t, &fakeUC{}, `[]`, "batch")
	assert.ErrorIs(t, err, e.ErrNoImages)

	_, err = run(t, &fakeUC{}, `{`, "batch")
	assert.ErrorIs(t, err, e.ErrStatusBadRequest)
}
