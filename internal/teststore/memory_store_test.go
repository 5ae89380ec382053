package teststore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoFormAcceptanceTest/internal/runner"
)

func sampleCase(id string) *runner.TestCase {
	return &runner.TestCase{
		ID:    id,
		Title: "报名表冒烟",
		Steps: []runner.TestStep{
			{Index: 1, Action: runner.ActionNavigate, Target: "https://app.test/form"},
			{Index: 2, Action: runner.ActionFillField, Target: "email", Value: "a@b.test"},
		},
	}
}

func TestMemoryStoreSaveAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveTestCase(ctx, sampleCase("tc-1")))

	tc, err := store.FindTestCase(ctx, "tc-1")
	require.NoError(t, err)
	require.NotNil(t, tc)
	assert.Equal(t, "tc-1", tc.ID)
	assert.Len(t, tc.Steps, 2)
}

func TestMemoryStoreMissingCaseIsNilNil(t *testing.T) {
	store := NewMemoryStore()

	tc, err := store.FindTestCase(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, tc)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := sampleCase("tc-iso")
	require.NoError(t, store.SaveTestCase(ctx, original))

	// 改调用方手里的对象不应影响库内条目
	original.Steps[0].Target = "https://evil.test"

	loaded, err := store.FindTestCase(ctx, "tc-iso")
	require.NoError(t, err)
	assert.Equal(t, "https://app.test/form", loaded.Steps[0].Target)

	loaded.Steps[1].Value = "changed"
	reloaded, err := store.FindTestCase(ctx, "tc-iso")
	require.NoError(t, err)
	assert.Equal(t, "a@b.test", reloaded.Steps[1].Value)
}

func TestMemoryStoreOverwriteAndList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveTestCase(ctx, sampleCase("b-case")))
	require.NoError(t, store.SaveTestCase(ctx, sampleCase("a-case")))

	updated := sampleCase("b-case")
	updated.Steps = updated.Steps[:1]
	require.NoError(t, store.SaveTestCase(ctx, updated))

	summaries, err := store.ListTestCases(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "a-case", summaries[0].ID)
	assert.Equal(t, "b-case", summaries[1].ID)
	assert.Equal(t, 1, summaries[1].StepCount)
}
