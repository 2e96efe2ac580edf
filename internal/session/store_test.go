package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/prompts"
	"github.com/sant0-9/surasura/internal/source"
)

type echoCompleter struct{}

func (echoCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return "ok", nil
}

func analyzed(t *testing.T) *pipeline.Session {
	t.Helper()
	reg, err := prompts.Load(prompts.DefaultSet, "")
	require.NoError(t, err)
	doc, err := source.New("notice.pdf", source.KindPDF, "Renew your permit online.")
	require.NoError(t, err)

	sess := pipeline.NewSession(pipeline.New(reg, echoCompleter{}, "English", nil))
	_, err = sess.Analyze(context.Background(), doc)
	require.NoError(t, err)
	return sess
}

func TestStoreSaveGet(t *testing.T) {
	store := NewStore(time.Minute)
	sess := analyzed(t)

	id, err := store.Save(sess)
	require.NoError(t, err)
	assert.Equal(t, sess.Original().ID, id)
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	store.Delete(id)
	_, err = store.Get(id)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStoreRejectsUnanalyzedSession(t *testing.T) {
	reg, err := prompts.Load(prompts.DefaultSet, "")
	require.NoError(t, err)
	sess := pipeline.NewSession(pipeline.New(reg, echoCompleter{}, "English", nil))

	_, err = NewStore(time.Minute).Save(sess)
	assert.True(t, errors.Is(err, errors.ErrNotAnalyzed))
}

func TestStoreExpires(t *testing.T) {
	store := NewStore(50 * time.Millisecond)
	id, err := store.Save(analyzed(t))
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	_, err = store.Get(id)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStoreDefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewStore(0).TTL())
}
