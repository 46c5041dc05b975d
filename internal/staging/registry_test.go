package staging_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automate/internal/domain"
	"automate/internal/staging"
)

var httpGet = domain.MethodRef{Service: "http", Method: "get"}

func TestCreateAndGet(t *testing.T) {
	r := staging.New()
	a := r.Create("fetch", httpGet, map[string]any{"url": "x"})

	require.NotEmpty(t, a.ID)
	assert.True(t, a.Bound())

	got, err := r.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Args["url"])
	assert.Equal(t, httpGet, got.Method)
}

func TestListInsertionOrder(t *testing.T) {
	r := staging.New()
	var want []string
	for i := 0; i < 5; i++ {
		want = append(want, r.Create(fmt.Sprint(i), httpGet, nil).ID)
	}
	require.NoError(t, r.Remove(want[2]))
	want = append(want[:2], want[3:]...)

	var got []string
	for _, a := range r.List() {
		got = append(got, a.ID)
	}
	assert.Equal(t, want, got)
}

func TestRemoveReportsNotFound(t *testing.T) {
	r := staging.New()
	a := r.Create("", httpGet, nil)

	require.NoError(t, r.Remove(a.ID))
	assert.ErrorIs(t, r.Remove(a.ID), domain.ErrNotFound)
	assert.ErrorIs(t, r.Remove(a.ID), domain.ErrNotFound)

	_, err := r.Get(a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	r := staging.New()
	a := r.Create("", httpGet, map[string]any{"url": "x"})

	a.Args["url"] = "mutated"
	list := r.List()
	list[0].Args["url"] = "mutated"

	got, err := r.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Args["url"])
}

func TestConcurrentCreate(t *testing.T) {
	r := staging.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Create("", httpGet, nil)
			_ = r.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}
