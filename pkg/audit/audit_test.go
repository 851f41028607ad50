package audit

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAssignsIDAndTime(t *testing.T) {
	l := New(10)
	l.Record(Entry{Event: "job_submitted", JobID: "j1"})

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Time.IsZero())
	assert.Equal(t, "job_submitted", entries[0].Event)
}

func TestBoundedWindow(t *testing.T) {
	l := New(5)
	for i := 0; i < 12; i++ {
		l.Record(Entry{Event: fmt.Sprintf("e%d", i)})
	}

	entries := l.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, "e7", entries[0].Event)
	assert.Equal(t, "e11", entries[4].Event)
}

func TestTail(t *testing.T) {
	l := New(10)
	for i := 0; i < 6; i++ {
		l.Record(Entry{Event: fmt.Sprintf("e%d", i)})
	}

	tail := l.Tail(3)
	require.Len(t, tail, 3)
	assert.Equal(t, "e3", tail[0].Event)
	assert.Equal(t, "e5", tail[2].Event)

	// Asking for more than retained returns everything.
	assert.Len(t, l.Tail(100), 6)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	l := New(10).WithStore(store)
	l.Record(Entry{Event: "node_failure", NodeID: "n1", Message: "gpu fault"})
	l.Record(Entry{Event: "job_requeued", JobID: "j1"})

	entries, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "node_failure", entries[0].Event)
	assert.Equal(t, "n1", entries[0].NodeID)
	assert.Equal(t, "job_requeued", entries[1].Event)
	assert.NotEmpty(t, entries[0].ID)
}

func TestBoltStoreListLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(Entry{Event: fmt.Sprintf("e%d", i)}))
	}

	entries, err := store.List(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e0", entries[0].Event)
}
