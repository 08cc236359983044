package queue

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-downloader/zen/internal/core"
	"github.com/zen-downloader/zen/internal/engine/events"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/session"
	"github.com/zen-downloader/zen/internal/testutil"
)

func newClient(t *testing.T, opts ...Option) (*Client, *testutil.Backend, *session.Session) {
	t.Helper()
	backend := testutil.NewBackendT(t)
	sess := session.New()
	opts = append([]Option{
		WithPollInterval(10 * time.Millisecond),
		WithSettleDelay(5 * time.Millisecond),
	}, opts...)
	return NewClient(core.NewRemoteService(backend.URL(), ""), sess, opts...), backend, sess
}

func item(url string) types.QueueItem {
	return types.QueueItem{URL: url, FormatID: "best"}
}

// =============================================================================
// Enqueue
// =============================================================================

func TestEnqueue_ReloadsOnSuccess(t *testing.T) {
	c, backend, sess := newClient(t)

	id, err := c.Enqueue(context.Background(), item("https://example.com/a"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	assert.Equal(t, 1, backend.Count(http.MethodGet, "/api/queue"))
	snap := sess.Snapshot()
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, id, snap.Queue[0].ID)
}

func TestEnqueue_ServerErrorSkipsReload(t *testing.T) {
	c, backend, _ := newClient(t)
	backend.Fail(http.MethodPost, "/api/queue", testutil.Failure{
		Status: http.StatusBadRequest,
		Body:   `{"error":"invalid url"}`,
	})

	_, err := c.Enqueue(context.Background(), item("https://example.com/a"))
	require.Error(t, err)
	assert.Equal(t, "invalid url", err.Error())
	assert.Equal(t, "invalid url", core.UserMessage(err, "Failed to add to queue"))
	assert.Equal(t, 0, backend.Count(http.MethodGet, "/api/queue"), "no reload after a rejected enqueue")
}

func TestEnqueue_Validates(t *testing.T) {
	c, backend, _ := newClient(t)

	_, err := c.Enqueue(context.Background(), types.QueueItem{})
	assert.EqualError(t, err, "url is required")
	assert.Empty(t, backend.Requests())
}

func TestEnqueueBatch_SequentialSingleReload(t *testing.T) {
	c, backend, sess := newClient(t)

	items := []types.QueueItem{
		item("https://example.com/1"),
		{URL: "bogus"},
		item("https://example.com/2"),
		item("https://example.com/3"),
	}
	res, err := c.EnqueueBatch(context.Background(), items)
	require.NoError(t, err)

	assert.Len(t, res.IDs, 3)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "bogus", res.Failed[0].Item.URL)

	// Posts keep submission order, then exactly one reload
	var urls []string
	for _, task := range backend.Tasks() {
		urls = append(urls, task.URL)
	}
	assert.Equal(t, []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}, urls)
	assert.Equal(t, 1, backend.Count(http.MethodGet, "/api/queue"))
	assert.Equal(t, 3, sess.Snapshot().Total)
}

func TestEnqueueBatch_ServerFailuresDoNotStopBatch(t *testing.T) {
	c, backend, _ := newClient(t)
	backend.Fail(http.MethodPost, "/api/queue", testutil.Failure{Status: http.StatusBadRequest, Body: `{"error":"nope"}`})

	res, err := c.EnqueueBatch(context.Background(), []types.QueueItem{item("https://example.com/1"), item("https://example.com/2")})
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
	assert.Len(t, res.Failed, 2)
	assert.Equal(t, 2, backend.Count(http.MethodPost, "/api/queue"))
}

// =============================================================================
// Reload
// =============================================================================

func TestReload_ReplacesNeverMerges(t *testing.T) {
	c, backend, sess := newClient(t)

	backend.SetTasks(
		types.Task{ID: "a", Status: types.StatusPending},
		types.Task{ID: "b", Status: types.StatusPending},
		types.Task{ID: "c", Status: types.StatusPending},
	)
	_, err := c.Reload(context.Background())
	require.NoError(t, err)
	assert.Len(t, sess.Snapshot().Queue, 3)

	backend.SetTasks(
		types.Task{ID: "b", Status: types.StatusCompleted},
		types.Task{ID: "d", Status: types.StatusPending},
	)
	_, err = c.Reload(context.Background())
	require.NoError(t, err)

	snap := sess.Snapshot()
	require.Len(t, snap.Queue, 2)
	assert.Equal(t, "b", snap.Queue[0].ID)
	assert.Equal(t, "d", snap.Queue[1].ID)
}

func TestReload_AutoExpand(t *testing.T) {
	for _, prior := range []bool{false, true} {
		ch := make(chan any, 4)
		c, backend, sess := newClient(t, WithEvents(ch))
		sess.SetQueueExpanded(prior)
		backend.SetTasks(
			types.Task{ID: "a", Status: types.StatusDownloading},
			types.Task{ID: "b", Status: types.StatusDownloading},
		)

		_, err := c.Reload(context.Background())
		require.NoError(t, err)
		assert.True(t, sess.QueueExpanded(), "prior=%v", prior)

		msg := (<-ch).(events.QueueSnapshotMsg)
		assert.True(t, msg.Expanded)
		assert.Equal(t, 2, msg.Snapshot.Downloading)
	}
}

// =============================================================================
// Processing
// =============================================================================

func TestStartProcessing_PollsUntilTerminal(t *testing.T) {
	c, backend, sess := newClient(t)
	backend.SetTasks(
		types.Task{ID: "a", Status: types.StatusDownloading},
		types.Task{ID: "b", Status: types.StatusPending},
	)

	p, err := c.StartProcessing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.QueueStarts())

	require.Eventually(t, func() bool {
		return backend.Count(http.MethodGet, "/api/queue") >= 2
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case <-p.Done():
		t.Fatal("poller stopped while tasks were active")
	default:
	}

	backend.SetStatus("a", types.StatusCompleted)
	backend.SetStatus("b", types.StatusError)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop once every task was terminal")
	}
	snap := sess.Snapshot()
	assert.True(t, snap.AllTerminal())

	// no further polls after stopping
	n := backend.Count(http.MethodGet, "/api/queue")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, backend.Count(http.MethodGet, "/api/queue"))
}

func TestStartProcessing_SingleInstance(t *testing.T) {
	c, backend, _ := newClient(t)
	backend.SetTasks(types.Task{ID: "a", Status: types.StatusDownloading})

	first, err := c.StartProcessing(context.Background())
	require.NoError(t, err)
	second, err := c.StartProcessing(context.Background())
	require.NoError(t, err)

	select {
	case <-first.Done():
	default:
		t.Fatal("starting a new poller must stop the previous one")
	}

	c.StopProcessing()
	select {
	case <-second.Done():
	default:
		t.Fatal("StopProcessing must stop the poller")
	}
}

func TestPoller_StopsOnContextCancel(t *testing.T) {
	c, backend, _ := newClient(t)
	backend.SetTasks(types.Task{ID: "a", Status: types.StatusPending})

	ctx, cancel := context.WithCancel(context.Background())
	p := c.Watch(ctx)
	cancel()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller ignored context cancellation")
	}
}

func TestPoller_ContinuesAfterErrors(t *testing.T) {
	c, backend, _ := newClient(t)
	backend.Fail(http.MethodGet, "/api/queue", testutil.Failure{Status: http.StatusInternalServerError, Body: "boom"})

	p := c.Watch(context.Background())
	defer c.StopProcessing()

	require.Eventually(t, func() bool {
		return backend.Count(http.MethodGet, "/api/queue") >= 3
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case <-p.Done():
		t.Fatal("poll errors must not stop the poller")
	default:
	}
}

// =============================================================================
// Remove, clear, retry
// =============================================================================

func TestRemoveAndClear(t *testing.T) {
	c, backend, sess := newClient(t)
	backend.SetTasks(
		types.Task{ID: "a", Status: types.StatusCompleted},
		types.Task{ID: "b", Status: types.StatusPending},
		types.Task{ID: "c", Status: types.StatusCompleted},
	)
	ctx := context.Background()

	require.NoError(t, c.Remove(ctx, "b"))
	assert.Equal(t, 1, backend.Count(http.MethodDelete, "/api/queue/b"))
	assert.Len(t, sess.Snapshot().Queue, 2)

	require.NoError(t, c.ClearCompleted(ctx))
	assert.Empty(t, sess.Snapshot().Queue)
	assert.Equal(t, 2, backend.Count(http.MethodGet, "/api/queue"))
}

func TestDiscard_DoesNotResubmit(t *testing.T) {
	c, backend, sess := newClient(t)
	backend.SetTasks(types.Task{ID: "x", Status: types.StatusError, URL: "https://example.com/x"})

	require.NoError(t, c.Discard(context.Background(), "x"))
	assert.Equal(t, 0, backend.Count(http.MethodPost, "/api/queue"))
	assert.Empty(t, sess.Snapshot().Queue)
}

func TestRetry_ResubmitsFromSnapshot(t *testing.T) {
	c, backend, sess := newClient(t)
	backend.SetTasks(types.Task{
		ID:        "x",
		Status:    types.StatusError,
		URL:       "https://example.com/x",
		FormatID:  "140",
		AudioOnly: true,
		Title:     "Song",
	})
	ctx := context.Background()
	_, err := c.Reload(ctx)
	require.NoError(t, err)

	newID, err := c.Retry(ctx, "x")
	require.NoError(t, err)
	assert.NotEqual(t, "x", newID)

	tasks := backend.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, newID, tasks[0].ID)
	assert.Equal(t, types.StatusPending, tasks[0].Status)
	assert.Equal(t, "140", tasks[0].FormatID)
	assert.True(t, tasks[0].AudioOnly)

	snap := sess.Snapshot()
	_, ok := snap.Find(newID)
	assert.True(t, ok)
}

func TestRetry_FallsBackToSubmitted(t *testing.T) {
	c, backend, _ := newClient(t)
	ctx := context.Background()

	id, err := c.Enqueue(ctx, types.QueueItem{URL: "https://example.com/y", Title: "Y"})
	require.NoError(t, err)

	// Server stops echoing the source URL
	tasks := backend.Tasks()
	tasks[0].URL = ""
	tasks[0].Status = types.StatusError
	backend.SetTasks(tasks...)
	_, err = c.Reload(ctx)
	require.NoError(t, err)

	newID, err := c.Retry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/y", backend.Tasks()[0].URL)
	assert.NotEqual(t, id, newID)
}

func TestRetry_FailedResubmitKeepsOriginal(t *testing.T) {
	c, backend, sess := newClient(t)
	backend.SetTasks(types.Task{ID: "x", Status: types.StatusError, URL: "https://example.com/x"})
	ctx := context.Background()
	_, err := c.Reload(ctx)
	require.NoError(t, err)

	backend.Fail(http.MethodPost, "/api/queue", testutil.Failure{
		Status: http.StatusBadRequest,
		Body:   `{"error":"queue is full"}`,
	})

	newID, err := c.Retry(ctx, "x")
	require.Error(t, err)
	assert.Equal(t, "queue is full", err.Error())
	assert.Empty(t, newID)
	assert.Zero(t, backend.Count(http.MethodDelete, "/api/queue/x"))

	tasks := backend.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "x", tasks[0].ID)

	snap := sess.Snapshot()
	_, ok := snap.Find("x")
	assert.True(t, ok)
}

func TestRetry_RemoveFailureKeepsNewEntry(t *testing.T) {
	c, backend, _ := newClient(t)
	backend.SetTasks(types.Task{ID: "x", Status: types.StatusError, URL: "https://example.com/x"})
	ctx := context.Background()
	_, err := c.Reload(ctx)
	require.NoError(t, err)

	backend.Fail(http.MethodDelete, "/api/queue/x", testutil.Failure{
		Status: http.StatusInternalServerError,
		Body:   `{"error":"locked"}`,
	})

	newID, err := c.Retry(ctx, "x")
	require.Error(t, err)
	assert.NotEmpty(t, newID)
	var serverErr *core.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "locked", serverErr.Message)
	assert.Len(t, backend.Tasks(), 2)
}

func TestRetry_Unknown(t *testing.T) {
	c, backend, _ := newClient(t)

	_, err := c.Retry(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRetryUnknown)
	assert.Empty(t, backend.Requests())
}
