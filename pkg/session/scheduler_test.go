package session

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmrk/lmrkctl/pkg/api"
)

const (
	schedTestInterval = 20 * time.Millisecond
	schedTestSettle   = 150 * time.Millisecond
)

// countingBackend is a fakeBackend whose refresh counter is safe to
// read while the scheduler goroutine is running.
type countingBackend struct {
	mu sync.Mutex
	fakeBackend
}

func (c *countingBackend) Refresh(ctx context.Context) (*api.Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fakeBackend.Refresh(ctx)
}

func (c *countingBackend) refreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fakeBackend.refreshCalls
}

func TestScheduler_RefreshesWhileAuthenticated(t *testing.T) {
	backend := &countingBackend{fakeBackend: fakeBackend{
		loginCreds:   &api.Credentials{Token: stateTestToken, User: *stateTestUser},
		refreshCreds: &api.Credentials{Token: stateTestToken2, User: *stateTestUser},
	}}
	m, _ := newTestManager(backend)
	sched := NewScheduler(m, schedTestInterval, nil)
	defer sched.Stop()

	require.True(t, m.Login(context.Background(), "alice", "secret").OK)

	assert.Eventually(t, func() bool { return backend.refreshCount() >= 2 },
		schedTestSettle*10, schedTestInterval,
		"scheduler should refresh repeatedly while authenticated")
}

func TestScheduler_StopsOnLogout(t *testing.T) {
	backend := &countingBackend{fakeBackend: fakeBackend{
		loginCreds:   &api.Credentials{Token: stateTestToken, User: *stateTestUser},
		refreshCreds: &api.Credentials{Token: stateTestToken2, User: *stateTestUser},
	}}
	m, _ := newTestManager(backend)
	sched := NewScheduler(m, schedTestInterval, nil)
	defer sched.Stop()

	require.True(t, m.Login(context.Background(), "alice", "secret").OK)
	m.Logout(context.Background())

	settled := backend.refreshCount()
	time.Sleep(schedTestSettle)
	assert.LessOrEqual(t, backend.refreshCount(), settled+1,
		"scheduler must stop once the session ends")
}

func TestScheduler_StopsWhenRefreshFails(t *testing.T) {
	backend := &countingBackend{fakeBackend: fakeBackend{
		loginCreds: &api.Credentials{Token: stateTestToken, User: *stateTestUser},
		refreshErr: api.Classify(http.StatusUnauthorized, ""),
	}}
	m, _ := newTestManager(backend)
	sched := NewScheduler(m, schedTestInterval, nil)
	defer sched.Stop()

	require.True(t, m.Login(context.Background(), "alice", "secret").OK)

	assert.Eventually(t, func() bool { return !m.State().Authenticated },
		schedTestSettle*10, schedTestInterval)

	settled := backend.refreshCount()
	time.Sleep(schedTestSettle)
	assert.Equal(t, settled, backend.refreshCount(),
		"no further refreshes after convergence to logged out")
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	backend := &countingBackend{fakeBackend: fakeBackend{
		loginCreds:   &api.Credentials{Token: stateTestToken, User: *stateTestUser},
		refreshCreds: &api.Credentials{Token: stateTestToken2, User: *stateTestUser},
	}}
	m, _ := newTestManager(backend)
	sched := NewScheduler(m, schedTestInterval, nil)
	defer sched.Stop()

	// Login starts the loop via the watcher; re-entering Start must not
	// stack additional timers.
	require.True(t, m.Login(context.Background(), "alice", "secret").OK)
	sched.Start()
	sched.Start()

	time.Sleep(schedTestSettle)
	maxTicks := int(schedTestSettle/schedTestInterval) + 3
	assert.LessOrEqual(t, backend.refreshCount(), maxTicks,
		"refresh rate should reflect a single timer")
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	backend := &countingBackend{}
	m, _ := newTestManager(backend)
	sched := NewScheduler(m, schedTestInterval, nil)

	sched.Stop()
	sched.Start()
	sched.Stop()
	sched.Stop()
}
