package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/camfeed/internal/apiserver"
	"github.com/junsooki/camfeed/internal/monitor"
)

type memMonitor struct {
	mu     sync.Mutex
	active map[string]bool
}

func (m *memMonitor) Sources() []string { return []string{"cam0", "cam1"} }
func (m *memMonitor) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for s := range m.active {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
func (m *memMonitor) Monitoring() bool { return len(m.Active()) > 0 }
func (m *memMonitor) Start(source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch source {
	case "":
		m.active["cam0"], m.active["cam1"] = true, true
	case "cam0", "cam1":
		m.active[source] = true
	default:
		return errors.Wrap(monitor.ErrUnknownSource, source)
	}
	return nil
}
func (m *memMonitor) Stop(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if source == "" {
		m.active = map[string]bool{}
		return
	}
	delete(m.active, source)
}

type hub struct{}

func (hub) ServeHTTP(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }
func (hub) Viewers() []string                                { return nil }

func TestClientAgainstServer(t *testing.T) {
	m := &memMonitor{active: map[string]bool{}}
	api := apiserver.NewWebServer(":0", hub{}, m, nil)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	require.NoError(t, c.StartMonitoring(ctx, "cam1"))
	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Monitoring)
	assert.Equal(t, []string{"cam1"}, st.Sources)

	err = c.StartMonitoring(ctx, "cam9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "unknown source")

	require.NoError(t, c.StopMonitoring(ctx, ""))
	st, err = c.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Monitoring)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	c := New(url)
	assert.Error(t, c.StartMonitoring(context.Background(), ""))
	_, err := c.Status(context.Background())
	assert.Error(t, err)
}
