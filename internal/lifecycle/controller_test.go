package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avtreegw/internal/bootstrap"
	"github.com/vyrodovalexey/avtreegw/internal/config"
	"github.com/vyrodovalexey/avtreegw/internal/observability"
	"github.com/vyrodovalexey/avtreegw/internal/store"
	"github.com/vyrodovalexey/avtreegw/internal/util"
)

// failingPrompter fails the test if the bootstrap prompt is ever shown.
type failingPrompter struct {
	t *testing.T
}

func (p *failingPrompter) CollectDatabase() (*bootstrap.DatabaseAnswers, error) {
	p.t.Fatal("bootstrap prompt must not be triggered")
	return nil, nil
}

// scriptedPrompter returns canned answers.
type scriptedPrompter struct {
	answers *bootstrap.DatabaseAnswers
	calls   int
}

func (p *scriptedPrompter) CollectDatabase() (*bootstrap.DatabaseAnswers, error) {
	p.calls++
	return p.answers, nil
}

// writeServerConfig writes a base config file whose store points at the
// given miniredis instance, appending extra YAML sections verbatim.
func writeServerConfig(t *testing.T, dir string, mr *miniredis.Miniredis, extra string) string {
	t.Helper()

	content := fmt.Sprintf(`
database:
  redis:
    standalone:
      host: %s
      port: %s
`, mr.Host(), mr.Port())
	content += extra

	path := filepath.Join(dir, "tree-gateway.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return filepath.Join(dir, "tree-gateway")
}

func newTestController(t *testing.T, path string, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{
		WithLogger(observability.NopLogger()),
		WithPrompter(&failingPrompter{t: t}),
	}, opts...)
	return New(path, opts...)
}

func TestLoadResolvesLocalGateway(t *testing.T) {
	mr := miniredis.RunT(t)
	base := writeServerConfig(t, t.TempDir(), mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
  admin:
    filter: a
`)

	ctrl := newTestController(t, base)

	var loaded *config.ServerConfig
	ctrl.OnLoad(func(cfg *config.ServerConfig) { loaded = cfg })
	ctrl.OnError(func(err error) { t.Fatalf("unexpected load error: %v", err) })

	ctrl.Load(context.Background())

	require.Equal(t, StateLoaded, ctrl.State())
	require.NotNil(t, loaded)
	require.NotNil(t, loaded.Gateway)
	assert.Equal(t, 8080, loaded.Gateway.Protocol.HTTP.ListenPort)

	// Scenario C: the scalar admin filter was normalized to a list.
	assert.Equal(t, []string{"a"}, loaded.Gateway.Admin.Filter)

	// Path defaults resolved against the config file directory.
	assert.True(t, filepath.IsAbs(loaded.RootPath))
	assert.Equal(t, filepath.Join(loaded.RootPath, "middleware"), loaded.MiddlewarePath)

	// Local gateway existed, so nothing was written to the store.
	assert.False(t, mr.Exists("avtreegw:config:gateway"))
}

func TestLoadIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	base := writeServerConfig(t, t.TempDir(), mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
`)

	ctrl := newTestController(t, base)

	loads := 0
	ctrl.OnLoad(func(*config.ServerConfig) { loads++ })

	ctrl.Load(context.Background())
	ctrl.Load(context.Background())
	ctrl.Load(context.Background())

	assert.Equal(t, 1, loads, "subsequent Load calls must be no-ops")
}

func TestLoadSeedsDefaultGateway(t *testing.T) {
	// Scenario B: no stored value and no local gateway subtree at all.
	mr := miniredis.RunT(t)
	base := writeServerConfig(t, t.TempDir(), mr, "")

	ctrl := newTestController(t, base)
	ctrl.OnError(func(err error) { t.Fatalf("unexpected load error: %v", err) })
	ctrl.Load(context.Background())

	require.Equal(t, StateLoaded, ctrl.State())
	gw := ctrl.Gateway()
	require.NotNil(t, gw)
	require.NotNil(t, gw.Protocol, "synthesized default must populate protocol")
	assert.Equal(t, 8000, gw.Protocol.HTTP.ListenPort)

	// A fresh admin session secret was generated.
	require.NotNil(t, gw.Admin)
	assert.Len(t, gw.Admin.SessionSecret, 64)

	// The synthesized value and a version marker were persisted.
	assert.True(t, mr.Exists("avtreegw:config:gateway"))
	version, err := mr.Get("avtreegw:config:gateway:version")
	require.NoError(t, err)
	assert.NotEmpty(t, version)
}

func TestLoadStoredValueWins(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	base := writeServerConfig(t, dir, mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
  logger:
    level: info
`)

	// Persist an override through the store API, as the admin API would.
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	st, err := store.NewRedisStore(&config.DatabaseConfig{
		Redis: &config.RedisConfig{
			Standalone: &config.RedisEndpoint{Host: mr.Host(), Port: port},
		},
	}, observability.NopLogger())
	require.NoError(t, err)
	require.NoError(t, st.SetGateway(context.Background(), map[string]any{
		"logger": map[string]any{"level": "error"},
	}))
	require.NoError(t, st.Close())

	ctrl := newTestController(t, base)
	ctrl.OnError(func(err error) { t.Fatalf("unexpected load error: %v", err) })
	ctrl.Load(context.Background())

	gw := ctrl.Gateway()
	require.NotNil(t, gw)
	assert.Equal(t, "error", gw.Logger.Level, "stored keys must win")
	require.NotNil(t, gw.Protocol, "local keys absent from the store must fill gaps")
	assert.Equal(t, 8080, gw.Protocol.HTTP.ListenPort)
}

func TestReloadMissingProtocol(t *testing.T) {
	mr := miniredis.RunT(t)
	base := writeServerConfig(t, t.TempDir(), mr, `
gateway:
  logger:
    level: info
`)

	ctrl := newTestController(t, base)

	err := ctrl.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrMissingProtocol)
}

func TestLoadErrorThenRetry(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tree-gateway.yml")
	require.NoError(t, os.WriteFile(path, []byte("rootPath: [broken\n"), 0o600))

	ctrl := newTestController(t, filepath.Join(dir, "tree-gateway"))

	var captured error
	ctrl.OnError(func(err error) { captured = err })

	ctrl.Load(context.Background())
	require.Equal(t, StateErrored, ctrl.State())

	var parseErr *util.ParseError
	require.ErrorAs(t, captured, &parseErr)

	// Fix the file; the already-loaded guard only blocks on success, so
	// a later Load retries.
	writeServerConfig(t, dir, mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
`)
	ctrl.Load(context.Background())
	assert.Equal(t, StateLoaded, ctrl.State())
}

func TestLoadBootstrapsWhenNoFileExists(t *testing.T) {
	// Scenario A: no config file exists, so the bootstrap provider runs
	// and persists a new base file.
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	dir := t.TempDir()
	base := filepath.Join(dir, "app-config")

	prompter := &scriptedPrompter{answers: &bootstrap.DatabaseAnswers{
		Topology: bootstrap.TopologyStandalone,
		Host:     mr.Host(),
		Port:     port,
	}}

	ctrl := New(base,
		WithLogger(observability.NopLogger()),
		WithPrompter(prompter),
	)
	ctrl.OnError(func(err error) { t.Fatalf("unexpected load error: %v", err) })
	ctrl.Load(context.Background())

	require.Equal(t, StateLoaded, ctrl.State())
	assert.Equal(t, 1, prompter.calls)
	assert.FileExists(t, base+".yml")

	// A second controller pointed at the same path must not re-trigger
	// bootstrap.
	second := newTestController(t, base)
	second.OnError(func(err error) { t.Fatalf("unexpected load error: %v", err) })
	second.Load(context.Background())
	assert.Equal(t, StateLoaded, second.State())
}

func TestReloadEmitsGatewayUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	base := writeServerConfig(t, dir, mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
`)

	ctrl := newTestController(t, base)
	ctrl.Load(context.Background())
	require.Equal(t, StateLoaded, ctrl.State())

	var updated *config.GatewayConfig
	ctrl.OnGatewayUpdate(func(gw *config.GatewayConfig) { updated = gw })

	writeServerConfig(t, dir, mr, `
gateway:
  protocol:
    http:
      listenPort: 9090
`)
	require.NoError(t, ctrl.Reload(context.Background()))

	require.NotNil(t, updated)
	assert.Equal(t, 9090, updated.Protocol.HTTP.ListenPort)
	assert.Equal(t, 9090, ctrl.Gateway().Protocol.HTTP.ListenPort)
}

func TestReloadFailureKeepsPreviousConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	base := writeServerConfig(t, dir, mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
`)

	ctrl := newTestController(t, base)
	ctrl.Load(context.Background())
	require.Equal(t, StateLoaded, ctrl.State())

	// Break the file; reload must fail synchronously and leave the
	// previous configuration fully in place.
	path := filepath.Join(dir, "tree-gateway.yml")
	require.NoError(t, os.WriteFile(path, []byte("rootPath: [broken\n"), 0o600))

	err := ctrl.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateLoaded, ctrl.State())
	assert.Equal(t, 8080, ctrl.Gateway().Protocol.HTTP.ListenPort)
}

// slowStore wraps a fixed gateway value behind an artificial delay and
// records how many pipeline runs are inside the store concurrently.
type slowStore struct {
	delay       time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (s *slowStore) GetGateway(ctx context.Context) (map[string]any, error) {
	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		observed := s.maxInFlight.Load()
		if current <= observed || s.maxInFlight.CompareAndSwap(observed, current) {
			break
		}
	}

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return map[string]any{
		"protocol": map[string]any{"http": map[string]any{"listenPort": 8080}},
	}, nil
}

func (s *slowStore) SetGateway(context.Context, map[string]any) error { return nil }
func (s *slowStore) SetVersion(context.Context, string) error         { return nil }
func (s *slowStore) Version(context.Context) (string, error)          { return "", util.ErrNotFound }
func (s *slowStore) Close() error                                     { return nil }

func TestConcurrentReloadsAreSerialized(t *testing.T) {
	// Scenario E: a Reload issued while a prior Reload is still pending
	// store I/O must queue behind it rather than interleave.
	mr := miniredis.RunT(t)
	base := writeServerConfig(t, t.TempDir(), mr, "")

	slow := &slowStore{delay: 50 * time.Millisecond}
	ctrl := newTestController(t, base, WithStoreFactory(
		func(*config.DatabaseConfig) (store.ConfigStore, error) { return slow, nil },
	))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ctrl.Reload(context.Background()))
		}()
	}

	// A concurrent reader must never observe partial state: either no
	// config yet, or a fully resolved one.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if cfg := ctrl.Config(); cfg != nil {
				if assert.NotNil(t, cfg.Gateway) {
					assert.NotNil(t, cfg.Gateway.Protocol)
				}
			}
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
	<-done

	assert.Equal(t, int32(1), slow.maxInFlight.Load(),
		"pipeline runs must never overlap")
	assert.Equal(t, StateLoaded, ctrl.State())
}

func TestEnvironmentOverlaySelection(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	base := writeServerConfig(t, dir, mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
  logger:
    level: info
`)
	overlay := fmt.Sprintf(`
database:
  redis:
    standalone:
      host: %s
      port: %s
gateway:
  logger:
    level: debug
`, mr.Host(), mr.Port())
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "tree-gateway-staging.yml"), []byte(overlay), 0o600))

	ctrl := newTestController(t, base, WithEnvironment("staging"))
	ctrl.OnError(func(err error) { t.Fatalf("unexpected load error: %v", err) })
	ctrl.Load(context.Background())

	gw := ctrl.Gateway()
	require.NotNil(t, gw)
	assert.Equal(t, "debug", gw.Logger.Level, "overlay value must win")
	assert.Equal(t, 8080, gw.Protocol.HTTP.ListenPort, "base value must fill gaps")
}

func TestStoreConnectionFailureIsFatal(t *testing.T) {
	mr := miniredis.RunT(t)
	base := writeServerConfig(t, t.TempDir(), mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
`)
	mr.Close()

	ctrl := newTestController(t, base)
	err := ctrl.Reload(context.Background())
	require.Error(t, err)

	var storeErr *util.StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestVariableInterpolationInPipeline(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	t.Setenv("GW_TEST_LOG_LEVEL", "warn")

	content := fmt.Sprintf(`
database:
  redis:
    standalone:
      host: %s
      port: %s
gateway:
  protocol:
    http:
      listenPort: 8080
  logger:
    level: ${GW_TEST_LOG_LEVEL}
`, mr.Host(), mr.Port())
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "tree-gateway.yml"), []byte(content), 0o600))

	ctrl := newTestController(t, filepath.Join(dir, "tree-gateway"))
	ctrl.OnError(func(err error) { t.Fatalf("unexpected load error: %v", err) })
	ctrl.Load(context.Background())

	assert.Equal(t, "warn", ctrl.Gateway().Logger.Level)
}

func TestSubscribersReceiveEveryEventKind(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tree-gateway.yml")
	require.NoError(t, os.WriteFile(path, []byte("rootPath: [broken\n"), 0o600))

	ctrl := newTestController(t, filepath.Join(dir, "tree-gateway"))

	var errs, loads, updates int
	ctrl.OnError(func(err error) {
		require.Error(t, err)
		errs++
	})
	ctrl.OnLoad(func(cfg *config.ServerConfig) {
		require.NotNil(t, cfg)
		loads++
	})
	ctrl.OnGatewayUpdate(func(gw *config.GatewayConfig) {
		require.NotNil(t, gw)
		updates++
	})

	ctrl.Load(context.Background())
	assert.Equal(t, 1, errs)

	writeServerConfig(t, dir, mr, `
gateway:
  protocol:
    http:
      listenPort: 8080
`)
	ctrl.Load(context.Background())
	assert.Equal(t, 1, loads)

	writeServerConfig(t, dir, mr, `
gateway:
  protocol:
    http:
      listenPort: 9090
`)
	require.NoError(t, ctrl.Reload(context.Background()))
	assert.Equal(t, 1, updates)
	assert.Equal(t, 1, errs, "reload outcomes must not reach error subscribers")
	assert.Equal(t, 1, loads, "reload outcomes must not reach load subscribers")
}

func TestLoadStateString(t *testing.T) {
	assert.Equal(t, "unloaded", StateUnloaded.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "error", StateErrored.String())
	assert.Equal(t, "unknown", LoadState(42).String())
}

func TestGatewayAccessorBeforeLoad(t *testing.T) {
	ctrl := newTestController(t, filepath.Join(t.TempDir(), "missing"))
	assert.Nil(t, ctrl.Gateway())
	assert.Nil(t, ctrl.Config())
	assert.Equal(t, StateUnloaded, ctrl.State())
}

func TestResolveAfterStoreSeedErrors(t *testing.T) {
	// Stored value absent, local absent, and the seed write fails: the
	// load must fail rather than fall back to an unpersisted default.
	mr := miniredis.RunT(t)
	base := writeServerConfig(t, t.TempDir(), mr, "")

	failing := &failingWriteStore{}
	ctrl := newTestController(t, base, WithStoreFactory(
		func(*config.DatabaseConfig) (store.ConfigStore, error) { return failing, nil },
	))

	err := ctrl.Reload(context.Background())
	require.Error(t, err)

	var storeErr *util.StoreError
	assert.ErrorAs(t, err, &storeErr)
}

type failingWriteStore struct{}

func (s *failingWriteStore) GetGateway(context.Context) (map[string]any, error) {
	return nil, util.ErrNotFound
}

func (s *failingWriteStore) SetGateway(context.Context, map[string]any) error {
	return util.NewStoreError("set", "config:gateway", errors.New("write refused"))
}

func (s *failingWriteStore) SetVersion(context.Context, string) error { return nil }
func (s *failingWriteStore) Version(context.Context) (string, error) {
	return "", util.ErrNotFound
}
func (s *failingWriteStore) Close() error { return nil }
