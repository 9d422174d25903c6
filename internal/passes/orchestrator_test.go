package passes

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascotlan/iss-spotter/internal/lookup"
	"github.com/ascotlan/iss-spotter/internal/upstream"
)

// --- Mock collaborators ---

type mockIP struct {
	resolveFn func(ctx context.Context) (string, error)
	calls     int
}

func (m *mockIP) Resolve(ctx context.Context) (string, error) {
	m.calls++
	return m.resolveFn(ctx)
}

type mockCoords struct {
	resolveFn func(ctx context.Context, ip string) (lookup.Coordinates, error)
	calls     int
	gotIP     string
}

func (m *mockCoords) Resolve(ctx context.Context, ip string) (lookup.Coordinates, error) {
	m.calls++
	m.gotIP = ip
	return m.resolveFn(ctx, ip)
}

type mockPredictor struct {
	predictFn func(ctx context.Context, coords lookup.Coordinates) ([]lookup.Pass, error)
	calls     int
	gotCoords lookup.Coordinates
}

func (m *mockPredictor) Predict(ctx context.Context, coords lookup.Coordinates) ([]lookup.Pass, error) {
	m.calls++
	m.gotCoords = coords
	return m.predictFn(ctx, coords)
}

var (
	wantCoords = lookup.Coordinates{Latitude: "49.2", Longitude: "-123.1"}
	wantPasses = []lookup.Pass{
		{RiseTime: 1700000000, Duration: 300},
		{RiseTime: 1700005000, Duration: 420},
	}
)

func happyPath() (*mockIP, *mockCoords, *mockPredictor) {
	return &mockIP{
			resolveFn: func(ctx context.Context) (string, error) { return "1.2.3.4", nil },
		}, &mockCoords{
			resolveFn: func(ctx context.Context, ip string) (lookup.Coordinates, error) { return wantCoords, nil },
		}, &mockPredictor{
			predictFn: func(ctx context.Context, coords lookup.Coordinates) ([]lookup.Pass, error) {
				return []lookup.Pass{
					{RiseTime: 1700000000, Duration: 300},
					{RiseTime: 1700005000, Duration: 420},
				}, nil
			},
		}
}

// --- Tests ---

func TestNextPassesSuccess(t *testing.T) {
	ip, coords, pred := happyPath()
	o := NewOrchestrator(ip, coords, pred, nil)

	got, err := o.NextPasses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wantPasses, got)
	assert.Equal(t, "1.2.3.4", coords.gotIP)
	assert.Equal(t, wantCoords, pred.gotCoords)
	assert.Equal(t, 1, ip.calls)
	assert.Equal(t, 1, coords.calls)
	assert.Equal(t, 1, pred.calls)
}

func TestNextPassesIPFailure(t *testing.T) {
	ip, coords, pred := happyPath()
	ip.resolveFn = func(ctx context.Context) (string, error) {
		return "", &upstream.RemoteStatusError{Service: lookup.ServiceIP, StatusCode: 500, Body: "boom"}
	}
	o := NewOrchestrator(ip, coords, pred, nil)

	got, err := o.NextPasses(context.Background())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, coords.calls)
	assert.Equal(t, 0, pred.calls)
	assert.Equal(t, 500, upstream.StatusCode(err))
	assert.Contains(t, err.Error(), "next pass lookup failed: ")
}

func TestNextPassesGeoFailureShortCircuits(t *testing.T) {
	ip, coords, pred := happyPath()
	coords.resolveFn = func(ctx context.Context, ip string) (lookup.Coordinates, error) {
		return lookup.Coordinates{}, &upstream.UpstreamRejectedError{Service: lookup.ServiceGeo, Message: "Invalid IP address"}
	}
	o := NewOrchestrator(ip, coords, pred, nil)

	got, err := o.NextPasses(context.Background())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, pred.calls, "predictor must not run after a geolocation failure")

	var rejected *upstream.UpstreamRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Invalid IP address", rejected.Message)
	assert.Equal(t, "next pass lookup failed: geolocation: Invalid IP address", err.Error())
}

func TestNextPassesPredictorFailure(t *testing.T) {
	ip, coords, pred := happyPath()
	pred.predictFn = func(ctx context.Context, c lookup.Coordinates) ([]lookup.Pass, error) {
		return nil, &upstream.TransportError{Service: lookup.ServiceFlyover, URL: "http://x", Err: context.DeadlineExceeded}
	}
	o := NewOrchestrator(ip, coords, pred, nil)

	got, err := o.NextPasses(context.Background())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, upstream.IsTransport(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNextPassesForSkipsIPLookup(t *testing.T) {
	ip, coords, pred := happyPath()
	o := NewOrchestrator(ip, coords, pred, nil)

	got, err := o.NextPassesFor(context.Background(), "5.6.7.8")
	require.NoError(t, err)
	assert.Equal(t, wantPasses, got)
	assert.Equal(t, 0, ip.calls)
	assert.Equal(t, "5.6.7.8", coords.gotIP)
}

func TestCallbackAndFutureAgree(t *testing.T) {
	cases := map[string]func(ip *mockIP, coords *mockCoords, pred *mockPredictor){
		"success": func(*mockIP, *mockCoords, *mockPredictor) {},
		"geo_failure": func(_ *mockIP, coords *mockCoords, _ *mockPredictor) {
			coords.resolveFn = func(ctx context.Context, ip string) (lookup.Coordinates, error) {
				return lookup.Coordinates{}, &upstream.RemoteStatusError{Service: lookup.ServiceGeo, StatusCode: 429, Body: "quota"}
			}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ip, coords, pred := happyPath()
			mutate(ip, coords, pred)
			o := NewOrchestrator(ip, coords, pred, nil)

			var cbErr error
			var cbPasses []lookup.Pass
			calls := 0
			o.NextPassesFunc(context.Background(), func(err error, passes []lookup.Pass) {
				calls++
				cbErr, cbPasses = err, passes
			})
			require.Equal(t, 1, calls)

			f := o.NextPassesAsync(context.Background())
			<-f.Done()
			fPasses, fErr := f.Await()

			assert.Equal(t, cbPasses, fPasses)
			if cbErr == nil {
				assert.NoError(t, fErr)
			} else {
				require.Error(t, fErr)
				assert.Equal(t, cbErr.Error(), fErr.Error())
			}

			// A second Await returns the same outcome.
			again, againErr := f.Await()
			assert.Equal(t, fPasses, again)
			assert.Equal(t, fErr, againErr)
		})
	}
}

func TestConcurrentRunsShareNothing(t *testing.T) {
	o := NewOrchestrator(
		IPResolverFunc(func(ctx context.Context) (string, error) { return "1.2.3.4", nil }),
		CoordsResolverFunc(func(ctx context.Context, ip string) (lookup.Coordinates, error) { return wantCoords, nil }),
		PredictorFunc(func(ctx context.Context, c lookup.Coordinates) ([]lookup.Pass, error) {
			return []lookup.Pass{{RiseTime: 1700000000, Duration: 300}, {RiseTime: 1700005000, Duration: 420}}, nil
		}),
		nil,
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := o.NextPassesAsync(context.Background()).Await()
			assert.NoError(t, err)
			assert.Equal(t, wantPasses, got)
		}()
	}
	wg.Wait()
}
