package fredadapter_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketbridge/internal/provider"
	"marketbridge/internal/provider/fred"
	"marketbridge/internal/provider/fredadapter"
)

func newAdapter(t *testing.T, key string, handler http.HandlerFunc) (*fredadapter.Adapter, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := fred.New(key, fred.WithBaseURL(srv.URL), fred.WithHTTPClient(srv.Client()))
	return fredadapter.New(fredadapter.Config{}, client), calls
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestFetch_NormalizesObservations(t *testing.T) {
	t.Parallel()

	// Arrange: out-of-order observations with a missing value and a repeat
	a, _ := newAdapter(t, "key", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "CPIAUCSL", r.URL.Query().Get("series_id"))
		_, _ = w.Write([]byte(`{"observations":[
			{"date":"2024-03-01","value":"312.2"},
			{"date":"2024-01-01","value":"308.4"},
			{"date":"2024-02-01","value":"."},
			{"date":"2024-03-01","value":"312.2"}
		]}`))
	})

	// Act
	res := a.Fetch(t.Context(), provider.Request{Provider: provider.FRED, Symbol: "CPIAUCSL", Start: date(2024, 1, 1), End: date(2024, 12, 31)})

	// Assert
	require.True(t, res.OK(), "unexpected failure: %v", res.Err)
	require.Equal(t, "fred", a.Name())
	require.Equal(t, 3, res.Series.Len())
	require.Equal(t, []time.Time{date(2024, 1, 1), date(2024, 2, 1), date(2024, 3, 1)}, res.Series.Times())
	require.InDelta(t, 308.4, res.Series.At(0).Value.Float64, 1e-9)
	require.False(t, res.Series.At(1).Value.Valid)
}

func TestFetch_EmptyIsSuccess(t *testing.T) {
	t.Parallel()

	a, _ := newAdapter(t, "key", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"observations":[]}`))
	})

	res := a.Fetch(t.Context(), provider.Request{Provider: provider.FRED, Symbol: "UNRATE"})

	require.True(t, res.OK())
	require.True(t, res.Series.IsEmpty())
	require.Equal(t, "UNRATE", res.Series.Name())
}

func TestFetch_MissingKeyMakesNoCall(t *testing.T) {
	t.Parallel()

	a, calls := newAdapter(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	res := a.Fetch(t.Context(), provider.Request{Provider: provider.FRED, Symbol: "UNRATE"})

	require.False(t, res.OK())
	require.Equal(t, provider.Unauthorized, res.Err.Kind)
	require.Equal(t, "UNRATE", res.Err.Symbol)
	require.Zero(t, calls.Load())
}

func TestFetch_ClassifiesFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   provider.Kind
	}{
		{"unknown series", http.StatusBadRequest, `{"error_code":400,"error_message":"Bad Request.  The series does not exist."}`, provider.NotFound},
		{"bad key", http.StatusBadRequest, `{"error_code":400,"error_message":"Bad Request.  The value for variable api_key is not registered."}`, provider.Unauthorized},
		{"upstream down", http.StatusServiceUnavailable, ``, provider.Transient},
		{"malformed", http.StatusOK, `{"observations":`, provider.Unknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, _ := newAdapter(t, "key", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			res := a.Fetch(t.Context(), provider.Request{Provider: provider.FRED, Symbol: "NOPE"})

			require.False(t, res.OK())
			require.Equal(t, tc.want, res.Err.Kind)
			require.True(t, res.Series.IsEmpty())
		})
	}
}

func TestFetch_InvalidRequest(t *testing.T) {
	t.Parallel()

	a, calls := newAdapter(t, "key", func(w http.ResponseWriter, _ *http.Request) {})

	res := a.Fetch(t.Context(), provider.Request{Provider: provider.FRED, Symbol: "  "})

	require.False(t, res.OK())
	require.Equal(t, provider.Unknown, res.Err.Kind)
	require.ErrorIs(t, res.Err, provider.ErrInvalidRequest)
	require.Zero(t, calls.Load())
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	a, _ := newAdapter(t, "key", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fred/series", r.URL.Path)
		_, _ = w.Write([]byte(`{"seriess":[{"id":"UNRATE","title":"Unemployment Rate","units":"Percent","frequency":"Monthly"}]}`))
	})

	info, err := a.Describe(t.Context(), "UNRATE")

	require.NoError(t, err)
	require.Equal(t, "Unemployment Rate", info.Title)
	require.Equal(t, "Percent", info.Units)
}

func TestFetch_AppliesConfiguredTransforms(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "pc1", r.URL.Query().Get("units"))
		require.Equal(t, "q", r.URL.Query().Get("frequency"))
		_, _ = w.Write([]byte(`{"observations":[{"date":"2024-01-01","value":"3.1"}]}`))
	}))
	t.Cleanup(srv.Close)
	client := fred.New("key", fred.WithBaseURL(srv.URL), fred.WithHTTPClient(srv.Client()))
	a := fredadapter.New(fredadapter.Config{Units: fred.PercentChangeFromYearAgo, Frequency: fred.Quarterly}, client)

	res := a.Fetch(t.Context(), provider.Request{Provider: provider.FRED, Symbol: "CPIAUCSL", Start: date(2024, 1, 1), End: date(2024, 3, 31)})

	require.True(t, res.OK(), "unexpected failure: %v", res.Err)
	require.Equal(t, 1, res.Series.Len())
	require.InDelta(t, 3.1, res.Series.At(0).Value.Float64, 1e-9)
}

var _ provider.Provider = (*fredadapter.Adapter)(nil)
