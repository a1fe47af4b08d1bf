package address

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pizzaria/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"01234-567", "01234567"},
		{" 01.234-567 ", "01234567"},
		{"123", "123"},
		{"abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestLookup_Resolves(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/01234567/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cep":"01234-567","logradouro":"Rua Teste","bairro":"Centro","localidade":"São Paulo","uf":"SP"}`))
	})

	resolver := NewViaCEPClient(srv.URL, time.Second, zerolog.Nop())
	got, err := resolver.Lookup(context.Background(), "01234-567")

	require.NoError(t, err)
	assert.Equal(t, &model.LookupResult{
		PostalCode:   "01234-567",
		Street:       "Rua Teste",
		Neighborhood: "Centro",
		City:         "São Paulo",
		State:        "SP",
	}, got)
}

func TestLookup_ShortCodeFailsWithoutCall(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resolver := NewViaCEPClient(srv.URL, time.Second, zerolog.Nop())
	_, err := resolver.Lookup(context.Background(), "123")

	assert.True(t, errors.Is(err, model.ErrInvalidPostalCode))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestLookup_NotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bool flag", `{"erro": true}`},
		{"string flag", `{"erro": "true"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			resolver := NewViaCEPClient(srv.URL, time.Second, zerolog.Nop())
			_, err := resolver.Lookup(context.Background(), "99999999")

			assert.True(t, errors.Is(err, model.ErrInvalidPostalCode))
		})
	}
}

func TestLookup_ServiceFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	resolver := NewViaCEPClient(srv.URL, time.Second, zerolog.Nop())
	_, err := resolver.Lookup(context.Background(), "01234567")

	assert.True(t, errors.Is(err, model.ErrInvalidPostalCode))
}

func TestLookup_Timeout(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	resolver := NewViaCEPClient(srv.URL, 50*time.Millisecond, zerolog.Nop())
	_, err := resolver.Lookup(context.Background(), "01234567")

	assert.True(t, errors.Is(err, model.ErrInvalidPostalCode))
}
