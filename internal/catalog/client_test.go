package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://catalog.test/api/", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	return client
}

func TestClientGetStock(t *testing.T) {
	var capturedURL string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, `{"data":{"productId":3,"amount":5}}`), nil
	})

	stock, err := client.GetStock(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "http://catalog.test/api/stock/3", capturedURL)
	assert.Equal(t, Stock{ProductID: 3, Amount: 5}, stock)
}

func TestClientGetProduct(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/products/1", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		return jsonResponse(http.StatusOK, `{"data":{"id":1,"name":"Tênis de Caminhada","price":179.9,"imageUrl":"https://img.test/1.jpg"}}`), nil
	})

	product, err := client.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, product.ID)
	assert.Equal(t, "Tênis de Caminhada", product.Name)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("179.9")))
}

func TestClientMapsStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   pkgerrors.Code
	}{
		{name: "not found", status: http.StatusNotFound, body: `{}`, code: pkgerrors.CodeNotFound},
		{name: "server error", status: http.StatusInternalServerError, body: `boom`, code: pkgerrors.CodeDependency},
		{name: "bad payload", status: http.StatusOK, body: `{"data":`, code: pkgerrors.CodeDependency},
		{name: "missing data", status: http.StatusOK, body: `{"data":null}`, code: pkgerrors.CodeDependency},
		{name: "mismatched id", status: http.StatusOK, body: `{"data":{"productId":99,"amount":1}}`, code: pkgerrors.CodeDependency},
		{name: "negative amount", status: http.StatusOK, body: `{"data":{"productId":2,"amount":-1}}`, code: pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			})
			_, err := client.GetStock(context.Background(), 2)
			require.Error(t, err)
			assert.True(t, pkgerrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestClientTransportError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	_, err := client.GetProduct(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestClientRejectsInvalidProduct(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":{"id":1,"name":"","price":10}}`), nil
	})
	_, err := client.GetProduct(context.Background(), 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	client = newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":{"id":1,"name":"x","price":-3}}`), nil
	})
	_, err = client.GetProduct(context.Background(), 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestClientSharesInFlightLookups(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		<-release
		return jsonResponse(http.StatusOK, `{"data":{"productId":4,"amount":2}}`), nil
	})

	var wg sync.WaitGroup
	started := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			_, err := client.GetStock(context.Background(), 4)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 4; i++ {
		<-started
	}
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(4))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestClientSharedLookupSurvivesCallerCancel(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	flightErrs := make(chan error, 2)
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		flightErrs <- req.Context().Err()
		return jsonResponse(http.StatusOK, `{"data":{"productId":1,"amount":6}}`), nil
	})

	first, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := client.GetStock(first, 1)
		firstDone <- err
	}()
	<-entered

	secondDone := make(chan error, 1)
	var second Stock
	go func() {
		var err error
		second, err = client.GetStock(context.Background(), 1)
		secondDone <- err
	}()

	cancelFirst()
	err := <-firstDone
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, <-secondDone)
	assert.Equal(t, 6, second.Amount)
	assert.NoError(t, <-flightErrs, "shared request must not inherit the canceled caller's context")
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, errBaseURLRequired)
}
