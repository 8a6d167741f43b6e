package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/terraproof/service/internal/response"
	"github.com/terraproof/service/internal/storage/pinata"
)

func TestPinnerMakesOneProviderCallPerForward(t *testing.T) {
	var pins atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pins.Add(1)
		http.Error(w, "pinata unavailable", http.StatusServiceUnavailable)
	}))
	defer provider.Close()

	quiet := log.New(io.Discard)
	pinner := NewPinner(pinata.Config{APIKey: "key", SecretKey: "secret", APIURL: provider.URL}, quiet)
	srv := httptest.NewServer(NewHandler(pinner, WithLogger(quiet)).Routes())
	defer srv.Close()

	resp := postFile(t, srv, "file", "a.png", "image/png", pngBytes)

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, response.CodeProvider, decode[response.ErrorBody](t, resp).Code)
	require.EqualValues(t, 1, pins.Load())
}
