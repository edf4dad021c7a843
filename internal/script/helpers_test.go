package script

import (
	"net/http/httptest"
	"testing"

	"github.com/oxen-io/ledger-crawler/internal/emulator"
)

func newServer(t *testing.T, e *emulator.Emulator) string {
	t.Helper()
	srv := httptest.NewServer(e.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}
