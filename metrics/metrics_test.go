package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vocdoni/sealedvote/types"
)

func TestRegister(t *testing.T) {
	c := qt.New(t)

	reg := prometheus.NewRegistry()
	c.Assert(Register(reg), qt.IsNil)
	c.Assert(Register(reg), qt.IsNil)

	before := testutil.ToFloat64(Ballots.WithLabelValues("fresh"))
	Ballots.WithLabelValues("fresh").Inc()
	c.Assert(testutil.ToFloat64(Ballots.WithLabelValues("fresh")), qt.Equals, before+1)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	c.Assert(err, qt.IsNil)
	c.Assert(string(body), qt.Contains, "sealedvote_ballots_total")
}

func TestReason(t *testing.T) {
	c := qt.New(t)

	c.Assert(Reason(fmt.Errorf("%w: x", types.ErrOverwriteDisabled)), qt.Equals, "overwrite_disabled")
	c.Assert(Reason(fmt.Errorf("%w: x", types.ErrBadNullifier)), qt.Equals, "bad_nullifier")
	c.Assert(Reason(fmt.Errorf("boom")), qt.Equals, "other")
}
