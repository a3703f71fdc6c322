package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	counter := HTTPRequestsTotal.WithLabelValues("GET", "/api/recipes/{id}", "200")
	before := testutil.ToFloat64(counter)

	RecordHTTPRequest(http.MethodGet, "/api/recipes/{id}", http.StatusOK, 15*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordMembershipToggle(t *testing.T) {
	counter := MembershipTogglesTotal.WithLabelValues("favorite", "add")
	before := testutil.ToFloat64(counter)

	RecordMembershipToggle("favorite", "add")
	RecordMembershipToggle("favorite", "add")

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRecordAuthEvent(t *testing.T) {
	ok := AuthEventsTotal.WithLabelValues("login", "success")
	failed := AuthEventsTotal.WithLabelValues("login", "failure")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordAuthEvent("login", true)
	RecordAuthEvent("login", false)
	RecordAuthEvent("login", false)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+2, testutil.ToFloat64(failed))
}

func TestRecordShoppingListExport(t *testing.T) {
	before := testutil.ToFloat64(ShoppingListExportsTotal)

	RecordShoppingListExport()

	assert.Equal(t, before+1, testutil.ToFloat64(ShoppingListExportsTotal))
}
