package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"bioentry/internal/ledger"
	"bioentry/internal/policy"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/testutil"
)

type fakeLedger struct {
	records  []ledger.Record
	stats    ledger.OutOfBoundsStats
	err      error
	lastFilt ledger.Filters
}

func (f *fakeLedger) Query(_ context.Context, filters ledger.Filters) ([]ledger.Record, error) {
	f.lastFilt = filters
	return f.records, f.err
}

func (f *fakeLedger) OutOfBoundsStats(_ context.Context, filters ledger.Filters) (ledger.OutOfBoundsStats, error) {
	f.lastFilt = filters
	return f.stats, f.err
}

type LedgerHandlerSuite struct {
	suite.Suite
	service *fakeLedger
	router  chi.Router
}

func (s *LedgerHandlerSuite) SetupTest() {
	s.service = &fakeLedger{}
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *LedgerHandlerSuite) TestQueryEmptyLedgerReturnsEmptyList() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/records"))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "total", float64(0))

	body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.NotNil((*body)["records"])
}

func (s *LedgerHandlerSuite) TestQueryPassesFilters() {
	s.service.records = []ledger.Record{{ID: "r1", SubjectID: "1002003001"}}

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet,
		"/records?subject_id=1002003001&company_id=900123456&direction=exit&out_of_bounds=true&mobility=mobile"))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "total", float64(1))

	s.Equal("1002003001", s.service.lastFilt.SubjectID)
	s.Equal("900123456", s.service.lastFilt.CompanyID)
	s.Require().NotNil(s.service.lastFilt.Direction)
	s.Equal(ledger.DirectionExit, *s.service.lastFilt.Direction)
	s.Require().NotNil(s.service.lastFilt.OutOfBounds)
	s.True(*s.service.lastFilt.OutOfBounds)
	s.Require().NotNil(s.service.lastFilt.Mobility)
	s.Equal(policy.MobilityMobile, *s.service.lastFilt.Mobility)
}

func (s *LedgerHandlerSuite) TestQueryDayOnlyDateToCoversWholeDay() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet,
		"/records?date_from=2026-03-01&date_to=2026-03-10"))

	testutil.AssertStatusOK(s.T(), rr)

	s.Require().NotNil(s.service.lastFilt.DateFrom)
	s.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *s.service.lastFilt.DateFrom)
	s.Require().NotNil(s.service.lastFilt.DateTo)
	s.Equal(time.Date(2026, 3, 10, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), *s.service.lastFilt.DateTo)
}

func (s *LedgerHandlerSuite) TestQueryRFC3339Dates() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet,
		"/records?date_to=2026-03-10T08:30:00Z"))

	testutil.AssertStatusOK(s.T(), rr)
	s.Require().NotNil(s.service.lastFilt.DateTo)
	s.Equal(time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC), *s.service.lastFilt.DateTo)
}

func (s *LedgerHandlerSuite) TestQueryRejectsBadDirection() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/records?direction=sideways"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *LedgerHandlerSuite) TestQueryRejectsBadDate() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/records?date_from=yesterday"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *LedgerHandlerSuite) TestQueryRejectsBadOutOfBounds() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/records?out_of_bounds=maybe"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *LedgerHandlerSuite) TestQueryOutOfBoundsFalse() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/records?out_of_bounds=false"))

	testutil.AssertStatusOK(s.T(), rr)
	s.Require().NotNil(s.service.lastFilt.OutOfBounds)
	s.False(*s.service.lastFilt.OutOfBounds)
}

func (s *LedgerHandlerSuite) TestQueryServiceError() {
	s.service.err = dErrors.New(dErrors.CodeInternal, "store down")

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/records"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
}

func (s *LedgerHandlerSuite) TestStats() {
	s.service.stats = ledger.OutOfBoundsStats{
		Total:              10,
		OutOfBoundsCount:   3,
		OutOfBoundsPercent: 30,
		ByProfile:          map[string]int{"mobile": 3},
		ByDay:              map[string]int{"2026-03-10": 3},
		TopSubjects:        []ledger.SubjectCount{{SubjectID: "1002003001", Count: 3}},
	}

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/records/stats?mobility=mobile"))

	testutil.AssertStatusOK(s.T(), rr)
	body := testutil.UnmarshalResponse[ledger.OutOfBoundsStats](s.T(), rr)
	s.Equal(10, body.Total)
	s.Equal(3, body.OutOfBoundsCount)
	s.Require().NotNil(s.service.lastFilt.Mobility)
	s.Equal(policy.MobilityMobile, *s.service.lastFilt.Mobility)
}

func TestLedgerHandlerSuite(t *testing.T) {
	suite.Run(t, new(LedgerHandlerSuite))
}
