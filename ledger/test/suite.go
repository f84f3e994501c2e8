package test

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"github.com/tnc-ca-geo/SAGE/ledger"
)

// SuiteBase defines a re-usable set of ledger related tests that can be
// executed against any type that implements ledger.Ledger.
type SuiteBase struct {
	l ledger.Ledger
}

// SetLedger configures the test-suite to run all tests against l.
func (s *SuiteBase) SetLedger(l ledger.Ledger) {
	s.l = l
}

func (s *SuiteBase) TestUpsertStage(c *gc.C) {
	for _, name := range []string{"landtrendr", "apply-tables", "landtrendr"} {
		c.Assert(s.l.UpsertStage(&ledger.Stage{Name: name}), gc.IsNil)
	}

	it, err := s.l.Stages()
	c.Assert(err, gc.IsNil)
	var names []string
	for it.Next() {
		names = append(names, it.Stage().Name)
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
	c.Assert(names, gc.DeepEquals, []string{"apply-tables", "landtrendr"})
}

func (s *SuiteBase) TestRecordUnknownStage(c *gc.C) {
	err := s.l.Record(submission("landtrendr", "NBR_1985_2021", time.Now()))
	c.Assert(xerrors.Is(err, ledger.ErrUnknownStage), gc.Equals, true, gc.Commentf("got %v", err))

	_, err = s.l.Submitted("landtrendr", "NBR_1985_2021")
	c.Assert(xerrors.Is(err, ledger.ErrUnknownStage), gc.Equals, true, gc.Commentf("got %v", err))

	_, err = s.l.Submissions("landtrendr")
	c.Assert(xerrors.Is(err, ledger.ErrUnknownStage), gc.Equals, true, gc.Commentf("got %v", err))
}

func (s *SuiteBase) TestRecordMissingFields(c *gc.C) {
	err := s.l.Record(&ledger.Submission{Stage: "landtrendr"})
	c.Assert(xerrors.Is(err, ledger.ErrMissingField), gc.Equals, true)
}

func (s *SuiteBase) TestRecordAndSubmitted(c *gc.C) {
	c.Assert(s.l.UpsertStage(&ledger.Stage{Name: "landtrendr"}), gc.IsNil)

	submitted, err := s.l.Submitted("landtrendr", "NBR_1985_2021")
	c.Assert(err, gc.IsNil)
	c.Assert(submitted, gc.Equals, false)

	c.Assert(s.l.Record(submission("landtrendr", "NBR_1985_2021", time.Now())), gc.IsNil)
	submitted, err = s.l.Submitted("landtrendr", "NBR_1985_2021")
	c.Assert(err, gc.IsNil)
	c.Assert(submitted, gc.Equals, true)

	submitted, err = s.l.Submitted("landtrendr", "NDVI_1985_2021")
	c.Assert(err, gc.IsNil)
	c.Assert(submitted, gc.Equals, false)
}

func (s *SuiteBase) TestRecordUpsert(c *gc.C) {
	c.Assert(s.l.UpsertStage(&ledger.Stage{Name: "landtrendr"}), gc.IsNil)

	at := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	original := submission("landtrendr", "NBR_1985_2021", at)
	c.Assert(s.l.Record(original), gc.IsNil)

	// A resubmission replaces the previous record.
	updated := submission("landtrendr", "NBR_1985_2021", at.Add(time.Hour))
	updated.Credential = "credentialsRCR1"
	updated.TaskID = "QXJ4N4WBRTFGHR3ZKP2O6UGV"
	c.Assert(s.l.Record(updated), gc.IsNil)

	it, err := s.l.Submissions("landtrendr")
	c.Assert(err, gc.IsNil)
	c.Assert(it.TotalCount(), gc.Equals, uint64(1))
	c.Assert(it.Next(), gc.Equals, true)
	c.Assert(it.Submission(), gc.DeepEquals, updated)
	c.Assert(it.Next(), gc.Equals, false)
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
}

func (s *SuiteBase) TestSubmissionsOrder(c *gc.C) {
	c.Assert(s.l.UpsertStage(&ledger.Stage{Name: "apply-tables"}), gc.IsNil)
	c.Assert(s.l.UpsertStage(&ledger.Stage{Name: "landtrendr"}), gc.IsNil)

	at := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Assert(s.l.Record(submission("apply-tables", "1987", at.Add(2*time.Minute))), gc.IsNil)
	c.Assert(s.l.Record(submission("apply-tables", "1985", at)), gc.IsNil)
	c.Assert(s.l.Record(submission("apply-tables", "1986", at.Add(time.Minute))), gc.IsNil)
	c.Assert(s.l.Record(submission("landtrendr", "NBR_1985_2021", at)), gc.IsNil)

	it, err := s.l.Submissions("apply-tables")
	c.Assert(err, gc.IsNil)
	c.Assert(it.TotalCount(), gc.Equals, uint64(3))

	var items []string
	for it.Next() {
		items = append(items, it.Submission().Item)
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
	c.Assert(items, gc.DeepEquals, []string{"1985", "1986", "1987"})
}

func submission(stage, item string, at time.Time) *ledger.Submission {
	return &ledger.Submission{
		Run:         uuid.New(),
		Stage:       stage,
		Item:        item,
		Credential:  "credentialsLC",
		TaskID:      "4PCBK4WHJDXMYSDCCIXNCRMG",
		Description: "LT_Stack_" + item,
		SubmittedAt: at.UTC().Truncate(time.Microsecond),
	}
}
