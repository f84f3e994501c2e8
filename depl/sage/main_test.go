package main

import (
	"bytes"
	"flag"
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	gc "gopkg.in/check.v1"

	"github.com/tnc-ca-geo/SAGE/credential"
	memledger "github.com/tnc-ca-geo/SAGE/ledger/memory"
	"github.com/tnc-ca-geo/SAGE/workload"
)

var _ = gc.Suite(new(MainTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type MainTestSuite struct{}

func (s *MainTestSuite) SetUpSuite(c *gc.C) {
	logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
}

func (s *MainTestSuite) TestGetLedger(c *gc.C) {
	led, closeFn, err := getLedger("")
	c.Assert(err, gc.IsNil)
	c.Assert(led, gc.IsNil)
	closeFn()

	led, closeFn, err = getLedger("in-memory://")
	c.Assert(err, gc.IsNil)
	_, isMem := led.(*memledger.InMemoryLedger)
	c.Assert(isMem, gc.Equals, true)
	closeFn()

	_, _, err = getLedger("mysql://localhost")
	c.Assert(err, gc.ErrorMatches, `unsupported ledger URI scheme: "mysql"`)
}

func (s *MainTestSuite) TestWriteAssignment(c *gc.C) {
	refs := []credential.Ref{{Name: "credentialsLC"}, {Name: "credentialsRCR1"}}
	var buf bytes.Buffer
	c.Assert(writeAssignment(&buf, workload.YearItems(2000, 2004), refs), gc.IsNil)
	c.Assert(buf.String(), gc.Equals, "credentialsLC: 3 items\n  2000\n  2002\n  2004\n"+
		"credentialsRCR1: 2 items\n  2001\n  2003\n")

	err := writeAssignment(&buf, workload.YearItems(2000, 2004), nil)
	c.Assert(err, gc.ErrorMatches, ".*no credentials.*")
}

func (s *MainTestSuite) TestWriteLocation(c *gc.C) {
	refs := []credential.Ref{{Name: "credentialsLC"}, {Name: "credentialsRCR1"}}
	var buf bytes.Buffer
	c.Assert(writeLocation(&buf, workload.YearItems(2000, 2020), refs, "2013"), gc.IsNil)
	c.Assert(buf.String(), gc.Equals, "2013: credentialsRCR1, position 6\n")

	c.Assert(writeLocation(&buf, workload.YearItems(2000, 2020), refs, "1999"), gc.ErrorMatches, `stage has no work item "1999"`)
}

func (s *MainTestSuite) TestCommandsRequireInputs(c *gc.C) {
	app := makeApp()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("backend-url", "", "")
	set.String("stage", "", "")
	ctx := cli.NewContext(app, set, nil)

	_, err := loadStage(ctx)
	c.Assert(err, gc.ErrorMatches, "stage file must be specified with --stage")

	_, err = newSession(ctx)
	c.Assert(err, gc.ErrorMatches, "backend URL must be specified with --backend-url")
}
