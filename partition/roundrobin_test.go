package partition

import (
	"fmt"
	"testing"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RoundRobinTestSuite))

type RoundRobinTestSuite struct {
}

func (s *RoundRobinTestSuite) TestInvalidPartitionCount(c *gc.C) {
	_, err := RoundRobin([]string{"a", "b"}, 0)
	c.Assert(err, gc.ErrorMatches, ".*number of partitions must exceed 0")

	_, err = RoundRobin([]string{"a", "b"}, -3)
	c.Assert(err, gc.Not(gc.IsNil))
	c.Assert(xerrors.Is(err, ErrInvalidPartitionCount), gc.Equals, true)
}

func (s *RoundRobinTestSuite) TestTwentyOneItemsTwoCredentials(c *gc.C) {
	items := makeItems(21)
	parts, err := RoundRobin(items, 2)
	c.Assert(err, gc.IsNil)
	c.Assert(parts, gc.HasLen, 2)
	c.Assert(parts[0], gc.HasLen, 11)
	c.Assert(parts[1], gc.HasLen, 10)

	c.Assert(parts[0][0], gc.Equals, items[0])
	c.Assert(parts[1][0], gc.Equals, items[1])
	c.Assert(parts[0][1], gc.Equals, items[2])
	c.Assert(parts[1][9], gc.Equals, items[19])
	c.Assert(parts[0][10], gc.Equals, items[20])
}

func (s *RoundRobinTestSuite) TestInvariants(c *gc.C) {
	for numItems := 0; numItems <= 17; numItems++ {
		for n := 1; n <= 7; n++ {
			c.Logf("items: %d, partitions: %d", numItems, n)
			items := makeItems(numItems)
			parts, err := RoundRobin(items, n)
			c.Assert(err, gc.IsNil)
			c.Assert(parts, gc.HasLen, n)

			var total int
			minLen, maxLen := numItems, 0
			seen := make(map[string]int)
			for p, part := range parts {
				total += len(part)
				if len(part) < minLen {
					minLen = len(part)
				}
				if len(part) > maxLen {
					maxLen = len(part)
				}
				for off, item := range part {
					seen[item]++
					// Relative input order within a partition is preserved.
					c.Assert(item, gc.Equals, items[off*n+p])
				}
			}
			c.Assert(total, gc.Equals, numItems)
			c.Assert(maxLen-minLen <= 1, gc.Equals, true)
			c.Assert(seen, gc.HasLen, numItems)
			for item, count := range seen {
				c.Assert(count, gc.Equals, 1, gc.Commentf("item %s", item))
			}

			c.Assert(Interleave(parts), gc.DeepEquals, items)
		}
	}
}

func (s *RoundRobinTestSuite) TestDeterministic(c *gc.C) {
	items := makeItems(13)
	first, err := RoundRobin(items, 4)
	c.Assert(err, gc.IsNil)
	for i := 0; i < 5; i++ {
		again, err := RoundRobin(items, 4)
		c.Assert(err, gc.IsNil)
		c.Assert(again, gc.DeepEquals, first)
	}
}

func (s *RoundRobinTestSuite) TestEmptyInput(c *gc.C) {
	for n := 1; n <= 4; n++ {
		parts, err := RoundRobin([]string{}, n)
		c.Assert(err, gc.IsNil)
		c.Assert(parts, gc.HasLen, n)
		for _, part := range parts {
			c.Assert(part, gc.HasLen, 0)
			c.Assert(part, gc.NotNil)
		}
	}
}

func (s *RoundRobinTestSuite) TestMorePartitionsThanItems(c *gc.C) {
	items := makeItems(3)
	parts, err := RoundRobin(items, 5)
	c.Assert(err, gc.IsNil)
	c.Assert(parts, gc.HasLen, 5)
	for p := 0; p < 3; p++ {
		c.Assert(parts[p], gc.DeepEquals, []string{items[p]})
	}
	c.Assert(parts[3], gc.HasLen, 0)
	c.Assert(parts[4], gc.HasLen, 0)
}

func (s *RoundRobinTestSuite) TestLocate(c *gc.C) {
	items := makeItems(21)
	parts, err := RoundRobin(items, 2)
	c.Assert(err, gc.IsNil)

	for pos, item := range items {
		p, off, err := Locate(pos, 2)
		c.Assert(err, gc.IsNil)
		c.Assert(parts[p][off], gc.Equals, item)
	}

	_, _, err = Locate(1, 0)
	c.Assert(err, gc.ErrorMatches, ".*number of partitions must exceed 0")
	_, _, err = Locate(-1, 2)
	c.Assert(err, gc.ErrorMatches, "invalid input position -1")
}

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

func makeItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("item-%02d", i)
	}
	return items
}
