package recommend

import (
	"fmt"
	"math"
	"strings"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/user"
)

// stream points by quiz rank: primary, secondary, tertiary
var (
	collegeStreamPoints = []float64{35, 25, 15}
	courseStreamPoints  = []float64{40, 30, 20}
	careerStreamPoints  = []float64{25, 18, 10}
)

type scored struct {
	score   float64
	reasons []string
}

func (s *scored) add(points float64, reason string) {
	if points <= 0 {
		return
	}
	s.score += points
	if reason != "" {
		s.reasons = append(s.reasons, reason)
	}
}

// total rounds the score into [0, 100].
func (s *scored) total() int {
	return int(math.Max(0, math.Min(100, math.Round(s.score))))
}

var rankNames = []string{"primary", "secondary", "tertiary"}

// streamPoints returns the points of the best-ranked stream of the profile found in streams.
func streamPoints(p user.Profile, points []float64, streams ...string) (float64, string) {
	best := 0
	for _, s := range streams {
		if r := p.StreamRank(s); r > 0 && (best == 0 || r < best) {
			best = r
		}
	}
	if best == 0 || best > len(points) {
		return 0, ""
	}
	return points[best-1], fmt.Sprintf("matches your %s stream", rankNames[best-1])
}

func scoreCollege(p user.Profile, c *catalog.College) scored {
	var s scored
	s.add(streamPoints(p, collegeStreamPoints, c.Streams...))

	switch {
	case !p.HasLocation():
		s.add(10, "")
	case p.City != "" && strings.EqualFold(p.City, c.City):
		s.add(20, "located in "+c.City)
	case p.State != "" && strings.EqualFold(p.State, c.State):
		s.add(15, "located in "+c.State)
	}

	switch {
	case !c.AnnualFees.Valid || !p.AnnualBudget.Valid:
		s.add(8, "")
	case c.AnnualFees.Int <= p.AnnualBudget.Int:
		s.add(15, "fees within your budget")
	case c.AnnualFees.Int > 0:
		s.add(15*float64(p.AnnualBudget.Int)/float64(c.AnnualFees.Int), "")
	}

	if c.Rating > 0 {
		s.add(c.Rating/5*15, fmt.Sprintf("rated %.1f/5", c.Rating))
	}

	if m := matching(p.Interests, append(append([]string{}, c.Keywords...), c.Facilities...)); len(m) > 0 {
		s.add(overlap(m, 15), "matches your interests: "+strings.Join(m, ", "))
	}
	return s
}

func scoreCourse(p user.Profile, c *catalog.Course) scored {
	var s scored
	s.add(streamPoints(p, courseStreamPoints, c.Stream))

	if c.Field != "" && core.ContainsFold(p.Fields, c.Field) {
		s.add(25, "in your field: "+c.Field)
	}

	terms := append(append([]string{}, p.Interests...), p.Skills...)
	if m := matching(terms, append([]string{c.Field}, c.Keywords...)); len(m) > 0 {
		s.add(overlap(m, 25), "matches your interests and skills: "+strings.Join(m, ", "))
	}

	switch {
	case c.MinPercentage == 0 || (p.Percentage > 0 && p.Percentage >= c.MinPercentage):
		s.add(10, "you meet the eligibility criteria")
	case p.Percentage == 0:
		s.add(5, "")
	}
	return s
}

func scoreCareer(p user.Profile, c *catalog.Career) scored {
	var s scored
	if c.Field != "" && core.ContainsFold(p.Fields, c.Field) {
		s.add(35, "in your field: "+c.Field)
	}
	s.add(streamPoints(p, careerStreamPoints, c.Stream))

	if m := matching(p.Skills, c.Skills); len(m) > 0 {
		s.add(overlap(m, 25), "uses your skills: "+strings.Join(m, ", "))
	}
	if m := matching(p.Interests, append([]string{c.Field}, c.Keywords...)); len(m) > 0 {
		s.add(overlap(m, 15), "matches your interests: "+strings.Join(m, ", "))
	}
	return s
}

// scoreScholarship scores a scholarship that is still open; maxAmount is the largest amount on offer.
func scoreScholarship(p user.Profile, sc *catalog.Scholarship, maxAmount int64) scored {
	var s scored
	if len(sc.Streams) == 0 {
		s.add(30, "open to all streams")
	} else if p.Stream != "" && sc.OpenTo(p.Stream) {
		s.add(30, "open to your stream")
	}

	if sc.MinPercentage == 0 || p.Percentage >= sc.MinPercentage {
		s.add(25, "you meet the academic criteria")
	}

	switch {
	case !sc.MaxFamilyIncome.Valid:
		s.add(20, "")
	case p.FamilyIncome.Valid && p.FamilyIncome.Int <= sc.MaxFamilyIncome.Int:
		s.add(20, "you meet the income criteria")
	}

	switch {
	case len(sc.Categories) == 0:
		s.add(15, "")
	case p.Category != "" && core.ContainsFold(sc.Categories, p.Category):
		s.add(15, "open to your category")
	}

	if maxAmount > 0 && sc.Amount > 0 {
		s.add(10*float64(sc.Amount)/float64(maxAmount), "")
	}
	return s
}
