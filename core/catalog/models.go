package catalog

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/njia/core"
)

type Kind string

const (
	KindCollege     Kind = "college"
	KindCourse      Kind = "course"
	KindCareer      Kind = "career"
	KindScholarship Kind = "scholarship"
	KindResource    Kind = "resource"
)

var Kinds = []Kind{KindCollege, KindCourse, KindCareer, KindScholarship, KindResource}

// ParseKind accepts a kind in its singular or plural form: "college" or "colleges".
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimSuffix(core.CleanString(s, true /* lower */), "s")
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Collection is the document-store collection of the kind: "colleges".
func (k Kind) Collection() string {
	return string(k) + "s"
}

// Item is any catalog entry.
type Item interface {
	ItemKind() Kind
	ItemID() string
	ItemName() string
	base() *Base
	clean()
	searchText() string
	refs() []ref
}

// ref is a field of IDs that must point to existing items of a kind.
type ref struct {
	field string
	kind  Kind
	ids   []string
}

// NewItem returns an empty item of the given kind.
func NewItem(kind Kind) Item {
	switch kind {
	case KindCollege:
		return new(College)
	case KindCourse:
		return new(Course)
	case KindCareer:
		return new(Career)
	case KindScholarship:
		return new(Scholarship)
	case KindResource:
		return new(Resource)
	}
	return nil
}

// Deadline returns the application deadline of colleges and scholarships.
func Deadline(item Item) null.Time {
	switch it := item.(type) {
	case *College:
		return it.ApplicationDeadline
	case *Scholarship:
		return it.Deadline
	}
	return null.Time{}
}

type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (b *Base) ItemID() string { return b.ID }
func (b *Base) base() *Base    { return b }

type College struct {
	Base
	Name                string    `json:"name" validate:"required,max=200"`
	City                string    `json:"city" validate:"required,max=100"`
	State               string    `json:"state" validate:"required,max=100"`
	Type                string    `json:"type" validate:"required,oneof=government private deemed"`
	Streams             []string  `json:"streams" validate:"omitempty,stream"`
	CourseIDs           []string  `json:"course_ids"`
	AnnualFees          null.Int  `json:"annual_fees"`
	Rating              float64   `json:"rating" validate:"gte=0,lte=5"`
	Website             string    `json:"website" validate:"omitempty,url"`
	Facilities          []string  `json:"facilities"`
	ApplicationDeadline null.Time `json:"application_deadline"`
	Keywords            []string  `json:"keywords"`
}

func (c *College) ItemKind() Kind   { return KindCollege }
func (c *College) ItemName() string { return c.Name }

func (c *College) clean() {
	c.Name = core.CleanString(c.Name)
	c.City = core.CleanString(c.City)
	c.State = core.CleanString(c.State)
	c.Type = core.CleanString(c.Type, true /* lower */)
	c.Streams = core.CleanStrings(c.Streams, true /* lower */)
	c.CourseIDs = core.CleanStrings(c.CourseIDs)
	c.Website = core.CleanString(c.Website)
	c.Facilities = core.CleanStrings(c.Facilities)
	c.Keywords = core.CleanStrings(c.Keywords, true /* lower */)
	c.ApplicationDeadline = normalizeNullTime(c.ApplicationDeadline)
}

func (c *College) searchText() string {
	return joinLower(c.Name, c.City, c.State, strings.Join(c.Keywords, " "))
}

func (c *College) refs() []ref {
	return []ref{{field: "course_ids", kind: KindCourse, ids: c.CourseIDs}}
}

type Course struct {
	Base
	Name          string   `json:"name" validate:"required,max=200"`
	Stream        string   `json:"stream" validate:"required,stream"`
	Field         string   `json:"field" validate:"max=100"`
	Level         string   `json:"level" validate:"required,oneof=diploma ug pg"`
	DurationYears int      `json:"duration_years" validate:"gte=0,lte=10"`
	Description   string   `json:"description"`
	MinPercentage float64  `json:"min_percentage" validate:"gte=0,lte=100"`
	CareerIDs     []string `json:"career_ids"`
	Keywords      []string `json:"keywords"`
}

func (c *Course) ItemKind() Kind   { return KindCourse }
func (c *Course) ItemName() string { return c.Name }

func (c *Course) clean() {
	c.Name = core.CleanString(c.Name)
	c.Stream = core.CleanString(c.Stream, true /* lower */)
	c.Field = core.CleanString(c.Field, true /* lower */)
	c.Level = core.CleanString(c.Level, true /* lower */)
	c.Description = core.CleanString(c.Description)
	c.CareerIDs = core.CleanStrings(c.CareerIDs)
	c.Keywords = core.CleanStrings(c.Keywords, true /* lower */)
}

func (c *Course) searchText() string {
	return joinLower(c.Name, c.Field, c.Description, strings.Join(c.Keywords, " "))
}

func (c *Course) refs() []ref {
	return []ref{{field: "career_ids", kind: KindCareer, ids: c.CareerIDs}}
}

type Career struct {
	Base
	Title         string   `json:"title" validate:"required,max=200"`
	Stream        string   `json:"stream" validate:"required,stream"`
	Field         string   `json:"field" validate:"max=100"`
	Description   string   `json:"description"`
	Skills        []string `json:"skills"`
	AverageSalary null.Int `json:"average_salary"`
	Outlook       string   `json:"outlook" validate:"omitempty,oneof=growing stable declining"`
	CourseIDs     []string `json:"course_ids"`
	Keywords      []string `json:"keywords"`
}

func (c *Career) ItemKind() Kind   { return KindCareer }
func (c *Career) ItemName() string { return c.Title }

func (c *Career) clean() {
	c.Title = core.CleanString(c.Title)
	c.Stream = core.CleanString(c.Stream, true /* lower */)
	c.Field = core.CleanString(c.Field, true /* lower */)
	c.Description = core.CleanString(c.Description)
	c.Skills = core.CleanStrings(c.Skills, true /* lower */)
	c.Outlook = core.CleanString(c.Outlook, true /* lower */)
	c.CourseIDs = core.CleanStrings(c.CourseIDs)
	c.Keywords = core.CleanStrings(c.Keywords, true /* lower */)
}

func (c *Career) searchText() string {
	return joinLower(c.Title, c.Field, c.Description, strings.Join(c.Skills, " "), strings.Join(c.Keywords, " "))
}

func (c *Career) refs() []ref {
	return []ref{{field: "course_ids", kind: KindCourse, ids: c.CourseIDs}}
}

type Scholarship struct {
	Base
	Name            string    `json:"name" validate:"required,max=200"`
	Provider        string    `json:"provider" validate:"max=200"`
	Amount          int64     `json:"amount" validate:"gte=0"`
	Deadline        null.Time `json:"deadline"`
	Streams         []string  `json:"streams" validate:"omitempty,stream"` // empty: open to all streams
	MinPercentage   float64   `json:"min_percentage" validate:"gte=0,lte=100"`
	MaxFamilyIncome null.Int  `json:"max_family_income"`
	Categories      []string  `json:"categories" validate:"omitempty,category"` // empty: open to all categories
	Link            string    `json:"link" validate:"omitempty,url"`
}

func (s *Scholarship) ItemKind() Kind   { return KindScholarship }
func (s *Scholarship) ItemName() string { return s.Name }

func (s *Scholarship) clean() {
	s.Name = core.CleanString(s.Name)
	s.Provider = core.CleanString(s.Provider)
	s.Streams = core.CleanStrings(s.Streams, true /* lower */)
	s.Categories = core.CleanStrings(s.Categories, true /* lower */)
	s.Link = core.CleanString(s.Link)
	s.Deadline = normalizeNullTime(s.Deadline)
}

func (s *Scholarship) searchText() string {
	return joinLower(s.Name, s.Provider)
}

func (s *Scholarship) refs() []ref { return nil }

// OpenTo reports whether the scholarship accepts students of the stream.
func (s *Scholarship) OpenTo(stream string) bool {
	return len(s.Streams) == 0 || core.ContainsFold(s.Streams, stream)
}

// Expired reports whether the deadline is before now.
func (s *Scholarship) Expired(now time.Time) bool {
	return s.Deadline.Valid && s.Deadline.Time.Before(now)
}

type Resource struct {
	Base
	Title  string   `json:"title" validate:"required,max=200"`
	Kind   string   `json:"kind" validate:"required,oneof=article video book course"`
	URL    string   `json:"url" validate:"required,url"`
	Stream string   `json:"stream" validate:"omitempty,stream"`
	Field  string   `json:"field" validate:"max=100"`
	Tags   []string `json:"tags"`
}

func (r *Resource) ItemKind() Kind   { return KindResource }
func (r *Resource) ItemName() string { return r.Title }

func (r *Resource) clean() {
	r.Title = core.CleanString(r.Title)
	r.Kind = core.CleanString(r.Kind, true /* lower */)
	r.URL = core.CleanString(r.URL)
	r.Stream = core.CleanString(r.Stream, true /* lower */)
	r.Field = core.CleanString(r.Field, true /* lower */)
	r.Tags = core.CleanStrings(r.Tags, true /* lower */)
}

func (r *Resource) searchText() string {
	return joinLower(r.Title, r.Field, strings.Join(r.Tags, " "))
}

func (r *Resource) refs() []ref { return nil }

func joinLower(ss ...string) string {
	return strings.ToLower(strings.Join(ss, " "))
}

func normalizeNullTime(t null.Time) null.Time {
	if !t.Valid {
		return t
	}
	return null.TimeFrom(core.NormalizeTime(t.Time))
}
