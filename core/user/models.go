package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/njia/core"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner: 30,
		RoleAdmin:      21,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 3)
	all = append(all, AdminRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastSeen  null.Time `json:"last_seen"`  // UTC
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// Profile holds what recommendations are computed from.
// Stream, TopStreams and Fields are written by the aptitude quiz; the rest is edited by the user.
type Profile struct {
	Stream       string   `json:"stream"`
	TopStreams   []string `json:"top_streams"`
	Fields       []string `json:"fields"`
	Interests    []string `json:"interests"`
	Skills       []string `json:"skills"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Percentage   float64  `json:"percentage"`
	AnnualBudget null.Int `json:"annual_budget"`
	FamilyIncome null.Int `json:"family_income"`
	Category     string   `json:"category"` // general, obc, sc, st, ews...
}

// StreamRank returns the 1-based rank of stream in the user's quiz result, or 0.
func (p Profile) StreamRank(stream string) int {
	for i, s := range p.TopStreams {
		if s == stream {
			return i + 1
		}
	}
	return 0
}

func (p Profile) HasLocation() bool {
	return p.City != "" || p.State != ""
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string   `json:"name" validate:"required"`
	Username string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email    string   `json:"email" validate:"required,email"`
	Roles    []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Roles = core.CleanStrings(nu.Roles, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name     string   `json:"name"`
	Username string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email    string   `json:"email" validate:"omitempty,email"`
	IsActive *bool    `json:"is_active"`
	Roles    []string `json:"roles" validate:"omitempty,allroles"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Roles != nil {
		uu.Roles = core.CleanStrings(uu.Roles, true /* lower */)
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

// UpdateProfile is the self-editable part of a Profile.
type UpdateProfile struct {
	Interests    []string `json:"interests" validate:"omitempty,max=30"`
	Skills       []string `json:"skills" validate:"omitempty,max=30"`
	City         string   `json:"city" validate:"omitempty,max=100"`
	State        string   `json:"state" validate:"omitempty,max=100"`
	Percentage   float64  `json:"percentage" validate:"gte=0,lte=100"`
	AnnualBudget null.Int `json:"annual_budget"`
	FamilyIncome null.Int `json:"family_income"`
	Category     string   `json:"category" validate:"omitempty,category"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Interests = core.CleanStrings(up.Interests, true /* lower */)
	up.Skills = core.CleanStrings(up.Skills, true /* lower */)
	up.City = core.CleanString(up.City)
	up.State = core.CleanString(up.State)
	up.Category = core.CleanString(up.Category, true /* lower */)

	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.AnnualBudget.Valid && up.AnnualBudget.Int < 0 {
		return core.NewFieldError("annual_budget", "must be 0 or greater")
	}
	if up.FamilyIncome.Valid && up.FamilyIncome.Int < 0 {
		return core.NewFieldError("family_income", "must be 0 or greater")
	}
	return nil
}

func (up UpdateProfile) apply(p Profile) Profile {
	p.Interests = up.Interests
	p.Skills = up.Skills
	p.City = up.City
	p.State = up.State
	p.Percentage = up.Percentage
	p.AnnualBudget = up.AnnualBudget
	p.FamilyIncome = up.FamilyIncome
	p.Category = up.Category
	return p
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Roles = core.CleanStrings(qf.Roles, true /* lower */)
}

// Match reports whether usr satisfies the filter.
// Search is a case-insensitive match on one of Name, Username or Email; Roles match by prefix.
func (qf *QueryFilter) Match(usr User) bool {
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if qf.Search != "" &&
		!strings.Contains(strings.ToLower(usr.Name), qf.Search) &&
		!strings.Contains(usr.Username, qf.Search) &&
		!strings.Contains(usr.Email, qf.Search) {
		return false
	}
	if len(qf.Roles) > 0 {
		var found bool
		for _, role := range qf.Roles {
			if usr.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
