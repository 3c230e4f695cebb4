package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/tests"
)

func Test_catalogApi_read(t *testing.T) {
	app, env := setup(t)

	student := testutil.CreateUser(t, env.UsrRepo, "Hero", "hero", "hero@test.in", []string{user.RoleStudent}, true)
	token := getToken(t, env, student)

	names := func(t *testing.T, path string) []string {
		t.Helper()
		rec := do(app, http.MethodGet, path, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var items []map[string]interface{}
		decode(t, rec, &items)
		out := make([]string, 0, len(items))
		for _, it := range items {
			if name, ok := it["name"].(string); ok {
				out = append(out, name)
			} else {
				out = append(out, it["title"].(string))
			}
		}
		return out
	}

	tests := []struct {
		name string
		path string
		want []string
	}{
		{
			name: "colleges in Maharashtra",
			path: "/v1/colleges?state=maharashtra",
			want: []string{"Indian Institute of Technology Bombay", "Symbiosis International University"},
		},
		{
			name: "law colleges by fees",
			path: "/v1/colleges?stream=law&ordering=-annual_fees",
			want: []string{"Symbiosis International University", "National Law School of India University"},
		},
		{name: "search", path: "/v1/courses?search=CIVIL", want: []string{"B.Tech Civil Engineering"}},
		{name: "careers by title", path: "/v1/careers?stream=engineering", want: []string{"Civil Engineer", "Software Engineer"}},
		{name: "resources of a kind", path: "/v1/resources?field=nothing", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(t, tt.path))
		})
	}

	iitb, err := env.Catalog.Get(context.Background(), catalog.KindCollege, "col-iit-bombay")
	require.NoError(t, err)

	runTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/colleges", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "detail", path: "/v1/colleges/col-iit-bombay", token: token, wantData: marchallObj(t, iitb)},
		{
			name: "not found", path: "/v1/colleges/col-nope", token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "item not found"}),
		},
		{name: "wrong kind", path: "/v1/courses/col-iit-bombay", token: token, wantCode: http.StatusNotFound},
		{
			name: "bad ordering", path: "/v1/scholarships?ordering=title", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ordering": `cannot order by "title"`}),
		},
		{
			name: "students cannot write", method: http.MethodPost, path: "/v1/colleges", token: token,
			body: []byte(`{"name": "X"}`), wantCode: http.StatusForbidden,
		},
	})
}

func Test_catalogApi_write(t *testing.T) {
	app, env := setup(t)

	admin := testutil.CreateUser(t, env.UsrRepo, "Admin", "admin", "admin@test.in", []string{user.RoleAdmin}, true)
	token := getToken(t, env, admin)

	runTests(t, app, []httpTest{
		{
			name: "invalid college", method: http.MethodPost, path: "/v1/colleges", token: token,
			body:     []byte(`{"name": "New College", "city": "Pune", "type": "public", "rating": 7}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"state":  "this field is required",
				"type":   "type must be one of [government private deemed]",
				"rating": "rating must be 5 or less",
			}),
		},
		{
			name: "unknown reference", method: http.MethodPost, path: "/v1/colleges", token: token,
			body:     []byte(`{"name": "New College", "city": "Pune", "state": "Maharashtra", "type": "private", "course_ids": ["crs-nope"]}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"course_ids": "unknown id crs-nope"}),
		},
		{
			name: "update unknown", method: http.MethodPut, path: "/v1/careers/car-nope", token: token,
			body: []byte(`{"title": "Pilot", "stream": "engineering"}`), wantCode: http.StatusNotFound,
		},
		{name: "delete unknown", method: http.MethodDelete, path: "/v1/resources/res-nope", token: token, wantCode: http.StatusNotFound},
	})

	var created catalog.College
	t.Run("create", func(t *testing.T) {
		rec := do(app, http.MethodPost, "/v1/colleges", token,
			[]byte(`{"id": "mine", "name": " New College ", "city": "Pune", "state": "Maharashtra", "type": "Private", "streams": ["Engineering"], "course_ids": ["crs-btech-cse"], "annual_fees": 90000}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &created)
		assert.NotEqual(t, "mine", created.ID)
		assert.Equal(t, "New College", created.Name)
		assert.Equal(t, "private", created.Type)
		assert.Equal(t, []string{"engineering"}, created.Streams)
		assert.Equal(t, 90000, created.AnnualFees.Int)
	})

	t.Run("update", func(t *testing.T) {
		rec := do(app, http.MethodPut, "/v1/colleges/"+created.ID, token,
			[]byte(`{"name": "Renamed College", "city": "Pune", "state": "Maharashtra", "type": "private", "rating": 4}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated catalog.College
		decode(t, rec, &updated)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Renamed College", updated.Name)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

		// the recommendation cache sees the change
		all, err := env.Catalog.Colleges(context.Background())
		require.NoError(t, err)
		var found bool
		for _, c := range all {
			found = found || c.Name == "Renamed College"
		}
		assert.True(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(app, http.MethodDelete, "/v1/colleges/"+created.ID, token)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = do(app, http.MethodGet, "/v1/colleges/"+created.ID, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(app, http.MethodDelete, "/v1/resources?id=res-neet-guide&id=res-design-thinking", token)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = do(app, http.MethodGet, "/v1/resources", token)
		var left []catalog.Resource
		decode(t, rec, &left)
		require.Len(t, left, 1)
		assert.Equal(t, "res-intro-programming", left[0].ID)
	})
}
