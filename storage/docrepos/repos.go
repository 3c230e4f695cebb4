// Package docrepos implements the domain repositories on top of a core.DocumentStore.
package docrepos

import (
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
)

// collections
const (
	usersCollection        = "users"
	quizResultsCollection  = "quiz_results"
	bookmarksCollection    = "bookmarks"
	applicationsCollection = "applications"
	eventsCollection       = "timeline_events"
)

// newestFirst orders documents by creation time then ID, both descending.
// IDs are time-ordered, so documents created within the same second keep their creation order.
var newestFirst = []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}

// mapNotFound replaces the store's not-found error with the domain's.
func mapNotFound(err, notFound error) error {
	if errors.Cause(err) == core.ErrNotFound {
		return notFound
	}
	return err
}
