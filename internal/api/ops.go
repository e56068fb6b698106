package api

import (
	"net/http"

	"github.com/obsidianstack/rosterd/internal/store"
)

// Confirmation messages returned on successful mutations.
const (
	MsgUpserted = "Added items to the student list"
	MsgRemoved  = "Removed item from student list"
)

// Record is a parsed create-or-replace request.
type Record struct {
	Name   string
	Branch string
}

// ID is a parsed delete request.
type ID struct {
	Name string
}

// Outcome is the result of one operation: an HTTP status and either a
// confirmation message or the full record set.
type Outcome struct {
	Status  int
	Message string
	Records map[string]string
}

// Upsert inserts rec or replaces the branch of an existing record with the
// same name. POST and PUT both land here; there is no separate update path.
func Upsert(st *store.Store, rec Record) Outcome {
	st.Put(rec.Name, rec.Branch)
	return Outcome{Status: http.StatusCreated, Message: MsgUpserted}
}

// Remove deletes the record named by id. A name that is not present still
// succeeds.
func Remove(st *store.Store, id ID) Outcome {
	st.Delete(id.Name)
	return Outcome{Status: http.StatusOK, Message: MsgRemoved}
}

// List returns a snapshot of every record.
func List(st *store.Store) Outcome {
	return Outcome{Status: http.StatusOK, Records: st.Snapshot()}
}
