package cli

import (
	"errors"

	"github.com/NhaLeTruc/todo-sync/internal/api"
)

var errNotLoggedIn = errors.New("not logged in; run taskctl login first")

// humanize turns err into the line shown to the user.
func humanize(err error) string {
	if _, ok := api.KindOf(err); ok {
		return api.Message(err)
	}
	return err.Error()
}
