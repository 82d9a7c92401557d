package main

import (
	"fmt"
	"os/user"

	"github.com/fingertools/go-finger/internal/finger"
)

// userHandler answers queries from the local account database. The null
// query (user listing) is refused, as RFC 1288 permits. An unknown user is
// an ordinary response, not an error.
func userHandler(tx *finger.Transaction) {
	req := tx.Request

	if req.IsListing() {
		_ = tx.Response.Emit("finger: list of online users denied")
		_ = tx.Response.Complete()
		return
	}

	u, err := user.Lookup(req.Username)
	if err != nil {
		_ = tx.Response.Emit(fmt.Sprintf("finger: %s: no such user", req.Username))
		_ = tx.Response.Complete()
		return
	}

	lines := []string{
		fmt.Sprintf("Login: %s", u.Username),
		fmt.Sprintf("Name: %s", u.Name),
	}
	if req.Verbose {
		lines = append(lines,
			fmt.Sprintf("Directory: %s", u.HomeDir),
			fmt.Sprintf("UID: %s  GID: %s", u.Uid, u.Gid),
		)
	}
	_ = tx.Response.Emit(lines...)
	_ = tx.Response.Complete()
}
