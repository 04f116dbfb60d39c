package main

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

var store *sessions.CookieStore

// sessionMiddleware tags every browser with a random session id so run
// history can be scoped to it. There are no accounts: this is affinity, not
// authentication.
func sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := store.Get(c.Request(), "session")
		if err != nil {
			return c.String(http.StatusInternalServerError, "Error: Unable to retrieve session")
		}
		id, ok := session.Values["session_id"].(string)
		if !ok || id == "" {
			id = generateToken()
			session.Values["session_id"] = id
			if err := session.Save(c.Request(), c.Response().Writer); err != nil {
				return c.String(http.StatusInternalServerError, "Error: Unable to save session")
			}
		}
		c.Set("session_id", id)
		return next(c)
	}
}
