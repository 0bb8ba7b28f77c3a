package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths never carry a session and skip session resolution.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// SessionSkipper is passed to SessionMiddleware to avoid a principal lookup
// on infrastructure endpoints.
func SessionSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
