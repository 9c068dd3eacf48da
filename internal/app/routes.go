package app

import (
	"net/http"
	"net/netip"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/handlers"
	"github.com/vancomm/minesweeper/internal/middleware"
)

func (a *App) loadRoutes(
	game *handlers.GameHandler,
	auth *handlers.Auth,
	highscores *handlers.Highscores,
) {
	a.router.HandleFunc("POST /game", game.NewGame)
	a.router.HandleFunc("GET /game/{id}", game.Fetch)
	a.router.HandleFunc("DELETE /game/{id}", game.Delete)
	a.router.HandleFunc("POST /game/{id}/move", game.MakeAMove)
	a.router.HandleFunc("POST /game/{id}/restart", game.Restart)
	a.router.HandleFunc("POST /game/{id}/forfeit", game.Forfeit)
	a.router.HandleFunc("/game/{id}/connect", game.ConnectWS)

	a.router.HandleFunc("GET /highscores", highscores.List)
	a.router.HandleFunc("GET /highscores/me", highscores.Own)

	a.router.HandleFunc("POST /register", auth.Register)
	a.router.HandleFunc("POST /login", auth.Login)
	a.router.HandleFunc("POST /logout", auth.Logout)
	a.router.HandleFunc("GET /status", auth.Status)
}

func (a *App) handler(
	cookies *config.Cookies,
	limiters *middleware.Limiters,
	trustedProxies ...netip.Prefix,
) http.Handler {
	return middleware.Wrap(
		a.router,
		middleware.Auth(a.log, cookies),
		middleware.RateLimit(limiters, trustedProxies...),
		middleware.Cors(config.CorsOrigins()...),
		middleware.Logging(a.log),
		middleware.RequestIDs(),
	)
}
