package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/pongai/internal/middleware"
)

// NewRouter mounts every game route. allowedOrigins feeds CORS; empty allows
// any http(s) origin.
func NewRouter(gs *GameServer, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"https://*", "http://*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LogMiddleware(gs.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/games", func(r chi.Router) {
		r.Post("/", gs.CreateGameHandler)
		r.Post("/join", gs.JoinGameHandler)

		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", gs.GetGameHandler)
			r.Delete("/", gs.DeleteGameHandler)
			r.Post("/start", gs.StartGameHandler)
			r.Post("/prompts", gs.SubmitPromptHandler)
			r.Post("/rounds", gs.StartRoundHandler)
			r.Put("/teams/{teamID}/name", gs.RenameTeamHandler)
			r.Post("/teams/{teamID}/players/{playerID}/mute", gs.ToggleMuteHandler)
			r.Get("/rankings", gs.RankingsHandler)
			r.Get("/feedback", gs.FeedbackHandler)
			r.Get("/suggestions", gs.SuggestionsHandler)
			r.Get("/chat", gs.ChatHistoryHandler)
			r.Post("/chat", gs.SendChatHandler)
			r.Get("/qr", gs.QRHandler)
			r.Get("/ws", gs.GameWSHandler)
		})
	})

	return r
}
