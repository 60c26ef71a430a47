package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
	matchessvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/matches"
	prefsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/prefs"
	queuesvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/queue"
	swipesvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/swipes"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/handlers"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/transport/ws"
)

type Dependencies struct {
	QueueService *queuesvc.Service
	SwipeService *swipesvc.Service
	MatchService *matchessvc.Service
	PrefsService *prefsvc.Service
	Verifier     *authsvc.Verifier
	Hub          *ws.Hub
	Logger       *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	queueHandler := handlers.NewQueueHandler(deps.QueueService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	prefsHandler := handlers.NewPrefsHandler(deps.PrefsService)

	authMW := AuthMiddleware(deps.Verifier, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)

		r.Get("/potential-matches", queueHandler.Handle)

		r.Post("/swipe", swipeHandler.Handle)
		r.Post("/swipe/undo", swipeHandler.Undo)

		r.Get("/matches", matchesHandler.List)
		r.Put("/matches/{matchID}/conversation", matchesHandler.AttachConversation)
		r.Post("/unmatch", matchesHandler.Unmatch)
		r.Post("/block", matchesHandler.Block)

		r.Get("/preferences", prefsHandler.Get)
		r.Put("/preferences", prefsHandler.Put)
		r.Get("/stats", prefsHandler.Stats)
		r.Get("/likes/pending", prefsHandler.PendingLikes)

		if deps.Hub != nil {
			r.Get("/ws", http.HandlerFunc(deps.Hub.Handle))
		}
	})
}
