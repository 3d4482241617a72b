// internal/interactions/routes.go
package interactions

import (
	"github.com/gorilla/mux"

	"github.com/furlorn/furlorn-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	// Public reads, personalised when a token is present
	public := router.PathPrefix("/api/v1").Subrouter()
	public.Use(authMiddleware.OptionalAuthenticate)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	for _, kind := range []Kind{KindPet, KindPost} {
		base := "/" + string(kind) + "s/{id:[0-9]+}"

		public.HandleFunc(base+"/likes", handler.GetLikes(kind)).Methods("GET")
		public.HandleFunc(base+"/comments", handler.GetComments(kind)).Methods("GET")

		api.HandleFunc(base+"/like", handler.Like(kind)).Methods("POST")
		api.HandleFunc(base+"/like", handler.Unlike(kind)).Methods("DELETE")
		api.HandleFunc(base+"/comments", handler.AddComment(kind)).Methods("POST")
	}
	api.HandleFunc("/comments/{id:[0-9]+}", handler.DeleteComment).Methods("DELETE")
}
