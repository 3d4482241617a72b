// internal/posts/routes.go
package posts

import (
	"github.com/gorilla/mux"

	"github.com/furlorn/furlorn-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	// Public reads
	public := router.PathPrefix("/api/v1").Subrouter()
	public.HandleFunc("/posts", handler.GetFeed).Methods("GET")
	public.HandleFunc("/posts/{id:[0-9]+}", handler.GetPost).Methods("GET")

	// Protected routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/posts", handler.CreatePost).Methods("POST")
	api.HandleFunc("/posts/{id:[0-9]+}", handler.UpdatePost).Methods("PATCH")
	api.HandleFunc("/posts/{id:[0-9]+}", handler.DeletePost).Methods("DELETE")

	api.HandleFunc("/posts/{id:[0-9]+}/photos", handler.AddPhotos).Methods("POST")
	api.HandleFunc("/posts/{id:[0-9]+}/photos/{photoID:[0-9]+}", handler.DeletePhoto).Methods("DELETE")
}
