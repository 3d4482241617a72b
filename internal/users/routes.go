// internal/users/routes.go

package users

import (
	"github.com/gorilla/mux"

	"github.com/furlorn/furlorn-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	public := router.PathPrefix("/api/v1").Subrouter()
	public.HandleFunc("/users/{id:[0-9]+}", handler.GetUser).Methods("GET")

	// Protected routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/profile", handler.GetMyProfile).Methods("GET")
	api.HandleFunc("/users/{id:[0-9]+}", handler.UpdateUser).Methods("PATCH")
	api.HandleFunc("/users/{id:[0-9]+}", handler.DeleteUser).Methods("DELETE")

	// Addresses are private to their owner
	api.HandleFunc("/users/{id:[0-9]+}/addresses", handler.ListAddresses).Methods("GET")
	api.HandleFunc("/users/{id:[0-9]+}/addresses", handler.CreateAddress).Methods("POST")
	api.HandleFunc("/users/{id:[0-9]+}/addresses/{addressID:[0-9]+}", handler.UpdateAddress).Methods("PATCH")
	api.HandleFunc("/users/{id:[0-9]+}/addresses/{addressID:[0-9]+}", handler.DeleteAddress).Methods("DELETE")
}
