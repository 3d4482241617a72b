// internal/pets/routes.go
package pets

import (
	"github.com/gorilla/mux"

	"github.com/furlorn/furlorn-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	// Public reads
	public := router.PathPrefix("/api/v1").Subrouter()
	public.HandleFunc("/pets/breeds", handler.ListBreeds).Methods("GET")
	public.HandleFunc("/pets", handler.ListPets).Methods("GET")
	public.HandleFunc("/pets/{id:[0-9]+}", handler.GetPet).Methods("GET")

	// Protected routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/pets", handler.CreatePet).Methods("POST")
	api.HandleFunc("/pets/{id:[0-9]+}", handler.UpdatePet).Methods("PATCH")
	api.HandleFunc("/pets/{id:[0-9]+}", handler.DeletePet).Methods("DELETE")

	api.HandleFunc("/pets/{id:[0-9]+}/photos", handler.AddPhotos).Methods("POST")
	api.HandleFunc("/pets/{id:[0-9]+}/photos/{photoID:[0-9]+}", handler.DeletePhoto).Methods("DELETE")
}
