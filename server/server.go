package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chefly/chefly/handlers"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
)

type Server struct {
	Router *mux.Router
	server *http.Server
}

const (
	readTimeout       = 5 * time.Minute
	readHeaderTimeout = 30 * time.Second
	writeTimeout      = 5 * time.Minute
)

func SetupRoutes() *Server {
	router := mux.NewRouter()
	authRoutes := router.PathPrefix("/api").Subrouter()
	authRoutes.Use(middlewares.AuthMiddleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		processed, rejected := handlers.NotifyStats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"alive":            true,
			"notify_processed": processed,
			"notify_rejected":  rejected,
		})
	}).Methods("GET")
	router.HandleFunc("/register", handlers.Register).Methods("POST")
	router.HandleFunc("/refresh", handlers.RefreshToken).Methods("POST")
	router.HandleFunc("/login", handlers.Login).Methods("POST")
	authRoutes.HandleFunc("/logout", handlers.Logout).Methods("POST")

	// gateway callbacks, unauthenticated by design
	router.HandleFunc("/payment/notify", handlers.PaymentNotify).Methods("POST")
	router.HandleFunc("/payment/tip/notify", handlers.TipNotify).Methods("POST")

	// foodie only
	foodie := authRoutes.NewRoute().Subrouter()
	foodie.Use(middlewares.RequireRole(models.RoleFoodie))

	foodie.HandleFunc("/bind", handlers.BindChef).Methods("POST")
	foodie.HandleFunc("/binding", handlers.GetBinding).Methods("GET")
	foodie.HandleFunc("/menu", handlers.ListMenu).Methods("GET")
	foodie.HandleFunc("/addresses", handlers.CreateAddress).Methods("POST")
	foodie.HandleFunc("/addresses", handlers.ListAddresses).Methods("GET")
	foodie.HandleFunc("/orders", handlers.CreateOrder).Methods("POST")
	foodie.HandleFunc("/orders/{id}/pay", handlers.PayOrder).Methods("POST")
	foodie.HandleFunc("/orders/{id}/confirm", handlers.ConfirmReceipt).Methods("PUT")
	foodie.HandleFunc("/tips", handlers.CreateTip).Methods("POST")
	foodie.HandleFunc("/tips/{id}/pay", handlers.PayTip).Methods("POST")

	// chef only
	chef := authRoutes.PathPrefix("/chef").Subrouter()
	chef.Use(middlewares.RequireRole(models.RoleChef))

	chef.HandleFunc("/dishes", handlers.CreateDish).Methods("POST")
	chef.HandleFunc("/dishes", handlers.ListChefDishes).Methods("GET")
	chef.HandleFunc("/dishes/{id}", handlers.UpdateDish).Methods("PUT")
	chef.HandleFunc("/dishes/{id}", handlers.DeleteDish).Methods("DELETE")
	chef.HandleFunc("/orders/{id}/accept", handlers.AcceptOrder).Methods("PUT")
	chef.HandleFunc("/orders/{id}/reject", handlers.RejectOrder).Methods("PUT")
	chef.HandleFunc("/orders/{id}/cooking", handlers.StartCooking).Methods("PUT")
	chef.HandleFunc("/orders/{id}/delivering", handlers.MarkDelivering).Methods("PUT")

	// both parties
	authRoutes.HandleFunc("/orders", handlers.ListOrders).Methods("GET")
	authRoutes.HandleFunc("/orders/{id}", handlers.GetOrderDetail).Methods("GET")
	authRoutes.HandleFunc("/orders/{id}/cancel", handlers.CancelOrder).Methods("PUT")
	authRoutes.HandleFunc("/notifications", handlers.ListNotifications).Methods("GET")
	authRoutes.HandleFunc("/notifications/{id}/read", handlers.MarkNotificationRead).Methods("PUT")

	return &Server{
		Router: router,
	}
}

func (svr *Server) Run(port string) error {
	svr.server = &http.Server{
		Addr:              port,
		Handler:           svr.Router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
	return svr.server.ListenAndServe()
}

func (svr *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svr.server.Shutdown(ctx)
}
