package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/", liveness)
	r.Get("/health", liveness)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/price/{productId}", handler.Price)
	r.Post("/create-order", handler.CreateOrder)
	r.Get("/check-payment/{orderId}", handler.CheckPayment)
	r.Post("/send-email", handler.SendEmail)
	r.Get("/download/{orderId}", handler.Download)
	r.Get("/ws/orders/{orderId}", handler.OrderEvents)

	return &Server{Router: r}
}

func liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK", "msg": "bytron backend running"})
}

// The storefront is served from another origin; keep the API open to it.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
