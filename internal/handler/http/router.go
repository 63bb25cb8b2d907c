package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

func NewRouter(env string, attendanceHandler AttendanceHandler, syncHandler SyncHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "asistencia-go"),
		slog.String("version", "v1.0.0"),
		slog.String("env", env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Get("/yo", func(w http.ResponseWriter, r *http.Request) {
		w.Write(([]byte("hello world\n")))
	})

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/asistencia", func(r chi.Router) {
			r.Get("/activa", attendanceHandler.Active)
			r.Get("/activa/stream", attendanceHandler.Stream)
			r.Post("/entrada", attendanceHandler.ClockIn)
			r.Post("/salida", attendanceHandler.ClockOut)

			r.Route("/breaks", func(r chi.Router) {
				r.Post("/inicio", attendanceHandler.StartBreak)
				r.Post("/fin", attendanceHandler.EndBreak)
			})

			r.Route("/almuerzo", func(r chi.Router) {
				r.Post("/inicio", attendanceHandler.StartLunch)
				r.Post("/fin", attendanceHandler.EndLunch)
			})
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", syncHandler.Status)
			r.Post("/drain", syncHandler.Drain)
		})
	})

	return r
}
