package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gconnect/leadgen-cli/internal/pipeline"
	"github.com/gconnect/leadgen-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pipeline and click-tracking server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		srv := &http.Server{Handler: newRouter(env.Pipeline, env.Store)}

		zap.L().Info("starting server", zap.Int("port", port))
		return serveUntilCancelled(ctx, srv, ln, 10*time.Second)
	},
}

// serveUntilCancelled serves on ln until ctx is cancelled, then drains
// in-flight requests for up to grace before returning.
func serveUntilCancelled(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server serve")
	}
	<-done
	return nil
}

func newRouter(p *pipeline.Pipeline, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/run-pipeline", func(w http.ResponseWriter, r *http.Request) {
		res, err := p.RunDefault(r.Context())
		if err != nil {
			writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res.Leads)
	})

	r.Post("/search-user", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			City     string `json:"city"`
			Category string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.City == "" || req.Category == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "city and category are required"})
			return
		}

		res, err := p.RunSearch(r.Context(), req.City, req.Category)
		if err != nil {
			writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res.Leads)
	})

	r.Post("/send-all", func(w http.ResponseWriter, r *http.Request) {
		res, err := p.SendAll(r.Context())
		if err != nil {
			status := http.StatusInternalServerError
			if eris.Is(err, pipeline.ErrNoBatch) {
				status = http.StatusConflict
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "sent": res.Sent})
	})

	r.Get("/get-leads", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, p.Batch())
	})

	r.Get("/user/interested", func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			http.Error(w, "Email missing.", http.StatusBadRequest)
			return
		}
		name := r.URL.Query().Get("name")
		category := r.URL.Query().Get("category")

		if err := st.MarkInterested(r.Context(), email, name, category, r.UserAgent()); err != nil {
			zap.L().Error("record interest", zap.String("email", email), zap.Error(err))
			http.Error(w, "Error.", http.StatusInternalServerError)
			return
		}
		zap.L().Info("lead clicked interested",
			zap.String("email", email),
			zap.String("name", name))

		if cfg.Outreach.ScheduleURL != "" {
			http.Redirect(w, r, cfg.Outreach.ScheduleURL, http.StatusFound)
			return
		}
		_, _ = fmt.Fprint(w, "Thanks! We'll be in touch shortly.")
	})

	r.Get("/user/not-interested", func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			http.Error(w, "Email missing.", http.StatusBadRequest)
			return
		}
		if err := st.MarkNotInterested(r.Context(), email); err != nil {
			zap.L().Error("record opt-out", zap.String("email", email), zap.Error(err))
			http.Error(w, "Error.", http.StatusInternalServerError)
			return
		}
		_, _ = fmt.Fprint(w, "Thanks! We won't contact you again.")
	})

	return r
}

func writeRunError(w http.ResponseWriter, err error) {
	if eris.Is(err, pipeline.ErrRunInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "pipeline execution failed",
		"details": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
