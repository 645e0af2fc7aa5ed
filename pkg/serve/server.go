package serve

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"diabetesml/pkg/logging"
)

//go:embed templates/index.html
var templates embed.FS

// Server renders the prediction form on top of a Service.
type Server struct {
	svc         *Service
	tmpl        *template.Template
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	latency     prometheus.Histogram
}

func NewServer(svc *Service) (*Server, error) {
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		svc:      svc,
		tmpl:     tmpl,
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diabetesml_predictions_total",
			Help: "Prediction requests by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "diabetesml_prediction_duration_seconds",
			Help:    "Time spent answering prediction requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	s.registry.MustRegister(s.predictions, s.latency)
	return s, nil
}

// RegisterRoutes wires the form, prediction, health and metrics endpoints.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// Handler returns a router with every route registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return r
}

type page struct {
	Fields         []string
	PredictionText string
}

func (s *Server) render(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, page{Fields: s.svc.Schema.Raw, PredictionText: text}); err != nil {
		logging.Log.WithError(err).Error("Failed to render template")
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "")
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.latency.Observe(time.Since(start).Seconds()) }()

	if !s.svc.Ready() {
		s.predictions.WithLabelValues("not_loaded").Inc()
		s.render(w, ErrNotLoaded.Error())
		return
	}

	text, outcome := s.predict(r)
	s.predictions.WithLabelValues(outcome).Inc()
	s.render(w, text)
}

func (s *Server) predict(r *http.Request) (text, outcome string) {
	if err := r.ParseForm(); err != nil {
		return "An error occurred during prediction: " + err.Error(), "error"
	}
	input, err := s.svc.ParseForm(r.PostForm)
	if err != nil {
		logging.Log.WithError(err).Warn("Rejected prediction input")
		return "An error occurred during prediction: " + userMessage(err), "error"
	}
	res, err := s.svc.Predict(input)
	if err != nil {
		logging.Log.WithError(err).Error("Prediction failed")
		return "An error occurred during prediction: " + userMessage(err), "error"
	}
	logging.Log.WithFields(logrus.Fields{"class": res.Class, "probability": res.Probability}).Info("Prediction served")
	if res.Class == 1 {
		return res.String(), "diabetic"
	}
	return res.String(), "not_diabetic"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok", "model_loaded": s.svc.Ready()}); err != nil {
		logging.Log.WithError(err).Error("Failed to write health response")
	}
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, ln, h)
}

// ServeListener is Serve on an existing listener. It closes ln.
func ServeListener(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logging.Log.WithField("addr", ln.Addr().String()).Info("Server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
