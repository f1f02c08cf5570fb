package printerd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/model"
)

// Server exposes the bridge surface over a localhost WebSocket, plus
// health and metrics endpoints. Only the three bridge methods are
// dispatched; there is no other path from the agent to OS printing.
type Server struct {
	svc      *Service
	listen   string
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewServer(svc *Service, listen string, log zerolog.Logger) *Server {
	return &Server{
		svc:    svc,
		listen: listen,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWS)
	return r
}

// Serve runs the HTTP server under the supervisor until the context ends.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info().Str("listen", s.listen).Msg("printer host listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.log.Info().Str("remote", r.RemoteAddr).Msg("agent connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Info().Str("remote", r.RemoteAddr).Msg("agent disconnected")
			return
		}

		var req model.RPCRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.log.Warn().Err(err).Msg("malformed request frame")
			continue
		}

		resp := s.dispatch(r.Context(), req)
		frame, err := json.Marshal(resp)
		if err != nil {
			s.log.Error().Err(err).Msg("marshal response")
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req model.RPCRequest) model.RPCResponse {
	switch req.Method {
	case model.MethodGetPrinters:
		printers := s.svc.ListPrinters(ctx)
		return result(req.ID, model.PrintersResult{Printers: printers})

	case model.MethodGetDefaultPrinter:
		name, found := s.svc.ResolveDefaultPrinter(ctx)
		return result(req.ID, model.DefaultPrinterResult{Name: name, Found: found})

	case model.MethodPrint:
		var params model.PrintParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return model.RPCResponse{ID: req.ID, Error: "malformed print params"}
		}
		return result(req.ID, s.svc.Print(ctx, params.HTML, params.DeviceName))

	default:
		return model.RPCResponse{ID: req.ID, Error: "unknown method: " + string(req.Method)}
	}
}

func result(id string, v any) model.RPCResponse {
	raw, err := json.Marshal(v)
	if err != nil {
		return model.RPCResponse{ID: id, Error: "marshal result: " + err.Error()}
	}
	return model.RPCResponse{ID: id, Result: raw}
}
