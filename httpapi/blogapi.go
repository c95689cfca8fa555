package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"micro-timeline/microblog"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const DefaultAddr = "0.0.0.0:8080"

type HTTPHandler struct {
	manager microblog.Manager
	logger  *zap.Logger
}

func NewServer(manager microblog.Manager, addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := mux.NewRouter()
	handler := HTTPHandler{manager: manager, logger: logger}

	r.Use(requestLogging(logger))
	r.HandleFunc("/api/posts", handler.CreatePost).Methods(http.MethodPost)
	r.HandleFunc("/api/posts", handler.ListTimeline).Methods(http.MethodGet)
	r.HandleFunc("/api/posts/{postId}", handler.GetPost).Methods(http.MethodGet)
	r.HandleFunc("/api/posts/{postId}", handler.DeletePost).Methods(http.MethodDelete)
	r.HandleFunc("/maintenance/ping", handler.CheckIsReady).Methods(http.MethodGet)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return srv
}

type CreatePostRequest struct {
	Body       string `json:"body"`
	AuthorName string `json:"author_name,omitempty"`
}

type PostResponse struct {
	PostId     string `json:"id"`
	Body       string `json:"body"`
	AuthorName string `json:"author_name"`
	CreatedAt  string `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toResponse(post microblog.Post) PostResponse {
	return PostResponse{post.PostId, post.Body, post.AuthorName, post.CreatedAt.Format(time.RFC3339Nano)}
}

func (h *HTTPHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var body CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	post, err := h.manager.CreatePost(r.Context(), body.AuthorName, body.Body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toResponse(post))
}

func (h *HTTPHandler) ListTimeline(w http.ResponseWriter, r *http.Request) {
	posts, err := h.manager.ListTimeline(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		resp = append(resp, toResponse(post))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.manager.GetPost(r.Context(), mux.Vars(r)["postId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toResponse(post))
}

func (h *HTTPHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.DeletePost(r.Context(), mux.Vars(r)["postId"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) CheckIsReady(w http.ResponseWriter, r *http.Request) {
	if !h.manager.IsReady(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// parseLimit returns 0 for anything that is not a positive integer, which the
// manager replaces with its default.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, microblog.ErrValidation):
		h.writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, microblog.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "post not found"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	rawResponse, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(rawResponse)
}
