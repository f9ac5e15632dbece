package handler

import (
	"net/http"

	"github.com/article-live-api/internal/application/article"
	"github.com/go-chi/chi/v5"
)

// ArticleHandler serves the rehydrated aggregate for initial page loads;
// all mutations go through the socket gateway.
type ArticleHandler struct {
	svc article.Service
}

func NewArticleHandler(svc article.Service) *ArticleHandler {
	return &ArticleHandler{svc: svc}
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
