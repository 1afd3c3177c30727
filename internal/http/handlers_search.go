package httpx

import (
	"net/http"

	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/service"
)

// SearchHandlers serves synchronous searches and the corpus endpoints.
type SearchHandlers struct {
	Svc *service.SearchService
}

// Search handles a blocking search request.
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Search(r.Context(), req.params())
	if err != nil {
		writeSearchError(w, err, "search_failed")
		return
	}
	if res.Results == nil {
		res.Results = []model.ResultEntry{}
	}
	WriteJSON(w, http.StatusOK, res)
}

// CreateCorpus handles a corpus upload.
func (h *SearchHandlers) CreateCorpus(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCorpusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	c, err := h.Svc.CreateCorpus(r.Context(), &req)
	if err != nil {
		writeSearchError(w, err, "create_corpus_failed")
		return
	}
	WriteJSON(w, http.StatusCreated, model.CorpusSummary{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
}

// ListCorpora handles corpus listing with limit/offset paging.
func (h *SearchHandlers) ListCorpora(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", service.DefaultCorpusPageSize)
	offset := parseIntQuery(r, "offset", 0)

	out, err := h.Svc.ListCorpora(r.Context(), limit, offset)
	if err != nil {
		writeSearchError(w, err, "list_corpora_failed")
		return
	}
	if out == nil {
		out = []*model.CorpusSummary{}
	}
	WriteJSON(w, http.StatusOK, out)
}
