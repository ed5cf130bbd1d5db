package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	domain "github.com/turtacn/molfp/internal/domain/descriptor"
	"github.com/turtacn/molfp/pkg/errors"
)

// DescriptorHandler serves descriptor computation and similarity endpoints.
type DescriptorHandler struct {
	svc         appdesc.Service
	maxBodySize int64
}

// NewDescriptorHandler returns a handler over svc. maxBodySize <= 0 selects
// DefaultMaxBodySize.
func NewDescriptorHandler(svc appdesc.Service, maxBodySize int64) *DescriptorHandler {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &DescriptorHandler{svc: svc, maxBodySize: maxBodySize}
}

// RegisterRoutes mounts the handler under r.
func (h *DescriptorHandler) RegisterRoutes(r chi.Router) {
	r.Route("/descriptors", func(r chi.Router) {
		r.Post("/", h.Compute)
		r.Post("/batch", h.BatchCompute)
		r.Get("/families", h.Families)
		r.Post("/atom-types", h.AtomTypes)
		r.Delete("/cache/{family}", h.InvalidateCache)
	})
	r.Route("/similarity", func(r chi.Router) {
		r.Post("/", h.Compare)
		r.Post("/rank", h.Rank)
		r.Post("/search", h.Search)
	})
}

// Compute handles POST /descriptors.
func (h *DescriptorHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req appdesc.ComputeRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Compute(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// BatchRequest is the body of POST /descriptors/batch. Families and Persist
// apply to every item that does not set its own families.
type BatchRequest struct {
	Items    []appdesc.ComputeRequest `json:"items"`
	Families []string                 `json:"families,omitempty"`
	Persist  bool                     `json:"persist,omitempty"`
}

// BatchResponse reports per-item outcomes in request order.
type BatchResponse struct {
	Items     []appdesc.BatchItem `json:"items"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// BatchCompute handles POST /descriptors/batch.
func (h *DescriptorHandler) BatchCompute(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if err := decodeJSON(w, r, h.maxBodySize, &body); err != nil {
		writeAppError(w, r, err)
		return
	}
	reqs := make([]*appdesc.ComputeRequest, len(body.Items))
	for i := range body.Items {
		item := body.Items[i]
		if len(item.Families) == 0 {
			item.Families = body.Families
		}
		item.Persist = item.Persist || body.Persist
		reqs[i] = &item
	}
	items, err := h.svc.BatchCompute(r.Context(), reqs)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	resp := BatchResponse{Items: items}
	for _, it := range items {
		if it.Result != nil {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// FamiliesResponse lists the registered descriptor families.
type FamiliesResponse struct {
	Families []domain.DescriptorInfo `json:"families"`
}

// Families handles GET /descriptors/families.
func (h *DescriptorHandler) Families(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FamiliesResponse{Families: h.svc.Families()})
}

// AtomTypesRequest is the body of POST /descriptors/atom-types. A nil Mode
// selects every property.
type AtomTypesRequest struct {
	Structure string  `json:"structure"`
	Mode      *uint32 `json:"mode,omitempty"`
}

type AtomTypesResponse struct {
	Atoms []appdesc.AtomTypeInfo `json:"atoms"`
}

// AtomTypes handles POST /descriptors/atom-types.
func (h *DescriptorHandler) AtomTypes(w http.ResponseWriter, r *http.Request) {
	var req AtomTypesRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	mode := domain.PropertiesAll
	if req.Mode != nil {
		mode = domain.PropertyMask(*req.Mode)
	}
	atoms, err := h.svc.AtomTypes(r.Context(), req.Structure, mode)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AtomTypesResponse{Atoms: atoms})
}

// InvalidateCacheResponse reports how many cache entries were dropped.
type InvalidateCacheResponse struct {
	Family  string `json:"family"`
	Removed int64  `json:"removed"`
}

// InvalidateCache handles DELETE /descriptors/cache/{family}.
func (h *DescriptorHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	family := chi.URLParam(r, "family")
	n, err := h.svc.InvalidateCache(r.Context(), family)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InvalidateCacheResponse{Family: family, Removed: n})
}

// Compare handles POST /similarity.
func (h *DescriptorHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req appdesc.CompareRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Compare(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type RankResponse struct {
	Results []appdesc.RankResult `json:"results"`
}

// Rank handles POST /similarity/rank.
func (h *DescriptorHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req appdesc.RankRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if len(req.Candidates) == 0 {
		writeAppError(w, r, errors.New(errors.ErrCodeValidation, "candidates must not be empty"))
		return
	}
	res, err := h.svc.Rank(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RankResponse{Results: res})
}

type SearchResponse struct {
	Matches []appdesc.StoredMatch `json:"matches"`
}

// Search handles POST /similarity/search over stored molecules.
func (h *DescriptorHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req appdesc.RankStoredRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.RankStored(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Matches: res})
}

//Personal.AI order the ending
