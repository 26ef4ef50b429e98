package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/AureliusIvan/notion-blog/internal/feed"
	"github.com/AureliusIvan/notion-blog/internal/search"
	"github.com/AureliusIvan/notion-blog/internal/storage"
)

// AssetResolver exchanges an asset locator for its signed URL candidates
type AssetResolver interface {
	GetSignedFileURLs(ctx context.Context, assetURL, blockID string) ([]string, error)
}

// Server serves the asset proxy, the search API, and the Atom feed
type Server struct {
	db     *storage.DB
	idx    *search.Index
	assets AssetResolver
	feeds  *feed.Generator
}

// NewServer creates the HTTP server
func NewServer(db *storage.DB, idx *search.Index, assets AssetResolver, feeds *feed.Generator) *Server {
	return &Server{
		db:     db,
		idx:    idx,
		assets: assets,
		feeds:  feeds,
	}
}

// Handler returns the route mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/asset", s.handleAsset)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/atom", s.handleAtom)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Status: "error", Message: message})
}

// handleAsset validates the asset reference, exchanges it for signed URLs,
// and redirects to the last candidate; later entries are the more current
// variants by backend convention. The redirect is a 307 so clients retry
// with the original method and body.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	assetURL := r.URL.Query().Get("assetUrl")
	blockID := r.URL.Query().Get("blockId")

	if assetURL == "" || blockID == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters: assetUrl or blockId")
		return
	}

	signedURLs, err := s.assets.GetSignedFileURLs(r.Context(), assetURL, blockID)
	if err != nil {
		log.Printf("Failed to retrieve signed URLs for block %s: %v", blockID, err)
		writeError(w, http.StatusBadGateway, "Failed to retrieve asset URL")
		return
	}

	if len(signedURLs) == 0 {
		log.Printf("Signing returned no URLs for asset %q (block %s)", assetURL, blockID)
		writeError(w, http.StatusBadGateway, "Failed to retrieve asset URL")
		return
	}

	w.Header().Set("Location", signedURLs[len(signedURLs)-1])
	w.WriteHeader(http.StatusTemporaryRedirect)
}

type searchResponse struct {
	Results []*search.SearchResult `json:"results"`
	Query   string                 `json:"query"`
	Count   int                    `json:"count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter: q")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	results, err := s.idx.Search(query, limit)
	if err != nil {
		log.Printf("Search failed for %q: %v", query, err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(searchResponse{
		Results: results,
		Query:   query,
		Count:   len(results),
	})
}

func (s *Server) handleAtom(w http.ResponseWriter, r *http.Request) {
	xml, err := s.feeds.Generate(r.Context())
	if err != nil {
		log.Printf("Feed generation failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.Write([]byte(xml))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbCount, _ := s.db.Count()
	indexCount, _ := s.idx.Count()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"posts_in_db":    dbCount,
		"posts_in_index": indexCount,
	})
}
