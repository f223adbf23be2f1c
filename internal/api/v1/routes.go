// Package v1 provides the v1 REST endpoints for package submission and
// lookup.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/packtory/packtory/internal/ingest"
	"github.com/packtory/packtory/internal/store"
	"github.com/packtory/packtory/internal/validate"
	"github.com/packtory/packtory/internal/versions"
)

// SubmitRequest is the package submission payload.
type SubmitRequest struct {
	// Repository is the raw repository URL as entered by the submitter.
	Repository string `json:"repository"`

	// MaintainerID identifies the submitting maintainer.
	MaintainerID uuid.UUID `json:"maintainer_id"`
}

// PackageResponse is the JSON form of an accepted package.
type PackageResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Vendor        string    `json:"vendor"`
	RepositoryURL string    `json:"repository_url"`
	RemoteID      string    `json:"remote_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RejectionResponse lists the violations that kept a submission from being
// accepted.
type RejectionResponse struct {
	Violations []validate.Violation `json:"violations"`
}

// VersionResponse is the JSON form of one version entry.
type VersionResponse struct {
	Version       string            `json:"version"`
	BranchAlias   map[string]string `json:"branch_alias,omitempty"`
	ReleasedAt    *time.Time        `json:"released_at,omitempty"`
	DefaultBranch bool              `json:"default_branch,omitempty"`
}

// VersionListResponse is the ordered version listing of a package.
type VersionListResponse struct {
	Versions []VersionResponse `json:"versions"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes handles HTTP requests for the v1 endpoints.
type Routes struct {
	ingestor *ingest.Ingestor
	store    store.Store
}

// NewRoutes creates a new Routes instance.
func NewRoutes(ing *ingest.Ingestor, st store.Store) *Routes {
	return &Routes{
		ingestor: ing,
		store:    st,
	}
}

// Router creates and configures the HTTP router for the v1 endpoints.
func Router(ing *ingest.Ingestor, st store.Store) http.Handler {
	routes := NewRoutes(ing, st)

	r := chi.NewRouter()

	r.Post("/packages", routes.submitPackage)
	r.Route("/packages/{vendor}/{name}", func(r chi.Router) {
		r.Get("/", routes.getPackage)
		r.Get("/versions", routes.listVersions)
	})

	return r
}

// submitPackage handles POST /api/v1/packages
func (routes *Routes) submitPackage(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MaintainerID == uuid.Nil {
		writeErrorResponse(w, "maintainer_id is required", http.StatusBadRequest)
		return
	}

	outcome, err := routes.ingestor.Submit(r.Context(), req.Repository, req.MaintainerID)
	if err != nil {
		slog.Error("Package submission failed", "error", err)
		writeErrorResponse(w, "Failed to process submission", http.StatusInternalServerError)
		return
	}

	if !outcome.Accepted() {
		writeJSONResponse(w, http.StatusUnprocessableEntity, RejectionResponse{
			Violations: outcome.Violations,
		})
		return
	}

	writeJSONResponse(w, http.StatusCreated, packageResponse(outcome.Package))
}

// getPackage handles GET /api/v1/packages/{vendor}/{name}
func (routes *Routes) getPackage(w http.ResponseWriter, r *http.Request) {
	pkg, ok := routes.lookupPackage(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, packageResponse(pkg))
}

// listVersions handles GET /api/v1/packages/{vendor}/{name}/versions
func (routes *Routes) listVersions(w http.ResponseWriter, r *http.Request) {
	pkg, ok := routes.lookupPackage(w, r)
	if !ok {
		return
	}

	records, err := routes.store.ListVersions(r.Context(), pkg.ID)
	if err != nil && !errors.Is(err, store.ErrNoResult) {
		slog.Error("Failed to list versions", "package", pkg.Name, "error", err)
		writeErrorResponse(w, "Failed to list versions", http.StatusInternalServerError)
		return
	}

	index := versions.NewIndex(records)
	resp := VersionListResponse{Versions: make([]VersionResponse, 0, index.Len())}
	for _, rec := range index.Ordered() {
		entry := VersionResponse{
			Version:       rec.Version,
			BranchAlias:   rec.BranchAlias,
			DefaultBranch: rec.DefaultBranch,
		}
		if !rec.ReleasedAt.IsZero() {
			released := rec.ReleasedAt
			entry.ReleasedAt = &released
		}
		resp.Versions = append(resp.Versions, entry)
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// lookupPackage resolves the {vendor}/{name} URL pair to a stored package,
// writing the error response itself when the lookup fails.
func (routes *Routes) lookupPackage(w http.ResponseWriter, r *http.Request) (*store.Package, bool) {
	name := chi.URLParam(r, "vendor") + "/" + chi.URLParam(r, "name")

	pkg, err := routes.store.FindPackageByName(r.Context(), name)
	if errors.Is(err, store.ErrNoResult) {
		writeErrorResponse(w, "Package not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		slog.Error("Failed to look up package", "package", name, "error", err)
		writeErrorResponse(w, "Failed to look up package", http.StatusInternalServerError)
		return nil, false
	}
	return pkg, true
}

func packageResponse(pkg *store.Package) PackageResponse {
	return PackageResponse{
		ID:            pkg.ID,
		Name:          pkg.Name,
		Vendor:        pkg.Vendor,
		RepositoryURL: pkg.RepositoryURL,
		RemoteID:      pkg.RemoteID,
		CreatedAt:     pkg.CreatedAt,
	}
}

// writeJSONResponse writes a JSON response with the given status and data
func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}
