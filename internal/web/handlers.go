package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/UnknownOlympus/geoplot/internal/pipeline"
	"github.com/UnknownOlympus/geoplot/internal/present"
	"github.com/UnknownOlympus/geoplot/internal/session"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 32 << 20

var errBadRequest = errors.New("bad request")

type geocodeResponse struct {
	session.State

	Error string `json:"error,omitempty"`
}

type visualizeResponse struct {
	RunID        string             `json:"run_id"`
	Count        int                `json:"count"`
	Center       models.Coordinates `json:"center"`
	Zoom         int                `json:"zoom"`
	Markers      []present.Marker   `json:"markers"`
	GeoJSON      json.RawMessage    `json:"geojson"`
	DownloadHref string             `json:"download_href"`
	Filename     string             `json:"download_filename"`
	Intermediate json.RawMessage    `json:"intermediate"`
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	h.sessionFor(w, r)

	page, err := static.ReadFile("static/index.html")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write(page); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.sessionFor(w, r).State())
}

// upload accepts either a multipart "file" or a "contents" data URI with a "filename".
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)

	filename, raw, err := readUpload(r)
	if err != nil {
		h.log.InfoContext(r.Context(), "Upload rejected", "error", err)
		h.writeError(w, r, err)
		return
	}

	h.metrics.Uploads.Inc()
	h.writeJSON(w, r, http.StatusOK, s.Upload(filename, raw))
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.sessionFor(w, r).Clear())
}

// geocode runs the pipeline once. The run is detached from the request so that
// a closed browser tab does not abort it half way.
func (h *Handler) geocode(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)

	credential := r.FormValue("api_key")
	encoding := r.FormValue("encoding")

	state, err := s.Geocode(context.WithoutCancel(r.Context()), credential, encoding, nil)
	if err != nil {
		h.writeJSON(w, r, statusFor(err), geocodeResponse{State: state, Error: pipeline.UserMessage(err)})
		return
	}

	h.writeJSON(w, r, http.StatusOK, geocodeResponse{State: state})
}

func (h *Handler) visualize(w http.ResponseWriter, r *http.Request) {
	run, err := h.sessionFor(w, r).Visualize()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := buildVisualization(run)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	run, ok := h.findRun(w, r)
	if !ok {
		return
	}

	data, err := present.EncodeResultSet(run.Results)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeRaw(w, r, "application/json", data)
}

func (h *Handler) markers(w http.ResponseWriter, r *http.Request) {
	run, ok := h.findRun(w, r)
	if !ok {
		return
	}

	data, err := present.GeoJSON(run.Results)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeRaw(w, r, "application/geo+json", data)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	run, ok := h.findRun(w, r)
	if !ok {
		return
	}

	data, err := present.EncodeCSV(run.Results)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", present.DownloadFilename))
	h.writeRaw(w, r, "text/csv; charset=utf-8", data)
}

func (h *Handler) findRun(w http.ResponseWriter, r *http.Request) (*models.Run, bool) {
	run, err := h.sessionFor(w, r).FindRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}

	return run, true
}

func (h *Handler) writeRaw(w http.ResponseWriter, r *http.Request, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(data); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}

// sessionFor resolves the session from the cookie and refreshes the cookie when
// a new session had to be started.
func (h *Handler) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	s := h.sessions.GetOrCreate(id)
	if s.ID() != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return s
}

func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			return "", nil, &pipeline.DecodeError{Filename: header.Filename, Err: err}
		}
		return header.Filename, raw, nil
	}

	contents := r.FormValue("contents")
	filename := r.FormValue("filename")
	if contents == "" || filename == "" {
		return "", nil, fmt.Errorf("%w: expected a file or contents with a filename", errBadRequest)
	}

	raw, err := pipeline.DecodeDataURI(contents)
	if err != nil {
		return "", nil, err
	}

	return filename, raw, nil
}

func buildVisualization(run *models.Run) (*visualizeResponse, error) {
	view := run.Results.View()

	geo, err := present.GeoJSON(run.Results)
	if err != nil {
		return nil, err
	}
	csvData, err := present.EncodeCSV(run.Results)
	if err != nil {
		return nil, err
	}
	intermediate, err := present.EncodeResultSet(run.Results)
	if err != nil {
		return nil, err
	}

	return &visualizeResponse{
		RunID:        run.ID,
		Count:        run.Results.Count(),
		Center:       view.Center,
		Zoom:         view.Zoom,
		Markers:      present.Markers(run.Results),
		GeoJSON:      geo,
		DownloadHref: present.DataURI(csvData),
		Filename:     present.DownloadFilename,
		Intermediate: intermediate,
	}, nil
}
