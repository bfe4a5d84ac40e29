package web

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"mascot-factory/internal/gemini"
	"mascot-factory/internal/mascot"
	"mascot-factory/internal/workshop"
)

type generateRequest struct {
	Photo           string `json:"photo"`
	Style           string `json:"style"`
	ClothingDetails string `json:"clothingDetails"`
	PartyTheme      string `json:"partyTheme"`
}

type workshopView struct {
	Phase  workshop.Phase `json:"phase"`
	Style  string         `json:"style,omitempty"`
	Image  string         `json:"image,omitempty"`
	Error  string         `json:"error,omitempty"`
	Kind   string         `json:"kind,omitempty"`
	Loaded bool           `json:"photoLoaded"`
}

func viewOf(st workshop.State, role mascot.Role) workshopView {
	v := workshopView{
		Phase:  st.Phase,
		Style:  string(st.Style),
		Image:  st.Result,
		Loaded: st.Photo != "",
	}
	if st.Err != nil {
		v.Error = mascot.MessageFor(st.Err, role)
		v.Kind = string(mascot.KindOf(st.Err))
	}
	return v
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())

	req, err := readGenerateRequest(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	style, ok := mascot.ParseStyle(req.Style)
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: mascot.ErrInvalidStyle.Error()})
		return
	}

	_, err = s.workshop.Update(u.Email, func(st *workshop.State) {
		if req.Photo != "" {
			st.Photo = req.Photo
		}
		st.Style = style
		st.ClothingDetails = strings.TrimSpace(req.ClothingDetails)
		st.PartyTheme = strings.TrimSpace(req.PartyTheme)
	})
	if errors.Is(err, workshop.ErrBusy) {
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	st, err := s.workshop.Run(ctx, u.Email, s.generator)
	switch {
	case errors.Is(err, workshop.ErrBusy):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	view := viewOf(st, u.Role())
	if st.Phase != workshop.PhaseFailed {
		writeJSON(w, http.StatusOK, view)
		return
	}

	kind := mascot.KindOf(st.Err)
	if kind == "" {
		// malformed photo data reported by the generator
		writeJSON(w, http.StatusBadRequest, apiError{Error: view.Error})
		return
	}
	writeJSON(w, statusForKind(kind), apiError{Error: view.Error, Kind: view.Kind})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	st := s.workshop.Reset(u.Email)
	writeJSON(w, http.StatusOK, viewOf(st, u.Role()))
}

func statusForKind(kind mascot.Kind) int {
	switch kind {
	case mascot.KindQuota:
		return http.StatusTooManyRequests
	case mascot.KindMissingCredential:
		return http.StatusServiceUnavailable
	case mascot.KindEmptyResult:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// readGenerateRequest accepts either a JSON body with a photo data URL or a
// multipart form with an "image" file. An empty photo keeps the one already
// uploaded to the workshop.
func readGenerateRequest(w http.ResponseWriter, r *http.Request) (generateRequest, error) {
	var req generateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(r.Header.Get("Content-Type"), ";", 2)[0]))
	if mediaType != "multipart/form-data" {
		if err := decodeBody(r.Body, &req); err != nil {
			return req, errors.New("invalid JSON body")
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, errors.New("invalid multipart form")
	}
	req.Style = strings.TrimSpace(r.FormValue("style"))
	req.ClothingDetails = r.FormValue("clothingDetails")
	req.PartyTheme = r.FormValue("partyTheme")

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, errors.New("invalid image upload")
	}
	defer file.Close()

	imgBytes, err := io.ReadAll(file)
	if err != nil {
		return req, errors.New("failed to read image")
	}
	if len(imgBytes) == 0 {
		return req, nil
	}

	mimeType := strings.TrimSpace(strings.SplitN(header.Header.Get("Content-Type"), ";", 2)[0])
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = strings.TrimSpace(strings.SplitN(http.DetectContentType(imgBytes), ";", 2)[0])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	req.Photo = gemini.ToDataURL(mimeType, base64.StdEncoding.EncodeToString(imgBytes))
	return req, nil
}
