package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/wyun/codeshare/internal/apperror"
	"github.com/wyun/codeshare/internal/model"
	"github.com/wyun/codeshare/internal/service"
)

// ShareHandler exposes the share CRUD surface over HTTP. It owns request
// parsing and payload validation; everything below that (credentials,
// expiry, defaults) belongs to the service and its guard.
//
// The credential for a protected share travels as the `pw` query
// parameter on every gated route, never in the body.
type ShareHandler struct {
	service  *service.ShareService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewShareHandler(svc *service.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		service:  svc,
		validate: validator.New(),
		logger:   logger,
	}
}

// snippetPayload is one snippet in a create/update body. Keys are
// optional on input; missing ones are assigned server-side.
type snippetPayload struct {
	Key      string `json:"key"`
	Title    string `json:"title" validate:"max=100"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

// createSharePayload is the POST /api/shares body. IsPublic defaults to
// true when absent, matching an editor that starts every share open.
type createSharePayload struct {
	Title    string           `json:"title" validate:"max=40"`
	Snippets []snippetPayload `json:"snippets" validate:"dive"`
	Tags     []string         `json:"tags" validate:"max=20,dive,max=32"`
	Markdown string           `json:"markdown"`
	IsPublic *bool            `json:"isPublic"`
	Password string           `json:"password" validate:"omitempty,min=4,max=8"`
	ExpireAt *int64           `json:"expire_at"`
}

// updateSharePayload is the PUT /api/shares/{id} body. Pointer fields
// distinguish "absent" from "set to zero value".
type updateSharePayload struct {
	Title    *string          `json:"title" validate:"omitempty,max=40"`
	Snippets []snippetPayload `json:"snippets" validate:"omitempty,dive"`
	Tags     []string         `json:"tags" validate:"omitempty,max=20,dive,max=32"`
	Markdown *string          `json:"markdown"`
}

type visibilityPayload struct {
	IsPublic *bool  `json:"isPublic" validate:"required"`
	Password string `json:"password"`
}

type expirationPayload struct {
	ExpireAt *int64 `json:"expire_at"`
}

type snippetPatchPayload struct {
	Title    *string `json:"title" validate:"omitempty,max=100"`
	Language *string `json:"language"`
	Code     *string `json:"code"`
}

func toModelSnippets(in []snippetPayload) []model.Snippet {
	if in == nil {
		return nil
	}
	out := make([]model.Snippet, 0, len(in))
	for _, p := range in {
		out = append(out, model.Snippet{
			Key:      p.Key,
			Title:    p.Title,
			Language: p.Language,
			Code:     p.Code,
		})
	}
	return out
}

// decodeAndValidate reads the JSON body into dst and runs the struct's
// validator tags. Failures come back as apperror.ErrValidation so the
// response helper maps them to 400 like any service-level validation.
func (h *ShareHandler) decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fe := fieldErrs[0]
			return apperror.ValidationFailed(fe.Field(),
				"failed validation on '"+fe.Tag()+"'")
		}
		// Not a field failure: dst was not a struct pointer. That is a
		// programming error, not client input — surface it with context
		// so it maps to a 500, never a 400.
		return fmt.Errorf("validating request payload: %w", err)
	}
	return nil
}

// credential pulls the password attempt from the query string. Empty
// string means "no credential supplied".
func credential(r *http.Request) string {
	return r.URL.Query().Get("pw")
}

// HandleList returns share summaries, newest first.
//
// GET /api/shares?limit=&offset=
func (h *ShareHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	summaries, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleCreate stores a new share.
//
// POST /api/shares
func (h *ShareHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createSharePayload
	if err := h.decodeAndValidate(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	isPublic := true
	if payload.IsPublic != nil {
		isPublic = *payload.IsPublic
	}

	share, err := h.service.Create(r.Context(), service.CreateShare{
		Title:    payload.Title,
		Snippets: toModelSnippets(payload.Snippets),
		Tags:     payload.Tags,
		Markdown: payload.Markdown,
		IsPublic: isPublic,
		Password: payload.Password,
		ExpireAt: payload.ExpireAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, share.Sanitized())
}

// HandleGet returns one full share. Private shares need ?pw=.
//
// GET /api/shares/{id}?pw=
func (h *ShareHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	share, err := h.service.Get(r.Context(), r.PathValue("id"), credential(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, share.Sanitized())
}

// HandleUpdate applies a partial update to title, snippets, tags, or
// markdown. Fields absent from the body stay untouched.
//
// PUT /api/shares/{id}?pw=
func (h *ShareHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload updateSharePayload
	if err := h.decodeAndValidate(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	share, err := h.service.Update(r.Context(), r.PathValue("id"), credential(r), service.UpdateShare{
		Title:    payload.Title,
		Snippets: toModelSnippets(payload.Snippets),
		Tags:     payload.Tags,
		Markdown: payload.Markdown,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, share.Sanitized())
}

// HandleDelete removes a share.
//
// DELETE /api/shares/{id}?pw=
func (h *ShareHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id"), credential(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetVisibility flips a share public or private. Going public, the
// body password is the CURRENT credential; going private, it is the NEW
// one. Rotating the password of an already-private share additionally
// needs the current credential in ?pw=.
//
// PUT /api/shares/{id}/visibility?pw=
func (h *ShareHandler) HandleSetVisibility(w http.ResponseWriter, r *http.Request) {
	var payload visibilityPayload
	if err := h.decodeAndValidate(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	// The query credential proves ownership; when absent, the body
	// password doubles as the credential for the go-public case.
	cred := credential(r)
	if cred == "" {
		cred = payload.Password
	}

	share, err := h.service.SetVisibility(r.Context(), r.PathValue("id"), *payload.IsPublic, cred, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, share.Sanitized())
}

// HandleSetExpiration sets or clears the expiration instant.
//
// PUT /api/shares/{id}/expiration?pw=
func (h *ShareHandler) HandleSetExpiration(w http.ResponseWriter, r *http.Request) {
	var payload expirationPayload
	if err := h.decodeAndValidate(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	share, err := h.service.SetExpiration(r.Context(), r.PathValue("id"), credential(r), payload.ExpireAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, share.Sanitized())
}

// HandleAddSnippet appends a placeholder snippet.
//
// POST /api/shares/{id}/snippets?pw=
func (h *ShareHandler) HandleAddSnippet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.service.AddSnippet(r.Context(), r.PathValue("id"), credential(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdateSnippet patches one snippet's title, language, or code.
//
// PUT /api/shares/{id}/snippets/{key}?pw=
func (h *ShareHandler) HandleUpdateSnippet(w http.ResponseWriter, r *http.Request) {
	var payload snippetPatchPayload
	if err := h.decodeAndValidate(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	share, err := h.service.UpdateSnippet(r.Context(), r.PathValue("id"), credential(r),
		r.PathValue("key"), model.SnippetPatch{
			Title:    payload.Title,
			Language: payload.Language,
			Code:     payload.Code,
		})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, share.Sanitized())
}

// HandleRemoveSnippet deletes one snippet and reports which key the
// editor should focus next.
//
// DELETE /api/shares/{id}/snippets/{key}?pw=
func (h *ShareHandler) HandleRemoveSnippet(w http.ResponseWriter, r *http.Request) {
	activeKey, err := h.service.RemoveSnippet(r.Context(), r.PathValue("id"), credential(r), r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"activeKey": activeKey})
}
