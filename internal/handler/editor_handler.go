package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"nomad-cms/internal/editor"
	"nomad-cms/internal/logger"
	"nomad-cms/internal/middleware"
	"nomad-cms/internal/service"
	"nomad-cms/internal/view"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// maxRequestBody bounds JSON request bodies; article bodies travel inside them.
const maxRequestBody = 4 << 20

// EditorHandler serves the article editor page and its JSON API.
type EditorHandler struct {
	svc  service.EditorServicer
	view *view.View
	log  logger.Logger
}

// NewEditorHandler creates a new EditorHandler with the given dependencies.
func NewEditorHandler(svc service.EditorServicer, v *view.View, log logger.Logger) *EditorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &EditorHandler{svc: svc, view: v, log: log}
}

// sessionState is the JSON shape of an open editor.
type sessionState struct {
	Session    string                 `json:"session,omitempty"`
	Document   editor.Document        `json:"document"`
	Issues     []editor.Issue         `json:"issues"`
	Checklist  []editor.ChecklistItem `json:"checklist"`
	Autosave   string                 `json:"autosave"`
	LastSaved  *time.Time             `json:"last_saved"`
	TextBlocks int                    `json:"text_blocks"`
	WordCount  int                    `json:"word_count"`
	Recovery   *editor.Snapshot       `json:"recovery,omitempty"`
}

func stateOf(token string, sess *editor.Session) sessionState {
	issues := sess.Validate()
	doc := sess.Document()
	st := sessionState{
		Session:    token,
		Document:   doc,
		Issues:     issues,
		Checklist:  editor.Checklist(issues),
		Autosave:   sess.AutosaveState().String(),
		TextBlocks: sess.Body().TextBlocks(),
		WordCount:  editor.WordCount(doc.Body),
		Recovery:   sess.Recovery(),
	}
	if saved := sess.LastSaved(); !saved.IsZero() {
		st.LastSaved = &saved
	}
	return st
}

// home renders the landing page with the login or editor link.
func (h *EditorHandler) home(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	data := map[string]interface{}{
		"UserInfo": middleware.GetUserInfo(r.Context()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.view.Render(w, "home.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render home page", Code: http.StatusInternalServerError}
	}
	return nil
}

// newArticlePage opens a session for a new article and renders the editor.
func (h *EditorHandler) newArticlePage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.renderEditor(w, r, 0)
}

// editArticlePage opens a session for an existing article and renders the editor.
func (h *EditorHandler) editArticlePage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := articleIDParam(r)
	if appErr != nil {
		return appErr
	}
	return h.renderEditor(w, r, id)
}

func (h *EditorHandler) renderEditor(w http.ResponseWriter, r *http.Request, id int64) *middleware.AppError {
	user := middleware.GetUserInfo(r.Context())
	token, sess, err := h.svc.Open(r.Context(), id, user.Subject)
	if err != nil {
		return openError(err)
	}

	// Lookups failing should not keep the author out of the editor.
	categories, err := h.svc.Taxonomy(r.Context())
	if err != nil {
		h.log.Error(err, "Failed to load taxonomy")
	}
	authors, err := h.svc.Authors(r.Context())
	if err != nil {
		h.log.Error(err, "Failed to load authors")
	}

	st := stateOf(token, sess)
	data := map[string]interface{}{
		"Token":      token,
		"Document":   st.Document,
		"Checklist":  st.Checklist,
		"Recovery":   st.Recovery,
		"Categories": categories,
		"Authors":    authors,
		"UserInfo":   user,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.view.Render(w, "editor.html", data); err != nil {
		// The session would otherwise live until shutdown.
		_ = h.svc.Close(token)
		return &middleware.AppError{Error: err, Message: "Failed to render editor", Code: http.StatusInternalServerError}
	}
	return nil
}

type openRequest struct {
	ID int64 `json:"id"`
}

// openSession starts an editor session over JSON.
func (h *EditorHandler) openSession(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req openRequest
	if appErr := decodeJSON(w, r, &req, true); appErr != nil {
		return appErr
	}
	user := middleware.GetUserInfo(r.Context())
	token, sess, err := h.svc.Open(r.Context(), req.ID, user.Subject)
	if err != nil {
		return openError(err)
	}
	middleware.WriteJSON(w, http.StatusCreated, stateOf(token, sess))
	return nil
}

// getSession returns the current state of an editor session.
func (h *EditorHandler) getSession(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	token, sess, appErr := h.session(r)
	if appErr != nil {
		return appErr
	}
	middleware.WriteJSON(w, http.StatusOK, stateOf(token, sess))
	return nil
}

// closeSession ends an editor session and cancels its pending autosave.
func (h *EditorHandler) closeSession(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	token := chi.URLParam(r, "sid")
	if err := h.svc.Close(token); err != nil {
		return sessionError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// optionalID distinguishes an absent reference from an explicit null.
type optionalID struct {
	Set   bool
	Value *int64
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

type fieldsRequest struct {
	Title         *string     `json:"title"`
	Slug          *string     `json:"slug"`
	Icon          *string     `json:"icon"`
	CategoryID    optionalID  `json:"category_id"`
	AuthorID      optionalID  `json:"author_id"`
	SummaryPoints []string    `json:"summary_points"`
	SEO           *editor.SEO `json:"seo"`
}

// updateFields applies the non-body form fields present in the request.
func (h *EditorHandler) updateFields(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	token, sess, appErr := h.session(r)
	if appErr != nil {
		return appErr
	}
	var req fieldsRequest
	if appErr := decodeJSON(w, r, &req, false); appErr != nil {
		return appErr
	}

	if req.SummaryPoints != nil {
		if err := sess.SetSummaryPoints(req.SummaryPoints); err != nil {
			return badRequest(err, fmt.Sprintf("At most %d summary points are allowed", editor.MaxSummaryPoints))
		}
	}
	if req.Title != nil {
		sess.SetTitle(*req.Title)
	}
	if req.Slug != nil {
		sess.SetSlug(*req.Slug)
	}
	if req.Icon != nil {
		sess.SetIcon(*req.Icon)
	}
	if req.CategoryID.Set {
		sess.SetCategory(req.CategoryID.Value)
	}
	if req.AuthorID.Set {
		sess.SetAuthor(req.AuthorID.Value)
	}
	if req.SEO != nil {
		sess.SetSEO(*req.SEO)
	}

	middleware.WriteJSON(w, http.StatusOK, stateOf(token, sess))
	return nil
}

type commandRequest struct {
	Command   string           `json:"command"`
	Selection editor.Selection `json:"selection"`
	Mark      string           `json:"mark"`
	Level     int              `json:"level"`
	Align     string           `json:"align"`
	Href      string           `json:"href"`
	Src       string           `json:"src"`
	Alt       string           `json:"alt"`
	Text      string           `json:"text"`
	Content   string           `json:"content"`
	Markdown  string           `json:"markdown"`
}

var marks = map[string]editor.Mark{
	"bold":      editor.MarkBold,
	"italic":    editor.MarkItalic,
	"underline": editor.MarkUnderline,
}

// command runs one toolbar or text command against the session's body.
// Block-level commands act on selection.block.
func (h *EditorHandler) command(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	token, sess, appErr := h.session(r)
	if appErr != nil {
		return appErr
	}
	var req commandRequest
	if appErr := decodeJSON(w, r, &req, false); appErr != nil {
		return appErr
	}

	if err := applyCommand(sess, req); err != nil {
		return commandError(err)
	}
	middleware.WriteJSON(w, http.StatusOK, stateOf(token, sess))
	return nil
}

var errUnknownCommand = errors.New("handler: unknown editor command")

func applyCommand(sess *editor.Session, req commandRequest) error {
	body := sess.Body()
	block := req.Selection.Block
	switch req.Command {
	case "toggle_mark":
		mark, ok := marks[req.Mark]
		if !ok {
			return fmt.Errorf("%w: mark %q", errUnknownCommand, req.Mark)
		}
		return body.ToggleMark(req.Selection, mark)
	case "toggle_heading":
		return body.ToggleHeading(block, req.Level)
	case "paragraph":
		return body.SetParagraph(block)
	case "bullet_list":
		return body.ToggleBulletList(block)
	case "ordered_list":
		return body.ToggleOrderedList(block)
	case "blockquote":
		return body.ToggleBlockquote(block)
	case "align":
		return body.SetTextAlign(block, req.Align)
	case "link":
		return body.SetLink(req.Selection, req.Href)
	case "unlink":
		return body.UnsetLink(req.Selection)
	case "image":
		return body.InsertImage(block, req.Src, req.Alt)
	case "table":
		return body.InsertTable(block)
	case "insert_text":
		return body.InsertText(req.Selection, req.Text)
	case "append_paragraph":
		body.AppendParagraph(req.Text)
		return nil
	case "set_content":
		body.Replace(req.Content)
		return nil
	case "import_markdown":
		return sess.ImportMarkdown(req.Markdown)
	case "restore_autosave":
		return sess.RestoreAutosave()
	case "discard_autosave":
		sess.DiscardAutosave()
		return nil
	}
	return fmt.Errorf("%w: %q", errUnknownCommand, req.Command)
}

// validate returns the live publish checklist.
func (h *EditorHandler) validate(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	_, sess, appErr := h.session(r)
	if appErr != nil {
		return appErr
	}
	issues := sess.Validate()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     len(issues) == 0,
		"issues":    issues,
		"checklist": editor.Checklist(issues),
	})
	return nil
}

type saveRequest struct {
	Status editor.Status `json:"status"`
}

// save persists the article with the requested status.
func (h *EditorHandler) save(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	token, sess, appErr := h.session(r)
	if appErr != nil {
		return appErr
	}
	var req saveRequest
	if appErr := decodeJSON(w, r, &req, true); appErr != nil {
		return appErr
	}
	if req.Status == "" {
		req.Status = editor.StatusDraft
	}

	if _, err := sess.Save(r.Context(), req.Status); err != nil {
		return saveError(err)
	}
	middleware.WriteJSON(w, http.StatusOK, stateOf(token, sess))
	return nil
}

// taxonomy lists the categories an article can be filed under.
func (h *EditorHandler) taxonomy(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categories, err := h.svc.Taxonomy(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load categories", Code: http.StatusBadGateway}
	}
	middleware.WriteJSON(w, http.StatusOK, categories)
	return nil
}

// authors lists the available bylines.
func (h *EditorHandler) authors(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	authors, err := h.svc.Authors(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load authors", Code: http.StatusBadGateway}
	}
	middleware.WriteJSON(w, http.StatusOK, authors)
	return nil
}

type versionView struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  *int64    `json:"author_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// versions lists the saved history of an article, newest first.
func (h *EditorHandler) versions(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := articleIDParam(r)
	if appErr != nil {
		return appErr
	}
	history, err := h.svc.History(r.Context(), id)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load history", Code: http.StatusBadGateway}
	}
	out := make([]versionView, 0, len(history))
	for _, v := range history {
		out = append(out, versionView{ID: v.ID, Title: v.Title, Content: v.Content, AuthorID: v.AuthorID, CreatedBy: v.CreatedBy, CreatedAt: v.CreatedAt})
	}
	middleware.WriteJSON(w, http.StatusOK, out)
	return nil
}

func (h *EditorHandler) session(r *http.Request) (string, *editor.Session, *middleware.AppError) {
	token := chi.URLParam(r, "sid")
	sess, err := h.svc.Get(token)
	if err != nil {
		return "", nil, sessionError(err)
	}
	return token, sess, nil
}

func articleIDParam(r *http.Request) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(err, "Invalid article ID")
	}
	return id, nil
}

// decodeJSON reads the request body into dst. An empty body is accepted
// when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) *middleware.AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest(err, "Malformed JSON request")
	}
	return nil
}

func badRequest(err error, msg string) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: msg, Code: http.StatusBadRequest}
}

func openError(err error) *middleware.AppError {
	if errors.Is(err, editor.ErrNotFound) {
		return &middleware.AppError{Error: err, Message: "Article not found", Code: http.StatusNotFound}
	}
	return &middleware.AppError{Error: err, Message: "Failed to load article", Code: http.StatusBadGateway}
}

func sessionError(err error) *middleware.AppError {
	if errors.Is(err, service.ErrSessionNotFound) {
		return &middleware.AppError{Error: err, Message: "Editor session not found", Code: http.StatusNotFound}
	}
	return &middleware.AppError{Error: err, Message: "Editor session error", Code: http.StatusInternalServerError}
}

func commandError(err error) *middleware.AppError {
	switch {
	case errors.Is(err, errUnknownCommand):
		return badRequest(err, err.Error())
	case errors.Is(err, editor.ErrNoBlock):
		return badRequest(err, "No such text block")
	case errors.Is(err, editor.ErrEmptyURL):
		return badRequest(err, "A URL is required")
	case errors.Is(err, editor.ErrHeadingLevel):
		return badRequest(err, "Heading level must be 1, 2 or 3")
	case errors.Is(err, editor.ErrAlignment):
		return badRequest(err, "Alignment must be left, center or right")
	case errors.Is(err, editor.ErrNoSnapshot):
		return badRequest(err, "There is no autosaved version to restore")
	}
	return &middleware.AppError{Error: err, Message: "Editor command failed", Code: http.StatusUnprocessableEntity}
}

func saveError(err error) *middleware.AppError {
	var verr *editor.ValidationError
	switch {
	case errors.As(err, &verr):
		return &middleware.AppError{Error: err, Message: "Please fix the issues before publishing", Code: http.StatusUnprocessableEntity, Details: verr.Issues}
	case errors.Is(err, editor.ErrInvalidStatus):
		return badRequest(err, "Invalid status")
	case errors.Is(err, editor.ErrSlugTaken):
		return &middleware.AppError{Error: err, Message: "This slug is already in use", Code: http.StatusConflict}
	case errors.Is(err, editor.ErrClosed):
		return &middleware.AppError{Error: err, Message: "Editor session closed", Code: http.StatusGone}
	case errors.Is(err, context.DeadlineExceeded):
		return &middleware.AppError{Error: err, Message: "Saving timed out, please retry", Code: http.StatusGatewayTimeout}
	}
	return &middleware.AppError{Error: err, Message: "Failed to save article, please retry", Code: http.StatusBadGateway}
}
