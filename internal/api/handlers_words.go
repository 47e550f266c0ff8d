// handlers_words.go - Word-of-the-day CRUD handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/store"
)

// WordHandler manages the word-of-the-day pool
type WordHandler struct {
	store store.Store
}

// NewWordHandler creates a new word handler
func NewWordHandler(st store.Store) *WordHandler {
	return &WordHandler{store: st}
}

type createWordRequest struct {
	Word       string  `json:"word"`
	Definition string  `json:"definition"`
	ExtraJSON  *string `json:"extraJson"`
	Active     *bool   `json:"active"`
}

type updateWordRequest struct {
	Word       *string `json:"word"`
	Definition *string `json:"definition"`
	ExtraJSON  *string `json:"extraJson"`
	Active     *bool   `json:"active"`
}

// HandleListWords returns every word in the pool
func (h *WordHandler) HandleListWords(c echo.Context) error {
	words, err := h.store.ListWords()
	if err != nil {
		return NewInternalError("failed to list words", err)
	}
	return c.JSON(http.StatusOK, words)
}

// HandleGetWord returns one word by id
func (h *WordHandler) HandleGetWord(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid word id", err)
	}

	w, err := h.store.GetWord(id)
	if err != nil {
		return storeError(err, "word", c.Param("id"))
	}
	return c.JSON(http.StatusOK, w)
}

// HandleCreateWord adds a word; word text must be unique
func (h *WordHandler) HandleCreateWord(c echo.Context) error {
	var req createWordRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Word == "" {
		return NewValidationError("word")
	}
	if req.Definition == "" {
		return NewValidationError("definition")
	}

	w := &models.Word{
		Word:       req.Word,
		Definition: req.Definition,
		ExtraJSON:  req.ExtraJSON,
		Active:     true,
	}
	if req.Active != nil {
		w.Active = *req.Active
	}

	if err := h.store.CreateWord(w); err != nil {
		return storeError(err, "word", req.Word)
	}
	return c.JSON(http.StatusCreated, w)
}

// HandleUpdateWord patches the provided fields only
func (h *WordHandler) HandleUpdateWord(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid word id", err)
	}

	var req updateWordRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	w, err := h.store.GetWord(id)
	if err != nil {
		return storeError(err, "word", c.Param("id"))
	}

	if req.Word != nil {
		w.Word = *req.Word
	}
	if req.Definition != nil {
		w.Definition = *req.Definition
	}
	if req.ExtraJSON != nil {
		w.ExtraJSON = req.ExtraJSON
	}
	if req.Active != nil {
		w.Active = *req.Active
	}

	if err := h.store.UpdateWord(w); err != nil {
		return storeError(err, "word", c.Param("id"))
	}
	return c.JSON(http.StatusOK, w)
}

// HandleDeleteWord removes a word from the pool
func (h *WordHandler) HandleDeleteWord(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid word id", err)
	}

	if err := h.store.DeleteWord(id); err != nil {
		return storeError(err, "word", c.Param("id"))
	}
	return c.NoContent(http.StatusNoContent)
}

// pathID parses the :id path parameter common to the CRUD handlers.
func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
