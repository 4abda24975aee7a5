package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bookswap/internal/middleware"
	"github.com/hitoshi/bookswap/internal/model"
)

// BookServiceInterface は出品ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	List(ctx context.Context) ([]model.Book, error)
	Get(ctx context.Context, id string) (*model.Book, error)
	Create(ctx context.Context, identity *model.Identity, input *model.BookInput) (*model.Book, error)
	Update(ctx context.Context, identity *model.Identity, id string, input *model.BookInput) (*model.Book, error)
	Delete(ctx context.Context, identity *model.Identity, id string) error
}

// BookHandler は出品リスティングのHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{
		service: service,
	}
}

// deleteResponse は出品削除成功時のレスポンス。
type deleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ListBooks は全出品を作成日時の降順で返す。認証は任意。
// GET /books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, books)
}

// GetBook はIDで出品を1件返す。認証は任意。
// GET /books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	book, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, book)
}

// CreateBook は新しい出品を登録する。
// POST /books（要認証）
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewMissingCredentialsError())
		return
	}

	var input model.BookInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	book, err := h.service.Create(r.Context(), identity, &input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, book)
}

// UpdateBook は既存の出品を更新する。出品者本人のみ。
// PUT /books/{id}（要認証）
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewMissingCredentialsError())
		return
	}

	id := chi.URLParam(r, "id")

	var input model.BookInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	book, err := h.service.Update(r.Context(), identity, id, &input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, book)
}

// DeleteBook は出品を削除する。出品者本人のみ。
// DELETE /books/{id}（要認証）
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewMissingCredentialsError())
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, deleteResponse{
		Message: "Book deleted successfully",
		ID:      id,
	})
}
