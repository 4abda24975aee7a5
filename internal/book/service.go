// Package book は出品リスティングのドメインロジックを提供する。
// 入力検証、所有権チェック、データ基盤への読み書きの整形を行う。
package book

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hitoshi/bookswap/internal/model"
	"github.com/hitoshi/bookswap/internal/supabase"
)

// ListingStore は出品レコードの永続化操作のインターフェース。
// supabase.BookClientの部分集合として定義する。
type ListingStore interface {
	List(ctx context.Context) ([]model.Book, error)
	GetByID(ctx context.Context, id string) (*model.Book, error)
	Insert(ctx context.Context, book model.Book) (*model.Book, error)
	Update(ctx context.Context, id string, book model.Book) (*model.Book, error)
	Delete(ctx context.Context, id string) error
}

// TextSanitizer は自由入力テキストのサニタイズのインターフェース。
// security.TextSanitizerServiceの部分集合として定義する。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// Service は出品管理のサービス層。
// 変更系操作では認証済みユーザーとseller_emailの一致を常に検証する。
type Service struct {
	store     ListingStore
	sanitizer TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store ListingStore, sanitizer TextSanitizer) *Service {
	return &Service{
		store:     store,
		sanitizer: sanitizer,
	}
}

// List は全出品を作成日時の降順で返す。
// 出品が1件もない場合は空スライスを返し、エラーにはしない。
func (s *Service) List(ctx context.Context) ([]model.Book, error) {
	books, err := s.store.List(ctx)
	if err != nil {
		return nil, classifyStoreError("fetching books", err)
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

// Get はIDで出品を1件返す。存在しない場合はNotFoundを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Book, error) {
	book, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStoreError("fetching book", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(id)
	}
	return book, nil
}

// Create は新規出品を登録する。
// seller_emailは認証済みユーザーのメールアドレスと一致しなければならない。
// 検証・認可に失敗した場合、データ基盤への書き込みは発生しない。
func (s *Service) Create(ctx context.Context, identity *model.Identity, input *model.BookInput) (*model.Book, error) {
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	if input.SellerEmail != identity.Email {
		return nil, model.NewOwnershipError("You can only create listings with your own email address")
	}
	if !strings.HasSuffix(input.SellerEmail, "@gmu.edu") {
		return nil, model.NewOwnershipError("Only GMU email addresses are allowed")
	}

	created, err := s.store.Insert(ctx, s.toRecord(input))
	if err != nil {
		return nil, classifyStoreError("creating book", err)
	}

	slog.Info("book listing created",
		slog.String("book_id", created.ID),
		slog.String("user_id", identity.UserID),
	)
	return created, nil
}

// Update は既存の出品を更新する。
// 対象が存在しない場合は所有権の評価より先にNotFoundを返す。
// seller_emailは不変フィールドであり、認証済みユーザーのメールアドレスと
// 異なる値が送られた場合は保存値と同値でも拒否する。
func (s *Service) Update(ctx context.Context, identity *model.Identity, id string, input *model.BookInput) (*model.Book, error) {
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStoreError("fetching book", err)
	}
	if existing == nil {
		return nil, model.NewBookNotFoundError(id)
	}

	if existing.SellerEmail != identity.Email {
		return nil, model.NewOwnershipError("You can only update your own listings")
	}
	if input.SellerEmail != identity.Email {
		return nil, model.NewOwnershipError("You cannot change the seller email")
	}

	updated, err := s.store.Update(ctx, id, s.toRecord(input))
	if err != nil {
		return nil, classifyStoreError("updating book", err)
	}
	if updated == nil {
		return nil, model.NewUpstreamError("updating book", errors.New("update returned no rows"))
	}

	slog.Info("book listing updated",
		slog.String("book_id", id),
		slog.String("user_id", identity.UserID),
	)
	return updated, nil
}

// Delete はIDで出品を削除する。
// 対象が存在しない場合は所有権の評価より先にNotFoundを返す。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, id string) error {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return classifyStoreError("fetching book", err)
	}
	if existing == nil {
		return model.NewBookNotFoundError(id)
	}

	if existing.SellerEmail != identity.Email {
		return model.NewOwnershipError("You can only delete your own listings")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return classifyStoreError("deleting book", err)
	}

	slog.Info("book listing deleted",
		slog.String("book_id", id),
		slog.String("user_id", identity.UserID),
	)
	return nil
}

// toRecord は検証済み入力を永続化レコードに変換する。
// 自由入力テキストは保存前にサニタイズする。
func (s *Service) toRecord(input *model.BookInput) model.Book {
	return model.Book{
		Title:        input.Title,
		Author:       input.Author,
		ISBN:         input.ISBN,
		Genre:        input.Genre,
		MaterialType: model.MaterialType(input.MaterialType),
		TradeType:    model.TradeType(input.TradeType),
		Price:        *input.Price,
		Condition:    s.sanitizer.Sanitize(input.Condition),
		Description:  s.sanitizer.Sanitize(input.Description),
		ImageURL:     input.ImageURL,
		SellerName:   input.SellerName,
		SellerEmail:  input.SellerEmail,
	}
}

// classifyStoreError はデータ基盤のエラーを分類する。
// 既に分類済みのAPIErrorは包み直さずそのまま伝播させる。
func classifyStoreError(operation string, err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewUpstreamError(operation, err)
}

// BookClientが本インターフェースを満たすことをコンパイル時に確認する。
var _ ListingStore = (*supabase.BookClient)(nil)
