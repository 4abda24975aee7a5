package book

import (
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/bookswap/internal/model"
)

// inlineImagePrefix はimage_urlで拒否するインラインバイナリ形式のプレフィックス。
const inlineImagePrefix = "data:image"

// 入力フィールドの長さ上限
const (
	maxTitleLen       = 500
	maxAuthorLen      = 300
	maxGenreLen       = 100
	maxConditionLen   = 200
	maxDescriptionLen = 5000
	maxImageURLLen    = 2000
	maxSellerNameLen  = 200
)

// validMaterialTypes は許可されるmaterial_typeの値。
var validMaterialTypes = map[string]struct{}{
	string(model.MaterialTypeBook):    {},
	string(model.MaterialTypeJournal): {},
	string(model.MaterialTypeArticle): {},
}

// validTradeTypes は許可されるtrade_typeの値。
var validTradeTypes = map[string]struct{}{
	string(model.TradeTypeBuy):    {},
	string(model.TradeTypeTrade):  {},
	string(model.TradeTypeBorrow): {},
}

// ValidateInput は出品入力の宣言的バリデーションを実行する。
// 最初に違反したフィールドのエラーを返し、後続のチェックは行わない。
// ISBNは正規化済みの形で入力を書き換える。
// ここを通過するまで外部サービスへの呼び出しは発生しない。
func ValidateInput(input *model.BookInput) *model.APIError {
	if n := utf8.RuneCountInString(input.Title); n < 1 || n > maxTitleLen {
		return model.NewValidationError("title", "must be between 1 and 500 characters")
	}
	if utf8.RuneCountInString(input.Author) > maxAuthorLen {
		return model.NewValidationError("author", "must be at most 300 characters")
	}

	isbn, err := NormalizeISBN(input.ISBN)
	if err != nil {
		return err
	}
	input.ISBN = isbn

	if utf8.RuneCountInString(input.Genre) > maxGenreLen {
		return model.NewValidationError("genre", "must be at most 100 characters")
	}
	if input.MaterialType != "" {
		if _, ok := validMaterialTypes[input.MaterialType]; !ok {
			return model.NewValidationError("material_type", "must be one of: book, journal, article")
		}
	}
	if input.TradeType != "" {
		if _, ok := validTradeTypes[input.TradeType]; !ok {
			return model.NewValidationError("trade_type", "must be one of: buy, trade, borrow")
		}
	}
	if input.Price == nil {
		return model.NewValidationError("price", "is required")
	}
	if *input.Price < 0 {
		return model.NewValidationError("price", "must be greater than or equal to 0")
	}
	if utf8.RuneCountInString(input.Condition) > maxConditionLen {
		return model.NewValidationError("condition", "must be at most 200 characters")
	}
	if utf8.RuneCountInString(input.Description) > maxDescriptionLen {
		return model.NewValidationError("description", "must be at most 5000 characters")
	}
	if utf8.RuneCountInString(input.ImageURL) > maxImageURLLen {
		return model.NewValidationError("image_url", "must be at most 2000 characters")
	}
	if strings.HasPrefix(input.ImageURL, inlineImagePrefix) {
		return model.NewValidationError("image_url", "inline image data is not allowed; upload the image to storage and reference its URL")
	}
	if n := utf8.RuneCountInString(input.SellerName); n < 1 || n > maxSellerNameLen {
		return model.NewValidationError("seller_name", "must be between 1 and 200 characters")
	}
	if !model.IsGMUEmail(input.SellerEmail) {
		return model.NewValidationError("seller_email", "must be a gmu.edu email address")
	}
	return nil
}

// NormalizeISBN はISBNからハイフンと空白を除去して正規化する。
// 除去後に空でない場合、10桁または13桁の数字でなければエラーを返す。
// 正規化は冪等で、正規化済みの入力に対しては同じ文字列を返す。
func NormalizeISBN(raw string) (string, *model.APIError) {
	isbn := strings.ReplaceAll(raw, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	if isbn == "" {
		return "", nil
	}
	if !isAllDigits(isbn) || (len(isbn) != 10 && len(isbn) != 13) {
		return "", model.NewValidationError("isbn", "must be 10 or 13 digits")
	}
	return isbn, nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
