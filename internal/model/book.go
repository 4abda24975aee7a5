// Package model はドメインモデルを定義する。
package model

// MaterialType は出品物の種別を表す。
type MaterialType string

const (
	// MaterialTypeBook は書籍を示す。
	MaterialTypeBook MaterialType = "book"
	// MaterialTypeJournal は学術誌を示す。
	MaterialTypeJournal MaterialType = "journal"
	// MaterialTypeArticle は論文・記事を示す。
	MaterialTypeArticle MaterialType = "article"
)

// TradeType は取引形態を表す。
type TradeType string

const (
	// TradeTypeBuy は売買を示す。
	TradeTypeBuy TradeType = "buy"
	// TradeTypeTrade は物々交換を示す。
	TradeTypeTrade TradeType = "trade"
	// TradeTypeBorrow は貸し借りを示す。
	TradeTypeBorrow TradeType = "borrow"
)

// Book は出品された書籍リスティングを表す。
// レコードの実体はホスティングされたデータ基盤のbooksテーブルが保持する。
// 変更権限はSellerEmailと認証済みユーザーのメールアドレスの一致のみで判定する。
type Book struct {
	ID           string       `json:"id,omitempty"`
	Title        string       `json:"title"`
	Author       string       `json:"author,omitempty"`
	ISBN         string       `json:"isbn,omitempty"`
	Genre        string       `json:"genre,omitempty"`
	MaterialType MaterialType `json:"material_type,omitempty"`
	TradeType    TradeType    `json:"trade_type,omitempty"`
	Price        float64      `json:"price"`
	Condition    string       `json:"condition,omitempty"`
	Description  string       `json:"description,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	SellerName   string       `json:"seller_name"`
	SellerEmail  string       `json:"seller_email"`
	CreatedAt    string       `json:"created_at,omitempty"`
}

// BookInput は出品の作成・更新リクエストを表す。
// IDとCreatedAtはデータ基盤側で採番されるため含まない。
// Priceは未指定と0を区別するためポインタで受ける。
type BookInput struct {
	Title        string   `json:"title"`
	Author       string   `json:"author,omitempty"`
	ISBN         string   `json:"isbn,omitempty"`
	Genre        string   `json:"genre,omitempty"`
	MaterialType string   `json:"material_type,omitempty"`
	TradeType    string   `json:"trade_type,omitempty"`
	Price        *float64 `json:"price"`
	Condition    string   `json:"condition,omitempty"`
	Description  string   `json:"description,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	SellerName   string   `json:"seller_name"`
	SellerEmail  string   `json:"seller_email"`
}
