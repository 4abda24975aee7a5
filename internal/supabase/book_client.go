package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/bookswap/internal/model"
)

// BookClient はPostgREST互換のデータAPIクライアント。
// booksテーブルに対するCRUD操作を提供する。
// 所有権チェックはサービス層で行うため、サービスロールキーでRLSを迂回する。
type BookClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
	apiKey     string
	serviceKey string
	recorder   UpstreamRecorder
}

// NewBookClient はBookClientの新しいインスタンスを生成する。
func NewBookClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey, serviceKey string, recorder UpstreamRecorder) *BookClient {
	return &BookClient{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		apiKey:     apiKey,
		serviceKey: serviceKey,
		recorder:   recorder,
	}
}

// restErrorPayload はPostgRESTのエラー応答。
type restErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// bookColumns はbooksテーブルへの書き込みペイロード。
// model.Bookの応答用タグはomitemptyを持つため、そのままPATCHすると
// 空にした任意列がボディから抜け落ち、保存済みの値が残ってしまう。
// 書き込みでは全列を常に送るため、omitemptyなしの専用型を使う。
// idとcreated_atはデータ基盤側で採番されるため含まない。
type bookColumns struct {
	Title        string             `json:"title"`
	Author       string             `json:"author"`
	ISBN         string             `json:"isbn"`
	Genre        string             `json:"genre"`
	MaterialType model.MaterialType `json:"material_type"`
	TradeType    model.TradeType    `json:"trade_type"`
	Price        float64            `json:"price"`
	Condition    string             `json:"condition"`
	Description  string             `json:"description"`
	ImageURL     string             `json:"image_url"`
	SellerName   string             `json:"seller_name"`
	SellerEmail  string             `json:"seller_email"`
}

// toColumns はドメインモデルを書き込みペイロードに変換する。
func toColumns(book model.Book) bookColumns {
	return bookColumns{
		Title:        book.Title,
		Author:       book.Author,
		ISBN:         book.ISBN,
		Genre:        book.Genre,
		MaterialType: book.MaterialType,
		TradeType:    book.TradeType,
		Price:        book.Price,
		Condition:    book.Condition,
		Description:  book.Description,
		ImageURL:     book.ImageURL,
		SellerName:   book.SellerName,
		SellerEmail:  book.SellerEmail,
	}
}

// List は全出品を作成日時の降順で取得する。
// 出品が存在しない場合は空スライスを返す。
func (c *BookClient) List(ctx context.Context) ([]model.Book, error) {
	raw, err := c.do(ctx, http.MethodGet, "?select=*&order=created_at.desc", nil, false)
	if err != nil {
		return nil, err
	}

	var books []model.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("出品一覧のパースに失敗しました: %w", err)
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

// GetByID はIDで出品を1件取得する。存在しない場合は(nil, nil)を返す。
func (c *BookClient) GetByID(ctx context.Context, id string) (*model.Book, error) {
	raw, err := c.do(ctx, http.MethodGet, "?select=*&id=eq."+url.QueryEscape(id), nil, false)
	if err != nil {
		return nil, err
	}

	var books []model.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("出品のパースに失敗しました: %w", err)
	}
	if len(books) == 0 {
		return nil, nil
	}
	return &books[0], nil
}

// Insert は出品を1件登録し、採番済みのレコードを返す。
func (c *BookClient) Insert(ctx context.Context, book model.Book) (*model.Book, error) {
	raw, err := c.do(ctx, http.MethodPost, "", toColumns(book), true)
	if err != nil {
		return nil, err
	}
	return decodeSingleRow(raw)
}

// Update はIDで出品を更新し、更新後のレコードを返す。
// 全列を送るため、リクエストで空にした任意列は空として永続化される。
// 対象行が存在しない場合は(nil, nil)を返す。
func (c *BookClient) Update(ctx context.Context, id string, book model.Book) (*model.Book, error) {
	raw, err := c.do(ctx, http.MethodPatch, "?id=eq."+url.QueryEscape(id), toColumns(book), true)
	if err != nil {
		return nil, err
	}

	var books []model.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("更新応答のパースに失敗しました: %w", err)
	}
	if len(books) == 0 {
		return nil, nil
	}
	return &books[0], nil
}

// Delete はIDで出品を削除する。対象行が存在しなくてもエラーにはならない。
func (c *BookClient) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "?id=eq."+url.QueryEscape(id), nil, false)
	return err
}

// do はbooksテーブルへのHTTPリクエストを実行し、2xxの場合にボディを返す。
// wantRepresentationが真の場合、変更後の行を応答に含めるようPreferヘッダーを付ける。
func (c *BookClient) do(ctx context.Context, method, query string, body any, wantRepresentation bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/v1/books"+query, reader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if wantRepresentation {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("books", "network_error")
		c.logger.Error("データAPIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record("books", "read_error")
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.record("books", fmt.Sprintf("status_%d", resp.StatusCode))
		c.logger.Warn("データAPIがエラーステータスを返しました",
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, decodeRESTError(resp.StatusCode, raw)
	}

	c.record("books", "ok")
	return raw, nil
}

func (c *BookClient) record(service, outcome string) {
	if c.recorder != nil {
		c.recorder.RecordUpstreamRequest(service, outcome)
	}
}

// decodeRESTError はPostgRESTのエラー応答をAPIStatusErrorに変換する。
func decodeRESTError(statusCode int, raw []byte) *APIStatusError {
	var payload restErrorPayload
	msg := string(raw)
	code := ""
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
		code = payload.Code
	}
	return &APIStatusError{
		StatusCode: statusCode,
		ErrorCode:  code,
		Msg:        msg,
	}
}

// decodeSingleRow は行配列の応答から先頭の1行を取り出す。
func decodeSingleRow(raw []byte) (*model.Book, error) {
	var books []model.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("登録応答のパースに失敗しました: %w", err)
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("登録応答に行が含まれていません")
	}
	return &books[0], nil
}
