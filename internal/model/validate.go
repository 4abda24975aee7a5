// Package model はドメインモデルを定義する。
package model

import "regexp"

// gmuEmailPattern はGMUドメインのメールアドレス形式。
// ドメイン部はgmu.eduリテラルで大文字小文字を区別する。
var gmuEmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@gmu\.edu$`)

// IsGMUEmail はメールアドレスがGMUドメイン形式かどうかを返す。
// サインアップと出品のseller_email検証で共用する。
func IsGMUEmail(email string) bool {
	return gmuEmailPattern.MatchString(email)
}
