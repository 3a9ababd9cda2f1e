package model

import "github.com/shopspring/decimal"

// Product はカタログの商品を表す。
// IDは呼び出し側が指定し、自動採番しない。作成後は変更不可。
type Product struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Category string
}

// ProductInput はフォームやCSVから受け取った未変換の商品入力。
// 型変換はcatalogサービスが行う。
type ProductInput struct {
	ID       string
	Name     string
	Price    string
	Category string
}
