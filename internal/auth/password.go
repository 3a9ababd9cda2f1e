package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash は存在しないユーザーのログイン試行で比較に使うハッシュ。
// 平文は使用されない。
var dummyHash = mustHash("catalog-unknown-user")

// HashPassword はパスワードのbcryptハッシュを返す。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword はパスワードがハッシュと一致するかどうかを返す。
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func mustHash(password string) string {
	hash, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}
