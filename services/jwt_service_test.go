package services

import (
	"testing"

	"carebot-http-service/config"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService(&config.Config{JWTSecretKey: "test-secret"})

	token, err := svc.GenerateToken(42, RoleGuardian)
	if err != nil {
		t.Fatalf("生成令牌失败: %v", err)
	}

	claims, err := svc.ExtractClaims(token)
	if err != nil {
		t.Fatalf("解析令牌失败: %v", err)
	}
	if claims.UserID != 42 || claims.Role != RoleGuardian {
		t.Errorf("声明解析错误: %+v", claims)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(&config.Config{JWTSecretKey: "secret-a"})
	verifier := NewJWTService(&config.Config{JWTSecretKey: "secret-b"})

	token, err := issuer.GenerateToken(1, RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.ExtractClaims(token); err == nil {
		t.Fatalf("错误密钥签发的令牌应被拒绝")
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	svc := NewJWTService(&config.Config{JWTSecretKey: "test-secret"})
	for _, token := range []string{"", "abc", "a.b.c"} {
		if _, err := svc.ExtractClaims(token); err == nil {
			t.Errorf("令牌 %q 应被拒绝", token)
		}
	}
}
