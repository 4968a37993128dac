package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config agrega todas as configurações da aplicação.
type Config struct {
	AppPort       string
	JWTSecret     string
	JWTExpMinutes int
	AESKey        []byte

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// AuthMode seleciona o backend de autenticação: "local" ou "ldap".
	AuthMode     string
	LDAPURL      string
	LDAPBaseDN   string
	LDAPBindDN   string
	LDAPBindPass string

	// Login local de manutenção (break-glass), independente do AuthMode.
	EnableLocalLogin       bool
	LocalAdminUser         string
	LocalAdminPasswordHash string

	HelmBin             string
	AutoCreateNamespace bool

	LogLevel  string
	LogFormat string
}

// LoadEnv tenta carregar variáveis de ambiente de um arquivo .env (modo dev).
func LoadEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

// New cria uma nova instância de Config baseada em variáveis de ambiente.
func New() *Config {
	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		JWTSecret:     getEnv("APP_JWT_SECRET", "change-me-secret"),
		JWTExpMinutes: getEnvInt("APP_JWT_EXP_MINUTES", 60),
		AESKey:        []byte(getEnv("APP_AES_KEY", "change-me-32-bytes-key-change-me")),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "helmdesk"),
		DBPassword: getEnv("DB_PASSWORD", "helmdesk"),
		DBName:     getEnv("DB_NAME", "helmdesk"),

		AuthMode:     strings.ToLower(getEnv("AUTH_MODE", "local")),
		LDAPURL:      getEnv("LDAP_URL", "ldap://ldap.example.com:389"),
		LDAPBaseDN:   getEnv("LDAP_BASE_DN", "dc=example,dc=com"),
		LDAPBindDN:   getEnv("LDAP_BIND_DN", "cn=admin,dc=example,dc=com"),
		LDAPBindPass: getEnv("LDAP_BIND_PASSWORD", "admin"),

		EnableLocalLogin:       getEnvBool("ENABLE_LOCAL_LOGIN", false),
		LocalAdminUser:         getEnv("LOCAL_ADMIN_USER", ""),
		LocalAdminPasswordHash: getEnv("LOCAL_ADMIN_PASSWORD_HASH", ""),

		HelmBin:             getEnv("HELM_BIN", "helm"),
		AutoCreateNamespace: getEnvBool("K8S_AUTO_CREATE_NAMESPACE", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// JWTTTL retorna a validade do token como duração.
func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTExpMinutes) * time.Minute
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var val int
		_, err := fmt.Sscanf(v, "%d", &val)
		if err == nil {
			return val
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}
