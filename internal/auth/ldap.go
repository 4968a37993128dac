package auth

import (
	"fmt"

	ldap "github.com/go-ldap/ldap/v3"

	"github.com/example/helmdesk/backend/internal/config"
)

// LDAPAuthenticate autentica o usuário no LDAP e retorna o displayName.
// Usado quando AUTH_MODE=ldap; a conta local é provisionada depois por
// EnsureLDAPUser.
func LDAPAuthenticate(username, password string, cfg *config.Config) (string, error) {
	l, err := ldap.DialURL(cfg.LDAPURL)
	if err != nil {
		return "", err
	}
	defer l.Close()

	// Primeiro bind técnico
	if err := l.Bind(cfg.LDAPBindDN, cfg.LDAPBindPass); err != nil {
		return "", fmt.Errorf("erro bind técnico: %w", err)
	}

	// Busca usuário pelo uid
	searchRequest := ldap.NewSearchRequest(
		cfg.LDAPBaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(username)),
		[]string{"dn", "cn", "displayName"},
		nil,
	)
	sr, err := l.Search(searchRequest)
	if err != nil {
		return "", fmt.Errorf("erro ao buscar usuário: %w", err)
	}
	if len(sr.Entries) != 1 {
		return "", ErrInvalidCredentials
	}

	entry := sr.Entries[0]
	displayName := entry.GetAttributeValue("displayName")
	if displayName == "" {
		displayName = entry.GetAttributeValue("cn")
	}

	// Bind como o próprio usuário para validar a senha
	if err := l.Bind(entry.DN, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return displayName, nil
}
