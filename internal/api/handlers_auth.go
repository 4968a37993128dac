package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/models"
)

type signupRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
}

func signupHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.Cfg.AuthMode == "ldap" {
			c.JSON(http.StatusForbidden, gin.H{"error": "cadastro desabilitado no modo LDAP"})
			return
		}

		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}

		user, err := auth.Register(s.Store, req.Username, req.Email, req.DisplayName, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "usuário já existe"})
				return
			}
			s.writeError(c, err)
			return
		}

		s.Audit.Record(auditEntry(user.ID, "user.signup", "user", user.ID, user.Username, "", ""))
		c.JSON(http.StatusCreated, user)
	}
}

func loginHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}

		// Login local de manutenção (break-glass)
		if s.Cfg.EnableLocalLogin && auth.AuthenticateBreakGlass(req.Username, req.Password, s.Cfg) {
			user, err := breakGlassUser(s, req.Username)
			if err != nil {
				s.writeError(c, err)
				return
			}
			respondWithToken(c, s, user)
			return
		}

		var user *models.User
		var err error
		switch s.Cfg.AuthMode {
		case "ldap":
			var displayName string
			displayName, err = auth.LDAPAuthenticate(req.Username, req.Password, s.Cfg)
			if err == nil {
				user, err = auth.EnsureLDAPUser(s.Store, req.Username, displayName)
			}
		default:
			user, err = auth.Authenticate(s.Store, req.Username, req.Password)
		}
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "credenciais inválidas"})
				return
			}
			s.writeError(c, err)
			return
		}

		respondWithToken(c, s, user)
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{
			"username":    ident.User.Username,
			"displayName": ident.User.DisplayName,
			"roles":       ident.Roles,
		})
	}
}

func respondWithToken(c *gin.Context, s *Server, user *models.User) {
	token, exp, err := auth.GenerateToken(user, s.Cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erro ao gerar token"})
		return
	}
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.Name)
	}
	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: exp,
		Username:  user.Username,
		Roles:     roles,
	})
}

// breakGlassUser garante a conta de manutenção com papel admin.
func breakGlassUser(s *Server, username string) (*models.User, error) {
	var user models.User
	err := s.Store.Do(func(gdb *gorm.DB) error {
		return gdb.Preload("Roles").Where("username = ?", username).First(&user).Error
	})
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.Store.Do(func(gdb *gorm.DB) error {
		var role models.Role
		if err := gdb.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
			return err
		}
		user = models.User{
			Username:    username,
			DisplayName: "Maintenance Admin",
			Enabled:     true,
			Roles:       []models.Role{role},
		}
		return gdb.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
