package server

import (
	"time"

	authdomain "github.com/brightlearn/campus/internal/auth/domain"
	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SyncRequest struct {
	IdentityToken string `json:"idToken"`
}

type accountView struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	AvatarURL     string     `json:"avatarUrl,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	Role          string     `json:"role"`
	Active        bool       `json:"active"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type authView struct {
	Account accountView `json:"account"`
	Token   string      `json:"token"`
}

func toAccountView(a *authdomain.Account) accountView {
	return accountView{
		ID:            a.ID.String(),
		Email:         a.Email,
		Name:          a.DisplayName,
		AvatarURL:     a.AvatarURL,
		Bio:           a.Bio,
		Role:          string(a.Role),
		Active:        a.Active,
		EmailVerified: a.EmailVerified,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt,
	}
}

func clientContext(c *gin.Context) authdomain.ClientContext {
	return authdomain.ClientContext{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

func (s *Server) RegisterAccount(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Register(c.Request.Context(), authdomain.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     authdomain.Role(req.Role),
		Client:   clientContext(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, "account created", authView{
		Account: toAccountView(result.Account),
		Token:   result.Token,
	})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		Client:   clientContext(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, "login successful", authView{
		Account: toAccountView(result.Account),
		Token:   result.Token,
	})
}

func (s *Server) FederatedSync(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.FederatedSync(c.Request.Context(), authdomain.SyncRequest{
		IdentityToken: req.IdentityToken,
		Client:        clientContext(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, "account synchronized", authView{
		Account: toAccountView(result.Account),
		Token:   result.Token,
	})
}

func (s *Server) CurrentAccount(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, authdomain.ErrAccountNotFound)
		return
	}
	respondOK(c, "ok", gin.H{"account": toAccountView(account)})
}
