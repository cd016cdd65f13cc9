package server

import (
	"strconv"

	authdomain "github.com/brightlearn/campus/internal/auth/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) ListAccounts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("page_size", "25"))
	pageToken := c.Query("page_token")

	accounts, nextToken, err := s.authsvc.ListAccounts(c.Request.Context(), limit, pageToken)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, toAccountView(account))
	}

	respondOK(c, "ok", gin.H{
		"users":           views,
		"next_page_token": nextToken,
	})
}

func (s *Server) UpdateRole(c *gin.Context) {
	accountID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, authdomain.ErrAccountNotFound)
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.authsvc.UpdateRole(c.Request.Context(), accountID, authdomain.Role(req.Role))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, "role updated", gin.H{"account": toAccountView(account)})
}
