package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	authdomain "github.com/brightlearn/campus/internal/auth/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxAvatarSize = 5 << 20 // 5 MiB

var allowedAvatarExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Bio   string `json:"bio"`
}

type AddPasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type sessionView struct {
	ID           string     `json:"id"`
	DeviceName   string     `json:"deviceName"`
	DeviceType   string     `json:"deviceType"`
	Browser      string     `json:"browser"`
	OS           string     `json:"os"`
	IPAddress    string     `json:"ipAddress"`
	Location     *string    `json:"location,omitempty"`
	IsCurrent    bool       `json:"isCurrent"`
	LastActiveAt time.Time  `json:"lastActiveAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt"`
}

func (s *Server) GetProfile(c *gin.Context) {
	accountID, _ := currentAccountID(c)

	profile, err := s.authsvc.Profile(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	view := toAccountView(profile.Account)
	respondOK(c, "ok", gin.H{
		"account":     view,
		"hasPassword": profile.HasPassword,
	})
}

func (s *Server) UpdateProfile(c *gin.Context) {
	accountID, _ := currentAccountID(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.authsvc.UpdateProfile(c.Request.Context(), authdomain.UpdateProfileRequest{
		AccountID: accountID,
		Name:      req.Name,
		Email:     req.Email,
		Bio:       req.Bio,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, "profile updated", gin.H{"account": toAccountView(account)})
}

func (s *Server) AddPassword(c *gin.Context) {
	accountID, _ := currentAccountID(c)

	var req AddPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.AddPassword(c.Request.Context(), accountID, req.NewPassword, req.ConfirmPassword); err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, "password added", nil)
}

func (s *Server) ChangePassword(c *gin.Context) {
	accountID, _ := currentAccountID(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.authsvc.ChangePassword(c.Request.Context(), accountID,
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, "password changed", nil)
}

func (s *Server) ListSessions(c *gin.Context) {
	accountID, _ := currentAccountID(c)
	currentID, _ := currentSessionID(c)

	sessions, err := s.sessions.ActiveSessions(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView{
			ID:           sess.ID.String(),
			DeviceName:   sess.DeviceName,
			DeviceType:   string(sess.DeviceType),
			Browser:      sess.Browser,
			OS:           sess.OS,
			IPAddress:    sess.IPAddress,
			Location:     sess.Location,
			IsCurrent:    sess.ID == currentID,
			LastActiveAt: sess.LastActiveAt,
			CreatedAt:    sess.CreatedAt,
			ExpiresAt:    sess.ExpiresAt,
		})
	}

	respondOK(c, "ok", gin.H{"sessions": views})
}

func (s *Server) RevokeSession(c *gin.Context) {
	accountID, _ := currentAccountID(c)
	currentID, _ := currentSessionID(c)

	sessionID, err := snowflake.ParseString(c.Param("sessionId"))
	if err != nil {
		AbortWithError(c, authdomain.ErrSessionNotFound)
		return
	}

	if err := s.sessions.Revoke(c.Request.Context(), sessionID, accountID, currentID); err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, "session revoked", nil)
}

func (s *Server) SecurityScore(c *gin.Context) {
	accountID, _ := currentAccountID(c)

	score, err := s.scores.Calculate(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, "ok", score)
}

// UploadAvatar persists the file under the uploads dir and points the
// account at it. A failed profile update after a successful write is a
// logged inconsistency, not a request failure.
func (s *Server) UploadAvatar(c *gin.Context) {
	accountID, _ := currentAccountID(c)

	file, err := c.FormFile("avatar")
	if err != nil {
		AbortWithError(c, newAPIError(http.StatusBadRequest, CodeNoFileUploaded, "no file uploaded"))
		return
	}
	if file.Size > maxAvatarSize {
		AbortWithError(c, newAPIError(http.StatusBadRequest, CodeNoFileUploaded, "file exceeds the 5 MB limit"))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAvatarExts[ext] {
		AbortWithError(c, newAPIError(http.StatusBadRequest, CodeNoFileUploaded, "unsupported image type"))
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s%s", accountID.String(), s.genID.Generate().String(), ext)
	dest := filepath.Join(s.cfg.UploadDir, filename)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		AbortWithError(c, err)
		return
	}

	avatarURL := "/uploads/" + filename
	account, err := s.authsvc.SetAvatar(c.Request.Context(), accountID, avatarURL)
	if err != nil {
		s.log.Warn("avatar stored but profile update failed",
			zap.String("account_id", accountID.String()),
			zap.String("path", dest),
			zap.Error(err))
		respondOK(c, "avatar uploaded", gin.H{"avatarUrl": avatarURL})
		return
	}

	respondOK(c, "avatar uploaded", gin.H{
		"avatarUrl": avatarURL,
		"account":   toAccountView(account),
	})
}
