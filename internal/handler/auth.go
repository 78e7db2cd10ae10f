package handler

import (
    "context"
    "database/sql"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/franpass87/fp-experiences/internal/config"
    "github.com/franpass87/fp-experiences/internal/repository"
    "github.com/franpass87/fp-experiences/internal/utils"
)

// AuthHandler bundles dependencies for the admin login endpoint.  There is
// no self-service registration: admin accounts are provisioned directly in
// the database.
type AuthHandler struct {
    Cfg   config.Config
    Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u}
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Role  string `json:"role"`
}
type authResp struct {
    User   userPart  `json:"user"`
    Access tokenPart `json:"access"`
}

// Login: verify credentials and return a short-lived access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }

    return c.JSON(http.StatusOK, authResp{
        User:   userPart{ID: u.ID, Email: u.Email, Role: u.Role},
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}
