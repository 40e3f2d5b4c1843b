package handlers

import (
	"net/http"
	"time"

	"newsforge/middleware"
	"newsforge/services"
	"newsforge/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/zeebo/errs"
	"golang.org/x/crypto/bcrypt"
)

type AuthInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

func (a *API) Signup(c *gin.Context) {
	var input AuthInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := a.store.CreateUser(c.Request.Context(), input.Email, string(hash), input.Name)
	if err != nil {
		respondError(c, http.StatusConflict, "email already registered")
		return
	}

	token, err := a.generateToken(user.ID, user.Email)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to issue token")
		return
	}
	a.setAuthCookie(c, token)
	respondSuccess(c, http.StatusCreated, gin.H{"token": token, "user": user})
}

func (a *API) Login(c *gin.Context) {
	var input AuthInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.GetUserByEmail(c.Request.Context(), input.Email)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := a.generateToken(user.ID, user.Email)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to issue token")
		return
	}
	a.setAuthCookie(c, token)
	respondOK(c, gin.H{"token": token, "user": user})
}

func (a *API) Logout(c *gin.Context) {
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", false, true)
	respondOK(c, gin.H{"message": "logged out"})
}

func (a *API) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := a.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errs.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}

	count, err := a.store.CountNewsletters(c.Request.Context(), userID)
	if err != nil {
		count = 0
	}

	respondOK(c, gin.H{
		"user":             user,
		"newsletter_count": count,
		"newsletter_limit": services.NewsletterLimit(user.Plan),
	})
}

func (a *API) generateToken(id, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": id,
		"email":   email,
		"exp":     time.Now().Add(time.Hour * 24 * 7).Unix(),
	})
	return token.SignedString([]byte(a.cfg.JWTSecret))
}

func (a *API) setAuthCookie(c *gin.Context, token string) {
	secure := a.cfg.Env == "production"
	c.SetCookie(middleware.AuthCookieName, token, 3600*24*7, "/", "", secure, true)
}
