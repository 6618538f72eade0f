package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/go-homelink/homelink/internal/auth"
	"github.com/go-homelink/homelink/internal/config"
	"github.com/go-homelink/homelink/internal/metrics"
	"github.com/go-homelink/homelink/internal/services"
	"github.com/go-homelink/homelink/internal/store"
)

// LinkHandler serves the account-linking login form. A successful login
// mints an authorization code and bounces the browser back to the skill's
// callback URL with the code and the opaque state the assistant sent along.
type LinkHandler struct {
	provider    auth.Provider
	linkService *services.LinkService
	config      *config.Config
	metrics     metrics.Recorder
}

func NewLinkHandler(
	p auth.Provider,
	ls *services.LinkService,
	cfg *config.Config,
	m metrics.Recorder,
) *LinkHandler {
	return &LinkHandler{
		provider:    p,
		linkService: ls,
		config:      cfg,
		metrics:     m,
	}
}

// LoginPage renders the login form, pre-filling the state query parameter.
func (h *LinkHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"State": c.Query("state"),
	})
}

// Login handles the login form submission.
func (h *LinkHandler) Login(c *gin.Context) {
	email := c.PostForm("email-field")
	password := c.PostForm("password")
	state := c.PostForm("state")

	result, err := h.provider.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		h.metrics.RecordLogin(h.provider.Name(), false)

		if errors.Is(err, store.ErrUnavailable) {
			c.HTML(http.StatusServiceUnavailable, "login.html", gin.H{
				"State":   state,
				"Message": "Service temporarily unavailable, please try again",
			})
			return
		}
		c.HTML(http.StatusOK, "login.html", gin.H{
			"State":   state,
			"Message": "Invalid email or password",
		})
		return
	}
	h.metrics.RecordLogin(h.provider.Name(), true)

	code, err := h.linkService.IssueAuthorizationCode(c.Request.Context(), result.UID)
	if err != nil {
		// Only the entropy source failing gets here; persistence failures
		// are tolerated inside the service.
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"State":   state,
			"Message": "Something went wrong, please try again",
		})
		return
	}

	query := url.Values{}
	query.Set("state", state)
	query.Set("code", code)
	c.Redirect(http.StatusFound, h.config.SkillRedirectURL+"?"+query.Encode())
}
