package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reem20050/workforce-intel/pkg/auth"
	"github.com/reem20050/workforce-intel/pkg/database"
	"github.com/reem20050/workforce-intel/pkg/engine"
	"github.com/reem20050/workforce-intel/pkg/models"
	"gorm.io/gorm"
)

const defaultSuggestionLimit = 5

// Handler contains dependencies for the route handlers
type Handler struct {
	DB       *gorm.DB
	Engine   *engine.Service
	Insights *engine.Generator
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the API key for engine routes using HMAC
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		consumerID, err := auth.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:       key,
			Name:      consumerID,
			RateLimit: 10000,
		})

		c.Set("apiKey", &apiKey)
		c.Set("consumerID", consumerID)
		c.Next()
	}
}

// Suggest handles the interactive candidate lookup for one shift opening.
// Incomplete parameters and missing mandatory signals degrade to an empty
// list with a note, never an error status.
func (h *Handler) Suggest(c *gin.Context) {
	req, err := parseSuggestQuery(c)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"suggestions": []models.Suggestion{},
			"note":        err.Error(),
		})
		return
	}

	suggestions, warnings, err := h.Engine.Suggest(c.Request.Context(), req)
	if err != nil {
		if engine.IsValidation(err) || engine.IsDataUnavailable(err) {
			c.JSON(http.StatusOK, gin.H{
				"suggestions": []models.Suggestion{},
				"note":        err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.RecordUsage(c, len(suggestions))

	limit := defaultSuggestionLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			limit = n
		}
	}
	total := len(suggestions)
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	resp := gin.H{
		"suggestions":      suggestions,
		"total_candidates": total,
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// parseSuggestQuery builds a SuggestRequest from query parameters.
// An end time at or before the start is treated as an overnight shift.
func parseSuggestQuery(c *gin.Context) (engine.SuggestRequest, error) {
	var req engine.SuggestRequest

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		return req, errors.New("date is required as YYYY-MM-DD")
	}
	startClock, err := time.Parse("15:04", c.Query("start"))
	if err != nil {
		return req, errors.New("start is required as HH:MM")
	}
	endClock, err := time.Parse("15:04", c.Query("end"))
	if err != nil {
		return req, errors.New("end is required as HH:MM")
	}

	start := time.Date(date.Year(), date.Month(), date.Day(),
		startClock.Hour(), startClock.Minute(), 0, 0, time.UTC)
	end := time.Date(date.Year(), date.Month(), date.Day(),
		endClock.Hour(), endClock.Minute(), 0, 0, time.UTC)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	req.Date = date
	req.Start = start
	req.End = end
	req.RequiresWeapon = c.Query("weapon") == "true" || c.Query("weapon") == "1"
	req.SiteID = c.Query("site_id")
	req.TemplateID = c.Query("template_id")
	return req, nil
}

// Heatmap returns the historical understaffing rate per (site, weekday).
// Rates are exact integers; bucketing is a display concern of the caller.
func (h *Handler) Heatmap(c *gin.Context) {
	patterns, err := h.Engine.Heatmap(c.Request.Context())
	if err != nil {
		if engine.IsDataUnavailable(err) {
			c.JSON(http.StatusOK, gin.H{"heatmap": []models.ShortagePattern{}, "note": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if patterns == nil {
		patterns = []models.ShortagePattern{}
	}
	c.JSON(http.StatusOK, gin.H{"heatmap": patterns})
}

// FatigueRisks returns roster members at medium or high fatigue risk
func (h *Handler) FatigueRisks(c *gin.Context) {
	risks, warnings, err := h.Engine.FatigueRisks(c.Request.Context(), time.Now())
	if err != nil {
		if engine.IsDataUnavailable(err) {
			c.JSON(http.StatusOK, gin.H{"risks": []models.FatigueRisk{}, "note": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if risks == nil {
		risks = []models.FatigueRisk{}
	}
	resp := gin.H{"risks": risks}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// StaffingSuggestions returns advisory headcount adjustments
func (h *Handler) StaffingSuggestions(c *gin.Context) {
	suggestions, err := h.Engine.StaffingSuggestions(c.Request.Context())
	if err != nil {
		if engine.IsDataUnavailable(err) {
			c.JSON(http.StatusOK, gin.H{"suggestions": []models.StaffingSuggestion{}, "note": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if suggestions == nil {
		suggestions = []models.StaffingSuggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// LatestInsight returns the most recent weekly snapshot, null when none exists
func (h *Handler) LatestInsight(c *gin.Context) {
	insight, err := h.Insights.Latest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch insight"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"insight": insight})
}

// GenerateInsight triggers a snapshot run. A run already in progress is
// rejected with 409; the caller retries, nothing is queued.
func (h *Handler) GenerateInsight(c *gin.Context) {
	insight, err := h.Insights.Generate(c.Request.Context(), engine.TriggerManual)
	if err != nil {
		if errors.Is(err, engine.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":        insight.RunID,
		"severity":      insight.Severity,
		"analysis_date": insight.AnalysisDate,
	})
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	key := auth.GenerateHMACKey(req.Name)

	preview := ""
	if len(key) > 8 {
		preview = key[:3] + "..." + key[len(key)-4:]
	} else {
		preview = "****"
	}

	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: preview,
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	h.DB.Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Delete(&database.APIKey{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}
