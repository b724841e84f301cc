package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reem20050/workforce-intel/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordUsage records API usage in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, candidateCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":     gorm.Expr("request_count + ?", 1),
			"total_suggestions": gorm.Expr("total_suggestions + ?", 1),
			"total_candidates":  gorm.Expr("total_candidates + ?", candidateCount),
		}),
	}).Create(&database.APIUsage{
		KeyID:            apiKey.ID,
		Date:             today,
		RequestCount:     1,
		TotalSuggestions: 1,
		TotalCandidates:  candidateCount,
	})
}

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	var usage []database.APIUsage
	if err := h.DB.Where("key_id = ?", apiKey.ID).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}

	// Calculate totals
	var totalRequests, totalSuggestions, totalCandidates int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalSuggestions += int64(u.TotalSuggestions)
		totalCandidates += int64(u.TotalCandidates)
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": usage,
		"totals": gin.H{
			"requests":    totalRequests,
			"suggestions": totalSuggestions,
			"candidates":  totalCandidates,
		},
	})
}
