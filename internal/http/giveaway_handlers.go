package http

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	"github.com/thenorthsolution/djs-utils/internal/common/middleware"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

// GiveawayService is the slice of the manager the API exposes.
type GiveawayService interface {
	Ready() bool
	CreateGiveaway(ctx context.Context, opts giveaway.CreateOptions) (dg.Giveaway, error)
	FetchGiveaway(ctx context.Context, id string) (dg.Giveaway, error)
	FetchGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error)
	FetchEntries(ctx context.Context, giveawayID string) ([]dg.Entry, error)
	PauseGiveaway(ctx context.Context, id string) (dg.Giveaway, error)
	ResumeGiveaway(ctx context.Context, id string) (dg.Giveaway, error)
	EndGiveaway(ctx context.Context, id string, cancel bool) (giveaway.EntriesData, error)
	RerollGiveaway(ctx context.Context, id string, opts giveaway.RerollOptions) (giveaway.EntriesData, error)
	DeleteGiveaway(ctx context.Context, id string, deleteMessage bool) (dg.Giveaway, error)
	ToggleUserEntry(ctx context.Context, giveawayID, userID string, updateMessage bool) (*dg.Entry, error)
	Clean(ctx context.Context, giveaways []dg.Giveaway) ([]dg.Giveaway, error)
}

// GiveawayHandlers serves the giveaway admin endpoints.
type GiveawayHandlers struct {
	service GiveawayService
}

func NewGiveawayHandlers(svc GiveawayService) *GiveawayHandlers {
	return &GiveawayHandlers{service: svc}
}

func (h *GiveawayHandlers) Register(r *gin.RouterGroup) {
	giveaways := r.Group("/giveaways")
	{
		giveaways.GET("", h.list)
		giveaways.POST("", h.create)
		giveaways.POST("/clean", h.clean)
		giveaways.GET("/:id", h.getByID)
		giveaways.DELETE("/:id", h.delete)
		giveaways.GET("/:id/entries", h.entries)
		giveaways.POST("/:id/pause", h.pause)
		giveaways.POST("/:id/resume", h.resume)
		giveaways.POST("/:id/end", h.end)
		giveaways.POST("/:id/reroll", h.reroll)
		giveaways.POST("/:id/entries/:user_id/toggle", h.toggle)
	}
}

// giveawayResponse adds the derived state and the paused remainder.
type giveawayResponse struct {
	dg.Giveaway
	State       dg.State `json:"state"`
	RemainingMS int64    `json:"remaining_ms,omitempty"`
}

func toResponse(g dg.Giveaway) giveawayResponse {
	resp := giveawayResponse{Giveaway: g, State: g.State()}
	if g.Paused {
		resp.RemainingMS = g.Remaining.Milliseconds()
	}
	return resp
}

func toResponses(gs []dg.Giveaway) []giveawayResponse {
	out := make([]giveawayResponse, len(gs))
	for i, g := range gs {
		out[i] = toResponse(g)
	}
	return out
}

// maxDurationMS is the largest duration_ms representable as a time.Duration.
const maxDurationMS = math.MaxInt64 / int64(time.Millisecond)

type createGiveawayRequest struct {
	ChannelID     string     `json:"channel_id" binding:"required"`
	Name          string     `json:"name" binding:"required"`
	Description   string     `json:"description"`
	HostID        string     `json:"host_id"`
	WinnerCount   int        `json:"winner_count"`
	DurationMS    int64      `json:"duration_ms"`
	EndsAt        *time.Time `json:"ends_at"`
	RiggedUserIDs []string   `json:"rigged_user_ids"`
}

func (h *GiveawayHandlers) create(c *gin.Context) {
	var req createGiveawayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, apperrors.NewValidationError("body", err.Error()))
		return
	}

	if req.DurationMS < 0 || req.DurationMS > maxDurationMS {
		middleware.AbortWithError(c, apperrors.NewValidationError("duration_ms", "out of range"))
		return
	}

	opts := giveaway.CreateOptions{
		ChannelID:     req.ChannelID,
		HostID:        req.HostID,
		Name:          req.Name,
		Description:   req.Description,
		WinnerCount:   req.WinnerCount,
		RiggedUserIDs: req.RiggedUserIDs,
		Duration:      time.Duration(req.DurationMS) * time.Millisecond,
	}
	if req.EndsAt != nil {
		opts.EndsAt = *req.EndsAt
	}

	g, err := h.service.CreateGiveaway(c.Request.Context(), opts)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(g))
}

func (h *GiveawayHandlers) list(c *gin.Context) {
	q := dg.GiveawayQuery{}
	if v := c.Query("guild_id"); v != "" {
		q.Filter.GuildID = &v
	}
	if v := c.Query("channel_id"); v != "" {
		q.Filter.ChannelID = &v
	}
	for name, dst := range map[string]**bool{"ended": &q.Filter.Ended, "paused": &q.Filter.Paused} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			middleware.AbortWithError(c, apperrors.NewValidationError(name, "must be a boolean"))
			return
		}
		*dst = &b
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.AbortWithError(c, apperrors.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		q.Limit = n
	}

	gs, err := h.service.FetchGiveaways(c.Request.Context(), q)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": toResponses(gs)})
}

func (h *GiveawayHandlers) getByID(c *gin.Context) {
	g, err := h.service.FetchGiveaway(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(g))
}

func (h *GiveawayHandlers) entries(c *gin.Context) {
	entries, err := h.service.FetchEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *GiveawayHandlers) pause(c *gin.Context) {
	g, err := h.service.PauseGiveaway(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(g))
}

func (h *GiveawayHandlers) resume(c *gin.Context) {
	g, err := h.service.ResumeGiveaway(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(g))
}

func (h *GiveawayHandlers) end(c *gin.Context) {
	cancel, _ := strconv.ParseBool(c.Query("cancel"))

	data, err := h.service.EndGiveaway(c.Request.Context(), c.Param("id"), cancel)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *GiveawayHandlers) reroll(c *gin.Context) {
	var opts giveaway.RerollOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			middleware.AbortWithError(c, apperrors.NewValidationError("body", err.Error()))
			return
		}
	}

	data, err := h.service.RerollGiveaway(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *GiveawayHandlers) delete(c *gin.Context) {
	keepMessage, _ := strconv.ParseBool(c.Query("keep_message"))

	g, err := h.service.DeleteGiveaway(c.Request.Context(), c.Param("id"), !keepMessage)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(g))
}

func (h *GiveawayHandlers) toggle(c *gin.Context) {
	entry, err := h.service.ToggleUserEntry(c.Request.Context(), c.Param("id"), c.Param("user_id"), true)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"entered": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entered": true, "entry": entry})
}

func (h *GiveawayHandlers) clean(c *gin.Context) {
	cleaned, err := h.service.Clean(c.Request.Context(), nil)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleaned": toResponses(cleaned)})
}
