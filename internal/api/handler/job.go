package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/logger"
)

// JobReader looks up a single job row.
type JobReader interface {
	Get(ctx context.Context, key domain.JobKey) (*domain.Job, error)
}

// URLResolver maps an object key to its public URL.
type URLResolver interface {
	GetURL(key string) string
}

// JobHandler serves the indexing status of a channel.
type JobHandler struct {
	jobs JobReader
	urls URLResolver
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - jobs: job store reader.
//   - urls: resolver for published artifact URLs; nil omits the artifact links.
//
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(jobs JobReader, urls URLResolver) *JobHandler {
	return &JobHandler{jobs: jobs, urls: urls}
}

// JobResponse is the status of one channel job.
type JobResponse struct {
	Platform      string     `json:"platform"`
	ChannelID     string     `json:"channel_id"`
	State         string     `json:"state"`
	StateCode     int        `json:"state_code"`
	Queued        time.Time  `json:"queued"`
	LastCompleted *time.Time `json:"last_completed,omitempty"`
	Artifacts     *Artifacts `json:"artifacts,omitempty"`
}

// Artifacts are the public URLs of a channel's published files.
type Artifacts struct {
	Index       string `json:"index"`
	Archive     string `json:"archive"`
	SearchEntry string `json:"search_entry"`
}

// GetJob handles GET /api/v1/jobs/:platform/:channel.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *JobHandler) GetJob(c *gin.Context) {
	platform, err := domain.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	channel := c.Param("channel")
	if err := domain.ValidateChannelID(channel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	key := domain.JobKey{PlatformID: platform, ChannelID: channel}

	job, err := h.jobs.Get(c.Request.Context(), key)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to load job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	resp := JobResponse{
		Platform:  job.PlatformID.String(),
		ChannelID: job.ChannelID,
		State:     job.JobState.String(),
		StateCode: int(job.JobState),
		Queued:    job.QueuedAt(),
	}
	if t := job.LastCompletedAt(); !t.IsZero() {
		resp.LastCompleted = &t
	}
	if h.urls != nil {
		resp.Artifacts = &Artifacts{
			Index:       h.urls.GetURL(domain.IndexKey(platform, channel)),
			Archive:     h.urls.GetURL(domain.ArchiveKey(platform, channel)),
			SearchEntry: h.urls.GetURL(domain.SearchBundleKey(platform, channel, domain.SearchEntryFileName)),
		}
	}
	c.JSON(http.StatusOK, resp)
}
