package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/directory"
	"github.com/dkeye/Meet/internal/domain"
)

// MeetingController is the meeting-lifecycle REST surface. Unlike the
// presence path, directory failures here surface to the caller as 500s.
type MeetingController struct {
	Dir directory.Directory
}

func nowMillis() int64 { return time.Now().UnixMilli() }

type startRequest struct {
	HostID   string `json:"hostId" binding:"required"`
	HostName string `json:"hostName" binding:"required"`
}

// Start creates a meeting with a generated 9-digit identifier.
func (mc *MeetingController) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing hostId or hostName"})
		return
	}

	meeting := domain.Meeting{
		ID:        domain.NewMeetingID(),
		HostID:    domain.ParticipantID(req.HostID),
		HostName:  req.HostName,
		StartTime: nowMillis(),
		IsActive:  true,
	}
	if err := mc.Dir.CreateMeeting(c.Request.Context(), meeting); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Meeting Created",
		"data":    gin.H{"meetingId": meeting.ID},
	})
}

// Join checks that a meeting exists and returns its meta plus the current
// participant snapshot.
func (mc *MeetingController) Join(c *gin.Context) {
	roomID := domain.RoomID(c.Query("meetingId"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing meetingId"})
		return
	}

	meeting, err := mc.Dir.GetMeeting(c.Request.Context(), roomID)
	if errors.Is(err, directory.ErrMeetingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Meeting Not Found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("get meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	participants, err := mc.Dir.ListParticipants(c.Request.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("list participants")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Success",
		"data": gin.H{
			"meeting":      meeting,
			"participants": participants,
		},
	})
}

// Users returns every participant record of a meeting, online or not.
func (mc *MeetingController) Users(c *gin.Context) {
	roomID := domain.RoomID(c.Query("meetingId"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing meetingId"})
		return
	}

	participants, err := mc.Dir.ListParticipants(c.Request.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("list participants")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Success", "data": participants})
}
